// Package update implements the one-shot fleet update command.
package update

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tasmofleet/internal/application/update/usecases"
	domainupdate "tasmofleet/internal/domain/update"
	"tasmofleet/internal/infrastructure/config"
	"tasmofleet/internal/infrastructure/devicestore"
	"tasmofleet/internal/infrastructure/githubrelease"
	"tasmofleet/internal/infrastructure/history"
	"tasmofleet/internal/infrastructure/tasmota"
	"tasmofleet/internal/shared/logger"
)

var (
	env         string
	devicesFile string
	checkOnly   bool
	forceUpdate bool
	dryRun      bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run one fleet update pass",
		Long:  `Probe every configured device, compare against the latest release, and flash the ones that are behind.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "release", "Gin mode (debug, test, release)")
	cmd.Flags().StringVar(&devicesFile, "devices", "", "Devices file (overrides the configured path)")
	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "Report update need without flashing")
	cmd.Flags().BoolVar(&forceUpdate, "force", false, "Flash even devices that are not behind")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Walk the update path without sending the OTA command")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if devicesFile != "" {
		cfg.Updater.DevicesFile = devicesFile
	}

	log := logger.NewLogger()

	store := devicestore.NewStore(cfg.Updater.DevicesFile, log)
	devices, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load devices: %w", err)
	}

	probeTimeout := time.Duration(cfg.Updater.ProbeTimeoutSeconds) * time.Second
	recoveryTimeout := time.Duration(cfg.Updater.RecoveryTimeoutSeconds) * time.Second
	pollInterval := time.Duration(cfg.Updater.PollIntervalSeconds) * time.Second

	gateway := tasmota.NewGateway(probeTimeout, log)
	resolver := githubrelease.NewResolver(&cfg.Release, log)
	reconcileUC := usecases.NewReconcileDeviceUseCase(gateway, usecases.SystemClock(), log)
	fleetUC := usecases.NewRunFleetUseCase(
		resolver,
		reconcileUC,
		cfg.Updater.Concurrency,
		recoveryTimeout,
		pollInterval,
		log,
	)

	// SIGINT aborts the run; in-flight devices report cancellation outcomes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	summary, err := fleetUC.Execute(ctx, devices, usecases.RunFleetCommand{
		CheckOnly:   checkOnly,
		ForceUpdate: forceUpdate,
		DryRun:      dryRun,
	})
	if err != nil {
		return err
	}
	finishedAt := time.Now()

	if cfg.History.Enabled {
		recordRun(cfg.History.Path, summary, startedAt, finishedAt, log)
	}

	printSummary(summary)

	if failed := summary.Checked - succeededCount(summary); failed > 0 {
		return fmt.Errorf("%d device(s) failed", failed)
	}
	return nil
}

func recordRun(path string, summary *domainupdate.FleetSummary, startedAt, finishedAt time.Time, log logger.Interface) {
	historyStore, err := history.Open(path, log)
	if err != nil {
		log.Warnw("failed to open history store", "error", err)
		return
	}
	defer historyStore.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := historyStore.RecordRun(ctx, summary, checkOnly, dryRun, startedAt, finishedAt); err != nil {
		log.Warnw("failed to record fleet run", "error", err)
	}
}

func printSummary(summary *domainupdate.FleetSummary) {
	for _, o := range summary.Outcomes {
		if o == nil {
			continue
		}
		status := "OK"
		if !o.Success {
			status = "FAIL"
		}
		label := o.Address
		if o.Name != "" {
			label = fmt.Sprintf("%s (%s)", o.Name, o.Address)
		}
		fmt.Fprintf(os.Stdout, "[%4s] %s: %s (installed %s, latest %s)\n",
			status, label, o.Message, o.CurrentVersion, o.LatestVersion)
	}
	fmt.Fprintf(os.Stdout, "\n%d device(s) checked, %d need updating, %d updated\n",
		summary.Checked, summary.NeedsUpdate, summary.Updated)
}

func succeededCount(summary *domainupdate.FleetSummary) int {
	n := 0
	for _, o := range summary.Outcomes {
		if o != nil && o.Success {
			n++
		}
	}
	return n
}
