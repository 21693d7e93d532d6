package usecases

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	"tasmofleet/internal/domain/update"
	"tasmofleet/internal/shared/errors"
	"tasmofleet/internal/shared/logger"
)

// DefaultConcurrency bounds how many devices flash at once. Kept small so
// a run cannot saturate a LAN segment with rebooting devices.
const DefaultConcurrency = 4

// RunFleetCommand selects the mode for one fleet run.
type RunFleetCommand struct {
	CheckOnly   bool
	ForceUpdate bool
	DryRun      bool
}

// RunFleetUseCase fans device reconciliation out across the fleet with a
// bounded worker pool. Devices are independent: one device's failure never
// aborts or blocks the others. The latest release is resolved once and
// shared read-only across the run.
type RunFleetUseCase struct {
	resolver  ReleaseResolver
	reconcile *ReconcileDeviceUseCase

	concurrency     int
	recoveryTimeout time.Duration
	pollInterval    time.Duration

	logger logger.Interface
}

func NewRunFleetUseCase(
	resolver ReleaseResolver,
	reconcile *ReconcileDeviceUseCase,
	concurrency int,
	recoveryTimeout time.Duration,
	pollInterval time.Duration,
	log logger.Interface,
) *RunFleetUseCase {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &RunFleetUseCase{
		resolver:        resolver,
		reconcile:       reconcile,
		concurrency:     concurrency,
		recoveryTimeout: recoveryTimeout,
		pollInterval:    pollInterval,
		logger:          log,
	}
}

// Execute reconciles every device and aggregates a summary. Outcomes keep
// the input device order regardless of completion order.
func (uc *RunFleetUseCase) Execute(ctx context.Context, devices []device.Device, cmd RunFleetCommand) (*update.FleetSummary, error) {
	if len(devices) == 0 {
		return nil, errors.NewValidationError("no devices configured")
	}

	// One fetch per run; every device compares against the same release.
	rel, err := uc.resolver.GetLatestRelease(ctx)
	if err != nil {
		// Not fatal: each device still reports its probed version with a
		// "cannot determine" outcome.
		uc.logger.Warnw("latest release unavailable for this run", "error", err)
		rel = nil
	}

	opts := ReconcileOptions{
		CheckOnly:       cmd.CheckOnly,
		ForceUpdate:     cmd.ForceUpdate,
		DryRun:          cmd.DryRun,
		RecoveryTimeout: uc.recoveryTimeout,
		PollInterval:    uc.pollInterval,
	}

	uc.logger.Infow("starting fleet run",
		"devices", len(devices),
		"check_only", cmd.CheckOnly,
		"force_update", cmd.ForceUpdate,
		"dry_run", cmd.DryRun,
		"concurrency", uc.concurrency,
	)

	outcomes := make([]*update.Outcome, len(devices))
	jobs := make(chan int)

	workers := uc.concurrency
	if workers > len(devices) {
		workers = len(devices)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = uc.reconcileOne(ctx, devices[i], rel, opts)
			}
		}()
	}

	for i := range devices {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := update.Summarize(outcomes)
	uc.logger.Infow("fleet run finished",
		"total", summary.Total,
		"needs_update", summary.NeedsUpdate,
		"updated", summary.Updated,
	)
	return summary, nil
}

// reconcileOne isolates a single device: even a panic inside its
// reconciliation becomes a failed outcome instead of taking down the run.
func (uc *RunFleetUseCase) reconcileOne(ctx context.Context, d device.Device, rel *release.Info, opts ReconcileOptions) (out *update.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Errorw("reconciliation panicked",
				"device", d.Label(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			out = &update.Outcome{
				Address:        d.Address,
				Name:           d.Name,
				CurrentVersion: device.UnknownVersion,
				LatestVersion:  device.UnknownVersion,
				Message:        "internal error during reconciliation",
			}
		}
	}()
	return uc.reconcile.Execute(ctx, d, rel, opts)
}
