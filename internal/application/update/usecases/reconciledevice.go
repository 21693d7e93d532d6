package usecases

import (
	"context"
	"fmt"
	"time"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	"tasmofleet/internal/domain/update"
	"tasmofleet/internal/shared/logger"
	"tasmofleet/internal/shared/version"
)

const (
	// DefaultRecoveryTimeout bounds how long a device may stay offline
	// after an OTA command before the run gives up on it.
	DefaultRecoveryTimeout = 60 * time.Second
	// DefaultPollInterval is the pause between reachability polls while
	// waiting for a device to come back.
	DefaultPollInterval = 5 * time.Second
)

// ReconcileOptions controls one reconciliation pass.
type ReconcileOptions struct {
	// CheckOnly reports whether an update is needed without flashing.
	CheckOnly bool
	// ForceUpdate flashes even when the device is not behind.
	ForceUpdate bool
	// DryRun walks the update path but never issues the OTA command.
	DryRun bool
	// RecoveryTimeout is the fleet-wide recovery window; per-device
	// overrides win.
	RecoveryTimeout time.Duration
	// PollInterval is the pause between recovery polls.
	PollInterval time.Duration
}

func (o ReconcileOptions) recoveryTimeout() time.Duration {
	if o.RecoveryTimeout > 0 {
		return o.RecoveryTimeout
	}
	return DefaultRecoveryTimeout
}

func (o ReconcileOptions) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return DefaultPollInterval
}

// ReconcileDeviceUseCase drives one device through probe, comparison, OTA
// command, and recovery wait. Every call terminates with exactly one
// outcome; no error ever escapes to the fleet level.
type ReconcileDeviceUseCase struct {
	gateway DeviceGateway
	clock   Clock
	logger  logger.Interface
}

func NewReconcileDeviceUseCase(gateway DeviceGateway, clock Clock, log logger.Interface) *ReconcileDeviceUseCase {
	if clock == nil {
		clock = SystemClock()
	}
	return &ReconcileDeviceUseCase{
		gateway: gateway,
		clock:   clock,
		logger:  log,
	}
}

// Execute reconciles one device against the resolved release. A nil or
// invalid release means "cannot determine update need", never "up to
// date".
func (uc *ReconcileDeviceUseCase) Execute(ctx context.Context, d device.Device, rel *release.Info, opts ReconcileOptions) *update.Outcome {
	start := uc.clock.Now()
	out := uc.reconcile(ctx, d, rel, opts)
	out.FinishedAfter(uc.clock.Now().Sub(start))

	uc.logger.Infow("device reconciled",
		"device", d.Label(),
		"success", out.Success,
		"needs_update", out.NeedsUpdate,
		"message", out.Message,
	)
	return out
}

func (uc *ReconcileDeviceUseCase) reconcile(ctx context.Context, d device.Device, rel *release.Info, opts ReconcileOptions) *update.Outcome {
	out := &update.Outcome{
		Address:        d.Address,
		Name:           d.Name,
		DNSName:        d.DNSName,
		CurrentVersion: device.UnknownVersion,
		LatestVersion:  device.UnknownVersion,
	}

	// Probe the installed firmware first; without it nothing else is
	// decidable.
	info, err := uc.gateway.Probe(ctx, d)
	if err != nil {
		if pe := device.AsProbeError(err); pe != nil {
			out.Message = "failed to get current firmware version: " + pe.Kind.Describe()
		} else {
			out.Message = "failed to get current firmware version"
		}
		uc.logger.Warnw("probe failed", "device", d.Label(), "error", err)
		return out
	}
	out.CurrentVersion = info.Version

	if !rel.Valid() {
		out.Message = "cannot determine latest version"
		return out
	}
	out.LatestVersion = rel.Version

	cmp := version.Compare(info.Version, rel.Version)
	if cmp == version.Incomparable {
		// Fail safe: never flash on a comparison we cannot trust.
		out.Message = fmt.Sprintf("cannot determine update need: installed version %q is not comparable with %q", info.Version, rel.Version)
		return out
	}
	out.NeedsUpdate = cmp == version.Older

	if !out.NeedsUpdate && !opts.ForceUpdate {
		out.Success = true
		out.Message = "device is already running the latest version"
		return out
	}

	if opts.CheckOnly {
		out.Success = true
		if out.NeedsUpdate {
			out.Message = fmt.Sprintf("update available: %s -> %s", info.Version, rel.Version)
		} else {
			out.Message = "device is already running the latest version"
		}
		return out
	}

	if opts.DryRun {
		out.Success = true
		out.Message = fmt.Sprintf("dry run: update to %s simulated, no command sent", rel.Version)
		return out
	}

	timeout := d.RecoveryTimeout(opts.recoveryTimeout())
	out.TimeoutSeconds = int(timeout / time.Second)

	out.UpdateStarted = true
	if err := uc.gateway.SendUpgrade(ctx, d, rel); err != nil {
		out.Message = fmt.Sprintf("failed to send upgrade command: %v", err)
		uc.logger.Warnw("upgrade command failed", "device", d.Label(), "error", err)
		return out
	}

	uc.logger.Infow("upgrade command sent, waiting for device to come back online",
		"device", d.Label(),
		"timeout", timeout,
	)

	if !uc.waitForRecovery(ctx, d, timeout, opts.pollInterval()) {
		// Reported as a failure for aggregation, but the device may well
		// still be mid-flash; say so instead of declaring it dead.
		out.Message = fmt.Sprintf("update initiated but device did not come back online within %d seconds; it may still be completing the update", out.TimeoutSeconds)
		return out
	}
	out.UpdateCompleted = true

	// The device answering again does not prove the flash took. Re-probe
	// and make sure it no longer reports an older version.
	if after, err := uc.gateway.Probe(ctx, d); err == nil {
		out.CurrentVersion = after.Version
		if version.Compare(after.Version, rel.Version) == version.Older {
			out.UpdateCompleted = false
			out.Message = fmt.Sprintf("device came back online but still reports version %s; the update does not appear to have been applied", after.Version)
			return out
		}
	}

	out.Success = true
	out.Message = "update successful"
	return out
}

// waitForRecovery polls reachability at a fixed interval against a
// wall-clock deadline. The first successful poll counts as recovery even
// when no offline window was observed; fast devices may finish rebooting
// between polls.
func (uc *ReconcileDeviceUseCase) waitForRecovery(ctx context.Context, d device.Device, timeout, interval time.Duration) bool {
	deadline := uc.clock.Now().Add(timeout)

	for uc.clock.Now().Before(deadline) {
		if err := uc.clock.Sleep(ctx, interval); err != nil {
			return false
		}
		if err := uc.gateway.Ping(ctx, d); err == nil {
			return true
		}
	}
	return false
}
