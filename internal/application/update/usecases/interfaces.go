// Package usecases implements the device reconciliation and fleet
// orchestration engine.
package usecases

import (
	"context"
	"time"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
)

// DeviceGateway is everything the engine needs from a device, real or
// simulated.
type DeviceGateway interface {
	// Probe fetches the installed firmware snapshot.
	Probe(ctx context.Context, d device.Device) (*device.FirmwareInfo, error)
	// SendUpgrade issues the OTA command for the given release. The device
	// reboots asynchronously on acceptance.
	SendUpgrade(ctx context.Context, d device.Device, rel *release.Info) error
	// Ping is the lightweight reachability check used during recovery.
	Ping(ctx context.Context, d device.Device) error
}

// ReleaseResolver supplies the latest known firmware release.
type ReleaseResolver interface {
	GetLatestRelease(ctx context.Context) (*release.Info, error)
}

// Clock abstracts wall-clock time so recovery waits are testable without
// real sleeping.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx.Err() when
	// cancelled.
	Sleep(ctx context.Context, d time.Duration) error
}
