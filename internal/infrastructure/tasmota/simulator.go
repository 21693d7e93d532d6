package tasmota

import (
	"context"
	"fmt"
	"sync"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	"tasmofleet/internal/shared/logger"
)

// Simulator satisfies the same contract as Client for devices flagged
// simulated, with no network I/O. It lets the fleet run against test
// records and keeps the substitution invisible to the orchestrator.
type Simulator struct {
	logger logger.Interface

	mu sync.Mutex
	// offlinePolls counts the reachability polls a device still "misses"
	// after an upgrade command, keyed by address.
	offlinePolls map[string]int
	// flashedTo records the version a device was upgraded to, so probes
	// after recovery report the new firmware.
	flashedTo map[string]string
}

func NewSimulator(log logger.Interface) *Simulator {
	return &Simulator{
		logger:       log,
		offlinePolls: make(map[string]int),
		flashedTo:    make(map[string]string),
	}
}

// Probe returns the device's preset firmware snapshot, or the flashed
// version once a simulated upgrade has completed.
func (s *Simulator) Probe(_ context.Context, d device.Device) (*device.FirmwareInfo, error) {
	s.mu.Lock()
	flashed := s.flashedTo[d.Address]
	s.mu.Unlock()

	if flashed != "" {
		return device.NewFirmwareInfo(flashed, device.UnknownVersion, device.UnknownVersion), nil
	}
	if d.SimulatedFirmware != nil {
		info := *d.SimulatedFirmware
		if info.Version == "" {
			info.Version = device.UnknownVersion
		}
		return &info, nil
	}

	s.logger.Warnw("simulated device has no firmware info configured, using default",
		"device", d.Label(),
	)
	return device.DefaultSimulatedFirmware(), nil
}

// SendUpgrade marks the device as flashing: it will miss the configured
// number of reachability polls, then come back reporting the release
// version.
func (s *Simulator) SendUpgrade(_ context.Context, d device.Device, rel *release.Info) error {
	polls := d.SimulatedRecoveryPolls
	if polls <= 0 {
		polls = 1
	}

	s.mu.Lock()
	s.offlinePolls[d.Address] = polls
	if rel != nil {
		s.flashedTo[d.Address] = rel.Version
	}
	s.mu.Unlock()

	s.logger.Infow("simulated upgrade command accepted",
		"device", d.Label(),
		"offline_polls", polls,
	)
	return nil
}

// Ping fails while the device is mid-flash and succeeds once the
// configured number of polls has elapsed.
func (s *Simulator) Ping(_ context.Context, d device.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if remaining := s.offlinePolls[d.Address]; remaining > 0 {
		s.offlinePolls[d.Address] = remaining - 1
		return fmt.Errorf("simulated device %s still rebooting", d.Address)
	}
	return nil
}
