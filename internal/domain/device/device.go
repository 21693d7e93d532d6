// Package device defines the device records the updater reconciles and the
// error taxonomy for talking to them.
package device

import (
	"strings"
	"time"

	"tasmofleet/internal/shared/errors"
)

// Device is one configured Tasmota device. Records are loaded from the
// devices file at startup and are immutable for the duration of a run.
type Device struct {
	Address string `yaml:"address" json:"address"`
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	// DNSName overrides reverse-lookup for simulated devices.
	DNSName  string `yaml:"dns_name,omitempty" json:"dns_name,omitempty"`
	Username string `yaml:"username,omitempty" json:"username,omitempty"`
	Password string `yaml:"password,omitempty" json:"password,omitempty"`
	// TimeoutSeconds overrides the fleet-wide recovery timeout.
	TimeoutSeconds int `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	Simulated bool `yaml:"simulated,omitempty" json:"simulated,omitempty"`
	// SimulatedFirmware is the firmware snapshot a simulated device reports.
	SimulatedFirmware *FirmwareInfo `yaml:"firmware_info,omitempty" json:"-"`
	// SimulatedRecoveryPolls is how many reachability polls a simulated
	// device stays offline for after an upgrade command.
	SimulatedRecoveryPolls int `yaml:"recovery_polls,omitempty" json:"-"`
}

// Label returns the friendly identifier used in messages and logs.
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Address
}

// HasCredentials reports whether basic-auth credentials are configured.
func (d Device) HasCredentials() bool {
	return d.Username != "" && d.Password != ""
}

// RecoveryTimeout returns the per-device recovery window, falling back to
// the fleet default when no override is set.
func (d Device) RecoveryTimeout(fallback time.Duration) time.Duration {
	if d.TimeoutSeconds > 0 {
		return time.Duration(d.TimeoutSeconds) * time.Second
	}
	return fallback
}

// Validate checks the fields the engine depends on.
func (d Device) Validate() error {
	addr := strings.TrimSpace(d.Address)
	if addr == "" {
		return errors.NewValidationError("device address is required")
	}
	if strings.Contains(addr, "://") {
		return errors.NewValidationError("device address must not include a scheme", addr)
	}
	if strings.ContainsAny(addr, "@/ ") {
		return errors.NewValidationError("device address must be a bare host or host:port", addr)
	}
	return nil
}
