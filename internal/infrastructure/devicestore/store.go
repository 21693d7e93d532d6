// Package devicestore loads the configured device fleet from the devices
// YAML file. The core engine treats the loaded records as opaque input.
package devicestore

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/shared/logger"
)

// devicesFile is the on-disk schema:
//
//	devices:
//	  - address: 192.168.1.50
//	    username: admin
//	    password: secret
type devicesFile struct {
	Devices []device.Device `yaml:"devices"`
}

// Store reads device records from a YAML file.
type Store struct {
	path   string
	logger logger.Interface
}

func NewStore(path string, log logger.Interface) *Store {
	return &Store{
		path:   path,
		logger: log,
	}
}

// Load reads and validates the devices file. Entries that fail validation
// are skipped with a warning instead of failing the whole fleet.
func (s *Store) Load() ([]device.Device, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read devices file %s: %w", s.path, err)
	}

	var file devicesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse devices file %s: %w", s.path, err)
	}

	devices := make([]device.Device, 0, len(file.Devices))
	for i, d := range file.Devices {
		if err := d.Validate(); err != nil {
			s.logger.Warnw("skipping invalid device entry",
				"index", i+1,
				"error", err,
			)
			continue
		}
		devices = append(devices, d)
	}

	s.logger.Infow("loaded devices", "count", len(devices), "file", s.path)
	return devices, nil
}

// ResolveDNSName attempts a reverse lookup for a device address. Simulated
// devices use their preconfigured DNS name. Returns "" when nothing
// resolves; the name is cosmetic, failure is not an error.
func ResolveDNSName(d device.Device) string {
	if d.DNSName != "" {
		return d.DNSName
	}
	if d.Simulated {
		return ""
	}

	host := d.Address
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	names, err := net.LookupAddr(host)
	if err != nil || len(names) == 0 {
		return ""
	}
	name := strings.TrimSuffix(names[0], ".")
	if name == host {
		return ""
	}
	return name
}
