package device

import "strings"

// UnknownVersion is reported when a device omits a firmware field.
const UnknownVersion = "Unknown"

// FirmwareInfo is a snapshot of a device's installed firmware. It is
// produced fresh on every probe and never mutated.
type FirmwareInfo struct {
	Version     string `yaml:"version" json:"version"`
	CoreVersion string `yaml:"core_version" json:"core_version"`
	SDKVersion  string `yaml:"sdk_version" json:"sdk_version"`
	IsMinimal   bool   `yaml:"is_minimal" json:"is_minimal"`
}

// NewFirmwareInfo builds a snapshot from raw device fields, defaulting
// anything missing to Unknown. The minimal-build flag is derived from the
// version string the way Tasmota names its minimal images.
func NewFirmwareInfo(version, core, sdk string) *FirmwareInfo {
	if version == "" {
		version = UnknownVersion
	}
	if core == "" {
		core = UnknownVersion
	}
	if sdk == "" {
		sdk = UnknownVersion
	}
	return &FirmwareInfo{
		Version:     version,
		CoreVersion: core,
		SDKVersion:  sdk,
		IsMinimal:   version != UnknownVersion && strings.Contains(strings.ToLower(version), "minimal"),
	}
}

// DefaultSimulatedFirmware is what a simulated device reports when its
// record carries no preset firmware info.
func DefaultSimulatedFirmware() *FirmwareInfo {
	return &FirmwareInfo{
		Version:     "12.0.0",
		CoreVersion: "2.7.4.9",
		SDKVersion:  "3.0.2",
	}
}
