package config

import "github.com/tamzrod/modbus-master/internal/status"

// DefaultTimeoutMs applies when device.timeout_ms is left at zero.
const DefaultTimeoutMs = 1000

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Device.TimeoutMs == 0 {
		cfg.Device.TimeoutMs = DefaultTimeoutMs
	}

	// Normalize device_name:
	// - ASCII already validated
	// - Truncate to what the status block can hold
	if len(cfg.Device.DeviceName) > status.DeviceNameMaxChars {
		cfg.Device.DeviceName = cfg.Device.DeviceName[:status.DeviceNameMaxChars]
	}
}
