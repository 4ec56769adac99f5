package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device    DeviceConfig     `yaml:"device"`
	Poll      PollConfig       `yaml:"poll"`
	Reads     []ReadConfig     `yaml:"reads"`
	Status    *StatusConfig    `yaml:"status"`
	Setpoints []SetpointConfig `yaml:"setpoints"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Endpoint     string `yaml:"endpoint"` // host:port
	UnitID       uint8  `yaml:"unit_id"`
	TimeoutMs    int    `yaml:"timeout_ms"`
	RandomizeTID bool   `yaml:"randomize_tid"`
	DeviceName   string `yaml:"device_name"`
}

// ---- READ GEOMETRY ----

type ReadConfig struct {
	FC       uint8  `yaml:"fc"` // 3 or 4
	Address  uint16 `yaml:"address"`
	Quantity uint16 `yaml:"quantity"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- STATUS BLOCK (optional) ----

// StatusConfig places the link status block in the device's holding
// registers.
type StatusConfig struct {
	Address uint16 `yaml:"address"`
}

// ---- SETPOINTS (optional) ----

// SetpointConfig is a register block written once at startup.
type SetpointConfig struct {
	Address uint16   `yaml:"address"`
	Values  []uint16 `yaml:"values"`
}

// Load reads and parses a YAML config file. It does not validate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML config. Unknown keys are rejected.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &cfg, nil
}
