package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// helper to build a valid config quickly
func base() *Config {
	return &Config{
		Device: DeviceConfig{
			Endpoint: "127.0.0.1:502",
			UnitID:   1,
		},
		Poll: PollConfig{IntervalMs: 1000},
		Reads: []ReadConfig{
			{FC: 3, Address: 0, Quantity: 10},
		},
	}
}

// ---- tests ----

func TestValidate_Minimal(t *testing.T) {
	if err := Validate(base()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing endpoint", func(c *Config) { c.Device.Endpoint = "" }},
		{"negative timeout", func(c *Config) { c.Device.TimeoutMs = -1 }},
		{"non-ascii device name", func(c *Config) { c.Device.DeviceName = "Pumpe-Süd" }},
		{"zero interval", func(c *Config) { c.Poll.IntervalMs = 0 }},
		{"no reads", func(c *Config) { c.Reads = nil }},
		{"coil read", func(c *Config) { c.Reads[0].FC = 1 }},
		{"zero quantity", func(c *Config) { c.Reads[0].Quantity = 0 }},
		{"quantity over limit", func(c *Config) { c.Reads[0].Quantity = 126 }},
		{"read wraps address space", func(c *Config) { c.Reads[0].Address = 0xFFFA }},
		{"empty setpoint", func(c *Config) {
			c.Setpoints = []SetpointConfig{{Address: 10}}
		}},
		{"setpoint over limit", func(c *Config) {
			c.Setpoints = []SetpointConfig{{Address: 10, Values: make([]uint16, 124)}}
		}},
		{"status wraps address space", func(c *Config) {
			c.Status = &StatusConfig{Address: 0xFFF0}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := Validate(c); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestValidate_TouchingWriteRangesAllowed(t *testing.T) {
	c := base()
	c.Status = &StatusConfig{Address: 100} // 100–119
	c.Setpoints = []SetpointConfig{
		{Address: 120, Values: []uint16{1, 2}}, // 120–121
		{Address: 98, Values: []uint16{1, 2}},  // 98–99
	}

	if err := Validate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SetpointOverlapsStatus(t *testing.T) {
	c := base()
	c.Status = &StatusConfig{Address: 100}                              // 100–119
	c.Setpoints = []SetpointConfig{{Address: 119, Values: []uint16{1}}} // 119 → overlap

	if err := Validate(c); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestValidate_SetpointsOverlap(t *testing.T) {
	c := base()
	c.Setpoints = []SetpointConfig{
		{Address: 0, Values: []uint16{1, 2, 3}}, // 0–2
		{Address: 2, Values: []uint16{4}},       // 2 → overlap
	}

	if err := Validate(c); err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestNormalize(t *testing.T) {
	c := base()
	c.Device.DeviceName = "a-very-long-device-name"
	Normalize(c)

	if c.Device.TimeoutMs != DefaultTimeoutMs {
		t.Fatalf("timeout got=%d want=%d", c.Device.TimeoutMs, DefaultTimeoutMs)
	}
	if c.Device.DeviceName != "a-very-long-devi" {
		t.Fatalf("device name got=%q", c.Device.DeviceName)
	}
}

func TestLoad(t *testing.T) {
	raw := `
device:
  endpoint: 10.0.0.5:502
  unit_id: 3
  timeout_ms: 500
  device_name: PLC-01
poll:
  interval_ms: 250
reads:
  - { fc: 3, address: 0, quantity: 10 }
  - { fc: 4, address: 100, quantity: 2 }
status:
  address: 400
setpoints:
  - { address: 200, values: [1, 2, 3] }
`
	path := filepath.Join(t.TempDir(), "mbmaster.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}

	want := &Config{
		Device: DeviceConfig{
			Endpoint:   "10.0.0.5:502",
			UnitID:     3,
			TimeoutMs:  500,
			DeviceName: "PLC-01",
		},
		Poll: PollConfig{IntervalMs: 250},
		Reads: []ReadConfig{
			{FC: 3, Address: 0, Quantity: 10},
			{FC: 4, Address: 100, Quantity: 2},
		},
		Status:    &StatusConfig{Address: 400},
		Setpoints: []SetpointConfig{{Address: 200, Values: []uint16{1, 2, 3}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if err := Validate(got); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestParse_UnknownField(t *testing.T) {
	if _, err := Parse([]byte("device:\n  endpoint: x\n  slave: 1\n")); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
