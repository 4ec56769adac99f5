package config

import (
	"errors"
	"fmt"

	"github.com/tamzrod/modbus-master/internal/mbap"
	"github.com/tamzrod/modbus-master/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := cfg.Device
	if d.Endpoint == "" {
		return errors.New("config: device.endpoint is required")
	}
	if d.TimeoutMs < 0 {
		return fmt.Errorf("config: device.timeout_ms must be >= 0, got %d", d.TimeoutMs)
	}
	for i := 0; i < len(d.DeviceName); i++ {
		if d.DeviceName[i] > 0x7F {
			return errors.New("config: device.device_name must contain ASCII characters only")
		}
	}

	// ------------------------------------------------------------
	// POLL + READ GEOMETRY
	// ------------------------------------------------------------

	if cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("config: poll.interval_ms must be > 0, got %d", cfg.Poll.IntervalMs)
	}
	if len(cfg.Reads) == 0 {
		return errors.New("config: at least one read block is required")
	}
	for i, r := range cfg.Reads {
		if r.FC != 3 && r.FC != 4 {
			return fmt.Errorf("config: reads[%d]: unsupported fc %d (want 3 or 4)", i, r.FC)
		}
		if r.Quantity == 0 || r.Quantity > mbap.MaxReadQuantity {
			return fmt.Errorf("config: reads[%d]: quantity %d not in 1..%d", i, r.Quantity, mbap.MaxReadQuantity)
		}
		if wraps(r.Address, int(r.Quantity)) {
			return fmt.Errorf("config: reads[%d]: range %d+%d exceeds the address space", i, r.Address, r.Quantity)
		}
	}

	// ------------------------------------------------------------
	// HOLDING REGISTER WRITE GEOMETRY (status block + setpoints)
	// ------------------------------------------------------------

	type span struct {
		start uint16
		end   uint16
		owner string
	}
	var spans []span

	claim := func(owner string, start uint16, n int) error {
		if wraps(start, n) {
			return fmt.Errorf("config: %s: range %d+%d exceeds the address space", owner, start, n)
		}
		end := start + uint16(n-1)
		for _, s := range spans {
			// overlap check (inclusive)
			if !(end < s.start || start > s.end) {
				return fmt.Errorf(
					"config: write overlap: %s range=%d-%d overlaps with %s range=%d-%d",
					owner, start, end, s.owner, s.start, s.end,
				)
			}
		}
		spans = append(spans, span{start: start, end: end, owner: owner})
		return nil
	}

	if cfg.Status != nil {
		if err := claim("status", cfg.Status.Address, status.SlotsPerDevice); err != nil {
			return err
		}
	}

	for i, sp := range cfg.Setpoints {
		owner := fmt.Sprintf("setpoints[%d]", i)
		if len(sp.Values) == 0 || len(sp.Values) > mbap.MaxWriteQuantity {
			return fmt.Errorf("config: %s: %d values not in 1..%d", owner, len(sp.Values), mbap.MaxWriteQuantity)
		}
		if err := claim(owner, sp.Address, len(sp.Values)); err != nil {
			return err
		}
	}

	return nil
}

// wraps reports whether n registers starting at start run past 0xFFFF.
func wraps(start uint16, n int) bool {
	return int(start)+n-1 > 0xFFFF
}
