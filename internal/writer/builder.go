package writer

import (
	cfg "github.com/tamzrod/modbus-master/internal/config"
)

// BuildStatusPlan returns nil when the status block is not configured.
func BuildStatusPlan(c *cfg.Config) *StatusPlan {
	if c.Status == nil {
		return nil
	}
	return &StatusPlan{
		Address:    c.Status.Address,
		DeviceName: c.Device.DeviceName,
	}
}

// BuildSetpoints converts configured setpoints in order.
func BuildSetpoints(c *cfg.Config) []Setpoint {
	out := make([]Setpoint, 0, len(c.Setpoints))
	for _, sp := range c.Setpoints {
		out = append(out, Setpoint{Address: sp.Address, Values: sp.Values})
	}
	return out
}
