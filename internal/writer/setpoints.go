package writer

import (
	"context"
	"fmt"
)

// WriteSetpoints writes each block in order and stops at the first
// write the device does not confirm.
func WriteSetpoints(ctx context.Context, cli Client, setpoints []Setpoint) error {
	for i, sp := range setpoints {
		if err := cli.WriteHoldingRegisters(ctx, sp.Address, sp.Values); err != nil {
			return fmt.Errorf("writer: setpoint %d addr=%d qty=%d: %w", i, sp.Address, len(sp.Values), err)
		}
	}
	return nil
}
