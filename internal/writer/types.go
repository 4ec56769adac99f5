// Package writer delivers register blocks to the device: the link status
// block and the startup setpoints.
package writer

import "context"

// Client is the exact contract the writers use.
type Client interface {
	WriteHoldingRegisters(ctx context.Context, addr uint16, values []uint16) error
}

// StatusPlan places the status block in the device's holding registers.
type StatusPlan struct {
	Address    uint16
	DeviceName string
}

// Setpoint is one register block written at startup.
type Setpoint struct {
	Address uint16
	Values  []uint16
}
