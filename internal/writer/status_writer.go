package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/modbus-master/internal/status"
)

// StatusWriter is the delivery-only contract for link status.
// It receives a snapshot and writes it verbatim.
type StatusWriter interface {
	WriteStatus(ctx context.Context, s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the daemon.
type deviceStatusWriter struct {
	plan StatusPlan
	cli  Client

	needFull bool
	last     status.Snapshot
}

// NewStatusWriter builds a status writer. If plan is nil, status is
// disabled.
func NewStatusWriter(plan *StatusPlan, cli Client) (StatusWriter, bool) {
	if plan == nil {
		return nil, false
	}

	return &deviceStatusWriter{
		plan:     *plan,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Snapshot{Health: status.HealthUnknown},
	}, true
}

// WriteStatus delivers a status snapshot into the device.
// On any write failure, the next call re-asserts the full block.
func (sw *deviceStatusWriter) WriteStatus(ctx context.Context, s status.Snapshot) error {
	if sw.cli == nil {
		return errors.New("status writer: missing client")
	}

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		regs := status.Encode(s, sw.plan.DeviceName)

		if err := sw.cli.WriteHoldingRegisters(ctx, sw.plan.Address, regs); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = s
		return nil
	}

	var errs []string

	write := func(slot int, name string, v uint16) bool {
		addr := sw.plan.Address + uint16(slot)
		if err := sw.cli.WriteHoldingRegisters(ctx, addr, []uint16{v}); err != nil {
			errs = append(errs, fmt.Sprintf("slot%d %s write failed: %v", slot, name, err))
			return false
		}
		return true
	}

	// Slot 0: health_code
	if sw.last.Health != s.Health && write(status.SlotHealthCode, "health", s.Health) {
		sw.last.Health = s.Health
	}

	// Slot 1: last_error_code
	if sw.last.LastErrorCode != s.LastErrorCode && write(status.SlotLastErrorCode, "last_error", s.LastErrorCode) {
		sw.last.LastErrorCode = s.LastErrorCode
	}

	// Slot 2: seconds_in_error
	if sw.last.SecondsInError != s.SecondsInError && write(status.SlotSecondsInError, "seconds", s.SecondsInError) {
		sw.last.SecondsInError = s.SecondsInError
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt; re-assert on next write.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}
