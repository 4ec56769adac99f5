package status

import (
	"context"
	"errors"

	"github.com/tamzrod/modbus-master/internal/master"
	"github.com/tamzrod/modbus-master/internal/mbap"
)

// Tracker derives the link Snapshot from poll outcomes and a 1 Hz tick.
// It is owned by a single goroutine.
type Tracker struct {
	snap Snapshot
}

// NewTracker starts in HealthUnknown.
func NewTracker() *Tracker {
	return &Tracker{snap: Snapshot{Health: HealthUnknown}}
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot { return t.snap }

// Observe records one poll outcome and reports whether the snapshot
// changed.
func (t *Tracker) Observe(err error) bool {
	prev := t.snap

	if err == nil {
		// Recovery resets the error fields.
		t.snap = Snapshot{Health: HealthOK}
	} else {
		// seconds_in_error only moves on Tick.
		t.snap.Health = HealthError
		t.snap.LastErrorCode = ErrorCode(err)
	}

	return t.snap != prev
}

// Tick advances seconds_in_error while not OK. It saturates at 65535
// and reports whether the snapshot changed.
func (t *Tracker) Tick() bool {
	if t.snap.Health == HealthOK || t.snap.SecondsInError == 0xFFFF {
		return false
	}
	t.snap.SecondsInError++
	return true
}

// ErrorCode maps an error to the value stored in SlotLastErrorCode.
// Device exceptions keep their Modbus code.
func ErrorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coder interface{ Code() uint16 }
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}

	var te *master.TransportError
	switch {
	case errors.Is(err, master.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout
	case errors.As(err, &te):
		return ErrorCodeTransport
	case errors.Is(err, mbap.ErrProtocol):
		return ErrorCodeProtocol
	case errors.Is(err, mbap.ErrMalformedFrame):
		return ErrorCodeMalformed
	case errors.Is(err, master.ErrBusy):
		return ErrorCodeBusy
	case errors.Is(err, master.ErrClosed):
		return ErrorCodeClosed
	}
	return ErrorCodeGeneric
}
