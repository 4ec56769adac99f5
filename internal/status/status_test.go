package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tamzrod/modbus-master/internal/master"
	"github.com/tamzrod/modbus-master/internal/mbap"
)

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthError, LastErrorCode: 2, SecondsInError: 7}, "PLC-01")

	if len(regs) != SlotsPerDevice {
		t.Fatalf("block size got=%d want=%d", len(regs), SlotsPerDevice)
	}
	if regs[SlotHealthCode] != HealthError || regs[SlotLastErrorCode] != 2 || regs[SlotSecondsInError] != 7 {
		t.Fatalf("live slots wrong: %v", regs[:3])
	}
	for i := 3; i < SlotDeviceNameStart; i++ {
		if regs[i] != 0 {
			t.Fatalf("reserved slot %d not zero: %d", i, regs[i])
		}
	}
	// "PL" "C-" "01"
	want := []uint16{0x504C, 0x432D, 0x3031, 0, 0, 0, 0, 0}
	for i, w := range want {
		if got := regs[SlotDeviceNameStart+i]; got != w {
			t.Fatalf("name slot %d got=0x%04x want=0x%04x", i, got, w)
		}
	}
}

func TestEncodeDeviceName_SanitizesAndTruncates(t *testing.T) {
	regs := EncodeDeviceName("A\tBCDEFGHIJKLMNOPQRS")
	if regs[0] != uint16('A')<<8|uint16('?') {
		t.Fatalf("control character not replaced: 0x%04x", regs[0])
	}
	if regs[7] != uint16('O')<<8|uint16('P') {
		t.Fatalf("truncation wrong: last slot 0x%04x", regs[7])
	}
}

func TestTracker_ErrorAndRecovery(t *testing.T) {
	tr := NewTracker()
	if tr.Snapshot().Health != HealthUnknown {
		t.Fatalf("expected HealthUnknown on start")
	}

	if tr.Tick() != true {
		t.Fatalf("tick while unknown should count")
	}

	if !tr.Observe(master.ErrTimeout) {
		t.Fatalf("error should change snapshot")
	}
	if tr.Observe(master.ErrTimeout) {
		t.Fatalf("same error twice should not change snapshot")
	}
	tr.Tick()
	tr.Tick()

	s := tr.Snapshot()
	if s.Health != HealthError || s.LastErrorCode != ErrorCodeTimeout || s.SecondsInError != 3 {
		t.Fatalf("unexpected snapshot %+v", s)
	}

	if !tr.Observe(nil) {
		t.Fatalf("recovery should change snapshot")
	}
	if got := tr.Snapshot(); got != (Snapshot{Health: HealthOK}) {
		t.Fatalf("recovery did not reset: %+v", got)
	}
	if tr.Tick() {
		t.Fatalf("tick while OK must not change snapshot")
	}
}

func TestTracker_SecondsSaturate(t *testing.T) {
	tr := NewTracker()
	tr.Observe(errors.New("x"))
	tr.snap.SecondsInError = 0xFFFE

	if !tr.Tick() {
		t.Fatalf("expected last increment")
	}
	if tr.Tick() {
		t.Fatalf("seconds_in_error must not wrap")
	}
	if tr.Snapshot().SecondsInError != 0xFFFF {
		t.Fatalf("got %d", tr.Snapshot().SecondsInError)
	}
}

func TestErrorCode(t *testing.T) {
	exc := exceptionFrom(t, []byte{0, 1, 0, 0, 0, 3, 1, 0x83, 0x02})

	tests := []struct {
		name string
		err  error
		want uint16
	}{
		{"nil", nil, 0},
		{"device exception", fmt.Errorf("poll: %w", exc), 2},
		{"timeout", master.ErrTimeout, ErrorCodeTimeout},
		{"transport", &master.TransportError{Op: "send", Err: errors.New("reset")}, ErrorCodeTransport},
		{"protocol", fmt.Errorf("%w: tid", mbap.ErrProtocol), ErrorCodeProtocol},
		{"malformed", mbap.ErrMalformedFrame, ErrorCodeMalformed},
		{"busy", master.ErrBusy, ErrorCodeBusy},
		{"closed", master.ErrClosed, ErrorCodeClosed},
		{"other", errors.New("boom"), ErrorCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Fatalf("got=0x%04x want=0x%04x", got, tt.want)
			}
		})
	}
}

func exceptionFrom(t *testing.T, frame []byte) error {
	t.Helper()
	_, err := mbap.DecodeReadResponse(frame, 1)
	var exc *mbap.DeviceException
	if !errors.As(err, &exc) {
		t.Fatalf("expected DeviceException, got %v", err)
	}
	return err
}
