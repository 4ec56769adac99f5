package mbap

import (
	"errors"
	"fmt"

	"github.com/goburrow/modbus"
)

var (
	// ErrInvalidParameters is returned before any I/O when an address,
	// quantity or value set is outside what a single request can carry.
	ErrInvalidParameters = errors.New("mbap: invalid parameters")

	// ErrMalformedFrame means the bytes are too short or inconsistent to be
	// a Modbus TCP frame.
	ErrMalformedFrame = errors.New("mbap: malformed frame")

	// ErrProtocol means the frame is well formed but does not answer the
	// request (function code, echoed fields, byte count, header ids).
	ErrProtocol = errors.New("mbap: protocol error")
)

// DeviceException is an exception response reported by the device.
// The embedded ModbusError provides the exception names.
type DeviceException struct {
	modbus.ModbusError
}

func newDeviceException(fc, code byte) *DeviceException {
	return &DeviceException{modbus.ModbusError{
		FunctionCode:  fc &^ exceptionFlag,
		ExceptionCode: code,
	}}
}

// Code returns the raw exception code.
func (e *DeviceException) Code() uint16 { return uint16(e.ExceptionCode) }

func (e *DeviceException) Unwrap() error { return &e.ModbusError }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedFrame}, args...)...)
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrProtocol}, args...)...)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidParameters}, args...)...)
}
