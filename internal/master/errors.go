package master

import "errors"

var (
	// ErrBusy is returned when a request is already outstanding.
	ErrBusy = errors.New("master: request already outstanding")

	// ErrTimeout means no complete response arrived within the timeout.
	ErrTimeout = errors.New("master: response timeout")

	// ErrClosed is returned for requests on, or cancelled by, a closed client.
	ErrClosed = errors.New("master: client closed")
)

// TransportError wraps a failure of the underlying connection.
type TransportError struct {
	Op  string // "dial", "send" or "receive"
	Err error
}

func (e *TransportError) Error() string {
	return "master: transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
