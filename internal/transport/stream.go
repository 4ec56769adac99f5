// Package transport adapts a byte-stream connection to the chunked
// send/receive contract the Modbus master consumes.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// readChunkSize covers the largest Modbus TCP ADU (260 bytes). Reads may
// still return partial or coalesced frames.
const readChunkSize = 512

// Conn is a duplex byte stream.
// Receive yields chunks in arrival order and is closed when the stream
// ends; Err then reports why.
type Conn interface {
	Send(p []byte) error
	Receive() <-chan []byte
	Err() error
	Close() error
}

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Stream implements Conn over any io.ReadWriteCloser.
type Stream struct {
	rwc     io.ReadWriteCloser
	timeout time.Duration
	chunks  chan []byte

	wmu sync.Mutex

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

// NewStream starts reading rwc. timeout bounds each Send when rwc
// supports write deadlines; zero disables it.
func NewStream(rwc io.ReadWriteCloser, timeout time.Duration) *Stream {
	s := &Stream{
		rwc:     rwc,
		timeout: timeout,
		chunks:  make(chan []byte, 8),
	}
	go s.readLoop()
	return s
}

// Dial connects to a Modbus TCP endpoint (host:port).
func Dial(ctx context.Context, endpoint string, timeout time.Duration) (*Stream, error) {
	if endpoint == "" {
		return nil, errors.New("transport: endpoint required")
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, err
	}
	return NewStream(conn, timeout), nil
}

func (s *Stream) readLoop() {
	defer close(s.chunks)
	for {
		buf := make([]byte, readChunkSize)
		n, err := s.rwc.Read(buf)
		if n > 0 {
			s.chunks <- buf[:n]
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
	}
}

// Send writes all of p.
func (s *Stream) Send(p []byte) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	if d, ok := s.rwc.(deadliner); ok && s.timeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	return writeAll(s.rwc, p)
}

// Receive returns the chunk channel. There is a single channel per
// Stream; callers share it.
func (s *Stream) Receive() <-chan []byte { return s.chunks }

// Err returns the error that ended the stream, if it has ended.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close closes the underlying connection. The read loop exits and
// closes the Receive channel.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.rwc.Close() })
	return err
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
