// Package master is a Modbus TCP master that drives one request at a
// time over a connection it owns.
package master

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-master/internal/mbap"
	"github.com/tamzrod/modbus-master/internal/transport"
)

// DefaultTimeout applies when Config.Timeout is not set.
const DefaultTimeout = time.Second

// maxAbandoned bounds how many given-up transaction ids are remembered.
const maxAbandoned = 16

// Config is the per-device client configuration.
type Config struct {
	UnitID  uint8
	Timeout time.Duration

	// RandomizeTID starts the transaction counter at a random value.
	RandomizeTID bool

	Logger zerolog.Logger
}

// Client is a Modbus TCP master bound to one connection.
// At most one request is outstanding; a second concurrent request fails
// with ErrBusy.
type Client struct {
	conn    transport.Conn
	unitID  uint8
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	state   State
	tid     uint16
	buf     []byte   // received bytes not yet consumed by a request
	pending *pending // nil unless AwaitingResponse
	rxErr   error    // set once the receive side has ended

	// abandoned holds ids of requests that gave up before their frame
	// arrived. A late frame carrying one of them is dropped.
	abandoned []uint16

	done chan struct{}
}

// pending is the single-resolution result of one request.
type pending struct {
	tid    uint16
	result chan result
}

type result struct {
	frame []byte
	err   error
}

// New takes ownership of conn and starts consuming its receive side.
func New(conn transport.Conn, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := &Client{
		conn:    conn,
		unitID:  cfg.UnitID,
		timeout: cfg.Timeout,
		log:     cfg.Logger,
		done:    make(chan struct{}),
	}

	// Randomize starting TID (best effort).
	if cfg.RandomizeTID {
		var b [2]byte
		if _, err := rand.Read(b[:]); err == nil {
			c.tid = binary.BigEndian.Uint16(b[:])
		}
	}

	go c.receive()
	return c
}

// State returns the current transaction state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReadHoldingRegisters reads qty holding registers (FC 3) starting at addr.
func (c *Client) ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	return c.readRegisters(ctx, addr, qty, mbap.EncodeReadRequest, mbap.DecodeReadResponse)
}

// ReadInputRegisters reads qty input registers (FC 4) starting at addr.
func (c *Client) ReadInputRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	return c.readRegisters(ctx, addr, qty, mbap.EncodeReadInputRequest, mbap.DecodeReadInputResponse)
}

func (c *Client) readRegisters(
	ctx context.Context,
	addr, qty uint16,
	encode func(tid uint16, unitID uint8, addr, qty uint16) ([]byte, error),
	decode func(buf []byte, qty uint16) ([]uint16, error),
) ([]uint16, error) {
	frame, err := c.roundTrip(ctx, func(tid uint16) ([]byte, error) {
		return encode(tid, c.unitID, addr, qty)
	})
	if err != nil {
		return nil, err
	}

	values, err := decode(frame, qty)
	if err != nil {
		c.logResponseError(frame, err)
		return nil, err
	}
	return values, nil
}

// WriteHoldingRegisters writes values (FC 16) starting at addr. A nil
// error means the device confirmed the write.
func (c *Client) WriteHoldingRegisters(ctx context.Context, addr uint16, values []uint16) error {
	frame, err := c.roundTrip(ctx, func(tid uint16) ([]byte, error) {
		return mbap.EncodeWriteRequest(tid, c.unitID, addr, values)
	})
	if err != nil {
		return err
	}

	if err := mbap.DecodeWriteResponse(frame, addr, uint16(len(values))); err != nil {
		c.logResponseError(frame, err)
		return err
	}
	return nil
}

// Close tears down the connection. An outstanding request fails with
// ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	c.state = Closed
	if c.pending != nil {
		c.resolve(result{err: ErrClosed})
	}
	c.buf = nil
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

// roundTrip submits one request and waits for its frame. The returned
// frame has passed header correlation but not payload validation.
func (c *Client) roundTrip(ctx context.Context, encode func(tid uint16) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	switch {
	case c.state == Closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.state == AwaitingResponse:
		c.mu.Unlock()
		return nil, ErrBusy
	case c.rxErr != nil:
		err := c.rxErr
		c.mu.Unlock()
		return nil, &TransportError{Op: "receive", Err: err}
	}

	tid := c.tid + 1
	adu, err := encode(tid)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.tid = tid
	c.dropAbandoned(tid) // the counter wrapped onto a remembered id

	p := &pending{tid: tid, result: make(chan result, 1)}
	c.pending = p
	c.state = AwaitingResponse
	c.mu.Unlock()

	c.log.Debug().Uint16("tid", tid).Hex("tx", adu).Msg("modbus request")

	if err := c.conn.Send(adu); err != nil {
		c.finish(p, result{err: &TransportError{Op: "send", Err: err}}, false)
	} else {
		// Bytes left over from an earlier exchange may already hold a frame.
		c.mu.Lock()
		if c.pending == p {
			c.deliver()
		}
		c.mu.Unlock()
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case r := <-p.result:
		return c.correlate(p, r)
	case <-timer.C:
		c.finish(p, result{err: ErrTimeout}, true)
	case <-ctx.Done():
		c.finish(p, result{err: fmt.Errorf("master: %w", ctx.Err())}, true)
	}

	// Either finish resolved p, or a frame won the race.
	return c.correlate(p, <-p.result)
}

func (c *Client) correlate(p *pending, r result) ([]byte, error) {
	if r.err != nil {
		c.log.Debug().Uint16("tid", p.tid).Err(r.err).Msg("modbus request failed")
		return nil, r.err
	}

	c.log.Debug().Uint16("tid", p.tid).Hex("rx", r.frame).Msg("modbus response")

	h, err := mbap.ParseHeader(r.frame)
	if err == nil {
		err = h.Verify(p.tid, c.unitID)
		if err != nil && h.TransactionID != p.tid {
			// The frame belonged to another request; ours may still come.
			c.mu.Lock()
			c.abandon(p.tid)
			c.mu.Unlock()
		}
	}
	if err != nil {
		c.logResponseError(r.frame, err)
		return nil, err
	}
	return r.frame, nil
}

// receive moves chunks from the connection into the frame buffer until
// the connection ends.
func (c *Client) receive() {
	defer close(c.done)

	for chunk := range c.conn.Receive() {
		c.mu.Lock()
		if c.state != Closed {
			c.buf = append(c.buf, chunk...)
			c.deliver()
		}
		c.mu.Unlock()
	}

	err := c.conn.Err()
	if err == nil {
		err = io.EOF
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rxErr = err
	if c.pending != nil {
		c.resolve(result{err: &TransportError{Op: "receive", Err: err}})
	}
}

// deliver hands one complete frame to the pending request. Frames
// answering abandoned requests are dropped. Bytes that arrive while no
// request is pending stay buffered.
// Caller holds c.mu.
func (c *Client) deliver() {
	if c.pending == nil {
		return
	}

	for {
		size, ok := mbap.FrameLength(c.buf)
		if !ok {
			return
		}
		if size <= mbap.HeaderSize || size > mbap.MaxFrameSize {
			// The stream cannot be resynchronised past a bogus length.
			c.buf = c.buf[:0]
			c.resolve(result{err: fmt.Errorf("%w: declared frame size %d", mbap.ErrMalformedFrame, size)})
			return
		}
		if len(c.buf) < size {
			return
		}

		frame := make([]byte, size)
		copy(frame, c.buf)
		c.buf = append(c.buf[:0], c.buf[size:]...)

		if h, err := mbap.ParseHeader(frame); err == nil &&
			h.TransactionID != c.pending.tid && c.dropAbandoned(h.TransactionID) {
			c.log.Debug().Uint16("tid", h.TransactionID).Hex("rx", frame).Msg("late modbus response dropped")
			continue
		}

		c.resolve(result{frame: frame})
		return
	}
}

// abandon remembers tid so its late frame can be dropped.
// Caller holds c.mu.
func (c *Client) abandon(tid uint16) {
	if len(c.abandoned) == maxAbandoned {
		c.abandoned = append(c.abandoned[:0], c.abandoned[1:]...)
	}
	c.abandoned = append(c.abandoned, tid)
}

// dropAbandoned forgets tid and reports whether it was remembered.
// Caller holds c.mu.
func (c *Client) dropAbandoned(tid uint16) bool {
	for i, t := range c.abandoned {
		if t == tid {
			c.abandoned = append(c.abandoned[:i], c.abandoned[i+1:]...)
			return true
		}
	}
	return false
}

// finish resolves p unless it was already resolved. discard drops the
// partial frame buffered for p and marks p abandoned.
func (c *Client) finish(p *pending, r result, discard bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != p {
		return
	}
	if discard {
		c.buf = c.buf[:0]
		c.abandon(p.tid)
	}
	c.resolve(r)
}

// resolve completes the pending request exactly once.
// Caller holds c.mu and c.pending is non-nil.
func (c *Client) resolve(r result) {
	p := c.pending
	c.pending = nil
	if c.state == AwaitingResponse {
		c.state = Idle
	}
	p.result <- r
}

func (c *Client) logResponseError(frame []byte, err error) {
	var exc *mbap.DeviceException
	if errors.As(err, &exc) {
		c.log.Warn().Uint8("unit_id", c.unitID).Uint16("exception", exc.Code()).Msg(exc.Error())
		return
	}
	c.log.Warn().Uint8("unit_id", c.unitID).Hex("rx", frame).Err(err).Msg("modbus response rejected")
}
