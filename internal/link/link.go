// Package link owns the connection to one device across reconnects.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-master/internal/master"
	"github.com/tamzrod/modbus-master/internal/transport"
)

// Client is the per-connection Modbus client the link manages.
type Client interface {
	ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error)
	ReadInputRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error)
	WriteHoldingRegisters(ctx context.Context, addr uint16, values []uint16) error
	Close() error
}

// Dialer opens a new client. ONE attempt per call.
type Dialer func(ctx context.Context) (Client, error)

// Config is minimal transport config.
type Config struct {
	Endpoint     string
	UnitID       uint8
	Timeout      time.Duration
	RandomizeTID bool
}

// TCPDialer dials cfg.Endpoint and wraps the stream in a master.Client.
func TCPDialer(cfg Config, log zerolog.Logger) Dialer {
	return func(ctx context.Context) (Client, error) {
		s, err := transport.Dial(ctx, cfg.Endpoint, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return master.New(s, master.Config{
			UnitID:       cfg.UnitID,
			Timeout:      cfg.Timeout,
			RandomizeTID: cfg.RandomizeTID,
			Logger:       log,
		}), nil
	}
}

// Link is a lazily connected device connection.
// Connection is reused while healthy. On transport death the client is
// discarded and the next call dials again. No retries, no loops.
// It serializes requests so several goroutines can share one device.
type Link struct {
	mu     sync.Mutex
	dial   Dialer
	client Client
	connID string // per dial, for log correlation
	log    zerolog.Logger
}

func New(dial Dialer, log zerolog.Logger) *Link {
	return &Link{dial: dial, log: log}
}

// Connect dials if there is no live client.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.connected(ctx)
	return err
}

func (l *Link) ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.connected(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := c.ReadHoldingRegisters(ctx, addr, qty)
	l.observe(err)
	return regs, err
}

func (l *Link) ReadInputRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.connected(ctx)
	if err != nil {
		return nil, err
	}
	regs, err := c.ReadInputRegisters(ctx, addr, qty)
	l.observe(err)
	return regs, err
}

func (l *Link) WriteHoldingRegisters(ctx context.Context, addr uint16, values []uint16) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.connected(ctx)
	if err != nil {
		return err
	}
	err = c.WriteHoldingRegisters(ctx, addr, values)
	l.observe(err)
	return err
}

// Close closes the current client, if any.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}

func (l *Link) connected(ctx context.Context) (Client, error) {
	if l.client != nil {
		return l.client, nil
	}
	c, err := l.dial(ctx)
	if err != nil {
		return nil, &master.TransportError{Op: "dial", Err: fmt.Errorf("link: %w", err)}
	}
	l.client = c
	l.connID = uuid.NewString()
	l.log.Info().Str("conn_id", l.connID).Msg("device connected")
	return c, nil
}

// observe drops the client after a failure that leaves the connection
// unusable.
func (l *Link) observe(err error) {
	if err == nil || l.client == nil {
		return
	}
	var te *master.TransportError
	if !errors.As(err, &te) && !errors.Is(err, master.ErrClosed) {
		return
	}
	l.log.Warn().Err(err).Str("conn_id", l.connID).Msg("device connection lost")
	_ = l.client.Close()
	l.client = nil
}
