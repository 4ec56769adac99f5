// Package poller reads a fixed set of register blocks on a clock.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client abstracts the Modbus operations the poller needs.
// The poller depends on geometry only.
type Client interface {
	ReadHoldingRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error) // FC 3
	ReadInputRegisters(ctx context.Context, addr, qty uint16) ([]uint16, error)   // FC 4
}

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration
	Reads    []ReadBlock
}

// Poller is a dumb, clock-driven reader.
type Poller struct {
	cfg    Config
	client Client
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if len(cfg.Reads) == 0 {
		return nil, errors.New("poller: at least one read block required")
	}
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	return &Poller{cfg: cfg, client: client}, nil
}

// PollOnce performs exactly one poll cycle.
// All-or-nothing: any failure aborts the cycle.
func (p *Poller) PollOnce(ctx context.Context) PollResult {
	res := PollResult{At: time.Now()}

	blocks := make([]BlockResult, 0, len(p.cfg.Reads))

	for _, rb := range p.cfg.Reads {
		var (
			regs []uint16
			err  error
		)
		switch rb.FC {
		case 3:
			regs, err = p.client.ReadHoldingRegisters(ctx, rb.Address, rb.Quantity)
		case 4:
			regs, err = p.client.ReadInputRegisters(ctx, rb.Address, rb.Quantity)
		default:
			res.Err = fmt.Errorf("poller: unsupported function code %d", rb.FC)
			return res
		}
		if err != nil {
			res.Err = fmt.Errorf("poller: fc=%d addr=%d qty=%d: %w", rb.FC, rb.Address, rb.Quantity, err)
			return res
		}

		blocks = append(blocks, BlockResult{
			FC: rb.FC, Address: rb.Address, Quantity: rb.Quantity, Registers: regs,
		})
	}

	// Commit only if all reads succeeded
	res.Blocks = blocks
	return res
}
