package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-master/internal/poller"
	"github.com/tamzrod/modbus-master/internal/status"
	"github.com/tamzrod/modbus-master/internal/writer"
)

// orchestrator owns the link status state. Poll results and seconds
// ticks arrive on one goroutine; status is nil when the block is disabled.
type orchestrator struct {
	tracker *status.Tracker
	status  writer.StatusWriter
	log     zerolog.Logger
}

func (o *orchestrator) run(ctx context.Context, results <-chan poller.PollResult, tick <-chan time.Time) error {
	// Full block write on start (identity re-assert).
	o.writeStatus(ctx, "start")

	for {
		select {
		case <-ctx.Done():
			return nil

		case res := <-results:
			o.logResult(res)
			if o.tracker.Observe(res.Err) {
				o.writeStatus(ctx, "poll")
			}

		case <-tick:
			if o.tracker.Tick() {
				o.writeStatus(ctx, "tick")
			}
		}
	}
}

func (o *orchestrator) writeStatus(ctx context.Context, reason string) {
	if o.status == nil {
		return
	}
	if err := o.status.WriteStatus(ctx, o.tracker.Snapshot()); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.log.Warn().Err(err).Str("reason", reason).Msg("status write failed")
	}
}

func (o *orchestrator) logResult(res poller.PollResult) {
	if res.Err != nil {
		o.log.Warn().Err(res.Err).
			Uint16("error_code", status.ErrorCode(res.Err)).
			Msg("poll failed")
		return
	}

	o.log.Debug().Time("at", res.At).Int("blocks", len(res.Blocks)).Msg("poll ok")
	for _, b := range res.Blocks {
		o.log.Debug().
			Uint8("fc", b.FC).
			Uint16("address", b.Address).
			Uints16("registers", b.Registers).
			Msg("block")
	}
}
