// cmd/mbmaster/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-master/internal/config"
	"github.com/tamzrod/modbus-master/internal/link"
	"github.com/tamzrod/modbus-master/internal/poller"
	"github.com/tamzrod/modbus-master/internal/status"
	"github.com/tamzrod/modbus-master/internal/writer"
)

func main() {
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: mbmaster [-log-level level] <config.yaml>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config validation failed")
	}
	config.Normalize(cfg)

	if err := serve(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("mbmaster stopped")
	}
	log.Info().Msg("mbmaster stopped")
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid -log-level %q: %w", level, err)
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// serve runs the device pipeline until a signal arrives or an actor fails.
func serve(cfg *config.Config, log zerolog.Logger) error {
	devLog := log.With().
		Str("endpoint", cfg.Device.Endpoint).
		Uint8("unit_id", cfg.Device.UnitID).
		Logger()

	lk := link.New(link.TCPDialer(link.Config{
		Endpoint:     cfg.Device.Endpoint,
		UnitID:       cfg.Device.UnitID,
		Timeout:      time.Duration(cfg.Device.TimeoutMs) * time.Millisecond,
		RandomizeTID: cfg.Device.RandomizeTID,
	}, devLog), devLog)
	defer lk.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- startup setpoints ----
	if err := writer.WriteSetpoints(ctx, lk, writer.BuildSetpoints(cfg)); err != nil {
		return err
	}

	// ---- poller ----
	p, err := poller.Build(cfg, lk)
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}

	// ---- status writer (optional) ----
	statusWriter, statusEnabled := writer.NewStatusWriter(writer.BuildStatusPlan(cfg), lk)
	if !statusEnabled {
		devLog.Info().Msg("status block disabled")
	}

	o := &orchestrator{
		tracker: status.NewTracker(),
		status:  statusWriter,
		log:     devLog,
	}

	results := make(chan poller.PollResult)

	var g run.Group
	{
		// poller producer
		g.Add(func() error {
			p.Run(ctx, results)
			return nil
		}, func(error) {
			cancel()
		})
	}
	{
		// orchestrator: status state + 1Hz seconds ticker
		ticker := time.NewTicker(time.Second)
		g.Add(func() error {
			defer ticker.Stop()
			return o.run(ctx, results, ticker.C)
		}, func(error) {
			cancel()
		})
	}
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()

	var sig run.SignalError
	if errors.As(err, &sig) {
		log.Info().Str("signal", sig.Signal.String()).Msg("shutting down")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
