//go:build !windows
// +build !windows

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"github.com/cbrunnkvist/framelag/choreo"
	"github.com/cbrunnkvist/framelag/internal/config"
	"github.com/cbrunnkvist/framelag/internal/logger"
	"github.com/cbrunnkvist/framelag/internal/refresh"
	"github.com/cbrunnkvist/framelag/monitor"
)

// session wires one monitor to its loop, reporter and sink.
type session struct {
	opts *Options
	log  *slog.Logger
	sink *logger.Sink
	loop *choreo.Loop
	mon  *monitor.Monitor

	rates monitor.FrequencyReporter
	fixed *refresh.Settable // nil when following a schedule

	logFile *os.File
}

// newSession builds the logger, sink, reporter and monitor. With crlf set,
// log lines written to a terminal in raw mode end in CR LF.
func newSession(opts *Options, crlf bool) (*session, error) {
	s := &session{opts: opts}

	var w io.Writer = os.Stderr
	if opts.Log.File != "" {
		f, err := os.OpenFile(opts.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.logFile = f
		w = f
	} else if crlf {
		w = &crlfWriter{w: os.Stderr}
	}

	logger.Level.SetByName(opts.Log.Level)
	s.log = logger.New(w).With("run", uuid.NewString())

	s.sink = logger.NewSink(s.log, logger.SinkOptions{
		Buffer: opts.Log.Buffer,
		Rate:   rate.Limit(opts.Log.Rate),
		Burst:  opts.Log.Burst,
	})

	s.rates = s.newReporter(&opts.Config)
	s.loop = choreo.New()
	s.mon = monitor.New(s.rates, s.loop, s.sink)

	return s, nil
}

func (s *session) newReporter(cfg *config.Config) monitor.FrequencyReporter {
	if len(cfg.Display.Schedule) > 0 {
		steps := make([]refresh.Step, len(cfg.Display.Schedule))
		for i, st := range cfg.Display.Schedule {
			steps[i] = refresh.Step{After: st.After, Hz: st.Hz}
		}
		return refresh.NewSchedule(steps, cfg.Display.Period)
	}
	s.fixed = refresh.NewSettable(cfg.Display.Hz)
	return s.fixed
}

// run drives the monitor from vsync until ctx is done or vsync is closed,
// then stops it and flushes the sink.
func (s *session) run(ctx context.Context, vsync <-chan int64) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.log.Info("frame monitor starting",
		"profile", s.opts.Display.Profile,
		"refresh_every", s.opts.RefreshEvery,
	)

	// Queued before Run so tracking begins with the first frame.
	s.loop.Invoke(s.mon.Start)

	var wg conc.WaitGroup
	wg.Go(func() {
		defer cancel()
		s.loop.Run(ctx, vsync)
	})
	wg.Go(func() { s.refreshLoop(ctx) })
	wg.Go(func() { s.reloadLoop(ctx) })

	<-ctx.Done()

	if waitWithTimeout(&wg, goroutineExitWait) {
		// The loop goroutine is gone; the monitor is ours now.
		s.mon.Stop()
	} else {
		s.log.Warn("frame loop did not exit in time")
	}

	s.log.Info("frame monitor stopped",
		"fps", fmt.Sprintf("%.2f", s.mon.FPS()),
		"dropped_records", s.sink.Dropped(),
	)
}

// refreshLoop re-reads the nominal frequency on the loop goroutine.
func (s *session) refreshLoop(ctx context.Context) {
	if s.opts.RefreshEvery <= 0 {
		return
	}
	t := time.NewTicker(s.opts.RefreshEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.loop.Invoke(func() { s.mon.RefreshConfig() })
		}
	}
}

// reloadLoop re-parses the command line and config file on SIGHUP and
// applies the new rate and log level.
func (s *session) reloadLoop(ctx context.Context) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := s.reload(); err != nil {
				s.log.Error("reload failed", "err", err)
				continue
			}
			s.loop.Invoke(func() { s.mon.RefreshConfig() })
		}
	}
}

func (s *session) reload() error {
	opts, err := parseFlags(s.opts.args)
	if err != nil {
		return err
	}

	if !logger.Level.SetByName(opts.Log.Level) {
		return fmt.Errorf("unknown log level %q", opts.Log.Level)
	}

	switch {
	case s.fixed == nil:
		s.log.Warn("reload: refresh schedule cannot be changed while running")
	case len(opts.Display.Schedule) > 0:
		s.log.Warn("reload: cannot switch from a fixed rate to a schedule")
	default:
		s.fixed.Set(opts.Display.Hz)
	}

	s.log.Info("configuration reloaded", "hz", opts.Display.Hz, "log_level", opts.Log.Level)
	return nil
}

// close flushes pending diagnostics and closes the log file.
func (s *session) close() {
	s.sink.Close()
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// waitWithTimeout waits for a WaitGroup with a timeout.
// Returns true if all goroutines finished, false if timeout.
func waitWithTimeout(wg *conc.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// crlfWriter turns LF into CR LF for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// run picks the vsync producer: a PTY when a command is given, otherwise the
// simulated display.
func run(opts *Options) (int, error) {
	if len(opts.Command) > 0 {
		return runPTY(opts)
	}
	return runSimulated(opts)
}

func runSimulated(opts *Options) (int, error) {
	s, err := newSession(opts, false)
	if err != nil {
		return 1, err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	vs := NewVsync(VsyncConfig{
		Jitter:     opts.Simulate.Jitter,
		StallEvery: opts.Simulate.StallEvery,
		Stall:      opts.Simulate.Stall,
		Seed:       opts.Simulate.Seed,
	}, s.rates)

	vsync := make(chan int64, 1)

	var wg conc.WaitGroup
	wg.Go(func() { vs.Run(ctx, vsync) })
	s.run(ctx, vsync)
	wg.Wait()

	s.log.Debug("simulated display stopped", "frames", vs.Frames())
	return 0, nil
}
