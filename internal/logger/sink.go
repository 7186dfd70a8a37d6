package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

const defaultSinkBuffer = 256

// SinkOptions tunes a Sink.
type SinkOptions struct {
	Buffer int        // Records held before dropping (0 = default 256)
	Rate   rate.Limit // Records per second accepted (0 = unlimited)
	Burst  int        // Records accepted at once when Rate is set
}

type record struct {
	level slog.Level
	tag   string
	msg   string
}

// Sink hands diagnostic records to a logger without blocking the caller.
// Records go through a bounded buffer drained by a background goroutine; a
// record that finds the buffer full, or the rate budget spent, is dropped
// and counted.
type Sink struct {
	log     *slog.Logger
	records chan record
	limiter *rate.Limiter

	dropped atomic.Uint64

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSink starts a sink writing to log.
func NewSink(log *slog.Logger, opts SinkOptions) *Sink {
	size := opts.Buffer
	if size <= 0 {
		size = defaultSinkBuffer
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.Rate, burst)
	}

	s := &Sink{
		log:     log,
		records: make(chan record, size),
		limiter: limiter,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Sink) Info(tag, msg string) { s.emit(slog.LevelInfo, tag, msg) }

func (s *Sink) Warn(tag, msg string) { s.emit(slog.LevelWarn, tag, msg) }

// Dropped returns the number of records discarded so far.
func (s *Sink) Dropped() uint64 {
	return s.dropped.Load()
}

// Close writes the records still buffered and stops the sink. Records
// emitted after Close are dropped.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		if n := s.dropped.Load(); n > 0 {
			s.log.Warn("diagnostic records dropped", "count", n)
		}
	})
	return nil
}

func (s *Sink) emit(lvl slog.Level, tag, msg string) {
	select {
	case <-s.quit:
		s.dropped.Add(1)
		return
	default:
	}

	if s.limiter != nil && !s.limiter.Allow() {
		s.dropped.Add(1)
		return
	}

	select {
	case s.records <- record{level: lvl, tag: tag, msg: msg}:
	default:
		s.dropped.Add(1)
	}
}

func (s *Sink) run() {
	defer close(s.done)

	for {
		select {
		case r := <-s.records:
			s.write(r)
		case <-s.quit:
			for {
				select {
				case r := <-s.records:
					s.write(r)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(r record) {
	s.log.Log(context.Background(), r.level, r.msg, "tag", r.tag)
}
