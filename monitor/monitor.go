package monitor

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// MaxConsecutiveLogs caps the warnings emitted during one run of bad frames.
const MaxConsecutiveLogs = 10

// Tag labels every record the monitor emits.
const Tag = "FrameMonitor"

// FrameCallback receives one frame timestamp (monotonic nanoseconds).
type FrameCallback interface {
	DoFrame(frameTimeNanos int64)
}

// TickSource delivers one-shot frame callbacks. A posted callback runs on the
// next frame only; it must post itself again to keep receiving frames.
type TickSource interface {
	PostFrameCallback(cb FrameCallback)
	RemoveFrameCallback(cb FrameCallback)
}

// FrequencyReporter reports the nominal refresh rate of the display.
// Successive calls may return different values on variable-refresh displays.
type FrequencyReporter interface {
	NominalFrequency() float64
}

// Sink receives diagnostic records. Implementations must not block.
type Sink interface {
	Info(tag, msg string)
	Warn(tag, msg string)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the clock used to stamp the start of tracking.
// It must share its epoch with the timestamps the TickSource delivers.
func WithClock(now func() int64) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor tracks frame intervals and logs when frames arrive late.
//
// Start, Stop, RefreshConfig and frame delivery must all happen on the
// goroutine that drives the TickSource. The monitor takes no locks and does
// as little work per frame as possible so it does not disturb the cadence it
// measures. FPS is the only method safe to call from elsewhere.
type Monitor struct {
	reporter FrequencyReporter
	source   TickSource
	sink     Sink
	now      func() int64

	cfg Config

	lastTick       int64
	consecutiveBad uint32
	registered     bool

	fps  atomic.Uint64 // math.Float64bits of the last computed fps
	calc *calculator
}

// New creates a monitor and reads the current nominal frequency.
// An invalid frequency leaves the monitor unconfigured until a later
// RefreshConfig sees a valid one.
func New(reporter FrequencyReporter, source TickSource, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		reporter: reporter,
		source:   source,
		sink:     sink,
		now:      Nanotime,
	}
	m.calc = &calculator{m: m}

	for _, opt := range opts {
		opt(m)
	}

	m.RefreshConfig()
	return m
}

// RefreshConfig re-reads the nominal frequency and re-derives the config if
// it changed. Returns true when the config was replaced.
func (m *Monitor) RefreshConfig() bool {
	hz := m.reporter.NominalFrequency()
	if hz == m.cfg.NominalHz {
		return false
	}

	cfg, ok := Derive(hz)
	if !ok {
		return false
	}

	if m.cfg.NominalHz > 0 {
		m.sink.Info(Tag, fmt.Sprintf("Refresh rate changed from %.2f hz to %.2f hz", m.cfg.NominalHz, hz))
	}

	m.cfg = cfg
	return true
}

// Start begins tracking from the current time.
// Starting an already running monitor resets its state without registering
// a second callback.
func (m *Monitor) Start() {
	m.RefreshConfig()

	m.sink.Info(Tag, fmt.Sprintf("Beginning frame rate tracking. Screen refresh rate: %.2f hz, or %.2f ms per frame.",
		m.cfg.NominalHz, m.cfg.IdealMillis()))

	m.lastTick = m.now()
	m.consecutiveBad = 0

	if !m.registered {
		m.registered = true
		m.source.PostFrameCallback(m.calc)
	}
}

// Stop removes the frame callback. Safe to call when not started.
func (m *Monitor) Stop() {
	if !m.registered {
		return
	}
	m.registered = false
	m.consecutiveBad = 0
	m.source.RemoveFrameCallback(m.calc)
}

// Config returns the current derived config.
func (m *Monitor) Config() Config {
	return m.cfg
}

// ConsecutiveBad returns the number of bad frames since the last good one.
func (m *Monitor) ConsecutiveBad() uint32 {
	return m.consecutiveBad
}

// Running reports whether the frame callback is registered.
func (m *Monitor) Running() bool {
	return m.registered
}

// FPS returns the frame rate computed from the last classified interval,
// or 0 before the first one. Safe for concurrent use.
func (m *Monitor) FPS() float64 {
	return math.Float64frombits(m.fps.Load())
}

// calculator is the registered callback. Keeping it separate from Monitor
// keeps DoFrame out of the monitor's public surface.
type calculator struct {
	m *Monitor
}

func (c *calculator) DoFrame(frameTimeNanos int64) {
	c.m.onFrame(frameTimeNanos)
}

func (m *Monitor) onFrame(frameTimeNanos int64) {
	// Dispatched before Stop removed it.
	if !m.registered {
		return
	}

	elapsed := frameTimeNanos - m.lastTick

	if elapsed > 0 && m.cfg.Valid() {
		fps := float64(time.Second) / float64(elapsed)
		m.fps.Store(math.Float64bits(fps))

		if elapsed > m.cfg.BadThreshold {
			if m.consecutiveBad < MaxConsecutiveLogs {
				dropped := elapsed / m.cfg.IdealInterval
				m.sink.Warn(Tag, fmt.Sprintf("Bad frame! Took %d ms (%d dropped frames, or %.2f FPS)",
					elapsed/int64(time.Millisecond), dropped, fps))
				m.consecutiveBad++
			}
		} else {
			m.consecutiveBad = 0
		}
	}

	m.lastTick = frameTimeNanos
	m.source.PostFrameCallback(m.calc)
}
