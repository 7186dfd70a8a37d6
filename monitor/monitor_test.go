package monitor

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReporter struct {
	hz    float64
	reads int
}

func (r *fakeReporter) NominalFrequency() float64 {
	r.reads++
	return r.hz
}

type fakeSource struct {
	pending []FrameCallback
	posts   int
	removes int
}

func (s *fakeSource) PostFrameCallback(cb FrameCallback) {
	s.posts++
	s.pending = append(s.pending, cb)
}

func (s *fakeSource) RemoveFrameCallback(cb FrameCallback) {
	s.removes++
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p != cb {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

// frame delivers ts to every pending callback, like one vsync.
func (s *fakeSource) frame(ts int64) {
	due := s.pending
	s.pending = nil
	for _, cb := range due {
		cb.DoFrame(ts)
	}
}

type record struct {
	level string
	tag   string
	msg   string
}

type fakeSink struct {
	records []record
}

func (s *fakeSink) Info(tag, msg string) { s.records = append(s.records, record{"info", tag, msg}) }
func (s *fakeSink) Warn(tag, msg string) { s.records = append(s.records, record{"warn", tag, msg}) }

func (s *fakeSink) warnings() []record {
	var out []record
	for _, r := range s.records {
		if r.level == "warn" {
			out = append(out, r)
		}
	}
	return out
}

func (s *fakeSink) reset() { s.records = nil }

type harness struct {
	reporter *fakeReporter
	source   *fakeSource
	sink     *fakeSink
	mon      *Monitor
	clock    int64
}

func newHarness(t *testing.T, hz float64) *harness {
	t.Helper()
	h := &harness{
		reporter: &fakeReporter{hz: hz},
		source:   &fakeSource{},
		sink:     &fakeSink{},
		clock:    1_000_000_000,
	}
	h.mon = New(h.reporter, h.source, h.sink, WithClock(func() int64 { return h.clock }))
	return h
}

// tickAfter delivers a frame elapsed nanoseconds after the previous one.
func (h *harness) tickAfter(elapsed int64) {
	h.clock += elapsed
	h.source.frame(h.clock)
}

func TestNew_ReadsFrequencyOnce(t *testing.T) {
	h := newHarness(t, 60)

	assert.Equal(t, 1, h.reporter.reads)
	assert.Equal(t, 60.0, h.mon.Config().NominalHz)
	assert.Empty(t, h.sink.records, "first establishment must not log a transition")
	assert.False(t, h.mon.Running())
}

func TestNew_InvalidFrequencyLeavesConfigUnset(t *testing.T) {
	for _, hz := range []float64{0, -60, math.NaN(), math.Inf(1)} {
		h := newHarness(t, hz)
		assert.False(t, h.mon.Config().Valid(), "hz=%v", hz)
		assert.Empty(t, h.sink.records, "hz=%v", hz)
	}
}

func TestRefreshConfig_UnchangedIsNoop(t *testing.T) {
	h := newHarness(t, 60)
	before := h.mon.Config()

	changed := h.mon.RefreshConfig()

	assert.False(t, changed)
	assert.Equal(t, before, h.mon.Config())
	assert.Empty(t, h.sink.records)
}

func TestRefreshConfig_ChangeLogsTransition(t *testing.T) {
	h := newHarness(t, 60)
	h.reporter.hz = 120

	changed := h.mon.RefreshConfig()

	require.True(t, changed)
	cfg := h.mon.Config()
	assert.Equal(t, 120.0, cfg.NominalHz)
	assert.Equal(t, int64(8_333_333), cfg.IdealInterval)
	assert.Equal(t, int64(8_333_333*30), cfg.BadThreshold)

	require.Len(t, h.sink.records, 1)
	assert.Equal(t, "info", h.sink.records[0].level)
	assert.Equal(t, Tag, h.sink.records[0].tag)
	assert.Equal(t, "Refresh rate changed from 60.00 hz to 120.00 hz", h.sink.records[0].msg)
}

func TestRefreshConfig_InvalidAfterValidKeepsConfig(t *testing.T) {
	h := newHarness(t, 60)
	before := h.mon.Config()

	h.reporter.hz = 0
	assert.False(t, h.mon.RefreshConfig())
	h.reporter.hz = math.NaN()
	assert.False(t, h.mon.RefreshConfig())

	assert.Equal(t, before, h.mon.Config())
	assert.Empty(t, h.sink.records)
}

func TestRefreshConfig_FirstValidAfterInvalidDoesNotLog(t *testing.T) {
	h := newHarness(t, 0)
	h.reporter.hz = 90

	assert.True(t, h.mon.RefreshConfig())
	assert.Equal(t, 90.0, h.mon.Config().NominalHz)
	assert.Empty(t, h.sink.records)
}

func TestStart_LogsConfigAndRegisters(t *testing.T) {
	h := newHarness(t, 60)

	h.mon.Start()

	assert.True(t, h.mon.Running())
	assert.Equal(t, 1, h.source.posts)
	require.Len(t, h.sink.records, 1)
	assert.Equal(t,
		"Beginning frame rate tracking. Screen refresh rate: 60.00 hz, or 16.67 ms per frame.",
		h.sink.records[0].msg)
}

func TestStart_RefreshesConfig(t *testing.T) {
	h := newHarness(t, 60)
	h.reporter.hz = 144

	h.mon.Start()

	assert.Equal(t, 144.0, h.mon.Config().NominalHz)
	require.Len(t, h.sink.records, 2)
	assert.Contains(t, h.sink.records[0].msg, "from 60.00 hz to 144.00 hz")
	assert.Contains(t, h.sink.records[1].msg, "144.00 hz")
}

func TestStart_TwiceDoesNotDoubleRegister(t *testing.T) {
	h := newHarness(t, 60)

	h.mon.Start()
	h.mon.Start()

	assert.Equal(t, 1, h.source.posts)
	assert.Len(t, h.source.pending, 1)
}

func TestStop_WithoutStartIsNoop(t *testing.T) {
	h := newHarness(t, 60)

	h.mon.Stop()

	assert.Equal(t, 0, h.source.removes)
	assert.False(t, h.mon.Running())
}

func TestTicks_AtIdealIntervalNeverWarn(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.sink.reset()

	ideal := h.mon.Config().IdealInterval
	for i := 0; i < 600; i++ {
		h.tickAfter(ideal)
	}

	assert.Empty(t, h.sink.records)
	assert.Equal(t, uint32(0), h.mon.ConsecutiveBad())
	assert.Equal(t, 601, h.source.posts, "every frame must re-arm")
	assert.InDelta(t, 60.0, h.mon.FPS(), 0.001)
}

func TestTick_JustOverThresholdWarnsOnce(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.sink.reset()

	cfg := h.mon.Config()
	elapsed := cfg.BadThreshold + 1
	h.tickAfter(elapsed)

	warnings := h.sink.warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, Tag, warnings[0].tag)

	dropped := elapsed / cfg.IdealInterval
	assert.Equal(t, int64(15), dropped)
	assert.Equal(t, "Bad frame! Took 249 ms (15 dropped frames, or 4.00 FPS)", warnings[0].msg)
	assert.Equal(t, uint32(1), h.mon.ConsecutiveBad())
}

func TestTick_AtThresholdIsGood(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.sink.reset()

	h.tickAfter(h.mon.Config().BadThreshold)

	assert.Empty(t, h.sink.warnings())
	assert.Equal(t, uint32(0), h.mon.ConsecutiveBad())
}

func TestTicks_WarningsCappedAndRearmedByGoodFrame(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.sink.reset()

	cfg := h.mon.Config()
	bad := cfg.BadThreshold + 1

	for i := 0; i < MaxConsecutiveLogs; i++ {
		h.tickAfter(bad)
	}
	assert.Len(t, h.sink.warnings(), MaxConsecutiveLogs)
	assert.Equal(t, uint32(MaxConsecutiveLogs), h.mon.ConsecutiveBad())

	h.tickAfter(bad)
	assert.Len(t, h.sink.warnings(), MaxConsecutiveLogs, "eleventh bad frame must be suppressed")

	h.tickAfter(cfg.IdealInterval)
	assert.Equal(t, uint32(0), h.mon.ConsecutiveBad())

	h.tickAfter(bad)
	assert.Len(t, h.sink.warnings(), MaxConsecutiveLogs+1)
	assert.Equal(t, uint32(1), h.mon.ConsecutiveBad())
}

func TestTick_DegenerateIntervalSkipsClassification(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.sink.reset()

	bad := h.mon.Config().BadThreshold + 1
	h.tickAfter(bad)
	require.Equal(t, uint32(1), h.mon.ConsecutiveBad())
	fps := h.mon.FPS()

	h.tickAfter(0)
	h.tickAfter(-5_000_000)

	assert.Equal(t, uint32(1), h.mon.ConsecutiveBad())
	assert.Len(t, h.sink.warnings(), 1)
	assert.Equal(t, fps, h.mon.FPS())
	assert.Len(t, h.source.pending, 1, "degenerate frames still re-arm")

	// lastTick advanced to the degenerate timestamp.
	h.tickAfter(h.mon.Config().IdealInterval)
	assert.Equal(t, uint32(0), h.mon.ConsecutiveBad())
}

func TestTick_UnconfiguredMonitorDoesNotClassify(t *testing.T) {
	h := newHarness(t, 0)
	h.mon.Start()
	h.sink.reset()

	h.tickAfter(1_000_000_000)

	assert.Empty(t, h.sink.records)
	assert.Len(t, h.source.pending, 1)
}

func TestStop_NoFurtherDiagnostics(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.tickAfter(h.mon.Config().IdealInterval)

	h.mon.Stop()
	h.sink.reset()

	assert.Equal(t, 1, h.source.removes)
	assert.Empty(t, h.source.pending)

	h.clock += 10_000_000_000
	h.source.frame(h.clock)

	assert.Empty(t, h.sink.records)
	assert.False(t, h.mon.Running())
}

func TestStop_InFlightFrameDoesNotRearm(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	h.sink.reset()

	cb := h.source.pending[0]
	h.source.pending = nil
	h.mon.Stop()

	cb.DoFrame(h.clock + 10_000_000_000)

	assert.Empty(t, h.source.pending)
	assert.Empty(t, h.sink.records)
}

func TestStartAfterStop_ResetsState(t *testing.T) {
	h := newHarness(t, 60)
	h.mon.Start()
	bad := h.mon.Config().BadThreshold + 1
	for i := 0; i < 3; i++ {
		h.tickAfter(bad)
	}
	h.mon.Stop()
	assert.Equal(t, uint32(0), h.mon.ConsecutiveBad())

	h.clock += 60_000_000_000
	h.mon.Start()
	h.sink.reset()

	// Interval is measured from the restart, not from the last frame.
	h.tickAfter(h.mon.Config().IdealInterval)
	assert.Empty(t, h.sink.records)
	assert.Equal(t, 6, h.source.posts)
}

func TestTick_LowRateHasZeroThreshold(t *testing.T) {
	h := newHarness(t, 2)
	h.mon.Start()
	h.sink.reset()

	assert.Equal(t, int64(0), h.mon.Config().BadThreshold)

	h.tickAfter(h.mon.Config().IdealInterval)
	warnings := h.sink.warnings()
	require.Len(t, warnings, 1)
	assert.True(t, strings.HasPrefix(warnings[0].msg, "Bad frame! Took 500 ms (1 dropped frames"))
}
