// Package refresh provides nominal refresh-rate reporters for the monitor.
package refresh

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Fixed reports a constant rate.
type Fixed float64

func (f Fixed) NominalFrequency() float64 { return float64(f) }

// Settable reports a rate that can be changed from any goroutine,
// e.g. when the configuration is reloaded.
type Settable struct {
	bits atomic.Uint64
}

// NewSettable creates a reporter starting at hz.
func NewSettable(hz float64) *Settable {
	s := &Settable{}
	s.Set(hz)
	return s
}

// Set replaces the reported rate.
func (s *Settable) Set(hz float64) {
	s.bits.Store(math.Float64bits(hz))
}

func (s *Settable) NominalFrequency() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Step switches the reported rate to Hz once After has elapsed.
type Step struct {
	After time.Duration
	Hz    float64
}

// Schedule simulates a variable-refresh display: the reported rate follows
// a list of steps relative to the first read. With a positive period the
// schedule repeats.
type Schedule struct {
	steps  []Step
	period time.Duration
	now    func() time.Time

	once  sync.Once
	start time.Time
}

// NewSchedule creates a schedule. Steps are sorted by After; the rate before
// the first step is the first step's rate.
func NewSchedule(steps []Step, period time.Duration) *Schedule {
	sorted := append([]Step(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].After < sorted[j].After })

	return &Schedule{
		steps:  sorted,
		period: period,
		now:    time.Now,
	}
}

func (s *Schedule) NominalFrequency() float64 {
	if len(s.steps) == 0 {
		return 0
	}

	s.once.Do(func() { s.start = s.now() })

	elapsed := s.now().Sub(s.start)
	if s.period > 0 {
		elapsed %= s.period
	}

	hz := s.steps[0].Hz
	for _, st := range s.steps {
		if st.After > elapsed {
			break
		}
		hz = st.Hz
	}
	return hz
}
