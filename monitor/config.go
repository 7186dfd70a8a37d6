package monitor

import (
	"math"
	"time"
)

// Config is the cadence derived from a nominal refresh rate.
type Config struct {
	NominalHz     float64 // Reported ticks per second
	IdealInterval int64   // Nanoseconds between ticks at NominalHz
	BadThreshold  int64   // Intervals longer than this are bad frames
}

// Derive computes the ideal interval and bad-frame threshold for hz.
//
// The threshold is a quarter second worth of ideal frames: hz/4 frames
// (truncated) times the ideal interval. It returns false for rates that
// cannot produce a positive interval: zero, negative, NaN, +Inf, or rates
// above one tick per nanosecond.
func Derive(hz float64) (Config, bool) {
	if !(hz > 0) || math.IsInf(hz, 1) {
		return Config{}, false
	}

	ideal := int64(float64(time.Second) / hz)
	if ideal <= 0 {
		return Config{}, false
	}

	return Config{
		NominalHz:     hz,
		IdealInterval: ideal,
		BadThreshold:  ideal * int64(int(hz/4)),
	}, true
}

// Valid reports whether c was produced by a successful Derive.
func (c Config) Valid() bool {
	return c.IdealInterval > 0
}

// IdealMillis returns the ideal interval in milliseconds.
func (c Config) IdealMillis() float64 {
	return float64(c.IdealInterval) / float64(time.Millisecond)
}
