package main

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cbrunnkvist/framelag/monitor"
)

// VsyncConfig holds the imperfections of a simulated display.
type VsyncConfig struct {
	Jitter     time.Duration // Each frame is late by a uniform [0, 2*Jitter]
	StallEvery int           // Stall after every N frames (0 = never)
	Stall      time.Duration // Length of each stall
	Seed       int64         // Random seed for jitter (0 = use current time)
}

// Vsync produces frame timestamps at the rate a FrequencyReporter reports.
//
// Frames are paced by a token bucket with a burst of one, so a frame that is
// late because of jitter does not push back the frames after it; the mean
// interval stays at the nominal rate. Stalls are not compensated: the frame
// after a stall is late by the stall length and the next frame is
// immediately due.
type Vsync struct {
	config  VsyncConfig
	rates   monitor.FrequencyReporter
	rng     *rand.Rand
	limiter *rate.Limiter
	hz      float64
	frames  uint64
	mu      sync.Mutex
}

// NewVsync creates a simulated display following rates.
func NewVsync(cfg VsyncConfig, rates monitor.FrequencyReporter) *Vsync {
	// Initialize random source
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Vsync{
		config:  cfg,
		rates:   rates,
		rng:     rand.New(rand.NewSource(seed)),
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// randomDelay returns how late the next frame is, in [0, 2*jitter].
func (v *Vsync) randomDelay() time.Duration {
	if v.config.Jitter == 0 {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return time.Duration(v.rng.Int63n(int64(v.config.Jitter) * 2))
}

// follow re-reads the nominal rate and re-paces the limiter when it changed.
// Returns false while the reported rate is unusable.
func (v *Vsync) follow() bool {
	hz := v.rates.NominalFrequency()
	if !(hz > 0) {
		return false
	}
	if hz != v.hz {
		v.hz = hz
		v.limiter.SetLimit(rate.Limit(hz))
	}
	return true
}

// Run emits one timestamp per frame on out until ctx is cancelled.
// It always returns the context's error.
func (v *Vsync) Run(ctx context.Context, out chan<- int64) error {
	idle := time.NewTicker(100 * time.Millisecond)
	defer idle.Stop()

	for {
		if !v.follow() {
			// No usable rate: poll until the reporter recovers.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-idle.C:
				continue
			}
		}

		if err := v.limiter.Wait(ctx); err != nil {
			// Wait fails early when the next frame falls past the deadline.
			<-ctx.Done()
			return ctx.Err()
		}

		v.frames++
		delay := v.randomDelay()
		if v.config.StallEvery > 0 && v.frames%uint64(v.config.StallEvery) == 0 {
			delay += v.config.Stall
		}
		if delay > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}

		select {
		case out <- monitor.Nanotime():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Frames returns the number of frames produced so far.
// Only meaningful once Run has returned.
func (v *Vsync) Frames() uint64 {
	return v.frames
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
