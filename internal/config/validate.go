package config

import (
	"fmt"

	"github.com/cbrunnkvist/framelag/internal/logger"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// DISPLAY
	// ------------------------------------------------------------

	if cfg.Display.Hz < 0 {
		return fmt.Errorf("display.hz must be >= 0, got %v", cfg.Display.Hz)
	}

	var prev RateStep
	for i, st := range cfg.Display.Schedule {
		if !(st.Hz > 0) {
			return fmt.Errorf("display.schedule[%d]: hz must be > 0, got %v", i, st.Hz)
		}
		if st.After < 0 {
			return fmt.Errorf("display.schedule[%d]: after must be >= 0, got %v", i, st.After)
		}
		if i > 0 && st.After < prev.After {
			return fmt.Errorf("display.schedule[%d]: after %v is before previous step %v", i, st.After, prev.After)
		}
		prev = st
	}

	if cfg.Display.Period < 0 {
		return fmt.Errorf("display.period must be >= 0, got %v", cfg.Display.Period)
	}
	if cfg.Display.Period > 0 {
		if len(cfg.Display.Schedule) == 0 {
			return fmt.Errorf("display.period is set but display.schedule is empty")
		}
		if cfg.Display.Period <= prev.After {
			return fmt.Errorf("display.period %v must be longer than the last schedule step %v", cfg.Display.Period, prev.After)
		}
	}

	// ------------------------------------------------------------
	// SIMULATED VSYNC
	// ------------------------------------------------------------

	if cfg.Simulate.Jitter < 0 {
		return fmt.Errorf("simulate.jitter must be >= 0, got %v", cfg.Simulate.Jitter)
	}
	if cfg.Simulate.StallEvery < 0 {
		return fmt.Errorf("simulate.stall_every must be >= 0, got %d", cfg.Simulate.StallEvery)
	}
	if cfg.Simulate.Stall < 0 {
		return fmt.Errorf("simulate.stall must be >= 0, got %v", cfg.Simulate.Stall)
	}

	// ------------------------------------------------------------
	// LOGGING
	// ------------------------------------------------------------

	if cfg.Log.Level != "" {
		if _, ok := logger.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
		}
	}
	if cfg.Log.Buffer < 0 {
		return fmt.Errorf("log.buffer must be >= 0, got %d", cfg.Log.Buffer)
	}
	if cfg.Log.Rate < 0 {
		return fmt.Errorf("log.rate must be >= 0, got %v", cfg.Log.Rate)
	}
	if cfg.Log.Burst < 0 {
		return fmt.Errorf("log.burst must be >= 0, got %d", cfg.Log.Burst)
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	if cfg.RefreshEvery < 0 {
		return fmt.Errorf("refresh_every must be >= 0, got %v", cfg.RefreshEvery)
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("duration must be >= 0, got %v", cfg.Duration)
	}

	return nil
}
