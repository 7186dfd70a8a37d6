package config

import "time"

const (
	DefaultHz           = 60
	DefaultLogLevel     = "info"
	DefaultLogBuffer    = 256
	DefaultLogBurst     = 20
	DefaultRefreshEvery = time.Second
)

// Normalize fills in defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Display.Hz == 0 && len(cfg.Display.Schedule) == 0 {
		cfg.Display.Hz = DefaultHz
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Buffer == 0 {
		cfg.Log.Buffer = DefaultLogBuffer
	}
	if cfg.Log.Rate > 0 && cfg.Log.Burst == 0 {
		cfg.Log.Burst = DefaultLogBurst
	}

	if cfg.RefreshEvery == 0 {
		cfg.RefreshEvery = DefaultRefreshEvery
	}
}
