// Package config loads the framelag YAML configuration.
package config

import "time"

type Config struct {
	Display      DisplayConfig  `yaml:"display"`
	Simulate     SimulateConfig `yaml:"simulate"`
	Log          LogConfig      `yaml:"log"`
	RefreshEvery time.Duration  `yaml:"refresh_every"`
	Duration     time.Duration  `yaml:"duration"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	Hz       float64       `yaml:"hz"`
	Profile  string        `yaml:"profile"`
	Schedule []RateStep    `yaml:"schedule"` // variable refresh; overrides hz
	Period   time.Duration `yaml:"period"`   // schedule repeats when > 0
}

type RateStep struct {
	After time.Duration `yaml:"after"`
	Hz    float64       `yaml:"hz"`
}

// ---- SIMULATED VSYNC ----

type SimulateConfig struct {
	Jitter     time.Duration `yaml:"jitter"`
	StallEvery int           `yaml:"stall_every"`
	Stall      time.Duration `yaml:"stall"`
	Seed       int64         `yaml:"seed"`
}

// ---- LOGGING ----

type LogConfig struct {
	Level  string  `yaml:"level"`
	File   string  `yaml:"file"`
	Buffer int     `yaml:"buffer"`
	Rate   float64 `yaml:"rate"`  // records per second, 0 = unlimited
	Burst  int     `yaml:"burst"` // only used when rate > 0
}
