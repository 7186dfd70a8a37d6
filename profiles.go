package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cbrunnkvist/framelag/internal/config"
)

// Profile is a preset display: its nominal rate (fixed or scheduled) and the
// imperfections the simulated vsync adds.
type Profile struct {
	Hz         float64
	Schedule   []config.RateStep
	Period     time.Duration
	Jitter     time.Duration
	StallEvery int
	Stall      time.Duration
	Summary    string
}

// profiles defines preset configurations for common displays.
var profiles = map[string]Profile{
	// Broadcast and film
	"film": {Hz: 24, Summary: "24 Hz cinema cadence"},
	"pal":  {Hz: 50, Summary: "50 Hz PAL television"},
	"ntsc": {Hz: 59.94, Summary: "59.94 Hz NTSC television"},

	// Fixed-rate panels
	"60hz":  {Hz: 60, Summary: "60 Hz desktop panel"},
	"90hz":  {Hz: 90, Summary: "90 Hz phone / VR panel"},
	"120hz": {Hz: 120, Summary: "120 Hz high refresh panel"},
	"144hz": {Hz: 144, Summary: "144 Hz gaming monitor"},

	// Variable refresh: 60 -> 120 -> 90, repeating every 15s
	"vrr": {
		Schedule: []config.RateStep{
			{After: 0, Hz: 60},
			{After: 5 * time.Second, Hz: 120},
			{After: 10 * time.Second, Hz: 90},
		},
		Period:  15 * time.Second,
		Jitter:  time.Millisecond,
		Summary: "variable refresh 60/120/90 Hz, 15s cycle",
	},

	// Degraded pipelines
	"janky": {
		Hz:         60,
		StallEvery: 120,
		Stall:      400 * time.Millisecond,
		Summary:    "60 Hz with a 400ms stall every 2s",
	},
	"hitchy": {
		Hz:         60,
		Jitter:     6 * time.Millisecond,
		StallEvery: 300,
		Stall:      300 * time.Millisecond,
		Summary:    "60 Hz, 6ms jitter, 300ms stall every 5s",
	},
}

// apply overwrites the display and simulation settings of cfg.
func (p Profile) apply(cfg *config.Config) {
	cfg.Display.Hz = p.Hz
	cfg.Display.Schedule = append([]config.RateStep(nil), p.Schedule...)
	cfg.Display.Period = p.Period
	cfg.Simulate.Jitter = p.Jitter
	cfg.Simulate.StallEvery = p.StallEvery
	cfg.Simulate.Stall = p.Stall
}

func printProfiles() {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stdout, "Available profiles:")
	for _, name := range names {
		fmt.Fprintf(os.Stdout, "  %-8s %s\n", name, profiles[name].Summary)
	}
}
