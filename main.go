//go:build !windows
// +build !windows

package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/cbrunnkvist/framelag/internal/config"
)

var version = "0.2.0"

// Default terminal dimensions when stdin is not a TTY
const (
	defaultTermCols = 80
	defaultTermRows = 24
)

// Shutdown timing
const (
	drainTimeout      = 30 * time.Second       // Max time to wait for PTY output to drain
	goroutineExitWait = 500 * time.Millisecond // Max time to wait for goroutines to exit
)

// Options holds the merged configuration and the command-line only switches.
type Options struct {
	config.Config

	ConfigPath string

	// Misc
	Help         bool
	Version      bool
	ListProfiles bool

	// Command to run (PTY mode); empty runs the simulated display
	Command []string

	args []string // as given, for reloading on SIGHUP
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("framelag %s\n", version)
		os.Exit(0)
	}

	if opts.ListProfiles {
		printProfiles()
		os.Exit(0)
	}

	exitCode, err := run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(exitCode)
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(os.Stderr, "framelag - watch frame cadence and report janky frames")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Without a command, drives a simulated display at the configured refresh")
		fmt.Fprintln(os.Stderr, "rate. With a command, runs it in a PTY and treats every output burst as")
		fmt.Fprintln(os.Stderr, "a frame. Frames later than a quarter second of refresh are reported.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: framelag [flags] [-- <command> [args...]]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  framelag --profile janky -t 10s")
		fmt.Fprintln(os.Stderr, "  framelag --hz 144 --jitter 2ms --stall 300ms --stall-every 500")
		fmt.Fprintln(os.Stderr, "  framelag --hz 30 -- htop")
		fmt.Fprintln(os.Stderr, "  framelag -f framelag.yaml")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Precedence: defaults < config file < profile < flags")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Profiles:")
		fmt.Fprintln(os.Stderr, "  Broadcast: film, pal, ntsc")
		fmt.Fprintln(os.Stderr, "  Panels:    60hz, 90hz, 120hz, 144hz")
		fmt.Fprintln(os.Stderr, "  Variable:  vrr")
		fmt.Fprintln(os.Stderr, "  Degraded:  janky, hitchy")
	}
}

func parseFlags(args []string) (*Options, error) {
	opts := &Options{args: args}

	// Custom flag set to handle -- separator (pflag handles this automatically)
	fs := flag.NewFlagSet("framelag", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false // Preserve definition order in help

	fs.StringVarP(&opts.ConfigPath, "config", "f", "", "YAML config file")
	hz := fs.Float64("hz", 0, "Nominal refresh rate in Hz (default 60)")
	profile := fs.StringP("profile", "p", "", "Display profile (see below)")
	jitter := fs.StringP("jitter", "j", "", "Per-frame jitter of the simulated display")
	stall := fs.String("stall", "", "Length of a simulated stall (e.g., 400ms)")
	stallEvery := fs.Int("stall-every", 0, "Stall after every N frames (0=never)")
	seed := fs.Int64("seed", 0, "Random seed for jitter (0=random)")
	duration := fs.StringP("duration", "t", "", "Stop after this long (0=until interrupted)")
	refreshEvery := fs.String("refresh-every", "", "Re-read the refresh rate this often (default 1s)")
	logLevel := fs.StringP("log-level", "l", "", "Log level: err, warn, notice, info, debug")
	logFile := fs.String("log-file", "", "Write logs to this file instead of stderr")
	logBuffer := fs.Int("log-buffer", 0, "Diagnostic records buffered before dropping (default 256)")
	logRate := fs.Float64("log-rate", 0, "Diagnostic records per second (0=unlimited)")
	fs.BoolVarP(&opts.ListProfiles, "list-profiles", "L", false, "List available profiles")
	fs.BoolVarP(&opts.Help, "help", "h", false, "Show help")
	fs.BoolVarP(&opts.Version, "version", "v", false, "Show version")

	fs.Usage = usage(fs)

	// Parse flags (pflag handles -- separator automatically)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Get command args (everything after --)
	opts.Command = fs.Args()

	if opts.Help {
		fs.Usage()
		return opts, flag.ErrHelp
	}
	if opts.Version || opts.ListProfiles {
		return opts, nil
	}

	// Config file first
	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		opts.Config = *cfg
	}

	// Then the profile, from the flag or the file
	name := opts.Display.Profile
	if fs.Changed("profile") {
		name = *profile
	}
	if name != "" {
		p, ok := profiles[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile: %s", name)
		}
		p.apply(&opts.Config)
		opts.Display.Profile = name
	}

	// Explicit flags win
	if fs.Changed("hz") {
		opts.Display.Hz = *hz
		opts.Display.Schedule = nil
		opts.Display.Period = 0
	}
	for _, d := range []struct {
		value    string
		flagName string
		dst      *time.Duration
	}{
		{*jitter, "jitter", &opts.Simulate.Jitter},
		{*stall, "stall", &opts.Simulate.Stall},
		{*duration, "duration", &opts.Duration},
		{*refreshEvery, "refresh-every", &opts.RefreshEvery},
	} {
		if err := parseDuration(d.value, d.flagName, d.dst); err != nil {
			return nil, err
		}
	}
	if fs.Changed("stall-every") {
		opts.Simulate.StallEvery = *stallEvery
	}
	if fs.Changed("seed") {
		opts.Simulate.Seed = *seed
	}
	if fs.Changed("log-level") {
		opts.Log.Level = *logLevel
	}
	if fs.Changed("log-file") {
		opts.Log.File = *logFile
	}
	if fs.Changed("log-buffer") {
		opts.Log.Buffer = *logBuffer
	}
	if fs.Changed("log-rate") {
		opts.Log.Rate = *logRate
	}

	if err := config.Validate(&opts.Config); err != nil {
		return nil, err
	}
	config.Normalize(&opts.Config)

	return opts, nil
}

// parseDuration parses a duration flag value into dst if non-empty.
// Returns an error with the flag name if parsing fails.
func parseDuration(s string, flagName string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", flagName, err)
	}
	*dst = d
	return nil
}

// getTerminalSize returns the terminal dimensions, or defaults if unavailable.
func getTerminalSize() (width, height int) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		w, h, err := term.GetSize(int(os.Stdin.Fd()))
		if err == nil {
			return w, h
		}
		fmt.Fprintf(os.Stderr, "warning: could not get terminal size: %v (using %dx%d)\n", err, defaultTermCols, defaultTermRows)
	}
	return defaultTermCols, defaultTermRows
}
