// verify_jitter treats every chunk read from stdin as a frame and runs it
// through the frame monitor, then prints inter-arrival statistics.
// Usage: framelag --hz 30 -- sh -c 'while :; do date; sleep 0.033; done' | go run ./cmd/verify_jitter --hz 30
package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/cbrunnkvist/framelag/choreo"
	"github.com/cbrunnkvist/framelag/internal/logger"
	"github.com/cbrunnkvist/framelag/internal/refresh"
	"github.com/cbrunnkvist/framelag/monitor"
)

func main() {
	hz := flag.Float64("hz", 60, "Expected frame rate of the input")
	level := flag.StringP("log-level", "l", "info", "Log level")
	flag.Parse()

	if !logger.Level.SetByName(*level) {
		fmt.Fprintf(os.Stderr, "unknown log level: %s\n", *level)
		os.Exit(1)
	}

	sink := logger.NewSink(logger.New(os.Stderr), logger.SinkOptions{})
	defer sink.Close()

	loop := choreo.New()
	mon := monitor.New(refresh.Fixed(*hz), loop, sink)

	buf := make([]byte, 4096)

	// Read first chunk to prime the clock (ignore startup latency)
	_, err := os.Stdin.Read(buf)
	if err != nil {
		return
	}
	mon.Start()
	prev := time.Now()

	count := 0
	var sum time.Duration
	var min, max time.Duration
	min = 100 * time.Second // Start high

	for {
		_, err := os.Stdin.Read(buf)
		if err != nil {
			break
		}
		loop.Dispatch(monitor.Nanotime())

		now := time.Now()
		delta := now.Sub(prev)
		prev = now

		sum += delta
		if delta < min {
			min = delta
		}
		if delta > max {
			max = delta
		}
		count++
	}
	mon.Stop()

	if count > 0 {
		avg := sum / time.Duration(count)
		fmt.Printf("Count: %d | Min: %v | Max: %v | Avg: %v | Last FPS: %.2f\n", count, min, max, avg, mon.FPS())
	}
}
