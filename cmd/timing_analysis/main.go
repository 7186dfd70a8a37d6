package main

// timing_analysis - Replay a terminal recording through the frame monitor
//
// Usage:
//   1. Record a session as ttyrec:
//      ttyrec -e 'framelag --hz 30 -- htop' session.rec
//
//   2. Replay the output timestamps as frames:
//      go run ./cmd/timing_analysis --hz 30 session.rec
//
// Every record is treated as one frame. The monitor sees the recorded
// timestamps through a replay clock, so late frames are reported exactly as
// they would have been live.

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/cbrunnkvist/framelag/choreo"
	"github.com/cbrunnkvist/framelag/internal/logger"
	"github.com/cbrunnkvist/framelag/internal/refresh"
	"github.com/cbrunnkvist/framelag/monitor"
)

type timingEntry struct {
	timestamp time.Duration
	data      []byte
}

func main() {
	hz := flag.Float64("hz", 60, "Nominal refresh rate the recording should keep")
	gapThreshold := flag.Duration("gap", 10*time.Millisecond, "Show gaps longer than this")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./cmd/timing_analysis [--hz 60] <recording.ttyrec>")
		fmt.Println("")
		fmt.Println("Record a session first:")
		fmt.Println("  ttyrec -e 'framelag -- bash' test.rec")
		os.Exit(1)
	}

	filename := flag.Arg(0)
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Analyzing: %s (%d bytes)\n\n", filename, len(data))

	if !detectTTYRec(data) {
		fmt.Fprintln(os.Stderr, "Not a ttyrec recording")
		os.Exit(1)
	}

	entries := parseTTYRec(data)
	printTimingAnalysis(entries, *gapThreshold)
	replay(entries, *hz)
}

func detectTTYRec(data []byte) bool {
	// ttyrec format: 12-byte header (sec, usec, len) followed by data
	if len(data) < 12 {
		return false
	}
	// Check if first record looks valid
	sec := binary.LittleEndian.Uint32(data[0:4])
	usec := binary.LittleEndian.Uint32(data[4:8])
	length := binary.LittleEndian.Uint32(data[8:12])

	// Sanity checks
	return sec < 2000000000 && usec < 1000000 && length < 1000000 && int(length)+12 <= len(data)
}

func parseTTYRec(data []byte) []timingEntry {
	var entries []timingEntry
	var firstTime time.Duration
	offset := 0

	for offset+12 <= len(data) {
		sec := binary.LittleEndian.Uint32(data[offset : offset+4])
		usec := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		length := binary.LittleEndian.Uint32(data[offset+8 : offset+12])

		if offset+12+int(length) > len(data) {
			break
		}

		ts := time.Duration(sec)*time.Second + time.Duration(usec)*time.Microsecond
		if len(entries) == 0 {
			firstTime = ts
		}

		entries = append(entries, timingEntry{
			timestamp: ts - firstTime,
			data:      data[offset+12 : offset+12+int(length)],
		})

		offset += 12 + int(length)
	}
	return entries
}

// replay feeds the entries through a loop and monitor driven by the
// recorded clock. Diagnostics go straight to stdout.
func replay(entries []timingEntry, hz float64) {
	if len(entries) == 0 {
		return
	}

	fmt.Println("")
	fmt.Printf("Frame monitor replay at %.2f Hz:\n", hz)
	fmt.Println("================================")

	log := logger.New(os.Stdout)
	// Room for a record per frame and no rate limit: replay keeps every record.
	sink := logger.NewSink(log, logger.SinkOptions{Buffer: len(entries) + 16})

	// Timestamps are offsets into the recording; start the clock one ideal
	// interval before the first record.
	var clock int64
	loop := choreo.New()
	mon := monitor.New(refresh.Fixed(hz), loop, sink, monitor.WithClock(func() int64 { return clock }))
	if !mon.Config().Valid() {
		fmt.Fprintf(os.Stderr, "invalid refresh rate: %v\n", hz)
		return
	}
	clock = -mon.Config().IdealInterval

	mon.Start()
	for _, e := range entries {
		clock = int64(e.timestamp)
		loop.Dispatch(clock)
	}
	mon.Stop()
	sink.Close()

	fmt.Printf("  Last fps: %.2f\n", mon.FPS())
	if n := sink.Dropped(); n > 0 {
		fmt.Printf("  Dropped records: %d\n", n)
	}
}

func printTimingAnalysis(entries []timingEntry, threshold time.Duration) {
	if len(entries) == 0 {
		fmt.Println("No timing entries found")
		return
	}

	fmt.Printf("Found %d timing entries\n\n", len(entries))

	// Calculate gaps between entries
	var gaps []time.Duration
	for i := 1; i < len(entries); i++ {
		gap := entries[i].timestamp - entries[i-1].timestamp
		gaps = append(gaps, gap)
	}

	fmt.Printf("Significant timing gaps (>%v):\n", threshold)
	fmt.Println("================================")

	significantCount := 0
	for i, gap := range gaps {
		if gap > threshold {
			preview := entries[i+1].data
			if len(preview) > 40 {
				preview = preview[:40]
			}
			fmt.Printf("  %s: +%v -> %q\n", entries[i].timestamp, gap, sanitize(preview))
			significantCount++
		}
	}

	if significantCount == 0 {
		fmt.Println("  (none found)")
	}

	// Statistics
	fmt.Println("")
	fmt.Println("Timing Statistics:")
	fmt.Println("==================")
	fmt.Printf("  Total duration: %v\n", entries[len(entries)-1].timestamp)
	fmt.Printf("  Total entries: %d\n", len(entries))

	if len(gaps) > 0 {
		var totalGap time.Duration
		var maxGap time.Duration
		for _, g := range gaps {
			totalGap += g
			if g > maxGap {
				maxGap = g
			}
		}
		fmt.Printf("  Average gap: %v\n", totalGap/time.Duration(len(gaps)))
		fmt.Printf("  Max gap: %v\n", maxGap)
	}
}

func sanitize(data []byte) string {
	var result []byte
	for _, b := range data {
		if b >= 32 && b < 127 {
			result = append(result, b)
		} else if b == '\n' {
			result = append(result, '\\', 'n')
		} else if b == '\r' {
			result = append(result, '\\', 'r')
		} else {
			result = append(result, '.')
		}
	}
	return string(result)
}
