package monitor

import "time"

var epoch = time.Now()

// Nanotime returns monotonic nanoseconds since process start.
// Every vsync producer must stamp frames with this clock so intervals line up
// with the monitor's start time.
func Nanotime() int64 {
	return int64(time.Since(epoch))
}
