// Package choreo runs frame callbacks on a single goroutine.
//
// A Loop plays the role of a display choreographer: producers push vsync
// timestamps, and every callback posted since the previous frame runs once
// with that timestamp. Callbacks are one-shot; a callback that wants the next
// frame posts itself again from inside DoFrame.
package choreo

import (
	"context"
	"sync"

	"github.com/cbrunnkvist/framelag/monitor"
)

// taskQueueSize bounds the number of Invoke calls waiting for the loop.
const taskQueueSize = 16

// Loop serializes frame dispatch and invoked tasks on the goroutine that
// calls Run. It implements monitor.TickSource.
type Loop struct {
	mu      sync.Mutex
	pending []monitor.FrameCallback

	tasks chan func()
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), taskQueueSize),
	}
}

// PostFrameCallback schedules cb for the next frame.
// A callback already pending is not added twice.
func (l *Loop) PostFrameCallback(cb monitor.FrameCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.pending {
		if p == cb {
			return
		}
	}
	l.pending = append(l.pending, cb)
}

// RemoveFrameCallback cancels a pending registration of cb.
func (l *Loop) RemoveFrameCallback(cb monitor.FrameCallback) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, p := range l.pending {
		if p == cb {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of callbacks waiting for the next frame.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Dispatch runs every pending callback with frameTimeNanos, in post order.
// Callbacks posted while dispatching wait for the following frame.
//
// Run calls Dispatch for each vsync; tools that drive frames themselves may
// call it directly as long as they never overlap with Run.
func (l *Loop) Dispatch(frameTimeNanos int64) {
	l.mu.Lock()
	due := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, cb := range due {
		cb.DoFrame(frameTimeNanos)
	}
}

// Invoke queues fn to run on the loop goroutine, after any frame being
// dispatched. Blocks only when the queue is full.
func (l *Loop) Invoke(fn func()) {
	l.tasks <- fn
}

// Run dispatches frames from vsync and runs invoked tasks until ctx is done
// or vsync is closed. Tasks still queued at that point are run before Run
// returns, so a final Invoke(m.Stop) is never lost.
func (l *Loop) Run(ctx context.Context, vsync <-chan int64) error {
	for {
		select {
		case <-ctx.Done():
			l.drainTasks()
			return ctx.Err()

		case fn := <-l.tasks:
			fn()

		case ts, ok := <-vsync:
			if !ok {
				l.drainTasks()
				return nil
			}
			l.Dispatch(ts)
		}
	}
}

func (l *Loop) drainTasks() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}
