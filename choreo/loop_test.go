package choreo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbrunnkvist/framelag/monitor"
)

type recordingCallback struct {
	name   string
	frames *[]string
	repost *Loop
	times  []int64
}

func (c *recordingCallback) DoFrame(ts int64) {
	c.times = append(c.times, ts)
	if c.frames != nil {
		*c.frames = append(*c.frames, c.name)
	}
	if c.repost != nil {
		c.repost.PostFrameCallback(c)
	}
}

func TestLoop_PostIsOneShot(t *testing.T) {
	l := New()
	cb := &recordingCallback{}

	l.PostFrameCallback(cb)
	l.Dispatch(10)
	l.Dispatch(20)

	assert.Equal(t, []int64{10}, cb.times)
	assert.Equal(t, 0, l.Pending())
}

func TestLoop_PostTwiceKeepsOneRegistration(t *testing.T) {
	l := New()
	cb := &recordingCallback{}

	l.PostFrameCallback(cb)
	l.PostFrameCallback(cb)
	assert.Equal(t, 1, l.Pending())

	l.Dispatch(10)
	assert.Equal(t, []int64{10}, cb.times)
}

func TestLoop_RemoveCancelsPending(t *testing.T) {
	l := New()
	a := &recordingCallback{}
	b := &recordingCallback{}

	l.PostFrameCallback(a)
	l.PostFrameCallback(b)
	l.RemoveFrameCallback(a)
	l.RemoveFrameCallback(a)

	l.Dispatch(10)

	assert.Empty(t, a.times)
	assert.Equal(t, []int64{10}, b.times)
}

func TestLoop_DispatchInPostOrder(t *testing.T) {
	l := New()
	var order []string
	a := &recordingCallback{name: "a", frames: &order}
	b := &recordingCallback{name: "b", frames: &order}
	c := &recordingCallback{name: "c", frames: &order}

	l.PostFrameCallback(b)
	l.PostFrameCallback(a)
	l.PostFrameCallback(c)
	l.Dispatch(1)

	assert.Equal(t, []string{"b", "a", "c"}, order)
}

func TestLoop_RepostRunsOnNextFrame(t *testing.T) {
	l := New()
	cb := &recordingCallback{}
	cb.repost = l

	l.PostFrameCallback(cb)
	l.Dispatch(1)
	assert.Equal(t, []int64{1}, cb.times, "re-post must not run in the same frame")

	l.Dispatch(2)
	l.Dispatch(3)
	assert.Equal(t, []int64{1, 2, 3}, cb.times)
	assert.Equal(t, 1, l.Pending())
}

func TestLoop_RunDispatchesVsyncAndTasks(t *testing.T) {
	l := New()
	cb := &recordingCallback{repost: l}

	vsync := make(chan int64)
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background(), vsync) }()

	started := make(chan struct{})
	l.Invoke(func() {
		l.PostFrameCallback(cb)
		close(started)
	})
	<-started

	vsync <- 100
	vsync <- 200
	close(vsync)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after vsync closed")
	}
	assert.Equal(t, []int64{100, 200}, cb.times)
}

func TestLoop_RunDrainsTasksOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 3; i++ {
		l.Invoke(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	cancel()

	err := l.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, ran)
}

type nullSink struct{}

func (nullSink) Info(string, string) {}
func (nullSink) Warn(string, string) {}

type countingSink struct {
	mu    sync.Mutex
	warns int
}

func (s *countingSink) Info(string, string) {}
func (s *countingSink) Warn(string, string) {
	s.mu.Lock()
	s.warns++
	s.mu.Unlock()
}

type hz float64

func (h hz) NominalFrequency() float64 { return float64(h) }

func TestLoop_DrivesMonitor(t *testing.T) {
	l := New()
	sink := &countingSink{}
	var clock int64 = 1_000
	m := monitor.New(hz(60), l, sink, monitor.WithClock(func() int64 { return clock }))

	m.Start()
	ideal := m.Config().IdealInterval
	for i := 0; i < 10; i++ {
		clock += ideal
		l.Dispatch(clock)
	}
	clock += m.Config().BadThreshold + 1
	l.Dispatch(clock)

	assert.Equal(t, 1, sink.warns)
	assert.Equal(t, uint32(1), m.ConsecutiveBad())
	assert.Equal(t, 1, l.Pending())

	m.Stop()
	assert.Equal(t, 0, l.Pending())
}

var _ monitor.TickSource = (*Loop)(nil)
var _ monitor.Sink = nullSink{}
