// Package monitor detects late frames in a periodic frame signal.
//
// A Monitor derives an ideal per-frame interval from the display's nominal
// refresh rate and a bad-frame threshold of roughly a quarter second. Each
// frame delivered by a TickSource is compared against the previous one; an
// interval over the threshold is a bad frame and produces a warning through
// the Sink, up to MaxConsecutiveLogs warnings in a row. The first good frame
// re-arms the warnings.
//
// Typical wiring with the choreo loop:
//
//	loop := choreo.New()
//	m := monitor.New(refresh.Fixed(60), loop, sink)
//	go loop.Run(ctx, vsync)
//	loop.Invoke(m.Start)
//	...
//	loop.Invoke(m.Stop)
//
// A total stall produces no frames and therefore no warning; only the length
// of intervals between observed frames is measured.
package monitor
