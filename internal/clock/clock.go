// Package clock provides the monotonic millisecond counter used for latch
// timing. The counter is 32 bits wide and wraps roughly every 49.7 days, so
// every comparison between two instants goes through Since.
package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Millis is a point on the wrapping millisecond counter.
type Millis uint32

// Since returns now - then as a signed difference. The result is correct as
// long as the two instants are less than 2^31 ms (~24.8 days) apart, even if
// the counter wrapped between them.
func Since(now, then Millis) int32 {
	return int32(uint32(now) - uint32(then))
}

// Reached reports whether now is at or past deadline.
func Reached(now, deadline Millis) bool {
	return Since(now, deadline) >= 0
}

// Remaining returns the time left until deadline, or zero once it is reached.
func Remaining(now, deadline Millis) time.Duration {
	d := Since(deadline, now)
	if d <= 0 {
		return 0
	}
	return time.Duration(d) * time.Millisecond
}

// Add returns t advanced by ms, wrapping at 2^32.
func (t Millis) Add(ms uint32) Millis {
	return Millis(uint32(t) + ms)
}

// Source turns a wall/monotonic clock into a Millis counter.
type Source struct {
	clk    bclock.Clock
	origin time.Time
	base   Millis
}

// NewSource starts a counter at base using clk. Passing a non-zero base is
// mainly useful in tests that want to cross the wrap point.
func NewSource(clk bclock.Clock, base Millis) *Source {
	return &Source{clk: clk, origin: clk.Now(), base: base}
}

// System returns a Source on the real clock, starting at zero.
func System() *Source {
	return NewSource(bclock.New(), 0)
}

// Now returns the current counter value.
func (s *Source) Now() Millis {
	elapsed := s.clk.Since(s.origin) / time.Millisecond
	return s.base.Add(uint32(uint64(elapsed)))
}

// Clock returns the underlying clock, for tickers and wall-clock timestamps.
func (s *Source) Clock() bclock.Clock {
	return s.clk
}
