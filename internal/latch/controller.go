package latch

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sweeney/relay-latch/internal/clock"
)

// Output is the actuator driven by the controller.
type Output interface {
	Set(high bool) error
	Get() (bool, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRevertPolicy sets the expiry behaviour. The default is RevertNone.
func WithRevertPolicy(p RevertPolicy) Option {
	return func(c *Controller) { c.revert = p }
}

// WithClampPolicy sets how latch periods are bounded. The default is ClampZeroOrRange.
func WithClampPolicy(p ClampPolicy) Option {
	return func(c *Controller) { c.clamp = p }
}

// WithPeriod sets the initial latch period in seconds. It is clamped like
// any other SetLatchPeriod call.
func WithPeriod(seconds int64) Option {
	return func(c *Controller) { c.initialSeconds = seconds }
}

// WithTestModeProbe installs the probe used to detect test mode.
func WithTestModeProbe(probe func() bool) Option {
	return func(c *Controller) { c.probe = probe }
}

// WithEventHandler registers a callback for every change the controller makes.
// It runs under the controller's lock, so events arrive in the order the
// output changed. It must not block or call back into the Controller.
func WithEventHandler(fn func(Event)) Option {
	return func(c *Controller) { c.onEvent = fn }
}

// MarkerFile returns a test-mode probe that reports whether path exists.
// An empty path never enables test mode.
func MarkerFile(path string) func() bool {
	return func() bool {
		if path == "" {
			return false
		}
		_, err := os.Stat(path)
		return err == nil
	}
}

// Controller owns the output level, the latch timer and the revert target.
// All operations run to completion under one mutex, so HTTP handlers and the
// poll loop never interleave.
type Controller struct {
	mu sync.Mutex

	out   Output
	src   *clock.Source
	level Level

	periodMs uint32
	armed    bool
	expiry   clock.Millis

	revertSet    bool
	revertTarget Level

	testMode bool
	probe    func() bool

	revert         RevertPolicy
	clamp          ClampPolicy
	initialSeconds int64
	onEvent        func(Event)
}

// New creates a Controller and drives the output Low.
func New(out Output, src *clock.Source, opts ...Option) (*Controller, error) {
	c := &Controller{
		out:            out,
		src:            src,
		initialSeconds: DefaultSeconds,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.periodMs = uint32(c.clamp.Clamp(c.initialSeconds)) * 1000

	if err := out.Set(false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutput, err)
	}
	c.level = Low
	return c, nil
}

// State returns a snapshot. It never changes anything.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(c.src.Now())
}

// LatchPeriod returns the configured latch period in seconds.
func (c *Controller) LatchPeriod() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.periodMs / 1000)
}

// SetLatchPeriod clamps and stores a new period. It applies from the next
// transition on; a running timer keeps its expiry.
func (c *Controller) SetLatchPeriod(seconds int64) int {
	stored := c.clamp.Clamp(seconds)

	c.mu.Lock()
	c.periodMs = uint32(stored) * 1000
	c.mu.Unlock()

	return stored
}

// Request attempts a transition.
func (c *Controller) Request(kind Transition) (Snapshot, error) {
	var events []Event
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.emit(events) }()

	if !c.testMode && c.probe != nil && c.probe() {
		c.testMode = true
	}

	now := c.src.Now()
	if c.active(now) {
		return c.snapshot(now), ErrLatchActive
	}
	if c.armed {
		// Reached but not yet reconciled.
		if c.testMode {
			return c.snapshot(now), ErrExpiredNotCleared
		}
		ev, err := c.reconcile(now)
		if ev != nil {
			events = append(events, *ev)
		}
		if err != nil {
			return c.snapshot(now), err
		}
	}

	next := High
	switch kind {
	case SetHigh:
	case SetLow:
		next = Low
	case Toggle:
		next = !c.level
	default:
		return c.snapshot(now), fmt.Errorf("unknown transition %d", kind)
	}

	if err := c.out.Set(bool(next)); err != nil {
		return c.snapshot(now), fmt.Errorf("%w: %v", ErrOutput, err)
	}
	c.level = next

	if c.periodMs == 0 {
		c.armed = false
		c.revertSet = false
	} else {
		c.armed = true
		c.expiry = now.Add(c.periodMs)
		if c.revert == RevertToPrior {
			c.revertSet = true
			c.revertTarget = !next
		}
	}

	typ := EventOff
	if next == High {
		typ = EventOn
	}
	events = append(events, c.event(typ, now))
	return c.snapshot(now), nil
}

// Reconcile applies a due expiry. It reports whether anything changed and is
// a no-op when no timer is armed or the timer has not been reached.
func (c *Controller) Reconcile() (bool, error) {
	var events []Event
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.emit(events) }()

	ev, err := c.reconcile(c.src.Now())
	if ev != nil {
		events = append(events, *ev)
	}
	return ev != nil, err
}

// Reset clears the timer and any revert target and forces the output Low,
// regardless of the latch. A failed write leaves the latch as it was.
func (c *Controller) Reset() (Snapshot, error) {
	var events []Event
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.emit(events) }()

	now := c.src.Now()
	if err := c.out.Set(false); err != nil {
		return c.snapshot(now), fmt.Errorf("%w: %v", ErrOutput, err)
	}
	c.level = Low
	c.armed = false
	c.revertSet = false
	events = append(events, c.event(EventReset, now))
	return c.snapshot(now), nil
}

// ReadOutput reads the level back from the device.
func (c *Controller) ReadOutput() (Level, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, err := c.out.Get()
	if err != nil {
		return c.level, fmt.Errorf("%w: %v", ErrOutput, err)
	}
	return Level(v), nil
}

func (c *Controller) active(now clock.Millis) bool {
	return c.armed && !clock.Reached(now, c.expiry)
}

// reconcile must be called with mu held.
func (c *Controller) reconcile(now clock.Millis) (*Event, error) {
	if !c.armed || !clock.Reached(now, c.expiry) {
		return nil, nil
	}

	if c.revert == RevertToPrior && c.revertSet {
		if err := c.out.Set(bool(c.revertTarget)); err != nil {
			// Keep the timer armed so the next reconcile retries the write.
			return nil, fmt.Errorf("%w: %v", ErrOutput, err)
		}
		c.level = c.revertTarget
		c.armed = false
		c.revertSet = false
		ev := c.event(EventRevert, now)
		return &ev, nil
	}

	c.armed = false
	c.revertSet = false
	ev := c.event(EventUnlock, now)
	return &ev, nil
}

func (c *Controller) snapshot(now clock.Millis) Snapshot {
	return Snapshot{
		Level:         c.level,
		LatchActive:   c.active(now),
		Armed:         c.armed,
		Expiry:        c.expiry,
		Now:           now,
		PeriodSeconds: int(c.periodMs / 1000),
		RevertPending: c.revertSet,
		RevertTarget:  c.revertTarget,
		TestMode:      c.testMode,
		RevertPolicy:  c.revert,
		ClampPolicy:   c.clamp,
	}
}

func (c *Controller) event(typ EventType, now clock.Millis) Event {
	return Event{
		Type:   typ,
		Level:  c.level,
		Armed:  c.armed,
		Expiry: c.expiry,
		Millis: now,
		At:     c.src.Clock().Now(),
	}
}

func (c *Controller) emit(events []Event) {
	if c.onEvent == nil {
		return
	}
	for _, e := range events {
		c.onEvent(e)
	}
}

// IsRejection reports whether err is a latch rejection rather than a fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrLatchActive) || errors.Is(err, ErrExpiredNotCleared)
}
