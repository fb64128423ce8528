// Package latch contains the output/latch state machine.
// It has no hardware, network or OS dependencies: the output is an
// interface and time comes from an injected clock.Source.
package latch

import (
	"errors"
	"time"

	"github.com/sweeney/relay-latch/internal/clock"
)

// Level is the logical level of the output.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// String returns "1" for High and "0" for Low, the form used on the wire.
func (l Level) String() string {
	if l {
		return "1"
	}
	return "0"
}

// Transition is a requested change of the output.
type Transition int

const (
	SetHigh Transition = iota + 1
	SetLow
	Toggle
)

// String returns the transition name.
func (t Transition) String() string {
	switch t {
	case SetHigh:
		return "on"
	case SetLow:
		return "off"
	case Toggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// RevertPolicy selects what happens when the latch timer expires.
type RevertPolicy int

const (
	// RevertNone unlocks further transitions and leaves the output as last set.
	RevertNone RevertPolicy = iota
	// RevertToPrior restores the level the output had before the transition.
	RevertToPrior
)

// String returns the policy name as used in configuration.
func (p RevertPolicy) String() string {
	if p == RevertToPrior {
		return "revert_to_prior"
	}
	return "none"
}

// ParseRevertPolicy parses a configuration value.
func ParseRevertPolicy(s string) (RevertPolicy, error) {
	switch s {
	case "", "none":
		return RevertNone, nil
	case "revert_to_prior", "revert":
		return RevertToPrior, nil
	default:
		return RevertNone, errors.New("unknown revert policy " + s)
	}
}

// ClampPolicy selects how requested latch periods are bounded.
type ClampPolicy int

const (
	// ClampZeroOrRange treats 0 as "latch disabled" and clamps any other
	// value into [MinSeconds, MaxSeconds]. Negative values become MinSeconds.
	ClampZeroOrRange ClampPolicy = iota
	// ClampStrict clamps every value into [MinSeconds, MaxSeconds].
	ClampStrict
)

// String returns the policy name as used in configuration.
func (p ClampPolicy) String() string {
	if p == ClampStrict {
		return "strict"
	}
	return "zero_or_range"
}

// ParseClampPolicy parses a configuration value.
func ParseClampPolicy(s string) (ClampPolicy, error) {
	switch s {
	case "", "zero_or_range":
		return ClampZeroOrRange, nil
	case "strict":
		return ClampStrict, nil
	default:
		return ClampZeroOrRange, errors.New("unknown clamp policy " + s)
	}
}

// Latch period bounds in seconds.
const (
	MinSeconds = 1
	MaxSeconds = 3600

	DefaultSeconds = 5
)

// Clamp bounds seconds according to the policy.
func (p ClampPolicy) Clamp(seconds int64) int {
	if seconds == 0 && p == ClampZeroOrRange {
		return 0
	}
	if seconds < MinSeconds {
		return MinSeconds
	}
	if seconds > MaxSeconds {
		return MaxSeconds
	}
	return int(seconds)
}

// Errors returned by Controller.Request and Controller.Reset.
var (
	// ErrLatchActive means the latch timer is running; the output was not changed.
	ErrLatchActive = errors.New("latch active")

	// ErrExpiredNotCleared is only returned in test mode: the timer has run
	// out but the poll loop has not reconciled it yet.
	ErrExpiredNotCleared = errors.New("latch expired, wait for clear")

	// ErrOutput wraps a failure of the output device.
	ErrOutput = errors.New("output write failed")
)

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	Level         Level
	LatchActive   bool
	Armed         bool
	Expiry        clock.Millis
	Now           clock.Millis
	PeriodSeconds int
	RevertPending bool
	RevertTarget  Level
	TestMode      bool
	RevertPolicy  RevertPolicy
	ClampPolicy   ClampPolicy
}

// Remaining returns the time until the latch expires.
func (s Snapshot) Remaining() time.Duration {
	if !s.Armed {
		return 0
	}
	return clock.Remaining(s.Now, s.Expiry)
}

// ExpiryMillis returns the expiry instant, or 0 when no timer is armed.
func (s Snapshot) ExpiryMillis() uint32 {
	if !s.Armed {
		return 0
	}
	return uint32(s.Expiry)
}

// EventType identifies a change made by the controller.
type EventType string

const (
	EventOn     EventType = "ON"
	EventOff    EventType = "OFF"
	EventRevert EventType = "REVERT"
	EventUnlock EventType = "UNLOCK"
	EventReset  EventType = "RESET"
)

// Event describes a change made by the controller.
type Event struct {
	Type   EventType
	Level  Level
	Armed  bool
	Expiry clock.Millis
	Millis clock.Millis
	At     time.Time
}
