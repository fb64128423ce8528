// Package status provides a thread-safe status tracker for the relay-latch daemon.
// It is read by HTTP handlers, the console menu and the heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/relay-latch/internal/latch"
)

// NetworkInfo contains network state reported by the host. This is a local
// copy to avoid importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Hostname     string
	HTTPAddr     string
	Broker       string
	PollMs       int64
	HeartbeatMs  int64
	RevertPolicy string
	ClampPolicy  string
}

// Counts tallies controller events since startup.
type Counts struct {
	On       int
	Off      int
	Revert   int
	Unlock   int
	Reset    int
	Rejected int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Latch         latch.Snapshot
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	LastError     string
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// SetNow replaces the wall clock used for Snapshot.Now.
func (t *Tracker) SetNow(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// UpdateLatch stores the latest controller snapshot.
// Called from runLoop on every tick and from the handlers after each request.
func (t *Tracker) UpdateLatch(s latch.Snapshot) {
	t.mu.Lock()
	t.snap.Latch = s
	t.mu.Unlock()
}

// Record counts a controller event.
func (t *Tracker) Record(e latch.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Type {
	case latch.EventOn:
		t.snap.Counts.On++
	case latch.EventOff:
		t.snap.Counts.Off++
	case latch.EventRevert:
		t.snap.Counts.Revert++
	case latch.EventUnlock:
		t.snap.Counts.Unlock++
	case latch.EventReset:
		t.snap.Counts.Reset++
	}
}

// RecordRejection counts a transition refused because of the latch.
func (t *Tracker) RecordRejection() {
	t.mu.Lock()
	t.snap.Counts.Rejected++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetLastError records the most recent connectivity or configuration error.
// An empty string clears it.
func (t *Tracker) SetLastError(msg string) {
	t.mu.Lock()
	t.snap.LastError = msg
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	s.Now = now()
	return s
}
