package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	D1            string       `json:"d1"`
	Latch         LatchJSON    `json:"latch"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	LastError     string       `json:"last_error,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LatchJSON is the JSON representation of the latch state.
type LatchJSON struct {
	Seconds     int    `json:"seconds"`
	Active      bool   `json:"active"`
	Expiry      uint32 `json:"expiry"`
	Millis      uint32 `json:"millis"`
	RemainingMs int64  `json:"remaining_ms"`
	TestMode    bool   `json:"test_mode"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	On       int `json:"on"`
	Off      int `json:"off"`
	Revert   int `json:"revert"`
	Unlock   int `json:"unlock"`
	Reset    int `json:"reset"`
	Rejected int `json:"rejected"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Hostname    string `json:"hostname,omitempty"`
	HTTPAddr    string `json:"http_addr"`
	Broker      string `json:"broker,omitempty"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Revert      string `json:"revert"`
	Clamp       string `json:"clamp"`
}

func buildInner(snap Snapshot) StatusInner {
	l := snap.Latch
	inner := StatusInner{
		D1: l.Level.String(),
		Latch: LatchJSON{
			Seconds:     l.PeriodSeconds,
			Active:      l.LatchActive,
			Expiry:      l.ExpiryMillis(),
			Millis:      uint32(l.Now),
			RemainingMs: l.Remaining().Milliseconds(),
			TestMode:    l.TestMode,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			On:       snap.Counts.On,
			Off:      snap.Counts.Off,
			Revert:   snap.Counts.Revert,
			Unlock:   snap.Counts.Unlock,
			Reset:    snap.Counts.Reset,
			Rejected: snap.Counts.Rejected,
		},
		LastError: snap.LastError,
		Config: ConfigJSON{
			Hostname:    snap.Config.Hostname,
			HTTPAddr:    snap.Config.HTTPAddr,
			Broker:      snap.Config.Broker,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Revert:      snap.Config.RevertPolicy,
			Clamp:       snap.Config.ClampPolicy,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
