package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/relay-latch/internal/latch"
)

var testTime = time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

func TestTopicsFor(t *testing.T) {
	tests := []struct {
		prefix string
		events string
		system string
	}{
		{"", "relay/latch/events", "relay/latch/system"},
		{"home/door", "home/door/events", "home/door/system"},
		{"home/door/", "home/door/events", "home/door/system"},
	}
	for _, tt := range tests {
		got := TopicsFor(tt.prefix)
		if got.Events != tt.events || got.System != tt.system {
			t.Errorf("TopicsFor(%q) = %+v", tt.prefix, got)
		}
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := latch.Event{
		Type:   latch.EventOn,
		Level:  latch.High,
		Armed:  true,
		Expiry: 6000,
		Millis: 1000,
		At:     testTime,
	}

	got, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	want := `{"latch":{"timestamp":"2026-01-15T10:30:00Z","event":"ON","level":"1","armed":true,"expiry":6000,"millis":1000}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestFormatPayloadDisarmedHidesExpiry(t *testing.T) {
	event := latch.Event{
		Type:   latch.EventUnlock,
		Level:  latch.High,
		Expiry: 6000,
		Millis: 6000,
		At:     testTime,
	}

	got, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	var p Payload
	if err := json.Unmarshal(got, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Latch.Expiry != 0 || p.Latch.Armed {
		t.Errorf("expected disarmed payload without expiry, got %+v", p.Latch)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	event := latch.Event{Type: latch.EventOff, At: time.Date(2026, 1, 15, 5, 30, 0, 0, loc)}

	got, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload: %v", err)
	}
	var p Payload
	if err := json.Unmarshal(got, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Latch.Timestamp != "2026-01-15T10:30:00Z" {
		t.Errorf("expected UTC timestamp, got %s", p.Latch.Timestamp)
	}
	if p.Latch.Level != "0" {
		t.Errorf("expected level 0, got %s", p.Latch.Level)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	got, err := FormatSystemPayload(SystemEvent{Timestamp: testTime, Event: "SHUTDOWN", Reason: "SIGTERM"})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	want := `{"system":{"timestamp":"2026-01-15T10:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	got, err := FormatSystemPayload(SystemEvent{Timestamp: testTime, Event: "OFFLINE"})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	want := `{"system":{"timestamp":"2026-01-15T10:30:00Z","event":"OFFLINE"}}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT"}}`)
	got, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("FormatSystemPayload: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("expected raw payload, got %s", got)
	}
}

func TestFakePublisherRecordsInOrder(t *testing.T) {
	f := NewFakePublisher()
	for _, typ := range []latch.EventType{latch.EventOn, latch.EventUnlock, latch.EventOff} {
		if err := f.Publish(latch.Event{Type: typ, At: testTime}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	got := f.EventTypes()
	want := []latch.EventType{latch.EventOn, latch.EventUnlock, latch.EventOff}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if len(f.Payloads) != 3 {
		t.Errorf("expected 3 payloads, got %d", len(f.Payloads))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("boom")
	f.PublishSystemError = errors.New("bang")

	if err := f.Publish(latch.Event{}); err == nil {
		t.Error("expected Publish error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherSystemEventsAndRetained(t *testing.T) {
	f := NewFakePublisher()
	_ = f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "STARTUP", Retained: true})
	_ = f.PublishSystem(SystemEvent{Timestamp: testTime, Event: "SHUTDOWN", Reason: "SIGINT"})

	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "SHUTDOWN" {
		t.Errorf("unexpected system events %v", names)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected retained flag to be recorded")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	_ = f.Publish(latch.Event{Type: latch.EventOn})
	_ = f.PublishSystem(SystemEvent{Event: "STARTUP"})
	_ = f.Close()

	f.Reset()

	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || f.Closed || f.IsConnected() {
		t.Errorf("Reset left state behind: %+v", f)
	}

	// Reusable after reset
	if err := f.Publish(latch.Event{Type: latch.EventOff}); err != nil {
		t.Fatalf("Publish after Reset: %v", err)
	}
	if len(f.Events) != 1 {
		t.Errorf("expected 1 event after reset, got %d", len(f.Events))
	}
}
