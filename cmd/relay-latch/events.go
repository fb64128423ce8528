package main

import (
	"sync"

	"github.com/sweeney/relay-latch/internal/journal"
	"github.com/sweeney/relay-latch/internal/latch"
	"github.com/sweeney/relay-latch/internal/logging"
	"github.com/sweeney/relay-latch/internal/mqtt"
	"github.com/sweeney/relay-latch/internal/status"
)

// eventQueueSize bounds the controller events waiting for the broker.
const eventQueueSize = 64

// eventSink fans controller events out to MQTT and the journal on its own
// goroutine, so HTTP handlers never wait on the broker or the disk.
type eventSink struct {
	mu        sync.Mutex
	closed    bool
	ch        chan latch.Event
	done      chan struct{}
	publisher mqtt.Publisher
	journal   *journal.Journal // nil when disabled
	tracker   *status.Tracker
	logger    *logging.Logger
}

func newEventSink(pub mqtt.Publisher, jr *journal.Journal, tracker *status.Tracker, logger *logging.Logger) *eventSink {
	s := &eventSink{
		ch:        make(chan latch.Event, eventQueueSize),
		done:      make(chan struct{}),
		publisher: pub,
		journal:   jr,
		tracker:   tracker,
		logger:    logger,
	}
	go s.run()
	return s
}

// Handle is the controller's event callback. It never blocks: when the queue
// is full or the sink is closed the event is dropped and logged.
func (s *eventSink) Handle(e latch.Event) {
	if s.tracker != nil {
		s.tracker.Record(e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Warn("event sink closed, dropping event", "event", string(e.Type), "millis", uint32(e.Millis))
		return
	}
	select {
	case s.ch <- e:
	default:
		s.logger.Warn("event queue full, dropping event", "event", string(e.Type), "millis", uint32(e.Millis))
	}
}

func (s *eventSink) run() {
	defer close(s.done)
	for e := range s.ch {
		s.logger.Info("event", "event", string(e.Type), "d1", e.Level.String(), "armed", e.Armed, "millis", uint32(e.Millis))
		if err := s.publisher.Publish(e); err != nil {
			// Don't crash on publish failure
			s.logger.Warn("publish error", "error", err)
		}
		if s.journal != nil {
			if err := s.journal.Append(e); err != nil {
				s.logger.Warn("journal append error", "error", err)
			}
		}
	}
}

// Close drains the queue and stops the goroutine. Events handled afterwards
// are dropped. Close is safe to call more than once.
func (s *eventSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	s.mu.Unlock()
	<-s.done
}
