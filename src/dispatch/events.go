package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/elee1766/quorum/src/provider"
)

// EventType represents the type of round event
type EventType string

const (
	EventRoundStarted      EventType = "round_started"
	EventProviderStarted   EventType = "provider_started"
	EventProviderSucceeded EventType = "provider_succeeded"
	EventProviderFailed    EventType = "provider_failed"
	EventRoundComplete     EventType = "round_complete"
)

// Event is the base interface for all round events
type Event interface {
	GetType() EventType
	GetTimestamp() time.Time
	GetRoundID() string
}

// BaseEvent contains common fields for all events
type BaseEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RoundID   string    `json:"round_id"`
}

func (e BaseEvent) GetType() EventType      { return e.Type }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetRoundID() string      { return e.RoundID }

// RoundStartedEvent is sent once the previous round has been cleared
type RoundStartedEvent struct {
	BaseEvent
	Prompt    string        `json:"prompt"`
	Providers []provider.ID `json:"providers"`
}

// ProviderStartedEvent is sent before a provider request goes out
type ProviderStartedEvent struct {
	BaseEvent
	Provider provider.ID `json:"provider"`
	Model    string      `json:"model"`
}

// ProviderSucceededEvent carries a provider answer. HTML is set when a
// renderer is configured.
type ProviderSucceededEvent struct {
	BaseEvent
	Provider provider.ID   `json:"provider"`
	Model    string        `json:"model"`
	Text     string        `json:"text"`
	HTML     string        `json:"html,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ProviderFailedEvent carries a per-provider failure
type ProviderFailedEvent struct {
	BaseEvent
	Provider provider.ID   `json:"provider"`
	Model    string        `json:"model"`
	Error    error         `json:"-"`
	Message  string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

// RoundCompleteEvent is sent after every provider of the round has finished
type RoundCompleteEvent struct {
	BaseEvent
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// EventSink is the interface for handling round events
type EventSink interface {
	// Send sends an event to the sink
	Send(event Event) error

	// Close closes the event sink
	Close() error
}

// EventProcessor processes round events
type EventProcessor interface {
	// Process handles a single event
	Process(event Event) error

	// Close cleans up any resources
	Close() error
}

// ChannelEventSink delivers events to processors from a single goroutine,
// so processors see events one at a time and never concurrently.
type ChannelEventSink struct {
	mu         sync.RWMutex
	closed     bool
	events     chan Event
	processors []EventProcessor
	done       chan struct{}
	logger     *slog.Logger
}

// NewChannelEventSink creates a new channel-based event sink
func NewChannelEventSink(bufferSize int, logger *slog.Logger, processors ...EventProcessor) *ChannelEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	sink := &ChannelEventSink{
		events:     make(chan Event, bufferSize),
		processors: processors,
		done:       make(chan struct{}),
		logger:     logger.With("component", "event_sink"),
	}

	go sink.processEvents()

	return sink
}

// Send sends an event to the sink
func (s *ChannelEventSink) Send(event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("event sink is closed")
	}
	s.events <- event
	return nil
}

// Close drains pending events and closes every processor
func (s *ChannelEventSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done

	for _, p := range s.processors {
		if err := p.Close(); err != nil {
			s.logger.Warn("error closing processor", "error", err)
		}
	}

	return nil
}

func (s *ChannelEventSink) processEvents() {
	defer close(s.done)

	for event := range s.events {
		for _, processor := range s.processors {
			if err := processor.Process(event); err != nil {
				s.logger.Warn("error processing event", "type", event.GetType(), "error", err)
			}
		}
	}
}
