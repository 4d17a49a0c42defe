package dispatch

import (
	"time"

	"github.com/elee1766/quorum/src/provider"
)

// EventEmitter stamps events of one round and forwards them to a sink.
// A nil sink turns every emit into a no-op.
type EventEmitter struct {
	sink    EventSink
	roundID string
}

// NewEventEmitter creates a new event emitter
func NewEventEmitter(sink EventSink, roundID string) *EventEmitter {
	return &EventEmitter{
		sink:    sink,
		roundID: roundID,
	}
}

func (e *EventEmitter) createBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		RoundID:   e.roundID,
	}
}

// EmitRoundStarted emits the start of a round
func (e *EventEmitter) EmitRoundStarted(prompt string, providers []provider.ID) error {
	if e.sink == nil {
		return nil
	}
	return e.sink.Send(&RoundStartedEvent{
		BaseEvent: e.createBaseEvent(EventRoundStarted),
		Prompt:    prompt,
		Providers: providers,
	})
}

// EmitProviderStarted emits the start of one provider call
func (e *EventEmitter) EmitProviderStarted(id provider.ID, model string) error {
	if e.sink == nil {
		return nil
	}
	return e.sink.Send(&ProviderStartedEvent{
		BaseEvent: e.createBaseEvent(EventProviderStarted),
		Provider:  id,
		Model:     model,
	})
}

// EmitOutcome emits a success or failure event for a finished call
func (e *EventEmitter) EmitOutcome(o Outcome) error {
	if e.sink == nil {
		return nil
	}
	if o.Err != nil {
		return e.sink.Send(&ProviderFailedEvent{
			BaseEvent: e.createBaseEvent(EventProviderFailed),
			Provider:  o.Provider,
			Model:     o.Model,
			Error:     o.Err,
			Message:   o.Err.Error(),
			Duration:  o.Duration,
		})
	}
	return e.sink.Send(&ProviderSucceededEvent{
		BaseEvent: e.createBaseEvent(EventProviderSucceeded),
		Provider:  o.Provider,
		Model:     o.Model,
		Text:      o.Text,
		HTML:      o.HTML,
		Duration:  o.Duration,
	})
}

// EmitRoundComplete emits the end of a round
func (e *EventEmitter) EmitRoundComplete(succeeded, failed int, duration time.Duration) error {
	if e.sink == nil {
		return nil
	}
	return e.sink.Send(&RoundCompleteEvent{
		BaseEvent: e.createBaseEvent(EventRoundComplete),
		Succeeded: succeeded,
		Failed:    failed,
		Duration:  duration,
	})
}
