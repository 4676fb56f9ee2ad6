// Package events carries pipeline progress from the generator and style
// adapter to the CLI and the web UI.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PipelineEvent is one progress notification
type PipelineEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Pipeline event types
const (
	EventTypeGenerationStarted   = "generation_started"
	EventTypeAttempt             = "generation_attempt"
	EventTypeRepair              = "repair_applied"
	EventTypeBatch               = "batch_completed"
	EventTypeGenerationCompleted = "generation_completed"
	EventTypeStyleCompleted      = "style_completed"
	EventTypeError               = "error"
)

// Publisher is what pipeline components need from a bus
type Publisher interface {
	Publish(eventType string, data any)
}

// EventBus fans events out to named subscribers
type EventBus struct {
	subscribers map[string]chan PipelineEvent
	mutex       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan PipelineEvent),
	}
}

// WithRequest returns a publisher that stamps every event with requestID
// and delivers it through eb
func (eb *EventBus) WithRequest(requestID string) Publisher {
	return requestPublisher{bus: eb, requestID: requestID}
}

type requestPublisher struct {
	bus       *EventBus
	requestID string
}

func (p requestPublisher) Publish(eventType string, data any) {
	p.bus.publish(eventType, p.requestID, data)
}

// Subscribe adds a new subscriber to the event bus
func (eb *EventBus) Subscribe(name string) <-chan PipelineEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if old, exists := eb.subscribers[name]; exists {
		close(old)
	}
	ch := make(chan PipelineEvent, 100)
	eb.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber from the event bus
func (eb *EventBus) Unsubscribe(name string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if ch, exists := eb.subscribers[name]; exists {
		delete(eb.subscribers, name)
		close(ch)
	}
}

// Publish broadcasts an event to all subscribers
func (eb *EventBus) Publish(eventType string, data any) {
	eb.publish(eventType, "", data)
}

func (eb *EventBus) publish(eventType, requestID string, data any) {
	event := PipelineEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Timestamp: time.Now(),
		Data:      data,
	}

	// hold the read lock while sending so Unsubscribe cannot close a
	// channel mid-send; sends never block
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// slow subscriber, drop
		}
	}
}

// GenerationStartedEvent creates a generation started event
func GenerationStartedEvent(numTurns int, mode, provider, model string) map[string]interface{} {
	return map[string]interface{}{
		"num_turns": numTurns,
		"mode":      mode,
		"provider":  provider,
		"model":     model,
	}
}

// AttemptEvent reports the outcome of one bounded-retry attempt
func AttemptEvent(attempt, maxAttempts int, outcome string, actualTurns int) map[string]interface{} {
	return map[string]interface{}{
		"attempt":      attempt,
		"max_attempts": maxAttempts,
		"outcome":      outcome,
		"actual_turns": actualTurns,
	}
}

// RepairEvent reports an extend or trim
func RepairEvent(strategy string, fromTurns, toTurns int) map[string]interface{} {
	return map[string]interface{}{
		"strategy":   strategy,
		"from_turns": fromTurns,
		"to_turns":   toTurns,
	}
}

// BatchEvent reports one progressive batch
func BatchEvent(batch, requested, produced, totalTurns int) map[string]interface{} {
	return map[string]interface{}{
		"batch":       batch,
		"requested":   requested,
		"produced":    produced,
		"total_turns": totalTurns,
	}
}

// GenerationCompletedEvent reports the final dialogue
func GenerationCompletedEvent(actualTurns, requiredTurns int, outcome string, duration time.Duration) map[string]interface{} {
	return map[string]interface{}{
		"actual_turns":   actualTurns,
		"required_turns": requiredTurns,
		"outcome":        outcome,
		"duration_ms":    duration.Milliseconds(),
	}
}

// StyleCompletedEvent reports a style transform
func StyleCompletedEvent(language string, length int, fellBack bool) map[string]interface{} {
	return map[string]interface{}{
		"language":  language,
		"length":    length,
		"fell_back": fellBack,
	}
}

// ErrorEvent creates an error event
func ErrorEvent(message string, err error) map[string]interface{} {
	return map[string]interface{}{
		"message": message,
		"error":   err.Error(),
	}
}
