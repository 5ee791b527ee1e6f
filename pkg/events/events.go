// Package events distributes generation progress and workflow events to subscribers.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Event is one published notification
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Event types
const (
	EventTypeProgressUpdated    = "progress_updated"
	EventTypeWorkflowStarted    = "workflow_started"
	EventTypeWorkflowCompleted  = "workflow_completed"
	EventTypeActivityStarted    = "activity_started"
	EventTypeActivityCompleted  = "activity_completed"
	EventTypeError              = "error"
	defaultSubscriberBufferSize = 100
)

// EventBus fans events out to named subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type EventBus struct {
	subscribers map[string]chan Event
	mutex       sync.RWMutex
	nextID      int64
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan Event),
	}
}

// Subscribe adds a subscriber. Subscribing again under the same name replaces
// (and closes) the previous channel.
func (eb *EventBus) Subscribe(name string) <-chan Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if old, exists := eb.subscribers[name]; exists {
		close(old)
	}
	ch := make(chan Event, defaultSubscriberBufferSize)
	eb.subscribers[name] = ch
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (eb *EventBus) Unsubscribe(name string) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if ch, exists := eb.subscribers[name]; exists {
		delete(eb.subscribers, name)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers
func (eb *EventBus) SubscriberCount() int {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	return len(eb.subscribers)
}

// Publish broadcasts an event to all subscribers
func (eb *EventBus) Publish(eventType string, data any) {
	eb.mutex.Lock()
	eb.nextID++
	event := Event{
		ID:        generateEventID(eb.nextID),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	eb.mutex.Unlock()

	// Unsubscribe cannot close a channel while sends run under the read lock.
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// generateEventID creates a unique event ID
func generateEventID(id int64) string {
	return fmt.Sprintf("%s-%d", time.Now().Format("20060102-150405"), id)
}

// WorkflowEvent builds the payload for workflow start/completion events
func WorkflowEvent(workflowID, name string, success bool, duration time.Duration) map[string]any {
	return map[string]any{
		"workflow_id": workflowID,
		"name":        name,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	}
}

// ActivityEvent builds the payload for activity start/completion events
func ActivityEvent(workflowID, activity string, success bool, duration time.Duration, errMsg string) map[string]any {
	data := map[string]any{
		"workflow_id": workflowID,
		"activity":    activity,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	return data
}

// ErrorEvent creates an error event
func ErrorEvent(message string, err error) map[string]any {
	return map[string]any{
		"message": message,
		"error":   err.Error(),
	}
}
