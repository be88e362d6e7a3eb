// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"instrument-service/internal/model"
)

// EventBus fans bench events out to subscribers. It satisfies the
// service layer's EventPublisher.
type EventBus struct {
	subscribers map[model.EventType][]chan model.BenchEvent
	events      chan model.BenchEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// SubscribeAll is the event type that receives every event.
const SubscribeAll model.EventType = "*"

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan model.BenchEvent),
		events:      make(chan model.BenchEvent, 1000),
		logger:      logger,
	}
}

// Start starts the event bus distribution loop
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distributeEvent(event)
	}
}

// Publish publishes an event without blocking the caller.
func (eb *EventBus) Publish(event model.BenchEvent) {
	select {
	case eb.events <- event:
	default:
		if eb.logger != nil {
			eb.logger.Warn("Event bus full, dropping event",
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}

// Subscribe subscribes to events of a specific type; SubscribeAll receives
// everything.
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.BenchEvent {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.BenchEvent, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.BenchEvent) {
	eb.mutex.RLock()
	subscribers := append([]chan model.BenchEvent{}, eb.subscribers[event.EventType]...)
	subscribers = append(subscribers, eb.subscribers[SubscribeAll]...)
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
