// Package events publishes device state changes.
package events

import (
	"log"
	"time"
)

// StateEvent describes the outcome of one device operation
type StateEvent struct {
	Device    string `json:"device"`
	Operation string `json:"operation"`
	On        bool   `json:"on"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher sends state events somewhere
type Publisher interface {
	Publish(event StateEvent) error
	Close() error
}

// NewStateEvent builds an event stamped with the current time
func NewStateEvent(name, op string, on bool, err error) StateEvent {
	event := StateEvent{
		Device:    name,
		Operation: op,
		On:        on,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}

// Observer returns a function that publishes every observed operation. Publish
// failures are logged and otherwise ignored.
func Observer(p Publisher) func(name, op string, on bool, err error) {
	return func(name, op string, on bool, err error) {
		if pubErr := p.Publish(NewStateEvent(name, op, on, err)); pubErr != nil {
			log.Printf("failed to publish state event for %s: %v", name, pubErr)
		}
	}
}

// NopPublisher discards all events
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(StateEvent) error {
	return nil
}

// Close does nothing
func (NopPublisher) Close() error {
	return nil
}
