package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// PublishedEvent is an event captured by MockPublisher.
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	RawJSON    []byte
}

// MockPublisher records published events in memory.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, routingKey string, eventData interface{}) error {
	raw, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, EventData: eventData, RawJSON: raw})
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// Events returns the events published with routingKey, or all events when it is empty.
func (m *MockPublisher) Events(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []PublishedEvent
	for _, e := range m.events {
		if routingKey == "" || e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event with routingKey, or nil.
func (m *MockPublisher) Last(routingKey string) *PublishedEvent {
	events := m.Events(routingKey)
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// AssertEventCount fails the test unless exactly expected events were published with routingKey.
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()
	if got := len(m.Events(routingKey)); got != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, got)
	}
}

// DecodeData unmarshals the "data" field of the event into v.
func (e *PublishedEvent) DecodeData(t *testing.T, v interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(e.RawJSON, &envelope); err != nil {
		t.Fatalf("Failed to decode event envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, v); err != nil {
		t.Fatalf("Failed to decode event data: %v", err)
	}
}
