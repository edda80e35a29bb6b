package events

import (
	"context"
	"sync"
)

// MockPublisher records events in memory for tests.
type MockPublisher struct {
	mu         sync.RWMutex
	published  []*SwapOutcomeEvent
	publishErr error
	closed     bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishOutcome(_ context.Context, event *SwapOutcomeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, event)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

// Published returns a copy of the recorded events.
func (m *MockPublisher) Published() []*SwapOutcomeEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*SwapOutcomeEvent, len(m.published))
	copy(out, m.published)
	return out
}

func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
