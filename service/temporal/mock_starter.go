package temporal

import (
	"context"
	"sync"
)

// MockStarter is a mock implementation of Starter for testing.
type MockStarter struct {
	mu       sync.Mutex
	started  []FollowUpInput
	startErr error
}

// NewMockStarter creates a new MockStarter.
func NewMockStarter() *MockStarter {
	return &MockStarter{}
}

// StartFollowUp records that a follow-up workflow was started.
func (m *MockStarter) StartFollowUp(ctx context.Context, input FollowUpInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, input)
	return nil
}

// Started returns the inputs of all started follow-ups.
func (m *MockStarter) Started() []FollowUpInput {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]FollowUpInput, len(m.started))
	copy(out, m.started)
	return out
}

// SetStartError configures the mock to return an error on StartFollowUp.
func (m *MockStarter) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// Reset clears recorded follow-ups and errors.
func (m *MockStarter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = nil
	m.startErr = nil
}
