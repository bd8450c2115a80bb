package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockMeter runs metered actions for testing. When Err is set, Run returns it
// without calling fn, as a denied quota would.
type MockMeter struct {
	Err error

	mu       sync.Mutex
	features []string
}

// Run records featureID and calls fn unless Err is set.
func (m *MockMeter) Run(ctx context.Context, _ uuid.UUID, featureID string, fn func(context.Context) error) error {
	m.mu.Lock()
	m.features = append(m.features, featureID)
	m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	return fn(ctx)
}

// Features returns the feature identifiers passed to Run, in call order.
func (m *MockMeter) Features() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.features...)
}
