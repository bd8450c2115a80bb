package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing. A nil function
// field makes the method return Err and zero values.
type MockGenerator struct {
	GenerateCardsFn func(ctx context.Context, text string, userID uuid.UUID, deckID string) ([]*domain.Card, error)
	SummarizeFn     func(ctx context.Context, text string) (string, error)
	ChatFn          func(ctx context.Context, history []generation.Message, message string) (string, error)
	StudyPlanFn     func(ctx context.Context, goal string, days int) (*generation.StudyPlan, error)

	// Err is returned by methods without a function field.
	Err error

	mu    sync.Mutex
	calls map[string]int
}

var _ generation.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times method was called.
func (m *MockGenerator) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// GenerateCards implements generation.Generator.
func (m *MockGenerator) GenerateCards(
	ctx context.Context,
	text string,
	userID uuid.UUID,
	deckID string,
) ([]*domain.Card, error) {
	m.record("GenerateCards")
	if m.GenerateCardsFn != nil {
		return m.GenerateCardsFn(ctx, text, userID, deckID)
	}
	return nil, m.Err
}

// Summarize implements generation.Generator.
func (m *MockGenerator) Summarize(ctx context.Context, text string) (string, error) {
	m.record("Summarize")
	if m.SummarizeFn != nil {
		return m.SummarizeFn(ctx, text)
	}
	return "", m.Err
}

// Chat implements generation.Generator.
func (m *MockGenerator) Chat(ctx context.Context, history []generation.Message, message string) (string, error) {
	m.record("Chat")
	if m.ChatFn != nil {
		return m.ChatFn(ctx, history, message)
	}
	return "", m.Err
}

// StudyPlan implements generation.Generator.
func (m *MockGenerator) StudyPlan(ctx context.Context, goal string, days int) (*generation.StudyPlan, error) {
	m.record("StudyPlan")
	if m.StudyPlanFn != nil {
		return m.StudyPlanFn(ctx, goal, days)
	}
	return nil, m.Err
}
