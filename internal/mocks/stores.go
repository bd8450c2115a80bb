package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// UserStore is a testify mock of store.UserStore.
type UserStore struct {
	mock.Mock
}

var _ store.UserStore = (*UserStore)(nil)

// Create is a mock implementation of store.UserStore.Create
func (m *UserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID is a mock implementation of store.UserStore.GetByID
func (m *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetByEmail is a mock implementation of store.UserStore.GetByEmail
func (m *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdatePlan is a mock implementation of store.UserStore.UpdatePlan
func (m *UserStore) UpdatePlan(ctx context.Context, id uuid.UUID, plan domain.Plan, expiresAt *time.Time) error {
	args := m.Called(ctx, id, plan, expiresAt)
	return args.Error(0)
}

// Delete is a mock implementation of store.UserStore.Delete
func (m *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// WithTx returns the mock itself.
func (m *UserStore) WithTx(*sql.Tx) store.UserStore {
	return m
}

// CardStore is a testify mock of store.CardStore.
type CardStore struct {
	mock.Mock
}

var _ store.CardStore = (*CardStore)(nil)

// Create is a mock implementation of store.CardStore.Create
func (m *CardStore) Create(ctx context.Context, card *domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

// CreateMultiple is a mock implementation of store.CardStore.CreateMultiple
func (m *CardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	args := m.Called(ctx, cards)
	return args.Error(0)
}

// GetByID is a mock implementation of store.CardStore.GetByID
func (m *CardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if card, ok := args.Get(0).(*domain.Card); ok {
		return card, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListByUser is a mock implementation of store.CardStore.ListByUser
func (m *CardStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Card, error) {
	args := m.Called(ctx, userID, limit, offset)
	if cards, ok := args.Get(0).([]*domain.Card); ok {
		return cards, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateContent is a mock implementation of store.CardStore.UpdateContent
func (m *CardStore) UpdateContent(ctx context.Context, id uuid.UUID, content []byte) error {
	args := m.Called(ctx, id, content)
	return args.Error(0)
}

// Delete is a mock implementation of store.CardStore.Delete
func (m *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// GetNextReviewCard is a mock implementation of store.CardStore.GetNextReviewCard
func (m *CardStore) GetNextReviewCard(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.Card, error) {
	args := m.Called(ctx, userID, now)
	if card, ok := args.Get(0).(*domain.Card); ok {
		return card, args.Error(1)
	}
	return nil, args.Error(1)
}

// WithTx returns the mock itself.
func (m *CardStore) WithTx(*sql.Tx) store.CardStore {
	return m
}

// CardMemoryStateStore is a testify mock of store.CardMemoryStateStore.
type CardMemoryStateStore struct {
	mock.Mock
}

var _ store.CardMemoryStateStore = (*CardMemoryStateStore)(nil)

// Get is a mock implementation of store.CardMemoryStateStore.Get
func (m *CardMemoryStateStore) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardMemoryState, error) {
	args := m.Called(ctx, userID, cardID)
	if state, ok := args.Get(0).(*domain.CardMemoryState); ok {
		return state, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetForUpdate is a mock implementation of store.CardMemoryStateStore.GetForUpdate
func (m *CardMemoryStateStore) GetForUpdate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	args := m.Called(ctx, userID, cardID)
	if state, ok := args.Get(0).(*domain.CardMemoryState); ok {
		return state, args.Error(1)
	}
	return nil, args.Error(1)
}

// Upsert is a mock implementation of store.CardMemoryStateStore.Upsert
func (m *CardMemoryStateStore) Upsert(ctx context.Context, state *domain.CardMemoryState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// Summary is a mock implementation of store.CardMemoryStateStore.Summary
func (m *CardMemoryStateStore) Summary(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*store.ProgressSummary, error) {
	args := m.Called(ctx, userID, now)
	if sum, ok := args.Get(0).(*store.ProgressSummary); ok {
		return sum, args.Error(1)
	}
	return nil, args.Error(1)
}

// WithTx returns the mock itself.
func (m *CardMemoryStateStore) WithTx(*sql.Tx) store.CardMemoryStateStore {
	return m
}

// UsageCounterStore is a testify mock of store.UsageCounterStore.
type UsageCounterStore struct {
	mock.Mock
}

var _ store.UsageCounterStore = (*UsageCounterStore)(nil)

// Get is a mock implementation of store.UsageCounterStore.Get
func (m *UsageCounterStore) Get(ctx context.Context, userID uuid.UUID, featureID string) (*domain.UsageCounter, error) {
	args := m.Called(ctx, userID, featureID)
	if c, ok := args.Get(0).(*domain.UsageCounter); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetForUpdate is a mock implementation of store.UsageCounterStore.GetForUpdate
func (m *UsageCounterStore) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
	featureID string,
) (*domain.UsageCounter, error) {
	args := m.Called(ctx, userID, featureID)
	if c, ok := args.Get(0).(*domain.UsageCounter); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// Upsert is a mock implementation of store.UsageCounterStore.Upsert
func (m *UsageCounterStore) Upsert(ctx context.Context, counter *domain.UsageCounter) error {
	args := m.Called(ctx, counter)
	return args.Error(0)
}

// ListByUser is a mock implementation of store.UsageCounterStore.ListByUser
func (m *UsageCounterStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.UsageCounter, error) {
	args := m.Called(ctx, userID)
	if c, ok := args.Get(0).([]*domain.UsageCounter); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// WithTx returns the mock itself.
func (m *UsageCounterStore) WithTx(*sql.Tx) store.UsageCounterStore {
	return m
}
