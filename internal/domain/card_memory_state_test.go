package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardMemoryState(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)
	userID, cardID := uuid.New(), uuid.New()

	state, err := NewCardMemoryState(userID, cardID, now)
	require.NoError(t, err)

	assert.Equal(t, userID, state.UserID)
	assert.Equal(t, cardID, state.CardID)
	assert.Equal(t, 0, state.TimesReviewed)
	assert.Equal(t, DefaultEaseFactor, state.EaseFactor)
	assert.Equal(t, DefaultIntervalDays, state.IntervalDays)
	assert.True(t, state.LastReviewedAt.IsZero())
	assert.False(t, state.IsMastered)
	assert.True(t, state.IsDue(now), "unreviewed cards are due immediately")

	_, err = NewCardMemoryState(uuid.Nil, cardID, now)
	assert.ErrorIs(t, err, ErrMemoryStateUserIDEmpty)
	_, err = NewCardMemoryState(userID, uuid.Nil, now)
	assert.ErrorIs(t, err, ErrMemoryStateCardIDEmpty)
}

func TestCardMemoryStateAccuracy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, (&CardMemoryState{}).Accuracy())
	assert.Equal(t, 0.75, (&CardMemoryState{TimesReviewed: 4, CorrectCount: 3, IncorrectCount: 1}).Accuracy())
}

func TestCardMemoryStateIsDue(t *testing.T) {
	t.Parallel()
	next := time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)
	state := &CardMemoryState{NextReviewAt: next}

	assert.False(t, state.IsDue(next.Add(-time.Second)))
	assert.True(t, state.IsDue(next))
	assert.True(t, state.IsDue(next.Add(time.Hour)))
}
