package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Default scheduling values for a card that has never been reviewed.
const (
	DefaultEaseFactor   = 2.5
	DefaultIntervalDays = 1.0
)

// CardMemoryState validation errors
var (
	ErrMemoryStateUserIDEmpty = errors.New("memory state user ID cannot be empty")
	ErrMemoryStateCardIDEmpty = errors.New("memory state card ID cannot be empty")
)

// CardMemoryState is a user's review progress on a single card. There is at
// most one per (UserID, CardID). Scheduling fields are mutated only through
// the srs package, which returns a fresh value on every review.
type CardMemoryState struct {
	UserID         uuid.UUID `json:"user_id"`
	CardID         uuid.UUID `json:"card_id"`
	TimesReviewed  int       `json:"times_reviewed"`
	CorrectCount   int       `json:"correct_count"`
	IncorrectCount int       `json:"incorrect_count"`
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   float64   `json:"interval_days"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
	NextReviewAt   time.Time `json:"next_review_at"`
	IsMastered     bool      `json:"is_mastered"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCardMemoryState returns the default state for a card that has not been
// reviewed yet. It is due immediately.
func NewCardMemoryState(userID, cardID uuid.UUID, now time.Time) (*CardMemoryState, error) {
	state := &CardMemoryState{
		UserID:       userID,
		CardID:       cardID,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: DefaultIntervalDays,
		NextReviewAt: now.UTC(),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}

	if err := state.Validate(); err != nil {
		return nil, err
	}

	return state, nil
}

// Validate checks the identity of the state. Numeric fields are not checked
// here; out-of-range values are normalized when the next review is recorded.
func (s *CardMemoryState) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrMemoryStateUserIDEmpty
	}
	if s.CardID == uuid.Nil {
		return ErrMemoryStateCardIDEmpty
	}
	return nil
}

// Accuracy is the share of correct answers, 0 when never reviewed.
func (s *CardMemoryState) Accuracy() float64 {
	if s.TimesReviewed <= 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.TimesReviewed)
}

// IsDue reports whether the card should be shown again at now.
func (s *CardMemoryState) IsDue(now time.Time) bool {
	return !now.Before(s.NextReviewAt)
}
