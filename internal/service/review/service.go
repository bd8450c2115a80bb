// Package review schedules flashcard reviews. It loads a user's cards and
// memory states, applies review outcomes through the srs package and stores
// the result.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/domain/srs"
	"github.com/phrazzld/studykit-api/internal/service"
)

// Service provides spaced repetition review operations for a user's cards.
type Service interface {
	// GetNextCard returns the user's card that is due soonest. Cards that
	// were never reviewed are due immediately. Returns ErrNoCardsDue when
	// nothing is due.
	GetNextCard(ctx context.Context, userID uuid.UUID) (*domain.Card, error)

	// SubmitAnswer records a review outcome and returns the updated state.
	// The card lookup, ownership check and state update run in one
	// transaction holding the state row lock.
	//
	// Returns store.ErrCardNotFound when the card does not exist and
	// ErrCardNotOwned when it belongs to another user.
	SubmitAnswer(ctx context.Context, userID, cardID uuid.UUID, isCorrect bool) (*domain.CardMemoryState, error)

	// PostponeCard moves the card's next review days later. Overdue cards
	// are postponed from now.
	PostponeCard(ctx context.Context, userID, cardID uuid.UUID, days int) (*domain.CardMemoryState, error)

	// GetProgress summarizes the user's review progress.
	GetProgress(ctx context.Context, userID uuid.UUID) (*Progress, error)
}

// Progress is a user's review progress at a point in time.
type Progress struct {
	TotalCards    int     `json:"total_cards"`
	ReviewedCards int     `json:"reviewed_cards"`
	MasteredCards int     `json:"mastered_cards"`
	DueCards      int     `json:"due_cards"`
	MasteryRatio  float64 `json:"mastery_ratio"`
}

var (
	// ErrNoCardsDue indicates that the user has no cards due for review.
	ErrNoCardsDue = errors.New("no cards due for review")

	// ErrCardNotOwned indicates that the user does not own the card.
	ErrCardNotOwned = fmt.Errorf("%w: card", service.ErrNotOwned)

	// ErrInvalidDays is returned for a postponement outside 1..srs.MaxPostponeDays.
	ErrInvalidDays = srs.ErrInvalidDays
)

// ServiceError wraps errors from the review service with additional context.
type ServiceError struct {
	// Operation is the operation that failed, e.g. "submit_answer"
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
