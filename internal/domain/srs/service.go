package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/studykit-api/internal/domain"
)

// MaxPostponeDays caps a single postponement at the longest review interval.
const MaxPostponeDays = 365

// Common errors
var (
	ErrNilState    = errors.New("card memory state cannot be nil")
	ErrInvalidDays = fmt.Errorf("postpone days must be between 1 and %d", MaxPostponeDays)
)

// RecordReview applies one review outcome to state using the default
// parameters. It never fails; corrupt prior state is normalized.
func RecordReview(state domain.CardMemoryState, isCorrect bool, now time.Time) domain.CardMemoryState {
	return calculateNextState(state, isCorrect, now, defaultParams)
}

var defaultParams = NewDefaultParams()

// Service defines the interface for review scheduling operations
type Service interface {
	// RecordReview computes the state after a review outcome
	RecordReview(
		state *domain.CardMemoryState,
		isCorrect bool,
		now time.Time,
	) (*domain.CardMemoryState, error)

	// PostponeReview pushes the next review time forward by whole days
	PostponeReview(
		state *domain.CardMemoryState,
		days int,
		now time.Time,
	) (*domain.CardMemoryState, error)

	// Params exposes the active parameters
	Params() Params
}

type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters.
// A nil params falls back to the defaults.
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

func (s *defaultService) Params() Params {
	return *s.params
}

func (s *defaultService) RecordReview(
	state *domain.CardMemoryState,
	isCorrect bool,
	now time.Time,
) (*domain.CardMemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	next := calculateNextState(*state, isCorrect, now, s.params)
	return &next, nil
}

// PostponeReview moves the next review days later. Overdue cards are
// postponed from now rather than from their stale due date.
func (s *defaultService) PostponeReview(
	state *domain.CardMemoryState,
	days int,
	now time.Time,
) (*domain.CardMemoryState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if days < 1 || days > MaxPostponeDays {
		return nil, ErrInvalidDays
	}

	next := *state
	base := state.NextReviewAt
	if base.Before(now) {
		base = now
	}
	next.NextReviewAt = base.AddDate(0, 0, days)
	next.UpdatedAt = now

	return &next, nil
}
