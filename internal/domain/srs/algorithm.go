package srs

import (
	"math"
	"time"

	"github.com/phrazzld/studykit-api/internal/domain"
)

const day = 24 * time.Hour

// normalize repairs a prior state that violates the scheduler's invariants.
//
// Stored progress may come from older clients or manual edits, so instead of
// rejecting it the scheduler clamps every field back into its domain:
//   - negative correct/incorrect counts become 0
//   - timesReviewed is re-derived as correctCount + incorrectCount
//   - easeFactor below the floor (or NaN) is raised to params.MinEaseFactor
//   - intervalDays is clamped into [0, params.MaxIntervalDays]; NaN becomes
//     the initial interval
//
// The input is never modified; a copy is returned.
func normalize(state domain.CardMemoryState, params *Params) domain.CardMemoryState {
	if state.CorrectCount < 0 {
		state.CorrectCount = 0
	}
	if state.IncorrectCount < 0 {
		state.IncorrectCount = 0
	}
	state.TimesReviewed = state.CorrectCount + state.IncorrectCount

	if math.IsNaN(state.EaseFactor) || state.EaseFactor < params.MinEaseFactor {
		state.EaseFactor = params.MinEaseFactor
	}
	if math.IsInf(state.EaseFactor, 1) {
		state.EaseFactor = params.InitialEaseFactor
	}

	switch {
	case math.IsNaN(state.IntervalDays):
		state.IntervalDays = params.InitialIntervalDays
	case state.IntervalDays < 0:
		state.IntervalDays = 0
	case state.IntervalDays > params.MaxIntervalDays:
		state.IntervalDays = params.MaxIntervalDays
	}

	return state
}

// calculateNewEaseFactor determines the ease factor after a review.
//
// A correct answer adds params.CorrectEaseBonus with no upper cap. An
// incorrect answer subtracts params.IncorrectEasePenalty but never drops
// below params.MinEaseFactor.
func calculateNewEaseFactor(currentEF float64, isCorrect bool, params *Params) float64 {
	if isCorrect {
		return currentEF + params.CorrectEaseBonus
	}
	return math.Max(currentEF-params.IncorrectEasePenalty, params.MinEaseFactor)
}

// calculateNewInterval determines the interval in days until the next review.
//
// A correct answer multiplies the current interval by the current (pre-review)
// ease factor, capped at params.MaxIntervalDays. An incorrect answer resets the
// schedule to params.LapseIntervalDays.
func calculateNewInterval(currentInterval, easeFactor float64, isCorrect bool, params *Params) float64 {
	if !isCorrect {
		return params.LapseIntervalDays
	}
	return math.Min(currentInterval*easeFactor, params.MaxIntervalDays)
}

// calculateNextReviewDate converts a fractional day interval into an instant.
func calculateNextReviewDate(reviewedAt time.Time, intervalDays float64) time.Time {
	return reviewedAt.Add(time.Duration(intervalDays * float64(day)))
}

// isMastered reports whether a card counts as learned: enough correct answers
// and a high enough accuracy.
func isMastered(correct, total int, params *Params) bool {
	if total <= 0 {
		return false
	}
	return correct >= params.MasteryMinCorrect &&
		float64(correct)/float64(total) >= params.MasteryMinAccuracy
}

// calculateNextState applies one review to state and returns the new state.
//
// Steps, in order:
//  1. normalize the prior state
//  2. increment timesReviewed and the correct or incorrect counter
//  3. compute the new interval (from the old ease) and the new ease factor
//  4. set lastReviewedAt to the review instant and nextReviewAt to
//     lastReviewedAt + interval
//  5. recompute isMastered
//
// The review instant is now, except when now lies before the prior
// lastReviewedAt (clock skew between devices). In that case the review is
// applied at lastReviewedAt so the schedule never moves backwards.
//
// The function is pure: identical inputs always produce identical outputs and
// the caller's value is never modified.
func calculateNextState(
	state domain.CardMemoryState,
	isCorrect bool,
	now time.Time,
	params *Params,
) domain.CardMemoryState {
	next := normalize(state, params)

	next.TimesReviewed++
	if isCorrect {
		next.CorrectCount++
	} else {
		next.IncorrectCount++
	}

	next.IntervalDays = calculateNewInterval(next.IntervalDays, next.EaseFactor, isCorrect, params)
	next.EaseFactor = calculateNewEaseFactor(next.EaseFactor, isCorrect, params)

	reviewedAt := now
	if !state.LastReviewedAt.IsZero() && now.Before(state.LastReviewedAt) {
		reviewedAt = state.LastReviewedAt
	}
	next.LastReviewedAt = reviewedAt
	next.NextReviewAt = calculateNextReviewDate(reviewedAt, next.IntervalDays)

	next.IsMastered = isMastered(next.CorrectCount, next.TimesReviewed, params)
	next.UpdatedAt = reviewedAt

	return next
}
