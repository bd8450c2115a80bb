// Package entitlement decides whether a user may invoke a metered feature and
// maintains the rolling usage counters behind that decision.
//
// Both operations are pure. Enforcement is advisory: callers check CanUse
// before the gated action and call RecordUsage only after it succeeded, and
// the storage layer serializes the read-modify-write for one
// (user, feature) pair.
package entitlement

import (
	"time"

	"github.com/phrazzld/studykit-api/internal/domain"
)

// CanUse reports whether a feature invocation is permitted at now.
//
// Premium users are always allowed. A missing counter means the feature has
// not been used yet and is allowed. Once now reaches counter.ResetAt the
// stored count is treated as zero without mutating the counter.
func CanUse(isPremium bool, counter *domain.UsageCounter, now time.Time) bool {
	if isPremium || counter == nil {
		return true
	}
	if counter.Unlimited() {
		return true
	}
	return counter.Used(now) < counter.Limit
}

// RecordUsage returns the counter after one more successful invocation.
//
// For premium users nothing is tracked: the returned counter is a
// representative unlimited value that must not be persisted. A missing
// counter is created with the default limit and period. An elapsed window is
// reset to count this invocation as the first of a new window starting at
// now. A now before ResetAt never resets, which also covers clock skew.
//
// The input counter is never modified.
func RecordUsage(
	isPremium bool,
	counter *domain.UsageCounter,
	featureID string,
	defaultLimit int,
	defaultPeriod domain.ResetPeriod,
	now time.Time,
) domain.UsageCounter {
	period := defaultPeriod
	if !period.Valid() {
		period = domain.ResetDaily
	}

	if isPremium {
		return domain.UsageCounter{
			FeatureID:   featureID,
			Current:     0,
			Limit:       domain.UnlimitedLimit,
			ResetPeriod: period,
			ResetAt:     period.After(now),
		}
	}

	if counter == nil {
		return domain.UsageCounter{
			FeatureID:   featureID,
			Current:     1,
			Limit:       defaultLimit,
			ResetPeriod: period,
			ResetAt:     period.After(now),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	next := *counter
	if next.FeatureID == "" {
		next.FeatureID = featureID
	}
	if !next.ResetPeriod.Valid() {
		next.ResetPeriod = period
	}
	if next.Current < 0 {
		next.Current = 0
	}

	if !now.Before(next.ResetAt) {
		next.Current = 1
		next.ResetAt = next.ResetPeriod.After(now)
	} else {
		next.Current++
	}
	next.UpdatedAt = now

	return next
}

// NextReset reports when the counter will next read as zero. A missing
// counter has no window yet and yields the zero time.
func NextReset(counter *domain.UsageCounter, now time.Time) time.Time {
	if counter == nil {
		return time.Time{}
	}
	if !now.Before(counter.ResetAt) {
		// Window elapsed; the next increment opens a new one.
		return time.Time{}
	}
	return counter.ResetAt
}
