package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnlimitedLimit is the limit value of a counter that never denies usage.
const UnlimitedLimit = -1

// ErrInvalidResetPeriod is returned when parsing an unknown reset period.
var ErrInvalidResetPeriod = errors.New("invalid reset period")

// ResetPeriod is the length of a usage counter window.
type ResetPeriod string

// Supported reset periods
const (
	ResetDaily   ResetPeriod = "daily"
	ResetWeekly  ResetPeriod = "weekly"
	ResetMonthly ResetPeriod = "monthly"
)

// ParseResetPeriod converts a configuration string to a ResetPeriod.
func ParseResetPeriod(s string) (ResetPeriod, error) {
	p := ResetPeriod(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidResetPeriod, s)
	}
	return p, nil
}

// Valid reports whether p is a supported period.
func (p ResetPeriod) Valid() bool {
	switch p {
	case ResetDaily, ResetWeekly, ResetMonthly:
		return true
	}
	return false
}

// After returns the instant one period after t. Monthly windows use calendar
// months, so Jan 31 + 1 month normalizes into early March.
func (p ResetPeriod) After(t time.Time) time.Time {
	switch p {
	case ResetWeekly:
		return t.Add(7 * 24 * time.Hour)
	case ResetMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.Add(24 * time.Hour)
	}
}

// UsageCounter tracks how often a user invoked a metered feature in the
// current window. There is at most one per (UserID, FeatureID).
type UsageCounter struct {
	UserID      uuid.UUID   `json:"user_id"`
	FeatureID   string      `json:"feature_id"`
	Current     int         `json:"current"`
	Limit       int         `json:"limit"`
	ResetPeriod ResetPeriod `json:"reset_period"`
	ResetAt     time.Time   `json:"reset_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Unlimited reports whether the counter never denies usage.
func (c *UsageCounter) Unlimited() bool {
	return c.Limit == UnlimitedLimit
}

// Used returns the logical usage at now: zero once the window has elapsed,
// and never negative.
func (c *UsageCounter) Used(now time.Time) int {
	if !now.Before(c.ResetAt) || c.Current < 0 {
		return 0
	}
	return c.Current
}

// Remaining returns how many uses are left in the window at now, or
// UnlimitedLimit for unlimited counters.
func (c *UsageCounter) Remaining(now time.Time) int {
	if c.Unlimited() {
		return UnlimitedLimit
	}
	left := c.Limit - c.Used(now)
	if left < 0 {
		return 0
	}
	return left
}
