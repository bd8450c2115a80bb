package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/store"
)

// planChange is an operator request to move a user onto a subscription plan.
type planChange struct {
	Email     string
	Plan      domain.Plan
	ExpiresAt *time.Time
}

// parsePlanChange validates the -set-plan, -email and -plan-expires flags.
// An empty expires means the plan does not lapse. Free plans never carry an
// expiry.
func parsePlanChange(email, plan, expires string, now time.Time) (*planChange, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("-email is required with -set-plan")
	}

	change := &planChange{Email: email, Plan: domain.Plan(strings.ToLower(strings.TrimSpace(plan)))}
	if !change.Plan.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPlan, plan)
	}

	if expires == "" {
		return change, nil
	}
	if change.Plan == domain.PlanFree {
		return nil, errors.New("-plan-expires cannot be used with the free plan")
	}
	at, err := time.Parse(time.RFC3339, expires)
	if err != nil {
		return nil, fmt.Errorf("invalid -plan-expires %q: expected RFC3339: %w", expires, err)
	}
	if !at.After(now) {
		return nil, fmt.Errorf("-plan-expires %s is not in the future", expires)
	}
	at = at.UTC()
	change.ExpiresAt = &at
	return change, nil
}

// applyPlanChange looks the user up by email and stores the new plan.
func applyPlanChange(ctx context.Context, users store.UserStore, change *planChange, log *slog.Logger) error {
	user, err := users.GetByEmail(ctx, change.Email)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", change.Email, err)
	}

	if err := users.UpdatePlan(ctx, user.ID, change.Plan, change.ExpiresAt); err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}

	attrs := []any{
		slog.String("user_id", user.ID.String()),
		slog.String("plan", string(change.Plan)),
	}
	if change.ExpiresAt != nil {
		attrs = append(attrs, slog.Time("expires_at", *change.ExpiresAt))
	}
	log.Info("subscription plan changed", attrs...)
	return nil
}
