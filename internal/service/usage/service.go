// Package usage meters AI and analytics features per user. It wraps the
// entitlement gate with persistence: counters are read before a gated action
// and incremented only after the action succeeded.
package usage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/domain/entitlement"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/redact"
	"github.com/phrazzld/studykit-api/internal/store"
)

// Decision is the outcome of an entitlement check.
type Decision struct {
	FeatureID   string             `json:"feature_id"`
	Allowed     bool               `json:"allowed"`
	Premium     bool               `json:"premium"`
	Limit       int                `json:"limit"`
	Used        int                `json:"used"`
	Remaining   int                `json:"remaining"`
	ResetPeriod domain.ResetPeriod `json:"reset_period"`
	// ResetAt is zero when no window is open.
	ResetAt time.Time `json:"reset_at"`
}

// Service checks and records metered feature usage.
type Service struct {
	db       store.TxRunner
	users    store.UserStore
	counters store.UsageCounterStore
	policy   entitlement.Policy
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a usage Service.
func NewService(
	db store.TxRunner,
	users store.UserStore,
	counters store.UsageCounterStore,
	policy entitlement.Policy,
	logger *slog.Logger,
) (*Service, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if users == nil {
		return nil, errors.New("users cannot be nil")
	}
	if counters == nil {
		return nil, errors.New("counters cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		db:       db,
		users:    users,
		counters: counters,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "usage_service")),
	}, nil
}

// Check evaluates whether userID may invoke featureID now. It never mutates
// a counter.
func (s *Service) Check(ctx context.Context, userID uuid.UUID, featureID string) (*Decision, error) {
	limit, ok := s.policy.Limit(featureID)
	if !ok {
		return nil, ErrUnknownFeature
	}

	now := s.now()
	premium, err := s.isPremium(ctx, userID, now)
	if err != nil {
		return nil, newServiceError("check", "failed to load user", err)
	}

	counter, err := s.counters.Get(ctx, userID, featureID)
	if err != nil && !errors.Is(err, store.ErrUsageCounterNotFound) {
		return nil, newServiceError("check", "failed to load usage counter", err)
	}

	d := decide(featureID, premium, counter, limit, now)
	return &d, nil
}

// Record counts one successful invocation. The read-modify-write runs in a
// transaction holding the counter row lock. For premium users nothing is
// stored and an unlimited counter is returned.
func (s *Service) Record(ctx context.Context, userID uuid.UUID, featureID string) (*domain.UsageCounter, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	limit, ok := s.policy.Limit(featureID)
	if !ok {
		return nil, ErrUnknownFeature
	}

	now := s.now()
	premium, err := s.isPremium(ctx, userID, now)
	if err != nil {
		return nil, newServiceError("record", "failed to load user", err)
	}
	if premium {
		next := entitlement.RecordUsage(true, nil, featureID, limit.Limit, limit.Period, now)
		next.UserID = userID
		return &next, nil
	}

	var next domain.UsageCounter
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		counters := s.counters.WithTx(tx)

		counter, err := counters.GetForUpdate(ctx, userID, featureID)
		if err != nil {
			if !errors.Is(err, store.ErrUsageCounterNotFound) {
				return err
			}
			counter = nil
		}

		next = entitlement.RecordUsage(false, counter, featureID, limit.Limit, limit.Period, now)
		next.UserID = userID
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		return counters.Upsert(ctx, &next)
	})
	if err != nil {
		return nil, newServiceError("record", "failed to update usage counter", err)
	}

	recordedTotal.WithLabelValues(featureID).Inc()
	log.Debug("usage recorded",
		slog.String("user_id", userID.String()),
		slog.String("feature_id", featureID),
		slog.Int("current", next.Current),
		slog.Int("limit", next.Limit))
	return &next, nil
}

// Run executes fn when userID may use featureID and records the usage once fn
// succeeded. A denied check returns a *LimitReachedError without calling fn.
// Errors from fn are returned unchanged and are not counted. A failure to
// record usage after fn succeeded is logged and not returned.
func (s *Service) Run(ctx context.Context, userID uuid.UUID, featureID string, fn func(context.Context) error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	decision, err := s.Check(ctx, userID, featureID)
	if err != nil {
		return err
	}

	switch {
	case decision.Premium:
		gateDecisionsTotal.WithLabelValues(featureID, outcomePremium).Inc()
	case decision.Allowed:
		gateDecisionsTotal.WithLabelValues(featureID, outcomeAllowed).Inc()
	default:
		gateDecisionsTotal.WithLabelValues(featureID, outcomeDenied).Inc()
		log.Info("usage limit reached",
			slog.String("user_id", userID.String()),
			slog.String("feature_id", featureID),
			slog.Int("limit", decision.Limit))
		return &LimitReachedError{Decision: *decision}
	}

	if err := fn(ctx); err != nil {
		return err
	}

	if decision.Premium {
		return nil
	}
	if _, err := s.Record(ctx, userID, featureID); err != nil {
		trackingFailuresTotal.WithLabelValues(featureID).Inc()
		log.Error(ErrUsageTrackingFailed.Error(),
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("feature_id", featureID))
	}
	return nil
}

// Usage summarizes every metered feature for userID.
func (s *Service) Usage(ctx context.Context, userID uuid.UUID) ([]Decision, error) {
	now := s.now()
	premium, err := s.isPremium(ctx, userID, now)
	if err != nil {
		return nil, newServiceError("usage", "failed to load user", err)
	}

	counters, err := s.counters.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("usage", "failed to list usage counters", err)
	}
	byFeature := make(map[string]*domain.UsageCounter, len(counters))
	for _, c := range counters {
		byFeature[c.FeatureID] = c
	}

	features := s.policy.Features()
	decisions := make([]Decision, 0, len(features))
	for _, id := range features {
		limit, _ := s.policy.Limit(id)
		decisions = append(decisions, decide(id, premium, byFeature[id], limit, now))
	}
	return decisions, nil
}

func (s *Service) isPremium(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsPremium(now), nil
}

// decide builds a Decision. A stored counter's own limit and period win over
// the policy defaults.
func decide(
	featureID string,
	premium bool,
	counter *domain.UsageCounter,
	limit entitlement.FeatureLimit,
	now time.Time,
) Decision {
	d := Decision{
		FeatureID:   featureID,
		Allowed:     entitlement.CanUse(premium, counter, now),
		Premium:     premium,
		Limit:       limit.Limit,
		Remaining:   limit.Limit,
		ResetPeriod: limit.Period,
		ResetAt:     entitlement.NextReset(counter, now),
	}

	if counter != nil {
		d.Limit = counter.Limit
		d.Used = counter.Used(now)
		d.Remaining = counter.Remaining(now)
		if counter.ResetPeriod.Valid() {
			d.ResetPeriod = counter.ResetPeriod
		}
	} else if limit.Limit == 0 && !premium {
		// A zero quota disables the feature before the first use.
		d.Allowed = false
	}

	if premium {
		d.Limit = domain.UnlimitedLimit
		d.Remaining = domain.UnlimitedLimit
	}
	return d
}
