package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/store"
)

// PostgresUsageCounterStore implements store.UsageCounterStore.
type PostgresUsageCounterStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUsageCounterStore creates a new PostgreSQL implementation of the
// UsageCounterStore interface.
func NewPostgresUsageCounterStore(db store.DBTX, logger *slog.Logger) *PostgresUsageCounterStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUsageCounterStore{
		db:     db,
		logger: logger.With(slog.String("component", "usage_counter_store")),
	}
}

var _ store.UsageCounterStore = (*PostgresUsageCounterStore)(nil)

// WithTx implements store.UsageCounterStore.WithTx
func (s *PostgresUsageCounterStore) WithTx(tx *sql.Tx) store.UsageCounterStore {
	return &PostgresUsageCounterStore{
		db:     tx,
		logger: s.logger,
	}
}

const usageCounterColumns = `user_id, feature_id, current, usage_limit, reset_period, reset_at, created_at, updated_at`

// Get implements store.UsageCounterStore.Get
func (s *PostgresUsageCounterStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	featureID string,
) (*domain.UsageCounter, error) {
	return s.get(ctx, userID, featureID, false)
}

// GetForUpdate implements store.UsageCounterStore.GetForUpdate
func (s *PostgresUsageCounterStore) GetForUpdate(
	ctx context.Context,
	userID uuid.UUID,
	featureID string,
) (*domain.UsageCounter, error) {
	return s.get(ctx, userID, featureID, true)
}

func (s *PostgresUsageCounterStore) get(
	ctx context.Context,
	userID uuid.UUID,
	featureID string,
	forUpdate bool,
) (*domain.UsageCounter, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + usageCounterColumns + `
		FROM usage_counters
		WHERE user_id = $1 AND feature_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	counter, err := scanUsageCounter(s.db.QueryRowContext(ctx, query, userID, featureID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUsageCounterNotFound
		}
		log.Error("failed to get usage counter",
			slog.String("error", err.Error()),
			slog.String("feature_id", featureID),
			slog.Bool("for_update", forUpdate))
		return nil, MapError(err)
	}

	return counter, nil
}

// Upsert implements store.UsageCounterStore.Upsert
func (s *PostgresUsageCounterStore) Upsert(ctx context.Context, counter *domain.UsageCounter) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if counter.UserID == uuid.Nil || counter.FeatureID == "" {
		return fmt.Errorf("%w: usage counter needs a user and a feature", store.ErrInvalidEntity)
	}
	if !counter.ResetPeriod.Valid() {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidResetPeriod)
	}

	createdAt := counter.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := counter.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO usage_counters (` + usageCounterColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, feature_id) DO UPDATE SET
			current      = EXCLUDED.current,
			usage_limit  = EXCLUDED.usage_limit,
			reset_period = EXCLUDED.reset_period,
			reset_at     = EXCLUDED.reset_at,
			updated_at   = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		counter.UserID,
		counter.FeatureID,
		counter.Current,
		counter.Limit,
		counter.ResetPeriod,
		counter.ResetAt,
		createdAt,
		updatedAt,
	)
	if err != nil {
		log.Error("failed to upsert usage counter",
			slog.String("error", err.Error()),
			slog.String("feature_id", counter.FeatureID))
		return MapError(err)
	}

	log.Debug("usage counter saved",
		slog.String("feature_id", counter.FeatureID),
		slog.Int("current", counter.Current),
		slog.Int("limit", counter.Limit))
	return nil
}

// ListByUser implements store.UsageCounterStore.ListByUser
func (s *PostgresUsageCounterStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.UsageCounter, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + usageCounterColumns + `
		FROM usage_counters
		WHERE user_id = $1
		ORDER BY feature_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list usage counters",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	counters := []*domain.UsageCounter{}
	for rows.Next() {
		counter, err := scanUsageCounter(rows)
		if err != nil {
			return nil, MapError(err)
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counters, nil
}

func scanUsageCounter(row rowScanner) (*domain.UsageCounter, error) {
	var (
		counter domain.UsageCounter
		period  string
	)
	err := row.Scan(
		&counter.UserID,
		&counter.FeatureID,
		&counter.Current,
		&counter.Limit,
		&period,
		&counter.ResetAt,
		&counter.CreatedAt,
		&counter.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	counter.ResetPeriod = domain.ResetPeriod(period)
	return &counter, nil
}
