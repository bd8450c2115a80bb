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

// PostgresCardMemoryStateStore implements store.CardMemoryStateStore.
type PostgresCardMemoryStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardMemoryStateStore creates a new PostgreSQL implementation of
// the CardMemoryStateStore interface.
func NewPostgresCardMemoryStateStore(db store.DBTX, logger *slog.Logger) *PostgresCardMemoryStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardMemoryStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_memory_state_store")),
	}
}

var _ store.CardMemoryStateStore = (*PostgresCardMemoryStateStore)(nil)

// WithTx implements store.CardMemoryStateStore.WithTx
func (s *PostgresCardMemoryStateStore) WithTx(tx *sql.Tx) store.CardMemoryStateStore {
	return &PostgresCardMemoryStateStore{
		db:     tx,
		logger: s.logger,
	}
}

const memoryStateColumns = `user_id, card_id, times_reviewed, correct_count, incorrect_count,
	ease_factor, interval_days, last_reviewed_at, next_review_at, is_mastered,
	created_at, updated_at`

// Get implements store.CardMemoryStateStore.Get
func (s *PostgresCardMemoryStateStore) Get(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	return s.get(ctx, userID, cardID, false)
}

// GetForUpdate implements store.CardMemoryStateStore.GetForUpdate
func (s *PostgresCardMemoryStateStore) GetForUpdate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardMemoryState, error) {
	return s.get(ctx, userID, cardID, true)
}

func (s *PostgresCardMemoryStateStore) get(
	ctx context.Context,
	userID, cardID uuid.UUID,
	forUpdate bool,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + memoryStateColumns + `
		FROM card_memory_states
		WHERE user_id = $1 AND card_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	state, err := scanMemoryState(s.db.QueryRowContext(ctx, query, userID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card memory state not found",
				slog.String("user_id", userID.String()),
				slog.String("card_id", cardID.String()))
			return nil, store.ErrMemoryStateNotFound
		}
		log.Error("failed to get card memory state",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()),
			slog.Bool("for_update", forUpdate))
		return nil, MapError(err)
	}

	return state, nil
}

// Upsert implements store.CardMemoryStateStore.Upsert
func (s *PostgresCardMemoryStateStore) Upsert(ctx context.Context, state *domain.CardMemoryState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("card memory state validation failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var lastReviewed sql.NullTime
	if !state.LastReviewedAt.IsZero() {
		lastReviewed = sql.NullTime{Time: state.LastReviewedAt, Valid: true}
	}
	createdAt := state.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO card_memory_states (` + memoryStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, card_id) DO UPDATE SET
			times_reviewed   = EXCLUDED.times_reviewed,
			correct_count    = EXCLUDED.correct_count,
			incorrect_count  = EXCLUDED.incorrect_count,
			ease_factor      = EXCLUDED.ease_factor,
			interval_days    = EXCLUDED.interval_days,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			next_review_at   = EXCLUDED.next_review_at,
			is_mastered      = EXCLUDED.is_mastered,
			updated_at       = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		state.UserID,
		state.CardID,
		state.TimesReviewed,
		state.CorrectCount,
		state.IncorrectCount,
		state.EaseFactor,
		state.IntervalDays,
		lastReviewed,
		state.NextReviewAt,
		state.IsMastered,
		createdAt,
		updatedAt,
	)
	if err != nil {
		log.Error("failed to upsert card memory state",
			slog.String("error", err.Error()),
			slog.String("card_id", state.CardID.String()))
		return MapError(err)
	}

	log.Debug("card memory state saved",
		slog.String("card_id", state.CardID.String()),
		slog.Int("times_reviewed", state.TimesReviewed),
		slog.Bool("is_mastered", state.IsMastered))
	return nil
}

// Summary implements store.CardMemoryStateStore.Summary
func (s *PostgresCardMemoryStateStore) Summary(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*store.ProgressSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE s.times_reviewed > 0),
			COUNT(*) FILTER (WHERE s.is_mastered),
			COUNT(*) FILTER (WHERE s.card_id IS NULL OR s.next_review_at <= $2)
		FROM cards c
		LEFT JOIN card_memory_states s
			ON s.card_id = c.id AND s.user_id = c.user_id
		WHERE c.user_id = $1
	`
	var sum store.ProgressSummary
	err := s.db.QueryRowContext(ctx, query, userID, now).Scan(
		&sum.TotalCards,
		&sum.ReviewedCards,
		&sum.MasteredCards,
		&sum.DueCards,
	)
	if err != nil {
		log.Error("failed to summarize progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	return &sum, nil
}

func scanMemoryState(row rowScanner) (*domain.CardMemoryState, error) {
	var (
		state        domain.CardMemoryState
		lastReviewed sql.NullTime
	)
	err := row.Scan(
		&state.UserID,
		&state.CardID,
		&state.TimesReviewed,
		&state.CorrectCount,
		&state.IncorrectCount,
		&state.EaseFactor,
		&state.IntervalDays,
		&lastReviewed,
		&state.NextReviewAt,
		&state.IsMastered,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReviewed.Valid {
		state.LastReviewedAt = lastReviewed.Time
	}
	return &state, nil
}
