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

// Default page size of ListByUser.
const defaultCardPageSize = 50

// PostgresCardStore implements the store.CardStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStore creates a new PostgreSQL implementation of the CardStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCardStore(db store.DBTX, logger *slog.Logger) *PostgresCardStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}
}

// Ensure PostgresCardStore implements store.CardStore interface
var _ store.CardStore = (*PostgresCardStore)(nil)

// WithTx implements store.CardStore.WithTx
func (s *PostgresCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return &PostgresCardStore{
		db:     tx,
		logger: s.logger,
	}
}

const cardColumns = `c.id, c.user_id, c.deck_id, c.content, c.source, c.created_at, c.updated_at`

const insertCardQuery = `
	INSERT INTO cards (id, user_id, deck_id, content, source, created_at, updated_at)
	VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
`

// Create implements store.CardStore.Create
func (s *PostgresCardStore) Create(ctx context.Context, card *domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("card validation failed during create",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	if err := s.insert(ctx, card); err != nil {
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()),
			slog.String("user_id", card.UserID.String()))
		return MapError(err)
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("source", string(card.Source)))
	return nil
}

// CreateMultiple implements store.CardStore.CreateMultiple
// All cards are validated before the first insert.
func (s *PostgresCardStore) CreateMultiple(ctx context.Context, cards []*domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(cards) == 0 {
		return nil
	}

	for i, card := range cards {
		if err := card.Validate(); err != nil {
			log.Warn("card validation failed during batch create",
				slog.String("error", err.Error()),
				slog.Int("index", i))
			return fmt.Errorf("%w: card %d: %v", store.ErrInvalidEntity, i, err)
		}
	}

	for _, card := range cards {
		if err := s.insert(ctx, card); err != nil {
			log.Error("failed to insert card in batch",
				slog.String("error", err.Error()),
				slog.String("card_id", card.ID.String()))
			return MapError(err)
		}
	}

	log.Info("cards created", slog.Int("count", len(cards)))
	return nil
}

func (s *PostgresCardStore) insert(ctx context.Context, card *domain.Card) error {
	_, err := s.db.ExecContext(ctx, insertCardQuery,
		card.ID,
		card.UserID,
		card.DeckID,
		[]byte(card.Content),
		card.Source,
		card.CreatedAt,
		card.UpdatedAt,
	)
	return err
}

// GetByID implements store.CardStore.GetByID
func (s *PostgresCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + cardColumns + ` FROM cards c WHERE c.id = $1`
	card, err := scanCard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card not found", slog.String("card_id", id.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get card by ID",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return nil, MapError(err)
	}

	return card, nil
}

// ListByUser implements store.CardStore.ListByUser
func (s *PostgresCardStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = defaultCardPageSize
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + cardColumns + `
		FROM cards c
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC, c.id
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to list cards",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			log.Error("failed to scan card row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return cards, nil
}

// UpdateContent implements store.CardStore.UpdateContent
func (s *PostgresCardStore) UpdateContent(ctx context.Context, id uuid.UUID, content []byte) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidate := domain.Card{ID: id, UserID: uuid.New(), Content: content, Source: domain.CardSourceManual}
	if err := candidate.Validate(); err != nil {
		log.Warn("card content validation failed during update",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `UPDATE cards SET content = $1, updated_at = $2 WHERE id = $3`
	result, err := s.db.ExecContext(ctx, query, content, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update card content",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		log.Debug("card not found for update", slog.String("card_id", id.String()))
		return err
	}

	log.Debug("card content updated", slog.String("card_id", id.String()))
	return nil
}

// Delete implements store.CardStore.Delete
func (s *PostgresCardStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete card",
			slog.String("error", err.Error()),
			slog.String("card_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrCardNotFound); err != nil {
		log.Debug("card not found for delete", slog.String("card_id", id.String()))
		return err
	}

	log.Info("card deleted", slog.String("card_id", id.String()))
	return nil
}

// GetNextReviewCard implements store.CardStore.GetNextReviewCard
func (s *PostgresCardStore) GetNextReviewCard(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + cardColumns + `
		FROM cards c
		LEFT JOIN card_memory_states s
			ON s.card_id = c.id AND s.user_id = c.user_id
		WHERE c.user_id = $1
			AND (s.card_id IS NULL OR s.next_review_at <= $2)
		ORDER BY COALESCE(s.next_review_at, c.created_at) ASC, c.id
		LIMIT 1
	`
	card, err := scanCard(s.db.QueryRowContext(ctx, query, userID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no cards due for review", slog.String("user_id", userID.String()))
			return nil, store.ErrCardNotFound
		}
		log.Error("failed to get next review card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}

	return card, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card    domain.Card
		deckID  sql.NullString
		content []byte
		source  string
	)
	err := row.Scan(
		&card.ID,
		&card.UserID,
		&deckID,
		&content,
		&source,
		&card.CreatedAt,
		&card.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	card.DeckID = deckID.String
	card.Content = content
	card.Source = domain.CardSource(source)
	return &card, nil
}
