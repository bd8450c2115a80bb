package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
)

// CardStore defines the interface for card data persistence.
type CardStore interface {
	// Create saves a single card.
	Create(ctx context.Context, card *domain.Card) error

	// CreateMultiple saves several cards. Run it inside RunInTransaction with
	// a store from WithTx so that either all or none of the cards are stored.
	CreateMultiple(ctx context.Context, cards []*domain.Card) error

	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// ListByUser returns a user's cards, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Card, error)

	// UpdateContent replaces a card's content.
	// Returns ErrCardNotFound if the card does not exist.
	UpdateContent(ctx context.Context, id uuid.UUID, content []byte) error

	// Delete removes a card. The card's memory state is removed through
	// ON DELETE CASCADE. Returns ErrCardNotFound if the card does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetNextReviewCard returns the user's card that is due soonest at now.
	// Cards that were never reviewed count as due immediately.
	// Returns ErrCardNotFound when nothing is due.
	GetNextReviewCard(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.Card, error)

	// WithTx returns a CardStore bound to tx.
	WithTx(tx *sql.Tx) CardStore
}
