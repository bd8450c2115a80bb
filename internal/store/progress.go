package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
)

// ProgressSummary aggregates a user's review progress.
type ProgressSummary struct {
	TotalCards    int
	ReviewedCards int
	MasteredCards int
	DueCards      int
}

// CardMemoryStateStore persists per-card review progress.
type CardMemoryStateStore interface {
	// Get retrieves the state for (userID, cardID) without locking.
	// Returns ErrMemoryStateNotFound if the card was never reviewed.
	Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardMemoryState, error)

	// GetForUpdate is Get with SELECT ... FOR UPDATE. It must run inside a
	// transaction to serialize concurrent reviews of the same card.
	GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardMemoryState, error)

	// Upsert inserts the state or overwrites the existing row for the same key.
	Upsert(ctx context.Context, state *domain.CardMemoryState) error

	// Summary counts the user's cards, reviewed cards, mastered cards and
	// cards due at now. Cards without a state are due.
	Summary(ctx context.Context, userID uuid.UUID, now time.Time) (*ProgressSummary, error)

	// WithTx returns a CardMemoryStateStore bound to tx.
	WithTx(tx *sql.Tx) CardMemoryStateStore
}
