package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
)

// UsageCounterStore persists metered feature counters.
type UsageCounterStore interface {
	// Get retrieves the counter for (userID, featureID) without locking.
	// Returns ErrUsageCounterNotFound if the feature was never used.
	Get(ctx context.Context, userID uuid.UUID, featureID string) (*domain.UsageCounter, error)

	// GetForUpdate is Get with SELECT ... FOR UPDATE, serializing concurrent
	// increments of the same counter. It must run inside a transaction.
	GetForUpdate(ctx context.Context, userID uuid.UUID, featureID string) (*domain.UsageCounter, error)

	// Upsert inserts the counter or overwrites the row for the same key.
	Upsert(ctx context.Context, counter *domain.UsageCounter) error

	// ListByUser returns every counter of a user.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.UsageCounter, error)

	// WithTx returns a UsageCounterStore bound to tx.
	WithTx(tx *sql.Tx) UsageCounterStore
}
