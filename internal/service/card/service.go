// Package card manages a user's flashcards: manual CRUD with ownership checks
// and metered AI generation.
package card

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/redact"
	"github.com/phrazzld/studykit-api/internal/service"
	"github.com/phrazzld/studykit-api/internal/store"
)

var (
	// ErrCardNotOwned indicates that the card belongs to another user.
	ErrCardNotOwned = fmt.Errorf("%w: card", service.ErrNotOwned)

	// ErrNoCardsGenerated is returned when generation produced no cards.
	ErrNoCardsGenerated = errors.New("no cards generated")
)

// Meter runs a metered action. Run must call fn only when the user may use
// featureID and must count the usage only when fn succeeds.
type Meter interface {
	Run(ctx context.Context, userID uuid.UUID, featureID string, fn func(context.Context) error) error
}

// ServiceError is a custom error type for card service errors.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("card service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}

// Service provides card operations.
type Service struct {
	db        store.TxRunner
	cards     store.CardStore
	generator generation.Generator
	meter     Meter
	logger    *slog.Logger
}

// NewService creates a card Service.
func NewService(
	db store.TxRunner,
	cards store.CardStore,
	generator generation.Generator,
	meter Meter,
	logger *slog.Logger,
) (*Service, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if cards == nil {
		return nil, errors.New("cards cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if meter == nil {
		return nil, errors.New("meter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		db:        db,
		cards:     cards,
		generator: generator,
		meter:     meter,
		logger:    logger.With(slog.String("component", "card_service")),
	}, nil
}

// Create stores a manually written card.
func (s *Service) Create(
	ctx context.Context,
	userID uuid.UUID,
	deckID string,
	content json.RawMessage,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := domain.NewCard(userID, deckID, content, domain.CardSourceManual)
	if err != nil {
		return nil, err
	}
	if err := s.cards.Create(ctx, card); err != nil {
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, newServiceError("create_card", "failed to save card", err)
	}

	log.Debug("created card",
		slog.String("user_id", userID.String()),
		slog.String("card_id", card.ID.String()))
	return card, nil
}

// Get returns a card owned by userID.
func (s *Service) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			return nil, err
		}
		return nil, newServiceError("get_card", "failed to retrieve card", err)
	}
	if card.UserID != userID {
		return nil, ErrCardNotOwned
	}
	return card, nil
}

// List returns a page of the user's cards, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Card, error) {
	cards, err := s.cards.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, newServiceError("list_cards", "failed to list cards", err)
	}
	return cards, nil
}

// UpdateContent replaces the content of a card owned by userID.
func (s *Service) UpdateContent(
	ctx context.Context,
	userID, cardID uuid.UUID,
	content json.RawMessage,
) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Card
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		if card.UserID != userID {
			log.Warn("user does not own card",
				slog.String("user_id", userID.String()),
				slog.String("card_id", cardID.String()))
			return ErrCardNotOwned
		}
		if err := card.UpdateContent(content); err != nil {
			return err
		}
		if err := cards.UpdateContent(ctx, cardID, card.Content); err != nil {
			return err
		}
		updated = card
		return nil
	})
	if err != nil {
		return nil, s.wrap("update_card", err)
	}
	return updated, nil
}

// Delete removes a card owned by userID together with its review state.
func (s *Service) Delete(ctx context.Context, userID, cardID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)

		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		if card.UserID != userID {
			return ErrCardNotOwned
		}
		return cards.Delete(ctx, cardID)
	})
	if err != nil {
		return s.wrap("delete_card", err)
	}

	log.Debug("deleted card",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()))
	return nil
}

// GenerateCards creates flashcards from study text. The call is metered by
// the flashcard generation quota, and the generated cards are stored
// together or not at all.
func (s *Service) GenerateCards(
	ctx context.Context,
	userID uuid.UUID,
	text, deckID string,
) ([]*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if strings.TrimSpace(text) == "" {
		return nil, generation.ErrEmptyInput
	}

	var created []*domain.Card
	err := s.meter.Run(ctx, userID, domain.FeatureFlashcardGeneration, func(ctx context.Context) error {
		cards, err := s.generator.GenerateCards(ctx, text, userID, deckID)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return ErrNoCardsGenerated
		}

		err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			return s.cards.WithTx(tx).CreateMultiple(ctx, cards)
		})
		if err != nil {
			return newServiceError("generate_cards", "failed to save generated cards", err)
		}
		created = cards
		return nil
	})
	if err != nil {
		log.Warn("card generation did not complete",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	log.Info("generated cards",
		slog.String("user_id", userID.String()),
		slog.Int("card_count", len(created)))
	return created, nil
}

// wrap passes expected errors through and wraps everything else.
func (s *Service) wrap(operation string, err error) error {
	switch {
	case errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, ErrCardNotOwned),
		errors.Is(err, domain.ErrCardContentEmpty),
		errors.Is(err, domain.ErrCardContentInvalid):
		return err
	}
	return newServiceError(operation, "card operation failed", err)
}
