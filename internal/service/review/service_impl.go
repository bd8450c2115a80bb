package review

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/domain/srs"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/store"
)

var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	db     store.TxRunner
	cards  store.CardStore
	states store.CardMemoryStateStore
	srs    srs.Service
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a review Service.
func NewService(
	db store.TxRunner,
	cards store.CardStore,
	states store.CardMemoryStateStore,
	srsService srs.Service,
	logger *slog.Logger,
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if cards == nil {
		panic("cards cannot be nil")
	}
	if states == nil {
		panic("states cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &serviceImpl{
		db:     db,
		cards:  cards,
		states: states,
		srs:    srsService,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With(slog.String("component", "review_service")),
	}
}

func (s *serviceImpl) GetNextCard(ctx context.Context, userID uuid.UUID) (*domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	card, err := s.cards.GetNextReviewCard(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrCardNotFound) {
			log.Debug("no cards due for review", slog.String("user_id", userID.String()))
			return nil, ErrNoCardsDue
		}
		log.Error("failed to get next review card",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, newServiceError("get_next_card", "failed to get next review card", err)
	}

	log.Debug("retrieved next review card",
		slog.String("user_id", userID.String()),
		slog.String("card_id", card.ID.String()))
	return card, nil
}

func (s *serviceImpl) SubmitAnswer(
	ctx context.Context,
	userID, cardID uuid.UUID,
	isCorrect bool,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	updated, err := s.withLockedState(ctx, "submit_answer", userID, cardID, now,
		func(state *domain.CardMemoryState) (*domain.CardMemoryState, error) {
			return s.srs.RecordReview(state, isCorrect, now)
		})
	if err != nil {
		return nil, err
	}

	log.Debug("recorded review",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()),
		slog.Bool("correct", isCorrect),
		slog.Float64("ease_factor", updated.EaseFactor),
		slog.Float64("interval_days", updated.IntervalDays),
		slog.Time("next_review_at", updated.NextReviewAt),
		slog.Bool("mastered", updated.IsMastered))
	return updated, nil
}

func (s *serviceImpl) PostponeCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
	days int,
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	if days < 1 || days > srs.MaxPostponeDays {
		return nil, ErrInvalidDays
	}
	now := s.now()

	updated, err := s.withLockedState(ctx, "postpone_card", userID, cardID, now,
		func(state *domain.CardMemoryState) (*domain.CardMemoryState, error) {
			return s.srs.PostponeReview(state, days, now)
		})
	if err != nil {
		return nil, err
	}

	log.Debug("postponed review",
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()),
		slog.Int("days", days),
		slog.Time("next_review_at", updated.NextReviewAt))
	return updated, nil
}

func (s *serviceImpl) GetProgress(ctx context.Context, userID uuid.UUID) (*Progress, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sum, err := s.states.Summary(ctx, userID, s.now())
	if err != nil {
		log.Error("failed to summarize progress",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, newServiceError("get_progress", "failed to summarize progress", err)
	}

	p := &Progress{
		TotalCards:    sum.TotalCards,
		ReviewedCards: sum.ReviewedCards,
		MasteredCards: sum.MasteredCards,
		DueCards:      sum.DueCards,
	}
	if sum.TotalCards > 0 {
		p.MasteryRatio = float64(sum.MasteredCards) / float64(sum.TotalCards)
	}
	return p, nil
}

// withLockedState loads the card and its state inside a transaction, checks
// ownership, applies fn and upserts the state fn returns. A card that was
// never reviewed starts from the default state.
func (s *serviceImpl) withLockedState(
	ctx context.Context,
	operation string,
	userID, cardID uuid.UUID,
	now time.Time,
	fn func(*domain.CardMemoryState) (*domain.CardMemoryState, error),
) (*domain.CardMemoryState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.CardMemoryState
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		cards := s.cards.WithTx(tx)
		states := s.states.WithTx(tx)

		card, err := cards.GetByID(ctx, cardID)
		if err != nil {
			return err
		}
		if card.UserID != userID {
			log.Warn("user does not own card",
				slog.String("user_id", userID.String()),
				slog.String("card_id", cardID.String()),
				slog.String("owner_id", card.UserID.String()))
			return ErrCardNotOwned
		}

		state, err := states.GetForUpdate(ctx, userID, cardID)
		if err != nil {
			if !errors.Is(err, store.ErrMemoryStateNotFound) {
				return err
			}
			state, err = domain.NewCardMemoryState(userID, cardID, now)
			if err != nil {
				return err
			}
		}

		next, err := fn(state)
		if err != nil {
			return err
		}
		if err := states.Upsert(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err == nil {
		return updated, nil
	}

	if errors.Is(err, store.ErrCardNotFound) ||
		errors.Is(err, ErrCardNotOwned) ||
		errors.Is(err, ErrInvalidDays) {
		return nil, err
	}

	log.Error("failed to update review state",
		slog.String("error", err.Error()),
		slog.String("operation", operation),
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()))
	return nil, newServiceError(operation, "failed to update review state", err)
}
