package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
)

// CardService manages a user's flashcards.
type CardService interface {
	Create(ctx context.Context, userID uuid.UUID, deckID string, content json.RawMessage) (*domain.Card, error)
	Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.Card, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Card, error)
	UpdateContent(ctx context.Context, userID, cardID uuid.UUID, content json.RawMessage) (*domain.Card, error)
	Delete(ctx context.Context, userID, cardID uuid.UUID) error
	GenerateCards(ctx context.Context, userID uuid.UUID, text, deckID string) ([]*domain.Card, error)
}

// CardHandler handles card management requests.
type CardHandler struct {
	cards  CardService
	logger *slog.Logger
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cards CardService, logger *slog.Logger) *CardHandler {
	if cards == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("card service cannot be nil for CardHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		cards:  cards,
		logger: logger.With(slog.String("component", "card_handler")),
	}
}

// ListCards handles GET /cards.
func (h *CardHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	limit, offset, err := pagination(r)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	cards, err := h.cards.List(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CardListResponse{
		Cards:  cardsToResponse(cards),
		Limit:  limit,
		Offset: offset,
	})
}

// CreateCard handles POST /cards.
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req CardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.cards.Create(r.Context(), userID, req.DeckID, req.Content)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("card created", slog.String("card_id", card.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// GetCard handles GET /cards/{id}.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	card, err := h.cards.Get(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// EditCard handles PUT /cards/{id}.
func (h *CardHandler) EditCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req UpdateCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	card, err := h.cards.UpdateContent(r.Context(), userID, cardID, req.Content)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// DeleteCard handles DELETE /cards/{id}.
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	if err := h.cards.Delete(r.Context(), userID, cardID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("card deleted", slog.String("card_id", cardID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// GenerateCards handles POST /cards/generate.
func (h *CardHandler) GenerateCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req GenerateCardsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cards, err := h.cards.GenerateCards(r.Context(), userID, req.Text, req.DeckID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("cards generated", slog.Int("count", len(cards)))
	shared.RespondWithJSON(w, r, http.StatusCreated, CardListResponse{
		Cards: cardsToResponse(cards),
		Limit: len(cards),
	})
}
