package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/service/review"
)

// Meter runs a metered action and counts it only when fn succeeds.
type Meter interface {
	Run(ctx context.Context, userID uuid.UUID, featureID string, fn func(context.Context) error) error
}

// ReviewHandler handles spaced repetition review requests.
type ReviewHandler struct {
	reviews review.Service
	meter   Meter
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviews review.Service, meter Meter, logger *slog.Logger) *ReviewHandler {
	if reviews == nil || meter == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("review service and meter cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		reviews: reviews,
		meter:   meter,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// GetNextReviewCard handles GET /cards/next. It responds 204 when no card
// is due.
func (h *ReviewHandler) GetNextReviewCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	card, err := h.reviews.GetNextCard(r.Context(), userID)
	if errors.Is(err, review.ErrNoCardsDue) {
		log.Debug("no cards due for review")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		message := ""
		if MapErrorToStatusCode(err) == http.StatusInternalServerError {
			message = "Failed to get next review card"
		}
		HandleAPIError(w, r, err, message)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardToResponse(card))
}

// SubmitAnswer handles POST /cards/{id}/answer.
func (h *ReviewHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	state, err := h.reviews.SubmitAnswer(r.Context(), userID, cardID, *req.Correct)
	if err != nil {
		message := ""
		if MapErrorToStatusCode(err) == http.StatusInternalServerError {
			message = "Failed to submit answer"
		}
		HandleAPIError(w, r, err, message)
		return
	}

	log.Debug("answer submitted",
		slog.String("card_id", cardID.String()),
		slog.Bool("correct", *req.Correct))
	shared.RespondWithJSON(w, r, http.StatusOK, memoryStateToResponse(state))
}

// PostponeCard handles POST /cards/{id}/postpone.
func (h *ReviewHandler) PostponeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req PostponeCardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	state, err := h.reviews.PostponeCard(r.Context(), userID, cardID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, memoryStateToResponse(state))
}

// GetProgress handles GET /progress. Each successful view counts against
// the analytics quota.
func (h *ReviewHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var progress *review.Progress
	err := h.meter.Run(r.Context(), userID, domain.FeatureAnalyticsView, func(ctx context.Context) error {
		var err error
		progress, err = h.reviews.GetProgress(ctx, userID)
		return err
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, progress)
}
