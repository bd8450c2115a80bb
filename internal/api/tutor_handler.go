package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
)

// TutorService runs the metered AI tutoring features.
type TutorService interface {
	Chat(ctx context.Context, userID uuid.UUID, history []generation.Message, message string) (string, error)
	Summarize(ctx context.Context, userID uuid.UUID, text string) (string, error)
	StudyPlan(ctx context.Context, userID uuid.UUID, goal string, days int) (*generation.StudyPlan, error)
}

// TutorHandler handles AI tutoring requests.
type TutorHandler struct {
	tutor  TutorService
	logger *slog.Logger
}

// NewTutorHandler creates a new TutorHandler.
func NewTutorHandler(tutor TutorService, logger *slog.Logger) *TutorHandler {
	if tutor == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tutor service cannot be nil for TutorHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TutorHandler{
		tutor:  tutor,
		logger: logger.With(slog.String("component", "tutor_handler")),
	}
}

// Chat handles POST /tutor/chat.
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req ChatRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	reply, err := h.tutor.Chat(r.Context(), userID, req.History, req.Message)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ChatResponse{Reply: reply})
}

// Summarize handles POST /tutor/summarize.
func (h *TutorHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req SummarizeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	summary, err := h.tutor.Summarize(r.Context(), userID, req.Text)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SummarizeResponse{Summary: summary})
}

// StudyPlan handles POST /tutor/study-plan.
func (h *TutorHandler) StudyPlan(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req StudyPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.tutor.StudyPlan(r.Context(), userID, req.Goal, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, plan)
}
