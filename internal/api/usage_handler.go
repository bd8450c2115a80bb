package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/service/usage"
)

// UsageReader reports a user's metered feature usage.
type UsageReader interface {
	Check(ctx context.Context, userID uuid.UUID, featureID string) (*usage.Decision, error)
	Usage(ctx context.Context, userID uuid.UUID) ([]usage.Decision, error)
}

// UsageResponse lists the usage of every metered feature.
type UsageResponse struct {
	Features []usage.Decision `json:"features"`
}

// UsageHandler handles usage and quota requests.
type UsageHandler struct {
	usage  UsageReader
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(reader UsageReader, logger *slog.Logger) *UsageHandler {
	if reader == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("usage reader cannot be nil for UsageHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageHandler{
		usage:  reader,
		logger: logger.With(slog.String("component", "usage_handler")),
	}
}

// ListUsage handles GET /usage.
func (h *UsageHandler) ListUsage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	decisions, err := h.usage.Usage(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, UsageResponse{Features: decisions})
}

// GetFeatureUsage handles GET /usage/{feature}.
func (h *UsageHandler) GetFeatureUsage(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	decision, err := h.usage.Check(r.Context(), userID, chi.URLParam(r, "feature"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, decision)
}
