package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/service/auth"
)

// AuthService registers and authenticates users.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error)
	Login(ctx context.Context, email, password string) (*domain.User, *auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// UserGetter loads users by ID.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	auth   AuthService
	users  UserGetter
	now    func() time.Time
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(authService AuthService, users UserGetter, logger *slog.Logger) *AuthHandler {
	if authService == nil || users == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("auth service and user getter cannot be nil for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		auth:   authService,
		users:  users,
		now:    time.Now,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, authResponse(user.ID, pair))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, authResponse(user.ID, pair))
}

// RefreshToken handles POST /auth/refresh.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.Format(time.RFC3339),
	})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MeResponse{
		ID:            user.ID,
		Email:         user.Email,
		Plan:          user.Plan,
		PlanExpiresAt: user.PlanExpiresAt,
		Premium:       user.IsPremium(h.now()),
		CreatedAt:     user.CreatedAt,
	})
}

// DeleteAccount handles DELETE /me. Cards, review progress and usage
// counters are removed with the user.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	if err := h.auth.DeleteAccount(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func authResponse(userID uuid.UUID, pair *auth.TokenPair) AuthResponse {
	return AuthResponse{
		UserID:       userID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.Format(time.RFC3339),
	}
}
