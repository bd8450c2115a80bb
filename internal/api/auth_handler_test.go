package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/api/shared"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/service/auth"
	"github.com/phrazzld/studykit-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func testPair() *auth.TokenPair {
	return &auth.TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
	}
}

func TestAuthHandler_Register(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "new@example.com", Plan: domain.PlanFree}

	testCases := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			body:       RegisterRequest{Email: "new@example.com", Password: "correct-horse-battery"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "email taken",
			body:       RegisterRequest{Email: "new@example.com", Password: "correct-horse-battery"},
			err:        store.ErrEmailExists,
			wantStatus: http.StatusConflict,
			wantError:  "Email already exists",
		},
		{
			name:       "short password",
			body:       RegisterRequest{Email: "new@example.com", Password: "short"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid password: too short or too small",
		},
		{
			name:       "malformed body",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "unknown field",
			body:       `{"email":"a@example.com","password":"correct-horse-battery","admin":true}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeAuthService{
				RegisterFn: func(_ context.Context, email, password string) (*domain.User, *auth.TokenPair, error) {
					if tc.err != nil {
						return nil, nil, tc.err
					}
					return user, testPair(), nil
				},
			}
			h := NewAuthHandler(svc, &fakeUserGetter{}, nil)

			rec := serve(t, http.MethodPost, "/auth/register", "/auth/register", tc.body, uuid.Nil, h.Register)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantError != "" {
				body := decodeBody[shared.ErrorResponse](t, rec)
				assert.Equal(t, tc.wantError, body.Error)
				assert.Equal(t, "trace-test", body.TraceID)
				return
			}
			resp := decodeBody[AuthResponse](t, rec)
			assert.Equal(t, user.ID, resp.UserID)
			assert.Equal(t, "access", resp.AccessToken)
			assert.Equal(t, "refresh", resp.RefreshToken)
			assert.Equal(t, "2025-01-01T13:00:00Z", resp.ExpiresAt)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("invalid credentials", func(t *testing.T) {
		svc := &fakeAuthService{
			LoginFn: func(context.Context, string, string) (*domain.User, *auth.TokenPair, error) {
				return nil, nil, auth.ErrInvalidCredentials
			},
		}
		h := NewAuthHandler(svc, &fakeUserGetter{}, nil)

		rec := serve(t, http.MethodPost, "/auth/login", "/auth/login",
			LoginRequest{Email: "learner@example.com", Password: "wrong"}, uuid.Nil, h.Login)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid email or password", decodeBody[shared.ErrorResponse](t, rec).Error)
	})

	t.Run("success", func(t *testing.T) {
		userID := uuid.New()
		svc := &fakeAuthService{
			LoginFn: func(_ context.Context, email, _ string) (*domain.User, *auth.TokenPair, error) {
				return &domain.User{ID: userID, Email: email}, testPair(), nil
			},
		}
		h := NewAuthHandler(svc, &fakeUserGetter{}, nil)

		rec := serve(t, http.MethodPost, "/auth/login", "/auth/login",
			LoginRequest{Email: "learner@example.com", Password: "correct-horse-battery"}, uuid.Nil, h.Login)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, decodeBody[AuthResponse](t, rec).UserID)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	testCases := []struct {
		name       string
		body       interface{}
		err        error
		wantStatus int
	}{
		{"success", RefreshTokenRequest{RefreshToken: "refresh"}, nil, http.StatusOK},
		{"expired", RefreshTokenRequest{RefreshToken: "refresh"}, auth.ErrExpiredRefreshToken, http.StatusUnauthorized},
		{"access token", RefreshTokenRequest{RefreshToken: "access"}, auth.ErrWrongTokenType, http.StatusUnauthorized},
		{"missing", RefreshTokenRequest{}, nil, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeAuthService{
				RefreshFn: func(context.Context, string) (*auth.TokenPair, error) {
					if tc.err != nil {
						return nil, tc.err
					}
					return testPair(), nil
				},
			}
			h := NewAuthHandler(svc, &fakeUserGetter{}, nil)

			rec := serve(t, http.MethodPost, "/auth/refresh", "/auth/refresh", tc.body, uuid.Nil, h.RefreshToken)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				resp := decodeBody[RefreshTokenResponse](t, rec)
				assert.Equal(t, "access", resp.AccessToken)
				assert.Equal(t, "refresh", resp.RefreshToken)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(24 * time.Hour)
	user := &domain.User{
		ID:            uuid.New(),
		Email:         "learner@example.com",
		Plan:          domain.PlanPremium,
		PlanExpiresAt: &expires,
	}

	t.Run("premium user", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthService{}, &fakeUserGetter{user: user}, nil)
		h.now = func() time.Time { return now }

		rec := serve(t, http.MethodGet, "/me", "/me", nil, user.ID, h.Me)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[MeResponse](t, rec)
		assert.Equal(t, user.Email, resp.Email)
		assert.True(t, resp.Premium)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthService{}, &fakeUserGetter{user: user}, nil)

		rec := serve(t, http.MethodGet, "/me", "/me", nil, uuid.Nil, h.Me)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthService{}, &fakeUserGetter{err: store.ErrUserNotFound}, nil)

		rec := serve(t, http.MethodGet, "/me", "/me", nil, uuid.New(), h.Me)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthHandler_DeleteAccount(t *testing.T) {
	userID := uuid.New()

	testCases := []struct {
		name       string
		userID     uuid.UUID
		err        error
		wantStatus int
	}{
		{"deleted", userID, nil, http.StatusNoContent},
		{"already gone", userID, store.ErrUserNotFound, http.StatusNotFound},
		{"store failure", userID, errors.New("connection reset"), http.StatusInternalServerError},
		{"unauthenticated", uuid.Nil, nil, http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var deleted uuid.UUID
			svc := &fakeAuthService{
				DeleteFn: func(_ context.Context, id uuid.UUID) error {
					deleted = id
					return tc.err
				},
			}
			h := NewAuthHandler(svc, &fakeUserGetter{}, nil)

			rec := serve(t, http.MethodDelete, "/me", "/me", nil, tc.userID, h.DeleteAccount)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.userID != uuid.Nil {
				assert.Equal(t, tc.userID, deleted)
			}
		})
	}
}
