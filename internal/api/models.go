package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
)

// Auth

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	// ExpiresAt is the RFC 3339 timestamp when the access token expires.
	ExpiresAt string `json:"expires_at"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// MeResponse is the profile of the authenticated user.
type MeResponse struct {
	ID            uuid.UUID   `json:"id"`
	Email         string      `json:"email"`
	Plan          domain.Plan `json:"plan"`
	PlanExpiresAt *time.Time  `json:"plan_expires_at,omitempty"`
	Premium       bool        `json:"premium"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Cards

// CardRequest is the payload for creating a card.
type CardRequest struct {
	DeckID  string          `json:"deck_id" validate:"max=100"`
	Content json.RawMessage `json:"content" validate:"required"`
}

// UpdateCardRequest is the payload for replacing a card's content.
type UpdateCardRequest struct {
	Content json.RawMessage `json:"content" validate:"required"`
}

// GenerateCardsRequest is the payload for AI flashcard generation.
type GenerateCardsRequest struct {
	Text   string `json:"text"    validate:"required,max=50000"`
	DeckID string `json:"deck_id" validate:"max=100"`
}

// CardResponse represents the response data for a card.
type CardResponse struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	DeckID    string            `json:"deck_id,omitempty"`
	Content   json.RawMessage   `json:"content"`
	Source    domain.CardSource `json:"source"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CardListResponse wraps a page of cards.
type CardListResponse struct {
	Cards  []CardResponse `json:"cards"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func cardToResponse(card *domain.Card) CardResponse {
	return CardResponse{
		ID:        card.ID.String(),
		UserID:    card.UserID.String(),
		DeckID:    card.DeckID,
		Content:   card.Content,
		Source:    card.Source,
		CreatedAt: card.CreatedAt,
		UpdatedAt: card.UpdatedAt,
	}
}

func cardsToResponse(cards []*domain.Card) []CardResponse {
	out := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardToResponse(c))
	}
	return out
}

// Review

// SubmitAnswerRequest is the payload for recording a review outcome.
// Correct is a pointer so that a missing field fails validation.
type SubmitAnswerRequest struct {
	Correct *bool `json:"correct" validate:"required"`
}

// PostponeCardRequest is the payload for postponing a card's next review.
type PostponeCardRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

// MemoryStateResponse is a card's review state after an update.
type MemoryStateResponse struct {
	CardID         string    `json:"card_id"`
	TimesReviewed  int       `json:"times_reviewed"`
	CorrectCount   int       `json:"correct_count"`
	IncorrectCount int       `json:"incorrect_count"`
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   float64   `json:"interval_days"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
	NextReviewAt   time.Time `json:"next_review_at"`
	IsMastered     bool      `json:"is_mastered"`
	Accuracy       float64   `json:"accuracy"`
}

func memoryStateToResponse(s *domain.CardMemoryState) MemoryStateResponse {
	return MemoryStateResponse{
		CardID:         s.CardID.String(),
		TimesReviewed:  s.TimesReviewed,
		CorrectCount:   s.CorrectCount,
		IncorrectCount: s.IncorrectCount,
		EaseFactor:     s.EaseFactor,
		IntervalDays:   s.IntervalDays,
		LastReviewedAt: s.LastReviewedAt,
		NextReviewAt:   s.NextReviewAt,
		IsMastered:     s.IsMastered,
		Accuracy:       s.Accuracy(),
	}
}

// Tutor

// ChatRequest is one turn of a tutoring conversation.
type ChatRequest struct {
	History []generation.Message `json:"history" validate:"omitempty,dive"`
	Message string               `json:"message" validate:"required,max=4000"`
}

// ChatResponse is the tutor's reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// SummarizeRequest is the payload for note summarization.
type SummarizeRequest struct {
	Text string `json:"text" validate:"required,max=50000"`
}

// SummarizeResponse carries the generated summary.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// StudyPlanRequest is the payload for study plan generation.
type StudyPlanRequest struct {
	Goal string `json:"goal" validate:"required,max=1000"`
	Days int    `json:"days" validate:"required,min=1,max=30"`
}
