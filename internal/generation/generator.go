package generation

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
)

// Roles of a chat message.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a tutor conversation.
type Message struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// StudyPlanDay is the work scheduled for one day of a plan.
type StudyPlanDay struct {
	Day   int      `json:"day"`
	Focus string   `json:"focus"`
	Tasks []string `json:"tasks"`
}

// StudyPlan is a day-by-day plan towards a learning goal.
type StudyPlan struct {
	Goal string         `json:"goal"`
	Days []StudyPlanDay `json:"days"`
}

// Generator is implemented by language model backends.
type Generator interface {
	// GenerateCards creates flashcards owned by userID from text. The cards
	// are validated but not stored.
	GenerateCards(ctx context.Context, text string, userID uuid.UUID, deckID string) ([]*domain.Card, error)

	// Summarize condenses study notes.
	Summarize(ctx context.Context, text string) (string, error)

	// Chat answers message given the earlier turns of the conversation.
	Chat(ctx context.Context, history []Message, message string) (string, error)

	// StudyPlan builds a plan spanning days towards goal.
	StudyPlan(ctx context.Context, goal string, days int) (*StudyPlan, error)
}
