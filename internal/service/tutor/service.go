// Package tutor exposes the AI study helpers: conversational tutoring, note
// summaries and study plans. Every call is metered by its own quota.
package tutor

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/redact"
)

// Study plan bounds.
const (
	MinPlanDays = 1
	MaxPlanDays = 30
)

// MaxHistory is the number of most recent chat messages sent to the model.
const MaxHistory = 20

var (
	// ErrInvalidPlanDays is returned for a plan length outside
	// [MinPlanDays, MaxPlanDays].
	ErrInvalidPlanDays = errors.New("study plan days out of range")

	// ErrInvalidHistory is returned when a chat history message has an
	// unknown role or no text.
	ErrInvalidHistory = errors.New("invalid chat history")
)

// Meter runs a metered action and counts it only when fn succeeds.
type Meter interface {
	Run(ctx context.Context, userID uuid.UUID, featureID string, fn func(context.Context) error) error
}

// Service runs the AI tutor features.
type Service struct {
	generator generation.Generator
	meter     Meter
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService creates a tutor Service.
func NewService(generator generation.Generator, meter Meter, logger *slog.Logger) (*Service, error) {
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
		generator: generator,
		meter:     meter,
		validate:  validator.New(),
		logger:    logger.With(slog.String("component", "tutor_service")),
	}, nil
}

// Chat answers message in the context of history. Only the last MaxHistory
// messages are forwarded.
func (s *Service) Chat(
	ctx context.Context,
	userID uuid.UUID,
	history []generation.Message,
	message string,
) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", generation.ErrEmptyInput
	}
	for i := range history {
		if err := s.validate.Struct(history[i]); err != nil {
			return "", ErrInvalidHistory
		}
	}
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}

	var reply string
	err := s.run(ctx, userID, domain.FeatureAIChat, func(ctx context.Context) error {
		var err error
		reply, err = s.generator.Chat(ctx, history, message)
		return err
	})
	return reply, err
}

// Summarize condenses study notes.
func (s *Service) Summarize(ctx context.Context, userID uuid.UUID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", generation.ErrEmptyInput
	}

	var summary string
	err := s.run(ctx, userID, domain.FeatureNoteSummary, func(ctx context.Context) error {
		var err error
		summary, err = s.generator.Summarize(ctx, text)
		return err
	})
	return summary, err
}

// StudyPlan builds a day-by-day plan towards goal.
func (s *Service) StudyPlan(
	ctx context.Context,
	userID uuid.UUID,
	goal string,
	days int,
) (*generation.StudyPlan, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, generation.ErrEmptyInput
	}
	if days < MinPlanDays || days > MaxPlanDays {
		return nil, ErrInvalidPlanDays
	}

	var plan *generation.StudyPlan
	err := s.run(ctx, userID, domain.FeatureStudyPlan, func(ctx context.Context) error {
		var err error
		plan, err = s.generator.StudyPlan(ctx, goal, days)
		return err
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) run(ctx context.Context, userID uuid.UUID, featureID string, fn func(context.Context) error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.meter.Run(ctx, userID, featureID, fn); err != nil {
		log.Warn("tutor request failed",
			slog.String("error", redact.Error(err)),
			slog.String("user_id", userID.String()),
			slog.String("feature_id", featureID))
		return err
	}

	log.Debug("tutor request completed",
		slog.String("user_id", userID.String()),
		slog.String("feature_id", featureID))
	return nil
}
