package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/phrazzld/studykit-api/internal/config"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/generation"
	"google.golang.org/genai"
)

// MaxCards is the most flashcards requested per generation.
const MaxCards = 20

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
	maxRetryInterval  = 30 * time.Second
)

// contentGenerator is the subset of *genai.Models used by Generator.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator with the Gemini API.
type Generator struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	maxRetries int
	retryDelay time.Duration
}

var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Generator with a new Gemini API client.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, client.Models, cfg)
}

func newGenerator(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: client cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	g := &Generator{
		logger:     logger.With(slog.String("component", "gemini_generator"), slog.String("model", cfg.ModelName)),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
	if g.maxRetries < 0 {
		g.logger.Warn("invalid max retries value, using default", slog.Int("max_retries", defaultMaxRetries))
		g.maxRetries = defaultMaxRetries
	}
	if g.retryDelay <= 0 {
		g.logger.Warn("invalid retry delay value, using default", slog.Duration("retry_delay", defaultRetryDelay))
		g.retryDelay = defaultRetryDelay
	}
	return g, nil
}

// GenerateCards implements generation.Generator.
func (g *Generator) GenerateCards(
	ctx context.Context,
	text string,
	userID uuid.UUID,
	deckID string,
) ([]*domain.Card, error) {
	if strings.TrimSpace(text) == "" {
		return nil, generation.ErrEmptyInput
	}

	prompt, err := renderPrompt(cardsPrompt, promptData{Text: text, MaxCards: MaxCards})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	raw, err := g.generate(ctx, userContents(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp cardsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return g.parseCards(ctx, resp, userID, deckID)
}

// parseCards converts the model response into validated cards. A single
// invalid card rejects the whole response.
func (g *Generator) parseCards(
	ctx context.Context,
	resp cardsResponse,
	userID uuid.UUID,
	deckID string,
) ([]*domain.Card, error) {
	if len(resp.Cards) == 0 {
		return nil, fmt.Errorf("%w: no cards in response", generation.ErrInvalidResponse)
	}
	if len(resp.Cards) > MaxCards {
		g.logger.WarnContext(ctx, "model returned too many cards, truncating",
			slog.Int("card_count", len(resp.Cards)))
		resp.Cards = resp.Cards[:MaxCards]
	}

	cards := make([]*domain.Card, 0, len(resp.Cards))
	for i, cs := range resp.Cards {
		if strings.TrimSpace(cs.Front) == "" {
			return nil, fmt.Errorf("%w: card %d missing front side", generation.ErrInvalidResponse, i)
		}
		if strings.TrimSpace(cs.Back) == "" {
			return nil, fmt.Errorf("%w: card %d missing back side", generation.ErrInvalidResponse, i)
		}

		card, err := domain.NewCardFromContent(userID, deckID, domain.CardContent{
			Front: cs.Front,
			Back:  cs.Back,
			Hint:  cs.Hint,
			Tags:  cs.Tags,
		}, domain.CardSourceAI)
		if err != nil {
			return nil, fmt.Errorf("%w: card %d: %v", generation.ErrInvalidResponse, i, err)
		}
		cards = append(cards, card)
	}

	g.logger.InfoContext(ctx, "parsed generated cards", slog.Int("card_count", len(cards)))
	return cards, nil
}

// Summarize implements generation.Generator.
func (g *Generator) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", generation.ErrEmptyInput
	}

	prompt, err := renderPrompt(summaryPrompt, promptData{Text: text})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	return g.generate(ctx, userContents(prompt), nil)
}

// Chat implements generation.Generator.
func (g *Generator) Chat(ctx context.Context, history []generation.Message, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", generation.ErrEmptyInput
	}

	system, err := renderPrompt(tutorPrompt, promptData{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := generation.RoleUser
		if m.Role == generation.RoleModel {
			role = generation.RoleModel
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Text}}})
	}
	contents = append(contents, userContents(message)...)

	return g.generate(ctx, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	})
}

// StudyPlan implements generation.Generator.
func (g *Generator) StudyPlan(ctx context.Context, goal string, days int) (*generation.StudyPlan, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, generation.ErrEmptyInput
	}
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", generation.ErrGenerationFailed)
	}

	prompt, err := renderPrompt(studyPlanPrompt, promptData{Goal: goal, Days: days})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	raw, err := g.generate(ctx, userContents(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var resp studyPlanResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	if len(resp.Days) == 0 {
		return nil, fmt.Errorf("%w: plan has no days", generation.ErrInvalidResponse)
	}

	plan := &generation.StudyPlan{Goal: goal, Days: make([]generation.StudyPlanDay, 0, len(resp.Days))}
	for i, d := range resp.Days {
		day := d.Day
		if day <= 0 {
			day = i + 1
		}
		plan.Days = append(plan.Days, generation.StudyPlanDay{Day: day, Focus: d.Focus, Tasks: d.Tasks})
	}
	return plan, nil
}

func userContents(text string) []*genai.Content {
	return []*genai.Content{{Role: generation.RoleUser, Parts: []*genai.Part{{Text: text}}}}
}

// generate calls the model with retries and returns the text of the first
// candidate.
func (g *Generator) generate(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.retryDelay
	exp.Multiplier = 2
	exp.MaxInterval = maxRetryInterval
	exp.MaxElapsedTime = 0
	exp.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.maxRetries)), ctx)

	attempt := 0
	text, err := backoff.RetryNotifyWithData(func() (string, error) {
		attempt++
		g.logger.DebugContext(ctx, "making Gemini API call",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", g.maxRetries+1))

		resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(ctx.Err())
			}
			return "", err
		}

		text, err := responseText(resp)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		return text, nil
	}, policy, func(err error, wait time.Duration) {
		g.logger.WarnContext(ctx, "Gemini API call failed, retrying",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait))
	})
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrContentBlocked), errors.Is(err, generation.ErrInvalidResponse):
			g.logger.WarnContext(ctx, "permanent Gemini error, not retrying", slog.String("error", err.Error()))
			return "", err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
		g.logger.ErrorContext(ctx, "Gemini API call failed",
			slog.String("error", err.Error()),
			slog.Int("attempts", attempt))
		return "", fmt.Errorf("%w: after %d attempts: %v", generation.ErrTransientFailure, attempt, err)
	}

	g.logger.InfoContext(ctx, "Gemini API call successful", slog.Int("attempt", attempt))
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return sb.String(), nil
}
