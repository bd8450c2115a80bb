package config

import (
	"time"

	"github.com/phrazzld/studykit-api/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Limits   LimitsConfig   `mapstructure:"limits" validate:"required"`
	SRS      SRSConfig      `mapstructure:"srs"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"gt=0,lte=1440"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0"`
}

// TokenLifetime returns the access token lifetime.
func (a AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(a.TokenLifetimeMinutes) * time.Minute
}

// RefreshTokenLifetime returns the refresh token lifetime.
func (a AuthConfig) RefreshTokenLifetime() time.Duration {
	return time.Duration(a.RefreshTokenLifetimeMinutes) * time.Minute
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// FeatureLimitConfig is the quota of one metered feature. A limit of -1
// means unlimited.
type FeatureLimitConfig struct {
	Limit  int    `mapstructure:"limit" validate:"gte=-1"`
	Period string `mapstructure:"period" validate:"required,oneof=daily weekly monthly"`
}

// LimitsConfig holds the free-plan quota of every metered feature.
type LimitsConfig struct {
	AIChat              FeatureLimitConfig `mapstructure:"ai_chat_sessions"`
	FlashcardGeneration FeatureLimitConfig `mapstructure:"ai_flashcard_generations"`
	NoteSummary         FeatureLimitConfig `mapstructure:"ai_note_summaries"`
	StudyPlan           FeatureLimitConfig `mapstructure:"study_plan_generations"`
	AnalyticsView       FeatureLimitConfig `mapstructure:"analytics_views"`
}

// ByFeature returns the limits keyed by feature identifier.
func (l LimitsConfig) ByFeature() map[string]FeatureLimitConfig {
	return map[string]FeatureLimitConfig{
		domain.FeatureAIChat:              l.AIChat,
		domain.FeatureFlashcardGeneration: l.FlashcardGeneration,
		domain.FeatureNoteSummary:         l.NoteSummary,
		domain.FeatureStudyPlan:           l.StudyPlan,
		domain.FeatureAnalyticsView:       l.AnalyticsView,
	}
}

// SRSConfig overrides the review scheduler parameters. Zero values keep the
// built-in defaults.
type SRSConfig struct {
	MinEaseFactor        float64 `mapstructure:"min_ease_factor" validate:"gte=0,lte=5"`
	InitialEaseFactor    float64 `mapstructure:"initial_ease_factor" validate:"gte=0,lte=5"`
	CorrectEaseBonus     float64 `mapstructure:"correct_ease_bonus" validate:"gte=0,lte=1"`
	IncorrectEasePenalty float64 `mapstructure:"incorrect_ease_penalty" validate:"gte=0,lte=1"`
	InitialIntervalDays  float64 `mapstructure:"initial_interval_days" validate:"gte=0,lte=365"`
	LapseIntervalDays    float64 `mapstructure:"lapse_interval_days" validate:"gte=0,lte=365"`
	MaxIntervalDays      float64 `mapstructure:"max_interval_days" validate:"gte=0,lte=365"`
	MasteryMinCorrect    int     `mapstructure:"mastery_min_correct" validate:"gte=0,lte=100"`
	MasteryMinAccuracy   float64 `mapstructure:"mastery_min_accuracy" validate:"gte=0,lte=1"`
}
