package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/studykit-api/internal/config"
	"github.com/phrazzld/studykit-api/internal/domain"
	"github.com/phrazzld/studykit-api/internal/domain/entitlement"
	"github.com/phrazzld/studykit-api/internal/domain/srs"
	"github.com/phrazzld/studykit-api/internal/generation"
	"github.com/phrazzld/studykit-api/internal/platform/gemini"
	"github.com/phrazzld/studykit-api/internal/platform/postgres"
	"github.com/phrazzld/studykit-api/internal/redact"
	"github.com/phrazzld/studykit-api/internal/service/auth"
	"github.com/phrazzld/studykit-api/internal/service/card"
	"github.com/phrazzld/studykit-api/internal/service/review"
	"github.com/phrazzld/studykit-api/internal/service/tutor"
	"github.com/phrazzld/studykit-api/internal/service/usage"
	"github.com/phrazzld/studykit-api/internal/store"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore        store.UserStore
	cardStore        store.CardStore
	memoryStateStore store.CardMemoryStateStore
	usageStore       store.UsageCounterStore

	jwtService    auth.JWTService
	generator     generation.Generator
	scheduler     srs.Service
	authService   *auth.Service
	usageService  *usage.Service
	cardService   *card.Service
	reviewService review.Service
	tutorService  *tutor.Service
}

// newApplication creates the application with a Gemini backed generator.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	generator, err := gemini.NewGenerator(ctx, logger.With(slog.String("component", "llm_generator")), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized", slog.String("model", cfg.LLM.ModelName))

	return newApplicationWithGenerator(cfg, logger, db, generator)
}

// newApplicationWithGenerator wires stores and services around an existing
// generator.
func newApplicationWithGenerator(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	generator generation.Generator,
) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		generator: generator,
	}

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.memoryStateStore = postgres.NewPostgresCardMemoryStateStore(db, logger)
	app.usageStore = postgres.NewPostgresUsageCounterStore(db, logger)

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	app.authService, err = auth.NewService(app.userStore, app.jwtService, auth.NewBcryptVerifier(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	policy, err := policyFromConfig(cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to build usage policy: %w", err)
	}
	app.usageService, err = usage.NewService(db, app.userStore, app.usageStore, policy, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage service: %w", err)
	}

	app.cardService, err = card.NewService(db, app.cardStore, generator, app.usageService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create card service: %w", err)
	}

	app.scheduler = srs.NewServiceWithParams(srsParamsFromConfig(cfg.SRS))
	app.reviewService = review.NewService(db, app.cardStore, app.memoryStateStore, app.scheduler, logger)

	app.tutorService, err = tutor.NewService(generator, app.usageService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create tutor service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// srsParamsFromConfig applies the configured scheduler overrides on top of
// the defaults.
func srsParamsFromConfig(cfg config.SRSConfig) *srs.Params {
	return srs.NewParams(srs.ParamsConfig{
		MinEaseFactor:        cfg.MinEaseFactor,
		InitialEaseFactor:    cfg.InitialEaseFactor,
		CorrectEaseBonus:     cfg.CorrectEaseBonus,
		IncorrectEasePenalty: cfg.IncorrectEasePenalty,
		InitialIntervalDays:  cfg.InitialIntervalDays,
		LapseIntervalDays:    cfg.LapseIntervalDays,
		MaxIntervalDays:      cfg.MaxIntervalDays,
		MasteryMinCorrect:    cfg.MasteryMinCorrect,
		MasteryMinAccuracy:   cfg.MasteryMinAccuracy,
	})
}

// policyFromConfig converts the configured per-feature limits into an
// entitlement policy. Every metered feature must be configured.
func policyFromConfig(limits config.LimitsConfig) (entitlement.Policy, error) {
	byFeature := limits.ByFeature()
	out := make(map[string]entitlement.FeatureLimit, len(byFeature))
	for _, featureID := range domain.Features {
		l, ok := byFeature[featureID]
		if !ok {
			return nil, fmt.Errorf("%w: no limit configured for %s", domain.ErrInvalidFeature, featureID)
		}
		period, err := domain.ParseResetPeriod(l.Period)
		if err != nil {
			return nil, fmt.Errorf("feature %s: %w", featureID, err)
		}
		out[featureID] = entitlement.FeatureLimit{Limit: l.Limit, Period: period}
	}
	return entitlement.NewPolicy(out)
}

// Run serves HTTP until ctx is cancelled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", redact.Error(err)))
		}
	}
	app.logger.Info("application shutdown completed")
}
