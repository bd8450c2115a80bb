// Package main implements the entry point for the studykit API server,
// which serves flashcards, spaced repetition reviews and metered AI
// tutoring features to the mobile app.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/phrazzld/studykit-api/internal/config"
	"github.com/phrazzld/studykit-api/internal/platform/logger"
	"github.com/phrazzld/studykit-api/internal/platform/postgres"
	"github.com/phrazzld/studykit-api/internal/redact"
)

// options are the command line flags of the server binary.
type options struct {
	migrate     string
	setPlan     string
	email       string
	planExpires string
}

func main() {
	var opts options
	flag.StringVar(&opts.migrate, "migrate", "",
		"run a database migration command (up, down, reset, status, version) and exit")
	flag.StringVar(&opts.setPlan, "set-plan", "",
		"set the subscription plan (free, premium) of the user given by -email and exit")
	flag.StringVar(&opts.email, "email", "", "user email for -set-plan")
	flag.StringVar(&opts.planExpires, "plan-expires", "",
		"optional RFC3339 expiry for -set-plan premium; empty means no expiry")
	flag.Parse()

	if err := run(context.Background(), opts); err != nil {
		slog.Error("studykit-api exited with error", slog.String("error", redact.Error(err)))
		os.Exit(1)
	}
}

// run loads configuration, connects to the database and either executes an
// operator command or serves HTTP until a shutdown signal arrives.
func run(ctx context.Context, opts options) error {
	var change *planChange
	if opts.setPlan != "" {
		var err error
		if change, err = parsePlanChange(opts.email, opts.setPlan, opts.planExpires, time.Now()); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel))

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if opts.migrate != "" || change != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("error closing database connection", slog.String("error", redact.Error(err)))
			}
		}()
		if opts.migrate != "" {
			return postgres.Migrate(ctx, db, opts.migrate, log)
		}
		users := postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, log)
		return applyPlanChange(ctx, users, change, log)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
