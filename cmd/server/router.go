package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/studykit-api/internal/api"
	apiMiddleware "github.com/phrazzld/studykit-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(app.logger))
	r.Use(apiMiddleware.Metrics)
	r.Use(middleware.Recoverer)

	authHandler := api.NewAuthHandler(app.authService, app.userStore, app.logger)
	cardHandler := api.NewCardHandler(app.cardService, app.logger)
	reviewHandler := api.NewReviewHandler(app.reviewService, app.usageService, app.logger)
	tutorHandler := api.NewTutorHandler(app.tutorService, app.logger)
	usageHandler := api.NewUsageHandler(app.usageService, app.logger)
	healthHandler := api.NewHealthHandler(app.db)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/me", authHandler.Me)
			r.Delete("/me", authHandler.DeleteAccount)

			// Card review endpoints
			r.Get("/cards/next", reviewHandler.GetNextReviewCard)
			r.Post("/cards/{id}/answer", reviewHandler.SubmitAnswer)
			r.Post("/cards/{id}/postpone", reviewHandler.PostponeCard)
			r.Get("/progress", reviewHandler.GetProgress)

			// Card management endpoints
			r.Get("/cards", cardHandler.ListCards)
			r.Post("/cards", cardHandler.CreateCard)
			r.Post("/cards/generate", cardHandler.GenerateCards)
			r.Get("/cards/{id}", cardHandler.GetCard)
			r.Put("/cards/{id}", cardHandler.EditCard)
			r.Delete("/cards/{id}", cardHandler.DeleteCard)

			// Tutor endpoints
			r.Post("/tutor/chat", tutorHandler.Chat)
			r.Post("/tutor/summarize", tutorHandler.Summarize)
			r.Post("/tutor/study-plan", tutorHandler.StudyPlan)

			// Usage endpoints
			r.Get("/usage", usageHandler.ListUsage)
			r.Get("/usage/{feature}", usageHandler.GetFeatureUsage)
		})
	})

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
