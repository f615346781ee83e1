package routes

import (
	"net/http"

	"github.com/daybookhq/daybook/internal/app"
	"github.com/daybookhq/daybook/internal/handler"
	"github.com/daybookhq/daybook/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler()
	auth := handler.NewAuthHandler(app.AuthService)
	entry := handler.NewEntryHandler(app.JournalService, app.InsightService, app.GoalService)
	goal := handler.NewGoalHandler(app.GoalService, app.JournalService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /{$}", health.Root)

	// Registration and token issuance (rate limited)
	rateLimiter := middleware.RateLimitAuth()

	mux.HandleFunc("POST /users/", rateLimiter(auth.Register))
	mux.HandleFunc("POST /token", rateLimiter(auth.Token))

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("GET /users/me/", middleware.RequireAuth(auth.Me))

	// Journal entries
	mux.HandleFunc("POST /journal-entries/", middleware.RequireAuth(entry.Create))
	mux.HandleFunc("GET /journal-entries/", middleware.RequireAuth(entry.List))
	mux.HandleFunc("GET /journal-entries/insights/summary", middleware.RequireAuth(entry.Summary))
	mux.HandleFunc("GET /journal-entries/{id}", middleware.RequireAuth(entry.Get))
	mux.HandleFunc("PUT /journal-entries/{id}", middleware.RequireAuth(entry.Update))
	mux.HandleFunc("GET /journal-entries/{id}/insights", middleware.RequireAuth(entry.Insights))
	mux.HandleFunc("POST /journal-entries/{id}/goal-progress", middleware.RequireAuth(entry.LinkGoalProgress))

	// Adaptive questions
	mux.HandleFunc("POST /generate-questions/", middleware.RequireAuth(entry.GenerateQuestions))

	// Goals
	mux.HandleFunc("POST /goals/", middleware.RequireAuth(goal.Create))
	mux.HandleFunc("GET /goals/", middleware.RequireAuth(goal.List))
	mux.HandleFunc("GET /goals/analytics", middleware.RequireAuth(goal.Analytics))
	mux.HandleFunc("GET /goals/{id}", middleware.RequireAuth(goal.Get))
	mux.HandleFunc("PUT /goals/{id}", middleware.RequireAuth(goal.Update))
	mux.HandleFunc("DELETE /goals/{id}", middleware.RequireAuth(goal.Delete))
	mux.HandleFunc("POST /goals/{id}/progress", middleware.RequireAuth(goal.CreateProgress))
	mux.HandleFunc("GET /goals/{id}/progress", middleware.RequireAuth(goal.ListProgress))

	// Global middleware - executed in order (top to bottom)
	h := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.CORS(app.Cfg.AllowedOrigins),
		middleware.RequestLogging,
		middleware.Auth(app.AuthService),
	)

	return h
}
