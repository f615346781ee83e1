package app

import (
	"fmt"

	"github.com/daybookhq/daybook/internal/config"
	"github.com/daybookhq/daybook/internal/db"
	"github.com/daybookhq/daybook/internal/gemini"
	"github.com/daybookhq/daybook/internal/repository"
	"github.com/daybookhq/daybook/internal/service"
	"github.com/jmoiron/sqlx"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	AuthService    *service.AuthService
	JournalService *service.JournalService
	GoalService    *service.GoalService
	InsightService *service.InsightService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	entryRepository := repository.NewEntryRepository(database)
	goalRepository := repository.NewGoalRepository(database)
	progressRepository := repository.NewProgressRepository(database)

	// Remote generative model
	model := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, cfg.GeminiTimeout)

	// Services
	authService := service.NewAuthService(userRepository, cfg.JWTSecret, cfg.JWTExpiry)
	journalService := service.NewJournalService(entryRepository)
	goalService := service.NewGoalService(goalRepository, progressRepository)
	insightService := service.NewInsightService(model, entryRepository)

	return &App{
		Cfg:            cfg,
		DB:             database,
		AuthService:    authService,
		JournalService: journalService,
		GoalService:    goalService,
		InsightService: insightService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
