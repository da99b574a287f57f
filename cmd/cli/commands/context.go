package commands

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/clinic-allocator/internal/config"
	"github.com/jakechorley/clinic-allocator/pkg/clients/sheetsclient"
	"github.com/jakechorley/clinic-allocator/pkg/db"
	"github.com/jakechorley/clinic-allocator/pkg/postgres"
)

// AppContext holds the application dependencies shared across all commands.
// The sheets client and database are connected on first use.
type AppContext struct {
	Env    string
	Cfg    *config.Config
	Logger *zap.Logger
	Ctx    context.Context

	sheetsClient *sheetsclient.Client
	database     db.Database
}

// Sheets returns the Google Sheets client, running the OAuth flow if needed
func (app *AppContext) Sheets() (*sheetsclient.Client, error) {
	if app.sheetsClient != nil {
		return app.sheetsClient, nil
	}

	app.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	app.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(app.Ctx, oauthCfg, app.Env, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	app.Logger.Debug("Sheets client initialized successfully")

	app.sheetsClient = client
	return client, nil
}

// Database returns the run store, or nil when no database URL is configured
func (app *AppContext) Database() (db.Database, error) {
	if app.database != nil {
		return app.database, nil
	}
	if app.Cfg.DatabaseURL == "" {
		app.Logger.Debug("No database configured")
		return nil, nil
	}

	app.Logger.Info("Connecting to database")
	database, err := postgres.Open(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Logger.Info("Database initialized successfully")

	app.database = database
	return database, nil
}

// Close releases the database connection if one was opened
func (app *AppContext) Close() {
	if app.database != nil {
		app.database.Close()
		app.database = nil
	}
}
