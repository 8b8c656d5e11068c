package core

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"github.com/akirol/trainwatch/internal/config"
	"github.com/akirol/trainwatch/internal/db"
	"github.com/akirol/trainwatch/internal/models"
	"github.com/akirol/trainwatch/internal/monitor"
	"github.com/akirol/trainwatch/internal/store"
	"github.com/akirol/trainwatch/internal/trainer"
	"github.com/akirol/trainwatch/internal/websocket"
)

// App holds the core components of the application that are shared
// between the server, the pollers and the push-channel subscriber.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	WsHub   *websocket.Hub
	Monitor *monitor.Reconciler
	Trainer *trainer.Client
	Version string

	statsMu   sync.Mutex
	lastStats *models.SystemStats
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New() (*App, error) {
	// Load configuration from config.yml
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize the database connection
	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	if err := db.RunMigrations(database); err != nil {
		// We can't proceed without a valid database schema.
		// Close the DB connection before failing.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	app := &App{
		Config:  cfg,
		DB:      database,
		WsHub:   hub,
		Monitor: monitor.New(),
		Trainer: trainer.NewClient(cfg.Trainer.URL),
		Version: "dev",
	}

	// Persist a summary whenever a run reaches a terminal state, and tell
	// connected consoles about it.
	st := store.New(database)
	app.Monitor.SetRunSink(func(run models.RunSummary) {
		if _, err := st.SaveRunSummary(&run); err != nil {
			log.Printf("Failed to persist run summary: %v", err)
		}
		hub.BroadcastJSON(map[string]interface{}{"event": "run_finished", "data": run})
	})

	log.Println("Core application setup complete.")
	return app, nil
}

// SetSystemStats records the most recent GPU/system stats poll.
func (a *App) SetSystemStats(stats models.SystemStats) {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	a.lastStats = &stats
}

// SystemStats returns the last polled stats, or nil if no poll has succeeded yet.
func (a *App) SystemStats() *models.SystemStats {
	a.statsMu.Lock()
	defer a.statsMu.Unlock()
	if a.lastStats == nil {
		return nil
	}
	stats := *a.lastStats
	return &stats
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
