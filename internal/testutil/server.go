// Shared test server setup utilities, which simplify all API tests.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/akirol/trainwatch/internal/api"
	"github.com/akirol/trainwatch/internal/config"
	"github.com/akirol/trainwatch/internal/core"
	"github.com/akirol/trainwatch/internal/monitor"
	"github.com/akirol/trainwatch/internal/trainer"
	"github.com/akirol/trainwatch/internal/websocket"
)

// SetupTestApp initializes a core.App backed by an in-memory database and a
// fake trainer engine.
func SetupTestApp(t *testing.T) (*core.App, *FakeEngine) {
	t.Helper()
	database := SetupTestDB(t)
	engine := NewFakeEngine(t)

	cfg := &config.Config{}
	cfg.Trainer.URL = engine.URL()
	cfg.Runs.Retention = 200

	hub := websocket.NewHub()
	go hub.Run()

	app := &core.App{
		Config:  cfg,
		DB:      database,
		WsHub:   hub,
		Monitor: monitor.New(),
		Trainer: trainer.NewClient(engine.URL()),
		Version: "test",
	}
	return app, engine
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB, *FakeEngine) {
	t.Helper()
	app, engine := SetupTestApp(t)
	server := api.NewServer(app)
	return server, app.DB, engine
}
