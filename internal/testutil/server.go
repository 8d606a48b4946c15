// A shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/rehberapp/rehber-go/internal/api"
	"github.com/rehberapp/rehber-go/internal/config"
	"github.com/rehberapp/rehber-go/internal/core"
	"github.com/rehberapp/rehber-go/internal/transfer"
	"github.com/rehberapp/rehber-go/internal/transfer/mockmebbis"
	"github.com/rehberapp/rehber-go/internal/websocket"
)

// SetupTestApp builds a core.App on an in-memory database with a running
// websocket hub.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	cfg := &config.Config{}
	cfg.Mebbis.AuthTimeoutMins = 1
	cfg.Mebbis.ItemTimeoutMins = 1
	cfg.Mebbis.RetentionMins = 10
	cfg.Analytics.CacheTTLMins = 15

	hub := websocket.NewHub()
	app := core.NewFromComponents(cfg, db, hub)
	go hub.Run()
	return app
}

// SetupTestServer initializes a full core.App and api.Server for
// integration testing. Transfers run against the mock MEBBIS driver.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t)

	server := api.NewServer(app)
	server.SetDriverFactory(func() transfer.Driver {
		return mockmebbis.New()
	})
	return server, app.DB()
}
