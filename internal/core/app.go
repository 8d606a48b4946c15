package core

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/rehberapp/rehber-go/internal/config"
	"github.com/rehberapp/rehber-go/internal/db"
	"github.com/rehberapp/rehber-go/internal/jobs"
	"github.com/rehberapp/rehber-go/internal/transfer"
	"github.com/rehberapp/rehber-go/internal/websocket"
	"github.com/rehberapp/rehber-go/migrations"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	config     *config.Config
	db         *sql.DB
	wsHub      *websocket.Hub
	jobManager *jobs.JobManager
	registry   *transfer.Registry
	version    string
}

// New sets up and returns a new App instance. It handles loading the
// configuration, initializing the database connection, and running migrations.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, migrations.FS); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	app := NewFromComponents(cfg, database, websocket.NewHub())
	app.version = version
	go app.wsHub.Run()

	log.Println("Core application setup complete.")
	return app, nil
}

// NewFromComponents assembles an App from pre-built pieces. Tests use this
// to inject an in-memory database and an already-running hub.
func NewFromComponents(cfg *config.Config, database *sql.DB, hub *websocket.Hub) *App {
	app := &App{
		config:   cfg,
		db:       database,
		wsHub:    hub,
		registry: transfer.NewRegistry(time.Duration(cfg.Mebbis.RetentionMins) * time.Minute),
	}
	app.jobManager = jobs.NewManager(app)
	hub.SetSnapshotProvider(snapshotAdapter{app.registry})
	return app
}

func (a *App) Config() *config.Config              { return a.config }
func (a *App) DB() *sql.DB                         { return a.db }
func (a *App) WsHub() *websocket.Hub               { return a.wsHub }
func (a *App) JobManager() *jobs.JobManager        { return a.jobManager }
func (a *App) TransferRegistry() *transfer.Registry { return a.registry }
func (a *App) Version() string                     { return a.version }

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// snapshotAdapter lets the hub replay transfer snapshots to late
// subscribers without the websocket package importing the transfer package.
type snapshotAdapter struct {
	registry *transfer.Registry
}

func (s snapshotAdapter) Snapshot(jobID string) (interface{}, bool) {
	snap, err := s.registry.Snapshot(jobID)
	if err != nil {
		return nil, false
	}
	return snap, true
}
