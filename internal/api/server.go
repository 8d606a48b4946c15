// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rehberapp/rehber-go/internal/analytics"
	"github.com/rehberapp/rehber-go/internal/core"
	"github.com/rehberapp/rehber-go/internal/store"
	"github.com/rehberapp/rehber-go/internal/transfer"
	"github.com/rehberapp/rehber-go/internal/transfer/mebbisweb"
)

// Server holds the dependencies for our API.
type Server struct {
	app           *core.App
	db            *sql.DB
	store         *store.Store
	insights      *analytics.Service
	runner        *transfer.Runner
	driverFactory func() transfer.Driver
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// SetDriverFactory overrides how MEBBIS drivers are built. Tests use this
// to swap in the mock portal driver.
func (s *Server) SetDriverFactory(f func() transfer.Driver) {
	s.driverFactory = f
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	cfg := app.Config()
	storeInstance := store.New(app.DB())

	emitter := transfer.NewEmitter(app.TransferRegistry(), app.WsHub())
	runner := transfer.NewRunner(
		app.TransferRegistry(),
		emitter,
		syncRecorder{storeInstance},
		time.Duration(cfg.Mebbis.AuthTimeoutMins)*time.Minute,
		time.Duration(cfg.Mebbis.ItemTimeoutMins)*time.Minute,
	)

	return &Server{
		app:      app,
		db:       app.DB(),
		store:    storeInstance,
		insights: analytics.New(storeInstance, time.Duration(cfg.Analytics.CacheTTLMins)*time.Minute),
		runner:   runner,
		driverFactory: func() transfer.Driver {
			return mebbisweb.New(cfg.Mebbis.BaseURL)
		},
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/users/login", s.handleLogin)
	r.Get("/api/version", s.handleGetVersion)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Post("/api/users/logout", s.handleLogout)
		r.Get("/api/users/me", s.handleGetMe)

		r.Route("/api", func(r chi.Router) {
			// Student Routes
			r.Get("/students", s.handleListStudents)
			r.Post("/students", s.handleCreateStudent)
			r.Get("/students/{studentID}", s.handleGetStudent)
			r.Put("/students/{studentID}", s.handleUpdateStudent)
			r.Delete("/students/{studentID}", s.handleDeleteStudent)
			r.Post("/students/{studentID}/photo", s.handleUploadStudentPhoto)

			// Counseling Session Routes
			r.Get("/students/{studentID}/sessions", s.handleListSessions)
			r.Post("/students/{studentID}/sessions", s.handleCreateSession)
			r.Put("/sessions/{sessionID}", s.handleUpdateSession)
			r.Delete("/sessions/{sessionID}", s.handleDeleteSession)

			// Behavior Incident Routes
			r.Get("/students/{studentID}/incidents", s.handleListIncidents)
			r.Post("/students/{studentID}/incidents", s.handleCreateIncident)
			r.Delete("/incidents/{incidentID}", s.handleDeleteIncident)

			// Survey Routes
			r.Get("/surveys", s.handleListSurveyTemplates)
			r.Post("/surveys", s.handleCreateSurveyTemplate)
			r.Get("/surveys/{templateID}", s.handleGetSurveyTemplate)
			r.Get("/surveys/by-name/{name}/latest", s.handleGetLatestSurveyTemplate)
			r.Post("/surveys/{templateID}/responses", s.handleSubmitSurveyResponse)
			r.Get("/students/{studentID}/survey-responses", s.handleListSurveyResponses)

			// Analytics Routes
			r.Get("/analytics/insights", s.handleGetInsights)

			// MEBBIS Transfer Routes
			r.Post("/mebbis/start-transfer", s.handleStartTransfer)
			r.Post("/mebbis/cancel-transfer", s.handleCancelTransfer)
			r.Get("/mebbis/transfers/{transferID}", s.handleGetTransfer)

			// Admin Routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(s.AdminOnlyMiddleware)

				r.Get("/jobs/status", s.handleGetAdminJobsStatus)
				r.Post("/jobs/run", s.handleRunAdminJob)

				r.Get("/users", s.handleAdminListUsers)
				r.Post("/users", s.handleAdminCreateUser)
				r.Put("/users/{userID}", s.handleAdminUpdateUser)
				r.Delete("/users/{userID}", s.handleAdminDeleteUser)
			})
		})
	})

	// WebSocket route. Transfer progress and job progress both flow over
	// this connection.
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// syncRecorder flags counseling sessions as synced once their transfer
// item has been accepted by the portal.
type syncRecorder struct {
	st *store.Store
}

func (r syncRecorder) RecordItemSynced(item transfer.Item) {
	if err := r.st.MarkSessionSynced(item.SessionID); err != nil {
		log.Printf("transfer: session %d transferred but not flagged as synced: %v", item.SessionID, err)
	}
}
