// Package server exposes the routine builder and workout session engine
// over a REST API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jjcxdev/yokd/internal/draft"
	"github.com/jjcxdev/yokd/internal/session"
	"github.com/jjcxdev/yokd/internal/storage"
	"tailscale.com/client/local"
)

// Compile-time check: *storage.DB satisfies the engine contracts.
var (
	_ draft.RoutineCreator = (*storage.DB)(nil)
	_ session.Store        = (*storage.DB)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	drafts   *draft.Manager
	sessions *session.Controller
	log      *slog.Logger
	apiKey   string
	ts       *local.Client
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, drafts *draft.Manager, sessions *session.Controller, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:       db,
		drafts:   drafts,
		sessions: sessions,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale enables identity resolution through the tsnet local client.
// Without it every request maps to the local dev user.
func (s *Server) SetTailscale(lc *local.Client) {
	s.ts = lc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.Identity)

		r.Get("/me", s.handleMe)
		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}/history", s.handleExerciseHistory)
		r.Get("/folders", s.handleListFolders)
		r.Get("/routines", s.handleListRoutines)
		r.Get("/routines/{id}", s.handleGetRoutine)
		r.Get("/draft", s.handleGetDraft)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Get("/sessions/{id}/timer", s.handleTimerStream)

		// Mutating routes require the API key.
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))

			r.Post("/folders", s.handleCreateFolder)
			r.Delete("/routines/{id}", s.handleDeleteRoutine)

			r.Post("/draft/exercises", s.handleDraftAddExercises)
			r.Delete("/draft/exercises/{exerciseID}", s.handleDraftRemoveExercise)
			r.Patch("/draft", s.handleDraftPatch)
			r.Post("/draft/exercises/{exerciseID}/sets", s.handleDraftSetOp)
			r.Post("/draft/save", s.handleDraftSave)
			r.Post("/draft/cancel", s.handleDraftCancel)

			r.Post("/routines/{id}/sessions", s.handleStartSession)
			r.Post("/sessions/{id}/sets", s.handleSessionSetOp)
			r.Post("/sessions/{id}/sets/complete", s.handleSessionCompleteSet)
			r.Post("/sessions/{id}/rest", s.handleSessionSetRest)
			r.Post("/sessions/{id}/finish", s.handleFinishSession)
			r.Post("/sessions/{id}/cancel", s.handleCancelSession)
		})
	})
}
