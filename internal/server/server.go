package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/rentdesk/internal/config"
	"github.com/michaelbrown/rentdesk/internal/directory"
	"github.com/michaelbrown/rentdesk/internal/llm"
	"github.com/michaelbrown/rentdesk/internal/presets"
)

// Server is the HTTP bridge between the back-office UI and the conversation
// orchestrator.
type Server struct {
	cfg      *config.Config
	store    directory.Store
	library  *presets.Library
	client   *llm.Client
	sessions *SessionManager
	router   chi.Router
	http     *http.Server
}

// New creates a new Server.
func New(cfg *config.Config, store directory.Store, library *presets.Library, client *llm.Client) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		library:  library,
		client:   client,
		sessions: NewSessionManager(),
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		// Sessions
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/sessions/{id}/reset", s.handleResetSession)

		// Conversation log
		r.Get("/sessions/{id}/messages", s.handleGetMessages)

		// WebSocket (no JSON content-type)
		r.Get("/sessions/{id}/ws", s.handleWebSocket)

		// Booking presets offered by the quick-booking tool
		r.Get("/presets", s.handleListPresets)
	})
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("rentdesk server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")
	s.sessions.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
