// Package server provides the HTTP and websocket front end for avatar tracking.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dkinzer222/avatarai/internal/app"
	"github.com/dkinzer222/avatarai/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
}

// Server represents the HTTP server for the avatar tracking application.
type Server struct {
	config   Config
	mux      *http.ServeMux
	registry *Registry
	start    time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config:   config,
		mux:      http.NewServeMux(),
		registry: NewRegistry(),
		start:    time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Session endpoints need the app
	if s.config.App != nil {
		s.mux.Handle("/ws", NewWSHandler(s.config.App, s.registry))

		sessionHandler := api.NewSessionHandler(s.config.App)
		streamHandler := NewStreamHandler(s.registry)

		// Use a wrapper to route between the session API and the avatar stream
		sessionRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if this is a stream request: /api/sessions/{id}/stream
			if strings.HasSuffix(r.URL.Path, "/stream") {
				streamHandler.ServeHTTP(w, r)
				return
			}
			sessionHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/sessions", sessionRouter)
		s.mux.Handle("/api/sessions/", sessionRouter)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions := 0
	if s.config.App != nil {
		sessions = s.config.App.Status().Sessions
	}

	response := map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"sessions": sessions,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Registry returns the stream registry, for sessions fed from outside the
// websocket handler.
func (s *Server) Registry() *Registry {
	return s.registry
}
