// Package api provides HTTP API handlers for inspecting and steering live
// tracking sessions.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dkinzer222/avatarai/internal/app"
	"github.com/dkinzer222/avatarai/internal/avatar"
	"github.com/dkinzer222/avatarai/internal/calibration"
)

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	app *app.App
}

// NewSessionHandler creates a new SessionHandler for the given app.
func NewSessionHandler(a *app.App) *SessionHandler {
	return &SessionHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/sessions, /api/sessions/{id} and
	// /api/sessions/{id}/{calibration|customization}
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	session, ok := h.app.Session(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, toResponse(session))
	case sub == "calibration" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, session.Instruction())
	case sub == "calibration" && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, session.StartCalibration())
	case sub == "calibration" && r.Method == http.MethodDelete:
		writeJSON(w, http.StatusOK, session.ResetCalibration())
	case sub == "customization" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, customizationResponse{
			Customization: session.Customization(),
			Errors:        []*avatar.FieldError{},
		})
	case sub == "customization" && r.Method == http.MethodPut:
		h.customize(w, r, session)
	case sub == "" || sub == "calibration" || sub == "customization":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Unknown session resource")
	}
}

// Request and response types

type sessionResponse struct {
	ID            string                  `json:"id"`
	Instruction   calibration.Instruction `json:"instruction"`
	Customization avatar.Customization    `json:"customization"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type customizationResponse struct {
	Customization avatar.Customization `json:"customization"`
	Errors        []*avatar.FieldError `json:"errors"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(s *app.Session) sessionResponse {
	return sessionResponse{
		ID:            s.ID,
		Instruction:   s.Instruction(),
		Customization: s.Customization(),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions and returns all live sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	ids := h.app.SessionIDs()
	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(ids)),
	}

	for _, id := range ids {
		// A session may close between listing and lookup.
		if s, ok := h.app.Session(id); ok {
			response.Sessions = append(response.Sessions, toResponse(s))
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// customize handles PUT /api/sessions/{id}/customization. Invalid fields are
// reported in the response while valid ones still apply.
func (h *SessionHandler) customize(w http.ResponseWriter, r *http.Request, s *app.Session) {
	var req avatar.Update
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, errs := s.Customize(req)
	writeJSON(w, http.StatusOK, customizationResponse{
		Customization: c,
		Errors:        avatar.FieldErrors(errs),
	})
}
