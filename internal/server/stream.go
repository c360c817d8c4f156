package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// streamInterval is how often a viewer polls for a new avatar frame (~15 FPS).
const streamInterval = 66 * time.Millisecond

// StreamHandler serves a session's avatar frames as MJPEG.
type StreamHandler struct {
	registry *Registry
}

// NewStreamHandler creates a new StreamHandler reading from registry.
func NewStreamHandler(registry *Registry) *StreamHandler {
	return &StreamHandler{registry: registry}
}

// ServeHTTP streams MJPEG frames for /api/sessions/{id}/stream until the
// client goes away or the session closes.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	id = strings.TrimSuffix(id, "/stream")
	if _, _, ok := h.registry.Latest(id); !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var sent uint64
	for {
		jpeg, seq, ok := h.registry.Latest(id)
		if !ok {
			return
		}

		if seq != sent && len(jpeg) > 0 {
			// Write MJPEG frame
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
			w.Write(jpeg)
			fmt.Fprintf(w, "\r\n")
			sent = seq

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
