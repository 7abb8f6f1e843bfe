// Package api provides HTTP API handlers for poses, drawings and the live
// session settings.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/canvas"
	"github.com/ayusman/mudra/internal/session"
)

// ModeController switches the session mode.
type ModeController interface {
	Mode() session.Mode
	SetMode(m session.Mode) error
}

// BrushController reads and replaces the paint brush.
type BrushController interface {
	Brush() session.Brush
	SetBrush(b session.Brush) (session.Brush, error)
}

// CanvasController exposes the paint surface.
type CanvasController interface {
	Canvas() *canvas.Canvas
	ClearCanvas()
}

// PoseReloader reloads trained poses into the live matcher.
type PoseReloader interface {
	LoadPoses() error
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = time.RFC3339

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

// splitPath returns the path segments after prefix.
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
