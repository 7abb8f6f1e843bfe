package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/session"
)

// ModeHandler serves GET and PUT /api/mode.
type ModeHandler struct {
	ctrl ModeController
}

// NewModeHandler creates a ModeHandler.
func NewModeHandler(ctrl ModeController) *ModeHandler {
	return &ModeHandler{ctrl: ctrl}
}

type modeBody struct {
	Mode session.Mode `json:"mode"`
}

func (h *ModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, modeBody{Mode: h.ctrl.Mode()})

	case http.MethodPut:
		var req modeBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := h.ctrl.SetMode(req.Mode); err != nil {
			if errors.Is(err, session.ErrUnknownMode) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to set mode")
			return
		}
		writeJSON(w, http.StatusOK, modeBody{Mode: h.ctrl.Mode()})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// BrushHandler serves GET and PUT /api/brush. A PUT body only needs the
// fields that change.
type BrushHandler struct {
	ctrl BrushController
}

// NewBrushHandler creates a BrushHandler.
func NewBrushHandler(ctrl BrushController) *BrushHandler {
	return &BrushHandler{ctrl: ctrl}
}

func (h *BrushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Brush())

	case http.MethodPut:
		brush := h.ctrl.Brush()
		if err := json.NewDecoder(r.Body).Decode(&brush); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		updated, err := h.ctrl.SetBrush(brush)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
