package api

import (
	"net/http"
	"strconv"
)

// CanvasHandler serves GET /api/canvas as PNG and DELETE /api/canvas to
// clear it.
type CanvasHandler struct {
	ctrl CanvasController
}

// NewCanvasHandler creates a CanvasHandler.
func NewCanvasHandler(ctrl CanvasController) *CanvasHandler {
	return &CanvasHandler{ctrl: ctrl}
}

func (h *CanvasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c := h.ctrl.Canvas()
		if r.Header.Get("If-None-Match") == etagFor(c.Version()) {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		// The tag comes from the encoding so it always matches the pixels
		data, version, err := c.PNG()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode canvas")
			return
		}
		etag := etagFor(version)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", etag)
		w.Write(data)

	case http.MethodDelete:
		h.ctrl.ClearCanvas()
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func etagFor(version uint64) string {
	return `"` + strconv.FormatUint(version, 10) + `"`
}
