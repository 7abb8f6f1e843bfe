package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/store"
)

// DrawingHandler saves canvas snapshots and loads them back.
//
//	GET    /api/drawings           list
//	POST   /api/drawings           save the current canvas
//	GET    /api/drawings/{id}      PNG image
//	DELETE /api/drawings/{id}      remove
//	POST   /api/drawings/{id}/load replace the canvas with the drawing
type DrawingHandler struct {
	store *store.Store
	ctrl  CanvasController
}

// NewDrawingHandler creates a DrawingHandler.
func NewDrawingHandler(s *store.Store, ctrl CanvasController) *DrawingHandler {
	return &DrawingHandler{store: s, ctrl: ctrl}
}

type drawingRequest struct {
	Name string `json:"name"`
}

type drawingResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"created_at"`
}

type listDrawingsResponse struct {
	Drawings []drawingResponse `json:"drawings"`
}

func toDrawingResponse(d *store.Drawing) drawingResponse {
	return drawingResponse{
		ID:        d.ID,
		Name:      d.Name,
		Width:     d.Width,
		Height:    d.Height,
		CreatedAt: d.CreatedAt.Format(timeFormat),
	}
}

func (h *DrawingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/drawings")

	switch {
	case len(parts) == 0 && r.Method == http.MethodGet:
		h.list(w, r)
	case len(parts) == 0 && r.Method == http.MethodPost:
		h.save(w, r)
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.image(w, r, parts[0])
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.delete(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "load" && r.Method == http.MethodPost:
		h.load(w, r, parts[0])
	case len(parts) <= 2:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *DrawingHandler) list(w http.ResponseWriter, r *http.Request) {
	drawings, err := h.store.Drawings().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list drawings")
		return
	}

	response := listDrawingsResponse{
		Drawings: make([]drawingResponse, 0, len(drawings)),
	}
	for _, d := range drawings {
		response.Drawings = append(response.Drawings, toDrawingResponse(d))
	}
	writeJSON(w, http.StatusOK, response)
}

// save stores the current canvas. The name defaults to the save time.
func (h *DrawingHandler) save(w http.ResponseWriter, r *http.Request) {
	var req drawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		req.Name = time.Now().Format("2006-01-02 15:04:05")
	}

	c := h.ctrl.Canvas()
	data, _, err := c.PNG()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode canvas")
		return
	}
	width, height := c.Size()

	d := &store.Drawing{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Width:  width,
		Height: height,
		PNG:    data,
	}
	if err := h.store.Drawings().Create(d); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save drawing")
		return
	}

	writeJSON(w, http.StatusCreated, toDrawingResponse(d))
}

func (h *DrawingHandler) image(w http.ResponseWriter, r *http.Request, id string) {
	d, ok := h.find(w, id)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(d.PNG)
}

func (h *DrawingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Drawings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Drawing not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete drawing")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DrawingHandler) load(w http.ResponseWriter, r *http.Request, id string) {
	d, ok := h.find(w, id)
	if !ok {
		return
	}
	if err := h.ctrl.Canvas().Load(d.PNG); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDrawingResponse(d))
}

func (h *DrawingHandler) find(w http.ResponseWriter, id string) (*store.Drawing, bool) {
	d, err := h.store.Drawings().GetByID(id)
	if err == nil {
		return d, true
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Drawing not found")
		return nil, false
	}
	writeError(w, http.StatusInternalServerError, "Failed to get drawing")
	return nil, false
}
