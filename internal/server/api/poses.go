package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/store"
)

// DefaultTolerance is the match tolerance of a pose created without one.
const DefaultTolerance = 0.5

// PoseHandler handles HTTP requests for pose resources, including their
// samples and training.
type PoseHandler struct {
	store    *store.Store
	samples  *SamplesHandler
	train    *TrainHandler
	reloader PoseReloader
}

// NewPoseHandler creates a new PoseHandler. reloader may be nil.
func NewPoseHandler(s *store.Store, reloader PoseReloader) *PoseHandler {
	return &PoseHandler{
		store:    s,
		samples:  NewSamplesHandler(s),
		train:    NewTrainHandler(s, reloader),
		reloader: reloader,
	}
}

// ServeHTTP routes /api/poses, /api/poses/{id}, /api/poses/{id}/samples and
// /api/poses/{id}/train.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/api/poses")

	switch len(parts) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case 2:
		switch parts[1] {
		case "samples":
			h.samples.serve(w, r, parts[0])
		case "train":
			h.train.serve(w, r, parts[0])
		default:
			writeError(w, http.StatusNotFound, "Not found")
		}

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type poseRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type poseResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	Trained   bool    `json:"trained"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listPosesResponse struct {
	Poses []poseResponse `json:"poses"`
}

func (h *PoseHandler) toResponse(p *store.Pose) poseResponse {
	landmarks, err := h.store.Poses().Landmarks(p.ID)
	if err != nil {
		log.Printf("Failed to load landmarks for %s: %v", p.ID, err)
	}
	return poseResponse{
		ID:        p.ID,
		Name:      p.Name,
		Tolerance: p.Tolerance,
		Samples:   p.Samples,
		Trained:   len(landmarks) > 0,
		CreatedAt: p.CreatedAt.Format(timeFormat),
		UpdatedAt: p.UpdatedAt.Format(timeFormat),
	}
}

// list handles GET /api/poses and returns all poses.
func (h *PoseHandler) list(w http.ResponseWriter, r *http.Request) {
	poses, err := h.store.Poses().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list poses")
		return
	}

	response := listPosesResponse{
		Poses: make([]poseResponse, 0, len(poses)),
	}
	for _, p := range poses {
		response.Poses = append(response.Poses, h.toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/poses/{id} and returns a single pose.
func (h *PoseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	pose, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(pose))
}

// create handles POST /api/poses and creates a new, untrained pose.
func (h *PoseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	pose := &store.Pose{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Tolerance: tolerance,
	}

	if _, err := h.store.Poses().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Pose name already exists")
		return
	}

	if err := h.store.Poses().Create(pose); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(pose))
}

// update handles PUT /api/poses/{id} and renames or retunes a pose.
func (h *PoseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	pose, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	var req poseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		pose.Name = req.Name
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}
	if req.Tolerance != 0 {
		pose.Tolerance = req.Tolerance
	}

	if err := h.store.Poses().Update(pose); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update pose")
		return
	}
	h.reload()

	writeJSON(w, http.StatusOK, h.toResponse(pose))
}

// delete handles DELETE /api/poses/{id} and removes a pose with its samples.
func (h *PoseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Poses().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete pose")
		return
	}
	h.reload()

	w.WriteHeader(http.StatusNoContent)
}

func (h *PoseHandler) reload() {
	if h.reloader == nil {
		return
	}
	if err := h.reloader.LoadPoses(); err != nil {
		log.Printf("Failed to reload poses: %v", err)
	}
}
