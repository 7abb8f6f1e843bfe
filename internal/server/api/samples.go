package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler handles HTTP requests for pose sample resources.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// serve handles /api/poses/{id}/samples.
func (h *SamplesHandler) serve(w http.ResponseWriter, r *http.Request, poseID string) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, poseID)
	case http.MethodPost:
		h.create(w, r, poseID)
	case http.MethodDelete:
		h.clear(w, r, poseID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

// list handles GET /api/poses/{id}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.exists(w, poseID) {
		return
	}

	samples, err := h.store.Samples().List(poseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			PoseID:      s.PoseID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/poses/{id}/samples. Every sample must carry
// landmarks.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.exists(w, poseID) {
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}
	for _, raw := range req.Samples {
		var sample gesture.Sample
		if err := json.Unmarshal(raw, &sample); err != nil || len(sample.Landmarks) == 0 {
			writeError(w, http.StatusBadRequest, "Each sample needs landmarks")
			return
		}
	}

	count, err := h.store.Samples().Add(poseID, req.Samples)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "samples": count})
}

// clear handles DELETE /api/poses/{id}/samples
func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, poseID string) {
	if !h.exists(w, poseID) {
		return
	}
	if err := h.store.Samples().DeleteByPoseID(poseID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exists writes the error response and reports false when the pose is missing.
func (h *SamplesHandler) exists(w http.ResponseWriter, poseID string) bool {
	_, err := h.store.Poses().GetByID(poseID)
	if err == nil {
		return true
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Pose not found")
		return false
	}
	writeError(w, http.StatusInternalServerError, "Failed to verify pose")
	return false
}
