package api

import (
	"log"
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// TrainHandler averages recorded samples into pose landmarks.
type TrainHandler struct {
	store    *store.Store
	trainer  *gesture.Trainer
	reloader PoseReloader
}

// NewTrainHandler creates a TrainHandler. reloader may be nil.
func NewTrainHandler(s *store.Store, reloader PoseReloader) *TrainHandler {
	return &TrainHandler{
		store:    s,
		trainer:  gesture.NewTrainer(),
		reloader: reloader,
	}
}

type trainResponse struct {
	ID        string `json:"id"`
	Samples   int    `json:"samples"`
	Landmarks int    `json:"landmarks"`
}

// serve handles POST /api/poses/{id}/train.
func (h *TrainHandler) serve(w http.ResponseWriter, r *http.Request, poseID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	samples := &SamplesHandler{store: h.store}
	if !samples.exists(w, poseID) {
		return
	}

	data, err := h.store.Samples().Data(poseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Pose has no samples")
		return
	}

	landmarks, err := h.trainer.Train(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Poses().SetLandmarks(poseID, landmarks); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save landmarks")
		return
	}

	if h.reloader != nil {
		if err := h.reloader.LoadPoses(); err != nil {
			log.Printf("Failed to reload poses: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, trainResponse{
		ID:        poseID,
		Samples:   len(data),
		Landmarks: len(landmarks),
	})
}
