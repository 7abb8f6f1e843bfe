package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

func createPose(t *testing.T, s *store.Store, id, name string) {
	t.Helper()
	if err := s.Poses().Create(&store.Pose{ID: id, Name: name, Tolerance: 0.5}); err != nil {
		t.Fatalf("failed to create pose: %v", err)
	}
}

func TestPoseHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	createPose(t, s, "pose-1", "victory")

	rec := do(t, handler, http.MethodGet, "/api/poses", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response listPosesResponse
	decode(t, rec, &response)
	if len(response.Poses) != 1 {
		t.Fatalf("expected 1 pose, got %d", len(response.Poses))
	}
	p := response.Poses[0]
	if p.ID != "pose-1" || p.Name != "victory" || p.Trained {
		t.Errorf("unexpected pose %+v", p)
	}
}

func TestPoseHandler_List_Empty(t *testing.T) {
	handler := NewPoseHandler(newTestStore(t), nil)

	rec := do(t, handler, http.MethodGet, "/api/poses", nil)

	var response listPosesResponse
	decode(t, rec, &response)
	if response.Poses == nil || len(response.Poses) != 0 {
		t.Errorf("expected empty, non-null pose list, got %v", response.Poses)
	}
}

func TestPoseHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	rec := do(t, handler, http.MethodPost, "/api/poses", poseRequest{Name: "rock"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response poseResponse
	decode(t, rec, &response)
	if response.ID == "" {
		t.Error("expected generated ID")
	}
	if response.Tolerance != DefaultTolerance {
		t.Errorf("expected default tolerance %v, got %v", DefaultTolerance, response.Tolerance)
	}

	if _, err := s.Poses().GetByID(response.ID); err != nil {
		t.Errorf("pose should be stored: %v", err)
	}
}

func TestPoseHandler_Create_Errors(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	createPose(t, s, "pose-1", "victory")

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"invalid JSON", "{not json", http.StatusBadRequest},
		{"missing name", poseRequest{Tolerance: 0.3}, http.StatusBadRequest},
		{"negative tolerance", poseRequest{Name: "x", Tolerance: -1}, http.StatusBadRequest},
		{"duplicate name", poseRequest{Name: "victory"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, handler, http.MethodPost, "/api/poses", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
			var response errorResponse
			decode(t, rec, &response)
			if response.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestPoseHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	createPose(t, s, "pose-1", "victory")

	t.Run("found", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/poses/pose-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var response poseResponse
		decode(t, rec, &response)
		if response.Name != "victory" {
			t.Errorf("expected name victory, got %s", response.Name)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/poses/missing", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestPoseHandler_Update(t *testing.T) {
	s := newTestStore(t)
	ctrl := newFakeController(t)
	handler := NewPoseHandler(s, ctrl)
	createPose(t, s, "pose-1", "victory")

	rec := do(t, handler, http.MethodPut, "/api/poses/pose-1", poseRequest{Name: "peace", Tolerance: 0.9})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response poseResponse
	decode(t, rec, &response)
	if response.Name != "peace" || response.Tolerance != 0.9 {
		t.Errorf("unexpected pose %+v", response)
	}
	if ctrl.reloads != 1 {
		t.Errorf("expected matcher reload, got %d", ctrl.reloads)
	}

	rec = do(t, handler, http.MethodPut, "/api/poses/missing", poseRequest{Name: "x"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	ctrl := newFakeController(t)
	handler := NewPoseHandler(s, ctrl)
	createPose(t, s, "pose-1", "victory")

	rec := do(t, handler, http.MethodDelete, "/api/poses/pose-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if ctrl.reloads != 1 {
		t.Errorf("expected matcher reload, got %d", ctrl.reloads)
	}

	rec = do(t, handler, http.MethodDelete, "/api/poses/pose-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_MethodNotAllowed(t *testing.T) {
	handler := NewPoseHandler(newTestStore(t), nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPut, "/api/poses"},
		{http.MethodDelete, "/api/poses"},
		{http.MethodPost, "/api/poses/pose-1"},
		{http.MethodPut, "/api/poses/pose-1/samples"},
		{http.MethodGet, "/api/poses/pose-1/train"},
	}

	for _, tt := range tests {
		rec := do(t, handler, tt.method, tt.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}

	rec := do(t, handler, http.MethodGet, "/api/poses/pose-1/unknown", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSamplesHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	createPose(t, s, "pose-1", "victory")

	palm := detector.OpenPalmLandmarks()
	sample, _ := json.Marshal(gesture.Sample{Landmarks: palm.Points[:], Timestamp: 1})

	t.Run("create", func(t *testing.T) {
		body := map[string]interface{}{"samples": []json.RawMessage{sample, sample}}
		rec := do(t, handler, http.MethodPost, "/api/poses/pose-1/samples", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
		}
		var response map[string]interface{}
		decode(t, rec, &response)
		if response["samples"] != float64(2) {
			t.Errorf("expected 2 samples, got %v", response["samples"])
		}
	})

	t.Run("list", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/poses/pose-1/samples", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var response listSamplesResponse
		decode(t, rec, &response)
		if len(response.Samples) != 2 || response.Samples[1].SampleIndex != 1 {
			t.Errorf("unexpected samples %+v", response.Samples)
		}
	})

	t.Run("rejects samples without landmarks", func(t *testing.T) {
		body := map[string]interface{}{"samples": []json.RawMessage{json.RawMessage(`{"timestamp":1}`)}}
		rec := do(t, handler, http.MethodPost, "/api/poses/pose-1/samples", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("rejects empty list", func(t *testing.T) {
		rec := do(t, handler, http.MethodPost, "/api/poses/pose-1/samples", map[string]interface{}{"samples": []string{}})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknown pose", func(t *testing.T) {
		rec := do(t, handler, http.MethodGet, "/api/poses/missing/samples", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("clear", func(t *testing.T) {
		rec := do(t, handler, http.MethodDelete, "/api/poses/pose-1/samples", nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}
		pose, _ := s.Poses().GetByID("pose-1")
		if pose.Samples != 0 {
			t.Errorf("expected 0 samples, got %d", pose.Samples)
		}
	})
}

func TestTrainHandler(t *testing.T) {
	s := newTestStore(t)
	ctrl := newFakeController(t)
	handler := NewPoseHandler(s, ctrl)
	createPose(t, s, "pose-1", "victory")

	t.Run("no samples", func(t *testing.T) {
		rec := do(t, handler, http.MethodPost, "/api/poses/pose-1/train", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})

	t.Run("unknown pose", func(t *testing.T) {
		rec := do(t, handler, http.MethodPost, "/api/poses/missing/train", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("trains landmarks", func(t *testing.T) {
		palm := detector.OpenPalmLandmarks()
		shifted := palm.Translated(0.1, -0.05)
		a, _ := json.Marshal(gesture.Sample{Landmarks: palm.Points[:]})
		b, _ := json.Marshal(gesture.Sample{Landmarks: shifted.Points[:]})
		if _, err := s.Samples().Add("pose-1", []json.RawMessage{a, b}); err != nil {
			t.Fatalf("failed to add samples: %v", err)
		}

		rec := do(t, handler, http.MethodPost, "/api/poses/pose-1/train", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		var response trainResponse
		decode(t, rec, &response)
		if response.Samples != 2 || response.Landmarks != detector.NumLandmarks {
			t.Errorf("unexpected response %+v", response)
		}
		if ctrl.reloads != 1 {
			t.Errorf("expected matcher reload, got %d", ctrl.reloads)
		}

		landmarks, err := s.Poses().Landmarks("pose-1")
		if err != nil {
			t.Fatalf("failed to load landmarks: %v", err)
		}
		// Translated samples normalize to the same shape: wrist at the origin
		if wrist := landmarks[detector.Wrist]; wrist.X != 0 || wrist.Y != 0 || wrist.Z != 0 {
			t.Errorf("expected normalized wrist at origin, got %+v", wrist)
		}

		rec = do(t, handler, http.MethodGet, "/api/poses/pose-1", nil)
		var pose poseResponse
		decode(t, rec, &pose)
		if !pose.Trained {
			t.Error("pose should be reported as trained")
		}
	})
}
