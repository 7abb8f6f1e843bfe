package gesture

import (
	"encoding/json"
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Trainer turns recorded samples into pose landmarks.
type Trainer struct{}

// NewTrainer creates a new Trainer instance.
func NewTrainer() *Trainer {
	return &Trainer{}
}

// Sample is one recorded hand shape.
type Sample struct {
	Landmarks []detector.Point3D `json:"landmarks"`
	Timestamp int64              `json:"timestamp"`
}

// Train averages samples into a single landmark set. Complete hands are
// normalized first so the result compares directly with PoseMatcher input.
func (t *Trainer) Train(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	var all [][]detector.Point3D
	for i, raw := range samples {
		var sample Sample
		if err := json.Unmarshal(raw, &sample); err != nil {
			return nil, fmt.Errorf("parse sample %d: %w", i, err)
		}
		if len(sample.Landmarks) == 0 {
			return nil, fmt.Errorf("sample %d has no landmarks", i)
		}
		all = append(all, normalizeSample(sample.Landmarks))
	}

	numPoints := len(all[0])
	for i, landmarks := range all {
		if len(landmarks) != numPoints {
			return nil, fmt.Errorf("sample %d has %d landmarks, expected %d", i, len(landmarks), numPoints)
		}
	}

	averaged := make([]detector.Point3D, numPoints)
	n := float64(len(all))

	for i := 0; i < numPoints; i++ {
		var sumX, sumY, sumZ float64
		for _, landmarks := range all {
			sumX += landmarks[i].X
			sumY += landmarks[i].Y
			sumZ += landmarks[i].Z
		}
		averaged[i] = detector.Point3D{X: sumX / n, Y: sumY / n, Z: sumZ / n}
	}

	return averaged, nil
}

func normalizeSample(points []detector.Point3D) []detector.Point3D {
	if len(points) != detector.NumLandmarks {
		return points
	}
	var hand detector.HandLandmarks
	copy(hand.Points[:], points)
	normalized := hand.Normalize()
	return normalized.Points[:]
}
