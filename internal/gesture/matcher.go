package gesture

import (
	"math"
	"sort"
	"sync"

	"github.com/ayusman/mudra/internal/detector"
)

// Pose is a named static hand shape learned from recorded samples.
type Pose struct {
	ID        string             // Unique identifier
	Name      string             // Human-readable name
	Landmarks []detector.Point3D // Normalized landmarks (wrist origin, unit palm)
	Tolerance float64            // Maximum summed distance for a match
}

// Match represents a matching result between input and a pose.
type Match struct {
	Pose     *Pose
	Score    float64 // 0-1, higher is better
	Distance float64 // summed point distance between input and pose
}

// PoseMatcher matches hands against registered poses. It is safe for
// concurrent use: poses are reloaded from the API while frames are matched.
type PoseMatcher struct {
	mu    sync.RWMutex
	poses []*Pose
}

// NewPoseMatcher creates an empty matcher.
func NewPoseMatcher() *PoseMatcher {
	return &PoseMatcher{}
}

// Add registers a pose.
func (m *PoseMatcher) Add(p *Pose) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = append(m.poses, p)
}

// Remove drops a pose by ID.
func (m *PoseMatcher) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.poses {
		if p.ID == id {
			m.poses = append(m.poses[:i], m.poses[i+1:]...)
			return
		}
	}
}

// Replace swaps the whole pose set.
func (m *PoseMatcher) Replace(poses []*Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poses = poses
}

// Len returns the number of registered poses.
func (m *PoseMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.poses)
}

// Match returns the poses within tolerance of hand, best first.
func (m *PoseMatcher) Match(hand *detector.HandLandmarks) []Match {
	normalized := hand.Normalize()
	if normalized == nil {
		return nil
	}
	input := normalized.Points[:]

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, p := range m.poses {
		if len(p.Landmarks) == 0 {
			continue
		}
		distance := euclideanDistance(input, p.Landmarks)
		if distance <= p.Tolerance {
			matches = append(matches, Match{
				Pose:     p,
				Score:    1.0 / (1.0 + distance),
				Distance: distance,
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// Best returns the name of the closest pose within tolerance.
func (m *PoseMatcher) Best(hand *detector.HandLandmarks) (string, bool) {
	matches := m.Match(hand)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Pose.Name, true
}

// euclideanDistance sums the distances between corresponding points.
func euclideanDistance(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))

	var total float64
	for i := 0; i < n; i++ {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		dz := a[i].Z - b[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
