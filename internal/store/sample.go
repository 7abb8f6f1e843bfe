package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample represents a recorded pose sample stored in the database.
type Sample struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides operations for pose samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Add appends samples to a pose in a single transaction and updates the
// sample count on the pose. It returns the new count.
func (r *SampleRepository) Add(poseID string, samples []json.RawMessage) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM pose_samples WHERE pose_id = ?`, poseID).Scan(&count); err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_samples (pose_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(poseID, count+i, string(data)); err != nil {
			return 0, err
		}
	}
	count += len(samples)

	result, err := tx.Exec(`UPDATE poses SET samples = ?, updated_at = ? WHERE id = ?`,
		count, time.Now(), poseID)
	if err != nil {
		return 0, err
	}
	if err := affected(result); err != nil {
		return 0, err
	}

	return count, tx.Commit()
}

// List retrieves all samples of a pose in recording order.
func (r *SampleRepository) List(poseID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, pose_id, sample_index, data, created_at
		 FROM pose_samples
		 WHERE pose_id = ?
		 ORDER BY sample_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.PoseID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Data returns only the payloads of a pose's samples, ready for training.
func (r *SampleRepository) Data(poseID string) ([]json.RawMessage, error) {
	samples, err := r.List(poseID)
	if err != nil {
		return nil, err
	}
	data := make([]json.RawMessage, len(samples))
	for i, s := range samples {
		data[i] = s.Data
	}
	return data, nil
}

// DeleteByPoseID removes all samples of a pose and resets its count.
func (r *SampleRepository) DeleteByPoseID(poseID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_samples WHERE pose_id = ?`, poseID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE poses SET samples = 0, updated_at = ? WHERE id = ?`, time.Now(), poseID); err != nil {
		return err
	}
	return tx.Commit()
}
