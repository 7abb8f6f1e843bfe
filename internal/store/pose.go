package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Pose is a named hand shape definition.
type Pose struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tolerance float64   `json:"tolerance"`
	Samples   int       `json:"samples"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PoseRepository provides CRUD operations for poses.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

const poseColumns = `id, name, tolerance, samples, created_at, updated_at`

// Create inserts a new pose into the database.
func (r *PoseRepository) Create(p *Pose) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO poses (`+poseColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Tolerance, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a pose by its ID.
func (r *PoseRepository) GetByID(id string) (*Pose, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE id = ?`, id))
}

// GetByName retrieves a pose by its name.
func (r *PoseRepository) GetByName(name string) (*Pose, error) {
	return r.scanOne(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE name = ?`, name))
}

func (r *PoseRepository) scanOne(row *sql.Row) (*Pose, error) {
	p := &Pose{}
	err := row.Scan(&p.ID, &p.Name, &p.Tolerance, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves all poses, newest first.
func (r *PoseRepository) List() ([]*Pose, error) {
	rows, err := r.db.Query(`SELECT ` + poseColumns + ` FROM poses ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poses []*Pose
	for rows.Next() {
		p := &Pose{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Tolerance, &p.Samples, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return poses, nil
}

// Update updates the name and tolerance of an existing pose.
func (r *PoseRepository) Update(p *Pose) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE poses SET name = ?, tolerance = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Tolerance, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a pose and, through cascading, its landmarks and samples.
func (r *PoseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM poses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

// SetLandmarks replaces the trained landmarks of a pose.
func (r *PoseRepository) SetLandmarks(id string, landmarks []detector.Point3D) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE poses SET updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	if err := affected(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM pose_landmarks WHERE pose_id = ?`, id); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_landmarks (pose_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range landmarks {
		if _, err := stmt.Exec(id, i, p.X, p.Y, p.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Landmarks returns the trained landmarks of a pose in index order. An
// untrained pose has none.
func (r *PoseRepository) Landmarks(id string) ([]detector.Point3D, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM pose_landmarks WHERE pose_id = ? ORDER BY landmark_index`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []detector.Point3D
	for rows.Next() {
		var p detector.Point3D
		if err := rows.Scan(&p.X, &p.Y, &p.Z); err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return points, nil
}
