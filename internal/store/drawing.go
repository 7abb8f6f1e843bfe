package store

import (
	"database/sql"
	"errors"
	"time"
)

// Drawing is a saved canvas image.
type Drawing struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	PNG       []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// DrawingRepository stores canvas snapshots.
type DrawingRepository struct {
	db *sql.DB
}

// Drawings returns the drawing repository for this store.
func (s *Store) Drawings() *DrawingRepository {
	return &DrawingRepository{db: s.db}
}

// Create inserts a drawing.
func (r *DrawingRepository) Create(d *Drawing) error {
	d.CreatedAt = time.Now()
	_, err := r.db.Exec(
		`INSERT INTO drawings (id, name, width, height, png, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Width, d.Height, d.PNG, d.CreatedAt,
	)
	return err
}

// GetByID retrieves a drawing with its image.
func (r *DrawingRepository) GetByID(id string) (*Drawing, error) {
	d := &Drawing{}
	err := r.db.QueryRow(
		`SELECT id, name, width, height, png, created_at FROM drawings WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Name, &d.Width, &d.Height, &d.PNG, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// List retrieves all drawings, newest first, without their images.
func (r *DrawingRepository) List() ([]*Drawing, error) {
	rows, err := r.db.Query(
		`SELECT id, name, width, height, created_at FROM drawings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drawings []*Drawing
	for rows.Next() {
		d := &Drawing{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Width, &d.Height, &d.CreatedAt); err != nil {
			return nil, err
		}
		drawings = append(drawings, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drawings, nil
}

// Delete removes a drawing.
func (r *DrawingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM drawings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
