package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Poses table - named static hand shapes
		`CREATE TABLE IF NOT EXISTS poses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			tolerance REAL NOT NULL DEFAULT 0.5,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Pose landmarks table - trained, normalized landmark positions
		`CREATE TABLE IF NOT EXISTS pose_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Pose samples table - raw recorded samples for training
		`CREATE TABLE IF NOT EXISTS pose_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Drawings table - saved canvas snapshots
		`CREATE TABLE IF NOT EXISTS drawings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			png BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pose_landmarks_pose_id ON pose_landmarks(pose_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pose_samples_pose_id ON pose_samples(pose_id)`,
		`CREATE INDEX IF NOT EXISTS idx_drawings_created_at ON drawings(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
