package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sign vocabulary - one row per model class
		`CREATE TABLE IF NOT EXISTS sign_vocabulary (
			id TEXT PRIMARY KEY,
			class_id INTEGER NOT NULL UNIQUE,
			class_name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			difficulty TEXT NOT NULL DEFAULT 'beginner'
				CHECK(difficulty IN ('beginner', 'intermediate', 'advanced')),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Detection history - one row per served detection request
		`CREATE TABLE IF NOT EXISTS detection_history (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			threshold REAL NOT NULL,
			success INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			top_class TEXT NOT NULL DEFAULT '',
			top_confidence REAL NOT NULL DEFAULT 0,
			detections TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detection_history_created_at ON detection_history(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sign_vocabulary_category ON sign_vocabulary(category)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
