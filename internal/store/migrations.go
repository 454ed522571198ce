package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - stores end-of-session monitoring reports
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			calibration TEXT NOT NULL DEFAULT 'synthetic',
			frames INTEGER NOT NULL DEFAULT 0,
			closed_frames INTEGER NOT NULL DEFAULT 0,
			overall_perclos REAL NOT NULL DEFAULT 0,
			peak_fatigue_level TEXT NOT NULL DEFAULT 'alert',
			total_blinks INTEGER NOT NULL DEFAULT 0,
			total_microsleeps INTEGER NOT NULL DEFAULT 0,
			avg_blink_duration_ms REAL NOT NULL DEFAULT 0,
			focus_sessions INTEGER NOT NULL DEFAULT 0,
			focus_seconds REAL NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
