package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session represents a finished monitoring-session report.
type Session struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"started_at"`
	EndedAt            time.Time `json:"ended_at"`
	Calibration        string    `json:"calibration"`
	Frames             int       `json:"frames"`
	ClosedFrames       int       `json:"closed_frames"`
	OverallPerclos     float64   `json:"overall_perclos"`
	PeakFatigueLevel   string    `json:"peak_fatigue_level"`
	TotalBlinks        int       `json:"total_blinks"`
	TotalMicrosleeps   int       `json:"total_microsleeps"`
	AvgBlinkDurationMS float64   `json:"avg_blink_duration_ms"`
	FocusSessions      int       `json:"focus_sessions"`
	FocusSeconds       float64   `json:"focus_seconds"`
	CreatedAt          time.Time `json:"created_at"`
}

// SessionRepository provides CRUD operations for session reports.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session report into the database.
func (r *SessionRepository) Create(sess *Session) error {
	sess.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, started_at, ended_at, calibration, frames, closed_frames,
			overall_perclos, peak_fatigue_level, total_blinks, total_microsleeps,
			avg_blink_duration_ms, focus_sessions, focus_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.StartedAt, sess.EndedAt, sess.Calibration, sess.Frames, sess.ClosedFrames,
		sess.OverallPerclos, sess.PeakFatigueLevel, sess.TotalBlinks, sess.TotalMicrosleeps,
		sess.AvgBlinkDurationMS, sess.FocusSessions, sess.FocusSeconds, sess.CreatedAt,
	)
	return err
}

// GetByID retrieves a session report by its ID.
// Returns ErrNotFound if no such session exists.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}

	err := r.db.QueryRow(
		`SELECT id, started_at, ended_at, calibration, frames, closed_frames,
			overall_perclos, peak_fatigue_level, total_blinks, total_microsleeps,
			avg_blink_duration_ms, focus_sessions, focus_seconds, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.Calibration, &sess.Frames,
		&sess.ClosedFrames, &sess.OverallPerclos, &sess.PeakFatigueLevel, &sess.TotalBlinks,
		&sess.TotalMicrosleeps, &sess.AvgBlinkDurationMS, &sess.FocusSessions,
		&sess.FocusSeconds, &sess.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return sess, nil
}

// List returns all session reports, most recent first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, started_at, ended_at, calibration, frames, closed_frames,
			overall_perclos, peak_fatigue_level, total_blinks, total_microsleeps,
			avg_blink_duration_ms, focus_sessions, focus_seconds, created_at
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.Calibration,
			&sess.Frames, &sess.ClosedFrames, &sess.OverallPerclos, &sess.PeakFatigueLevel,
			&sess.TotalBlinks, &sess.TotalMicrosleeps, &sess.AvgBlinkDurationMS,
			&sess.FocusSessions, &sess.FocusSeconds, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// Delete removes a session report by its ID.
// Returns ErrNotFound if no such session exists.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
