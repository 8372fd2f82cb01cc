// Package session persists recording sessions and their gaze rows in
// SQLite, and exports finished sessions as CSV files.
package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	user_name    TEXT NOT NULL,
	session_name TEXT NOT NULL,
	started_at   INTEGER NOT NULL,
	ended_at     INTEGER NOT NULL DEFAULT 0,
	csv_path     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS gaze_records (
	session_id  TEXT NOT NULL,
	frame       INTEGER NOT NULL,
	pic_num     INTEGER NOT NULL,
	gaze_x      DOUBLE NOT NULL,
	gaze_y      DOUBLE NOT NULL,
	aoi         TEXT NOT NULL,
	score_right DOUBLE NOT NULL,
	score_left  DOUBLE NOT NULL,
	system_time TEXT NOT NULL,
	PRIMARY KEY (session_id, frame),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Session is one recording run. EndedAt is zero while the run is open.
type Session struct {
	ID        string `json:"session_id"`
	User      string `json:"user_name"`
	Name      string `json:"session_name"`
	StartedAt int64  `json:"started_at"`
	EndedAt   int64  `json:"ended_at"`
	CSVPath   string `json:"csv_path"`
}

// Store provides persistence for sessions and their rows.
type Store struct {
	db *sql.DB
}

// Open opens the session database at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new open session with a generated ID.
func (s *Store) CreateSession(user, name string) (*Session, error) {
	sess := &Session{
		ID:        uuid.New().String(),
		User:      user,
		Name:      name,
		StartedAt: time.Now().UnixNano(),
	}
	err := retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO sessions (session_id, user_name, session_name, started_at)
			VALUES (?, ?, ?, ?)`,
			sess.ID, sess.User, sess.Name, sess.StartedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// EndSession stamps a session closed and remembers its export path.
func (s *Store) EndSession(id, csvPath string) error {
	return retryOnBusy(func() error {
		res, err := s.db.Exec(`
			UPDATE sessions SET ended_at = ?, csv_path = ? WHERE session_id = ?`,
			time.Now().UnixNano(), csvPath, id)
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("session %s not found", id)
		}
		return nil
	})
}

// InsertRecord appends one gaze row to a session.
func (s *Store) InsertRecord(sessionID string, rec engine.Record) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO gaze_records (
				session_id, frame, pic_num, gaze_x, gaze_y,
				aoi, score_right, score_left, system_time
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID, rec.Frame, rec.PicNum, rec.GazeX, rec.GazeY,
			rec.AOI, rec.ScoreRight, rec.ScoreLeft, rec.SystemTime)
		return err
	})
}

// Records returns a session's rows in frame order.
func (s *Store) Records(sessionID string) ([]engine.Record, error) {
	rows, err := s.db.Query(`
		SELECT frame, pic_num, gaze_x, gaze_y, aoi, score_right, score_left, system_time
		FROM gaze_records
		WHERE session_id = ?
		ORDER BY frame`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []engine.Record
	for rows.Next() {
		var r engine.Record
		if err := rows.Scan(&r.Frame, &r.PicNum, &r.GazeX, &r.GazeY,
			&r.AOI, &r.ScoreRight, &r.ScoreLeft, &r.SystemTime); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions returns all sessions, newest first.
func (s *Store) Sessions() ([]*Session, error) {
	rows, err := s.db.Query(`
		SELECT session_id, user_name, session_name, started_at, ended_at, csv_path
		FROM sessions
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.User, &sess.Name,
			&sess.StartedAt, &sess.EndedAt, &sess.CSVPath); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

// Session returns a single session by ID.
func (s *Store) Session(id string) (*Session, error) {
	row := s.db.QueryRow(`
		SELECT session_id, user_name, session_name, started_at, ended_at, csv_path
		FROM sessions
		WHERE session_id = ?`, id)

	var sess Session
	err := row.Scan(&sess.ID, &sess.User, &sess.Name,
		&sess.StartedAt, &sess.EndedAt, &sess.CSVPath)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s not found", id)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &sess, nil
}
