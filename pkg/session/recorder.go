package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iohnishijima/GazeMappingApplication/internal/log"
	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
)

// Recorder adapts the store to the processing loop. Begin opens a session,
// Append lands rows, End exports the CSV under baseDir/user/name and closes
// the session.
type Recorder struct {
	store   *Store
	baseDir string

	mu      sync.Mutex
	session *Session
	rows    int64
}

// NewRecorder creates a recorder exporting CSVs under baseDir.
func NewRecorder(store *Store, baseDir string) *Recorder {
	return &Recorder{store: store, baseDir: baseDir}
}

// Begin opens a recording session. Empty names fall back to "default" for
// the user and a timestamp for the session.
func (r *Recorder) Begin(user, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return fmt.Errorf("session %s still open", r.session.ID)
	}
	if user == "" {
		user = "default"
	}
	if name == "" {
		name = time.Now().Format("20060102-150405")
	}

	sess, err := r.store.CreateSession(user, name)
	if err != nil {
		return err
	}
	r.session = sess
	r.rows = 0
	log.Info("session opened", "session_id", sess.ID, "user", user, "name", name)
	return nil
}

// Append lands one row in the open session.
func (r *Recorder) Append(rec engine.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return fmt.Errorf("no open session")
	}
	if err := r.store.InsertRecord(r.session.ID, rec); err != nil {
		return err
	}
	r.rows++
	return nil
}

// End exports the open session as CSV and returns the file path. The
// session is closed even if it recorded nothing; the CSV then holds only
// the header.
func (r *Recorder) End() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return "", fmt.Errorf("no open session")
	}
	sess := r.session
	r.session = nil

	rows, err := r.store.Records(sess.ID)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(r.baseDir, sess.User, sess.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	path := nextCSVPath(dir)
	if err := writeCSV(path, rows); err != nil {
		return "", err
	}
	if err := r.store.EndSession(sess.ID, path); err != nil {
		return "", err
	}

	log.Info("session exported", "session_id", sess.ID, "rows", len(rows), "file", path)
	return path, nil
}
