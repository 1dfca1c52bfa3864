package session

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode"
)

// MaxSessionIDLength bounds the file-name form of a session id.
const MaxSessionIDLength = 128

// ErrSkipWrite may be returned by an Update callback to leave the stored
// state untouched.
var ErrSkipWrite = errors.New("session: skip write")

// Store persists one JSON document per session under dir. Concurrent
// read-modify-write cycles for the same session are serialized with an
// advisory lock; writes go through a temp file and an atomic rename so a
// reader never sees a partial document.
type Store struct {
	dir string
	now func() time.Time
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the directory holding session files.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the state file for sessionID.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, FileID(sessionID)+".json")
}

// Read returns the stored state, or an empty state when the file is missing
// or corrupt. It never fails.
func (s *Store) Read(sessionID string) *State {
	data, err := os.ReadFile(s.Path(sessionID))
	if err != nil {
		return New(sessionID)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return New(sessionID)
	}
	st.fill(sessionID)
	return &st
}

// Write replaces the stored state for sessionID.
func (s *Store) Write(sessionID string, st *State) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	st.fill(sessionID)
	st.UpdatedAt = s.now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return atomicWrite(s.Path(sessionID), data)
}

// Update runs fn on the current state under the session lock and writes the
// result back. If fn returns ErrSkipWrite nothing is written and Update
// returns nil; any other error aborts the write and is returned.
func (s *Store) Update(sessionID string, fn func(*State) error) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	unlock, err := s.lock(sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	st := s.Read(sessionID)
	if err := fn(st); err != nil {
		if errors.Is(err, ErrSkipWrite) {
			return nil
		}
		return err
	}
	return s.Write(sessionID, st)
}

func (s *Store) lock(sessionID string) (func(), error) {
	path := filepath.Join(s.dir, FileID(sessionID)+".lock")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open session lock: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock session: %w", err)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck // unlock best-effort
		_ = f.Close()
	}, nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}

// FileID maps a host session id to a safe file name. Ids made only of
// letters, digits, '-' and '_' are used as-is; anything else is replaced
// with '_' and suffixed with a short hash so distinct ids do not collide.
func FileID(sessionID string) string {
	if sessionID == "" {
		return "default"
	}

	var sb strings.Builder
	changed := false
	for _, r := range sessionID {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
			changed = true
		}
	}

	id := sb.String()
	if len(id) > MaxSessionIDLength {
		id = id[:MaxSessionIDLength]
		changed = true
	}
	if changed {
		sum := sha256.Sum256([]byte(sessionID))
		id = fmt.Sprintf("%s-%x", id, sum[:4])
	}
	return id
}
