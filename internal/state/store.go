// Package state persists the daemon's durable state: the user's manual
// brightness offset and the last brightness the daemon applied.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// State is the persisted document. It is created with defaults on first run
// and never deleted automatically.
type State struct {
	UserOffset     int `json:"user_offset"`
	LastBrightness int `json:"last_brightness"`
}

// Default is the state used when no prior state file exists.
func Default() State {
	return State{UserOffset: 0, LastBrightness: 50}
}

// Store owns the state document and its durability. Saves go through a
// write-temp-then-rename so a crash mid-write cannot corrupt the file.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	current State
}

// NewStore creates a store backed by the given file path. Call Load before
// first use.
func NewStore(path string, logger *slog.Logger) *Store {
	return &Store{
		path:    path,
		logger:  logger.With("component", "state"),
		current: Default(),
	}
}

// Load reads the state file. A missing file yields defaults without error;
// an unreadable or corrupt file yields defaults and the error, so the caller
// can log and carry on with in-memory state.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.current = Default()
		return s.current, nil
	}
	if err != nil {
		s.current = Default()
		return s.current, fmt.Errorf("read state file: %w", err)
	}

	var loaded State
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.current = Default()
		return s.current, fmt.Errorf("decode state file: %w", err)
	}

	s.current = loaded
	if loaded.UserOffset != 0 {
		s.logger.Info("restored saved offset", "offset", fmt.Sprintf("%+d%%", loaded.UserOffset))
	}
	return s.current, nil
}

// Save writes the current state to disk atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Offset returns the current user offset.
func (s *Store) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.UserOffset
}

// SetOffset replaces the user offset, persists, and logs the transition.
// The offset is deliberately unbounded; final brightness is clamped at
// actuation time.
func (s *Store) SetOffset(offset int) error {
	s.mu.Lock()
	old := s.current.UserOffset
	s.current.UserOffset = offset
	err := s.saveLocked()
	s.mu.Unlock()

	s.logger.Info("offset changed",
		"old", fmt.Sprintf("%+d%%", old),
		"new", fmt.Sprintf("%+d%%", offset),
	)
	return err
}

// RecordBrightness persists the brightness value last applied to devices.
func (s *Store) RecordBrightness(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.LastBrightness = percent
	return s.saveLocked()
}

// Snapshot returns a copy of the current in-memory state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}
