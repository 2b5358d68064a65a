// Package state persists gup's update state between invocations.
//
// The state lives in a single JSON document under the gup config directory.
// It records when updates were last checked and applied, a capped history of
// version transitions (used for rollback), and user-tunable settings. The
// document is human-inspectable and rewritten atomically on every mutation.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Error variables for state errors
var (
	// ErrStateCorrupted is returned when the state file cannot be parsed
	ErrStateCorrupted = errors.New("state file is corrupted")
)

// Default settings values
const (
	// DefaultUpdateCooldown is the minimum time between update checks (1 hour)
	DefaultUpdateCooldown = time.Hour
	// DefaultMaxVersionHistory caps the version history length
	DefaultMaxVersionHistory = 10
)

// stateFileName is the on-disk name of the state document
const stateFileName = "state.json"

// HistoryEntry records one version transition.
type HistoryEntry struct {
	// From is the version installed before the transition
	From string `json:"from"`
	// To is the version the transition targeted
	To string `json:"to"`
	// Timestamp is when the transition was recorded, in epoch milliseconds
	Timestamp int64 `json:"timestamp"`
	// Success records whether the transition was considered successful.
	// Entries are written at decision time, so this is intent, not a
	// confirmed install result.
	Success bool `json:"success"`
}

// Settings holds user-tunable behavior.
type Settings struct {
	// UpdateCooldown is the minimum time between update checks, in milliseconds
	UpdateCooldown int64 `json:"updateCooldown"`
	// MaxVersionHistory caps the number of retained history entries
	MaxVersionHistory int `json:"maxVersionHistory"`
	// EnableLogging enables the log file
	EnableLogging bool `json:"enableLogging"`
	// AutoUpdate installs updates automatically before launching
	AutoUpdate bool `json:"autoUpdate"`
}

// Document is the persisted state, one per user.
type Document struct {
	// LastUpdateCheck is when a check last completed, in epoch milliseconds.
	// Nil means no check has ever completed.
	LastUpdateCheck *int64 `json:"lastUpdateCheck"`
	// LastUpdateTime is when an install last succeeded, in epoch milliseconds
	LastUpdateTime *int64 `json:"lastUpdateTime"`
	// VersionHistory is the capped, chronologically ordered transition log
	VersionHistory []HistoryEntry `json:"versionHistory"`
	// Settings holds user-tunable behavior
	Settings Settings `json:"settings"`
}

// DefaultDocument returns a Document populated with default values.
func DefaultDocument() *Document {
	return &Document{
		VersionHistory: []HistoryEntry{},
		Settings: Settings{
			UpdateCooldown:    DefaultUpdateCooldown.Milliseconds(),
			MaxVersionHistory: DefaultMaxVersionHistory,
		},
	}
}

// Store manages the persisted state document.
// Reads never fail: a missing or corrupt file is replaced with defaults.
type Store struct {
	doc  *Document
	path string
	// mu protects doc
	mu sync.Mutex
	// nowFunc allows injecting time for testing
	nowFunc func() time.Time
}

// Option is a functional option for configuring Store
type Option func(*Store)

// WithNowFunc sets a custom time function for testing
func WithNowFunc(fn func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = fn
	}
}

// NewStore creates or loads the state document under configDir.
// The document always exists on disk after NewStore returns: a missing or
// corrupted file is replaced with defaults and persisted.
func NewStore(configDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	store := &Store{
		path:    filepath.Join(configDir, stateFileName),
		nowFunc: time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	// A load failure is not fatal: corrupted or missing files are replaced
	// with defaults and overwritten below
	store.doc = store.load()

	// Rewrite so the file always exists and carries any merged defaults
	if err := store.saveUnsafe(); err != nil {
		return nil, err
	}

	return store, nil
}

// load reads the document from disk, merging it over defaults.
// Any read or parse failure yields defaults.
func (s *Store) load() *Document {
	doc := DefaultDocument()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}

	if merged, err := merge(data); err == nil {
		return merged
	}
	return doc
}

// merge parses raw state JSON and merges it over defaults.
// Returns ErrStateCorrupted when the data cannot be parsed.
func merge(data []byte) (*Document, error) {
	doc := DefaultDocument()

	var stored Document
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupted, err)
	}

	// Merge stored values over defaults; missing fields keep default values
	doc.LastUpdateCheck = stored.LastUpdateCheck
	doc.LastUpdateTime = stored.LastUpdateTime
	if stored.VersionHistory != nil {
		doc.VersionHistory = stored.VersionHistory
	}
	if stored.Settings.UpdateCooldown > 0 {
		doc.Settings.UpdateCooldown = stored.Settings.UpdateCooldown
	}
	if stored.Settings.MaxVersionHistory > 0 {
		doc.Settings.MaxVersionHistory = stored.Settings.MaxVersionHistory
	}
	doc.Settings.EnableLogging = stored.Settings.EnableLogging
	doc.Settings.AutoUpdate = stored.Settings.AutoUpdate

	// Enforce the history cap even if the stored file exceeds it
	doc.VersionHistory = truncateHistory(doc.VersionHistory, doc.Settings.MaxVersionHistory)

	return doc, nil
}

// Path returns the on-disk location of the state document.
func (s *Store) Path() string {
	return s.path
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings
}

// LastCheck returns the time of the last completed check, or zero time and
// false when no check has completed yet.
func (s *Store) LastCheck() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.LastUpdateCheck == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.doc.LastUpdateCheck), true
}

// SetLastCheck records the time of a completed check.
func (s *Store) SetLastCheck(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := t.UnixMilli()
	s.doc.LastUpdateCheck = &ms
	return s.saveUnsafe()
}

// ClearLastCheck resets the last-check timestamp so the next check bypasses
// the cooldown window.
func (s *Store) ClearLastCheck() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.LastUpdateCheck = nil
	return s.saveUnsafe()
}

// LastUpdateTime returns the time of the last successful install, or zero
// time and false when no install has succeeded yet.
func (s *Store) LastUpdateTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.LastUpdateTime == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*s.doc.LastUpdateTime), true
}

// SetLastUpdateTime records the time of a successful install.
func (s *Store) SetLastUpdateTime(t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := t.UnixMilli()
	s.doc.LastUpdateTime = &ms
	return s.saveUnsafe()
}

// AppendVersionHistory records a version transition with the current
// timestamp, then truncates the history to the configured cap, dropping the
// oldest entries first.
func (s *Store) AppendVersionHistory(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.VersionHistory = append(s.doc.VersionHistory, HistoryEntry{
		From:      from,
		To:        to,
		Timestamp: s.nowFunc().UnixMilli(),
		Success:   true,
	})
	s.doc.VersionHistory = truncateHistory(s.doc.VersionHistory, s.doc.Settings.MaxVersionHistory)

	return s.saveUnsafe()
}

// History returns a copy of the version history, oldest first.
func (s *Store) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.doc.VersionHistory...)
}

// UpdateSettings mutates the settings through fn and persists the result.
func (s *Store) UpdateSettings(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.doc.Settings)
	if s.doc.Settings.MaxVersionHistory <= 0 {
		s.doc.Settings.MaxVersionHistory = DefaultMaxVersionHistory
	}
	if s.doc.Settings.UpdateCooldown <= 0 {
		s.doc.Settings.UpdateCooldown = DefaultUpdateCooldown.Milliseconds()
	}
	s.doc.VersionHistory = truncateHistory(s.doc.VersionHistory, s.doc.Settings.MaxVersionHistory)

	return s.saveUnsafe()
}

// Reset deletes the on-disk document and recreates defaults.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}

	s.doc = DefaultDocument()
	return s.saveUnsafe()
}

// saveUnsafe persists the document to disk without locking.
// Caller must hold the lock.
func (s *Store) saveUnsafe() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// truncateHistory keeps the most recent max entries (the tail).
func truncateHistory(history []HistoryEntry, max int) []HistoryEntry {
	if max <= 0 || len(history) <= max {
		return history
	}
	return append([]HistoryEntry(nil), history[len(history)-max:]...)
}

// Cooldown returns the configured update cooldown as a duration.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.UpdateCooldown) * time.Millisecond
}
