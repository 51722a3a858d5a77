// Package artifact writes audit-grade run artifacts to a per-run directory.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry is one recorded artifact in the run's index.
type Entry struct {
	Kind      string    `json:"kind"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Store collects artifacts for a single run and writes them under RunDir.
type Store struct {
	runDir string
	index  []Entry
	now    func() time.Time
}

// NewStore creates (or reuses) the run directory.
func NewStore(runDir string) (*Store, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Store{runDir: runDir, now: time.Now}, nil
}

// NewRunStore creates a timestamped run directory under baseDir, named
// <prefix>_<UTC timestamp>.
func NewRunStore(baseDir, prefix string) (*Store, error) {
	ts := time.Now().UTC().Format("20060102_150405")
	return NewStore(filepath.Join(baseDir, prefix+"_"+ts))
}

// RunDir returns the directory artifacts are written to.
func (s *Store) RunDir() string { return s.runDir }

// Add records an artifact in the in-memory index; Flush persists the index.
func (s *Store) Add(kind string, payload any) {
	s.index = append(s.index, Entry{Kind: kind, Payload: payload, CreatedAt: s.now().UTC()})
}

// Flush writes the artifact index to index.json.
func (s *Store) Flush() error {
	return s.WriteJSON("index.json", s.index)
}

// WriteJSON writes payload as indented JSON to filename inside the run dir.
func (s *Store) WriteJSON(filename string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filename, err)
	}
	return s.WriteText(filename, string(data)+"\n")
}

// WriteText writes text to filename inside the run dir.
func (s *Store) WriteText(filename, text string) error {
	path := filepath.Join(s.runDir, filename)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}
