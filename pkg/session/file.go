package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	pkgio "github.com/matzehuels/mindmap/pkg/io"
)

// MaxRecent is the number of recently opened documents remembered.
const MaxRecent = 10

// State is the persisted application state between runs.
type State struct {
	// Recent holds absolute document paths, most recent first.
	Recent    []string  `json:"recent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStore persists State as a JSON file in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based state store.
// If baseDir is empty, defaults to the user config dir (~/.config/mindmap/).
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get config dir: %w", err)
		}
		baseDir = filepath.Join(dir, "mindmap")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) statePath() string {
	return filepath.Join(s.baseDir, "state.json")
}

// Get returns the stored state, or an empty state if none was saved yet.
func (s *FileStore) Get(ctx context.Context) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *FileStore) read() (*State, error) {
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	return &st, nil
}

// Set replaces the stored state.
func (s *FileStore) Set(ctx context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(st)
}

func (s *FileStore) write(st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := pkgio.WriteFileAtomic(s.statePath(), data); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// AddRecent moves path to the front of the recent list.
func (s *FileStore) AddRecent(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.read()
	if err != nil {
		// A corrupt state file only loses the history.
		st = &State{}
	}
	st.Recent = slices.DeleteFunc(st.Recent, func(p string) bool { return p == abs })
	st.Recent = slices.Insert(st.Recent, 0, abs)
	if len(st.Recent) > MaxRecent {
		st.Recent = st.Recent[:MaxRecent]
	}
	return s.write(st)
}

// Recent returns the recently opened paths, most recent first.
func (s *FileStore) Recent(ctx context.Context) ([]string, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return st.Recent, nil
}

// Clear removes the state file.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.statePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.statePath()
}
