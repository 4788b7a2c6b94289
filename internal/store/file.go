package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"RSIRadar/internal/model"
)

const (
	metricsFile   = "metrics.json"
	favoritesFile = "favorites.json"
	stateFile     = "state.json"
)

// FileStore keeps each piece of state in its own JSON file under Dir.
// Writes go to a temp file first and are renamed into place.
type FileStore struct {
	Dir string
	mu  sync.Mutex
}

type fileState struct {
	CycleCompleted bool      `json:"cycle_completed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{Dir: dir}, nil
}

func (s *FileStore) LoadSnapshot(_ context.Context) (map[string]model.MetricRecord, error) {
	snap := map[string]model.MetricRecord{}
	if err := s.read(metricsFile, &snap); err != nil {
		return map[string]model.MetricRecord{}, err
	}
	return snap, nil
}

func (s *FileStore) SaveSnapshot(_ context.Context, snap map[string]model.MetricRecord) error {
	return s.write(metricsFile, snap)
}

func (s *FileStore) LoadFavorites(_ context.Context) ([]string, error) {
	var favs []string
	if err := s.read(favoritesFile, &favs); err != nil {
		return nil, err
	}
	return favs, nil
}

func (s *FileStore) SaveFavorites(_ context.Context, symbols []string) error {
	if symbols == nil {
		symbols = []string{}
	}
	return s.write(favoritesFile, symbols)
}

func (s *FileStore) LoadCycleCompleted(_ context.Context) (bool, error) {
	var st fileState
	if err := s.read(stateFile, &st); err != nil {
		return false, err
	}
	return st.CycleCompleted, nil
}

func (s *FileStore) SaveCycleCompleted(_ context.Context, done bool) error {
	return s.write(stateFile, fileState{CycleCompleted: done, UpdatedAt: time.Now()})
}

func (s *FileStore) Close() error { return nil }

// read leaves out untouched when the file does not exist.
func (s *FileStore) read(name string, out interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

func (s *FileStore) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
