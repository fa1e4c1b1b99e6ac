package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound indicates the alert id is not in the stored list.
var ErrNotFound = errors.New("alerts: alert not found")

// FileStore persists the alert list as one JSON array in a single file slot,
// fully overwritten on every mutation. There is no incremental update and no
// versioning; the layout mirrors the client-local storage it replaces.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore builds a store over path. The file is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the full alert list. A missing file is an empty list.
func (s *FileStore) Load() ([]Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save overwrites the stored list.
func (s *FileStore) Save(list []Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(list)
}

// Add appends a new alert and persists the list.
func (s *FileStore) Add(a Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	return s.saveLocked(append(list, a))
}

// Toggle flips IsActive on the alert with the given id.
func (s *FileStore) Toggle(id string) (Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return Alert{}, err
	}
	for i := range list {
		if list[i].ID == id {
			list[i].IsActive = !list[i].IsActive
			if err := s.saveLocked(list); err != nil {
				return Alert{}, err
			}
			return list[i], nil
		}
	}
	return Alert{}, ErrNotFound
}

// Delete removes the alert with the given id.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.loadLocked()
	if err != nil {
		return err
	}
	kept := list[:0]
	found := false
	for _, a := range list {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return ErrNotFound
	}
	return s.saveLocked(kept)
}

func (s *FileStore) loadLocked() ([]Alert, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Alert{}, nil
		}
		return nil, fmt.Errorf("read alerts file: %w", err)
	}
	if len(data) == 0 {
		return []Alert{}, nil
	}

	var list []Alert
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode alerts file: %w", err)
	}
	return list, nil
}

func (s *FileStore) saveLocked(list []Alert) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create alerts dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode alerts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write alerts file: %w", err)
	}
	return nil
}
