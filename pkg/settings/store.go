package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persistence boundary for settings. In the shipped
// extension this is the browser's storage area; tests and the CLI use
// the file-backed implementation below.
type Store interface {
	// Get returns the values for the requested keys. Unset keys are
	// simply absent from the result, never an error.
	Get(ctx context.Context, keys []string) (map[string]any, error)

	// Set merges the given partial values into the store.
	Set(ctx context.Context, values map[string]any) error
}

// FileStore implements Store using a single JSON file with atomic
// writes. It also fans out change notifications to subscribers, which
// stands in for the extension's cross-context storage-changed events.
type FileStore struct {
	path      string
	mu        sync.RWMutex
	data      map[string]any
	listeners []func(changed []string)
}

// NewFileStore creates a file-backed store at path. If path is empty,
// it defaults to ~/.tweetlens/settings.json. A missing file is not an
// error; it reads as an empty store.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".tweetlens", "settings.json")
	}

	s := &FileStore{path: path, data: make(map[string]any)}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Subscribe registers a callback invoked after every successful Set
// with the list of changed keys. Callbacks run synchronously on the
// writer's goroutine.
func (s *FileStore) Subscribe(fn func(changed []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *FileStore) load() error {
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	data := make(map[string]any)
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode settings file: %w", err)
	}
	s.data = data
	return nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, keys []string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Set implements Store. The merged state is written to a temp file and
// renamed into place so a crash never leaves a half-written file.
func (s *FileStore) Set(_ context.Context, values map[string]any) error {
	s.mu.Lock()
	changed := make([]string, 0, len(values))
	for k, v := range values {
		s.data[k] = v
		changed = append(changed, k)
	}

	if err := s.persistLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	listeners := append([]func([]string){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(changed)
	}
	return nil
}

func (s *FileStore) persistLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
