package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const cacheFileExtension = ".json"

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// Store is a response cache backend.
type Store interface {
	// Get returns ErrCacheNotFound or ErrCacheExpired on a miss.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, data json.RawMessage) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	IsEnabled() bool
}

// Pruner is implemented by stores that need explicit removal of expired entries.
type Pruner interface {
	// Prune removes expired entries and returns how many were removed.
	Prune(ctx context.Context) (int, error)
}

// FileStore keeps one JSON file per entry in a directory.
// It is safe for concurrent use.
type FileStore struct {
	directory  string
	enabled    bool
	ttlSeconds int

	mu sync.RWMutex
}

// NewFileStore creates a file store rooted at directory, creating it if needed.
// A disabled store is returned without touching the filesystem.
func NewFileStore(directory string, enabled bool, ttlSeconds int) (*FileStore, error) {
	if !enabled {
		return &FileStore{enabled: false}, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		directory:  directory,
		enabled:    true,
		ttlSeconds: ttlSeconds,
	}, nil
}

// Get reads the entry for key. Expired files are removed in the background.
func (s *FileStore) Get(_ context.Context, key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}
	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.pathFor(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}

	if entry.IsExpired() {
		go func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			_ = os.Remove(path)
		}()
		return nil, ErrCacheExpired
	}

	return &entry, nil
}

// Set writes data under key, replacing any previous entry.
// The file is written to a temporary path and renamed into place.
func (s *FileStore) Set(_ context.Context, key string, data json.RawMessage) error {
	if !s.enabled {
		return ErrCacheDisabled
	}
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.MarshalIndent(NewEntry(key, data, s.ttlSeconds), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := s.pathFor(key)
	tempPath := path + ".tmp"
	if writeErr := os.WriteFile(tempPath, encoded, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if renameErr := os.Rename(tempPath, path); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if !s.enabled {
		return ErrCacheDisabled
	}
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pathFor(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every cache file in the directory.
func (s *FileStore) Clear(_ context.Context) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.cacheFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		if removeErr := os.Remove(filepath.Join(s.directory, name)); removeErr != nil {
			return fmt.Errorf("failed to remove cache file %s: %w", name, removeErr)
		}
	}
	return nil
}

// Prune removes expired entries. Unreadable or corrupt files are skipped.
func (s *FileStore) Prune(_ context.Context) (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.cacheFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range files {
		path := filepath.Join(s.directory, name)
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			continue
		}

		var entry Entry
		if json.Unmarshal(data, &entry) != nil {
			continue
		}

		if entry.IsExpired() && os.Remove(path) == nil {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of entries on disk, expired ones included.
func (s *FileStore) Count() (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.cacheFiles()
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// IsEnabled returns true if caching is enabled.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// Directory returns the cache directory path.
func (s *FileStore) Directory() string {
	return s.directory
}

func (s *FileStore) cacheFiles() ([]string, error) {
	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == cacheFileExtension {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// pathFor maps a key to a file path, replacing path separators.
func (s *FileStore) pathFor(key string) string {
	safeKey := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.directory, safeKey+cacheFileExtension)
}
