package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/unilert/unilert/pkg/Logger"
)

// JSONStore persists one JSON document per key under a directory. Writes go
// through a temp file and rename so a crash never leaves a torn file.
type JSONStore struct {
	dir    string
	mu     sync.Mutex
	logger *Logger.Logger
}

func NewJSONStore(dir string, logger *Logger.Logger) (*JSONStore, error) {
	if dir == "" {
		dir = "data"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %q: %w", dir, err)
	}
	return &JSONStore{dir: dir, logger: logger}, nil
}

// Load reads the document stored under key into v. A missing file leaves v
// untouched and returns nil; a malformed file is treated the same way, with a
// warning, so one corrupt dataset never blocks startup.
func (s *JSONStore) Load(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %q: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warnf("discarding malformed store file for %q: %v", key, err)
		return nil
	}
	return nil
}

// Save serializes v and replaces the document under key atomically.
func (s *JSONStore) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace %q: %w", key, err)
	}
	return nil
}

func (s *JSONStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
