// Package store provides route table storage implementations.
package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/hollowbyte/discord-bridge/internal/config"
	"gopkg.in/yaml.v3"
)

// File handles route table persistence with atomic writes. This is a
// convenience for operators who want to edit routes as a standalone
// YAML document rather than the full bridge config file.
type File struct {
	path string
	mu   sync.RWMutex
}

// NewFile creates a new file-based route store. path is the full path
// to a routes.yaml file.
func NewFile(path string) *File {
	return &File{path: path}
}

type fileDocument struct {
	Routes []config.Route `yaml:"routes"`
}

// Load reads the route table from disk. Returns an empty table if the
// file doesn't exist.
func (s *File) Load() ([]config.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []config.Route{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []config.Route{}, nil
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Routes, nil
}

// Save writes the route table to disk using atomic write: it writes to
// a temporary file first, then renames to prevent corruption.
func (s *File) Save(routes []config.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range routes {
		if err := routes[i].Validate(); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(fileDocument{Routes: routes})
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Path returns the route file path.
func (s *File) Path() string {
	return s.path
}
