package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hollowbyte/discord-bridge/internal/config"
)

const testRoutesFile = "routes.yaml"

func TestFileLoadNonExistent(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewFile(filepath.Join(tmpDir, testRoutesFile))

	routes, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("expected empty route table, got %d entries", len(routes))
	}
}

func TestFileSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, testRoutesFile)
	s := NewFile(path)

	routes := []config.Route{
		{EventName: "MESSAGE_CREATE", Enabled: true, Endpoints: []string{"https://sink/a", "https://sink/b"}},
		{EventName: "GUILD_CREATE", Enabled: false, Endpoints: []string{"https://sink/c"}},
	}

	if err := s.Save(routes); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(loaded))
	}
	if loaded[0].EventName != "MESSAGE_CREATE" || len(loaded[0].Endpoints) != 2 {
		t.Errorf("unexpected first route: %+v", loaded[0])
	}
	if loaded[1].Enabled {
		t.Errorf("expected second route disabled")
	}
}

func TestFileSaveAtomic(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, testRoutesFile)
	s := NewFile(path)

	if err := s.Save([]config.Route{{EventName: "X"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not exist after save")
	}
}

func TestFileSaveRejectsInvalidRoute(t *testing.T) {
	tmpDir := t.TempDir()
	s := NewFile(filepath.Join(tmpDir, testRoutesFile))

	err := s.Save([]config.Route{{EventName: ""}})
	if err != config.ErrEmptyEventName {
		t.Errorf("Save() error = %v, want ErrEmptyEventName", err)
	}
}

func TestFileLoadEmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, testRoutesFile)

	if err := os.WriteFile(path, []byte(""), 0600); err != nil {
		t.Fatalf("failed to create empty file: %v", err)
	}

	s := NewFile(path)
	routes, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(routes) != 0 {
		t.Errorf("expected empty route table, got %d entries", len(routes))
	}
}
