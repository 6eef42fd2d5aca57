package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Library != "epubs" {
		t.Errorf("expected default library, got %q", cfg.Library)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite, got %q", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "none" || cfg.Logging.Mode != "overwrite" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Input.CellWidth != 8 || cfg.Input.CellHeight != 16 {
		t.Errorf("unexpected cell size %+v", cfg.Input)
	}
	if cfg.File() != "" {
		t.Errorf("no config file expected, got %q", cfg.File())
	}
	dir, err := Dir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "positions.db"); cfg.Storage.Path != want {
		t.Errorf("expected storage path %q, got %q", want, cfg.Storage.Path)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `library: https://books.example.com/epubs
storage:
  driver: memory
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JIANYUE_LOGGING_LEVEL", "normal")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Library != "https://books.example.com/epubs" {
		t.Errorf("library from file not applied, got %q", cfg.Library)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("storage driver from file not applied, got %q", cfg.Storage.Driver)
	}
	if cfg.Logging.Level != "normal" {
		t.Errorf("environment should override file, got %q", cfg.Logging.Level)
	}
	if cfg.File() != path {
		t.Errorf("expected file %q, got %q", path, cfg.File())
	}
}

func TestLoad_BadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(path, []byte("library: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed file")
	}
}
