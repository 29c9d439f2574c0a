package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if len(cfg.ArchivePath) == 0 {
		t.Error("default archive path empty")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.ClipClearSeconds != 30 {
		t.Errorf("clip clear = %d", cfg.ClipClearSeconds)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := []byte("archive_path: /vault/store.cf\nlog_level: debug\nsave_on_close: true\nclip_clear_seconds: 10\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ArchivePath != "/vault/store.cf" {
		t.Errorf("archive path = %q", cfg.ArchivePath)
	}
	if cfg.LogLevel != "debug" || !cfg.SaveOnClose || cfg.ClipClearSeconds != 10 {
		t.Errorf("parsed config wrong: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Error("defaults should apply")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("broken yaml should error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COFFRE_ARCHIVE", "/env/store.cf")
	t.Setenv("COFFRE_LOG_LEVEL", "error")
	t.Setenv("COFFRE_NO_COLOR", "1")
	t.Setenv("COFFRE_SAVE_ON_CLOSE", "true")
	t.Setenv("COFFRE_CLIP_CLEAR", "5")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ArchivePath != "/env/store.cf" || cfg.LogLevel != "error" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if !cfg.NoColor || !cfg.SaveOnClose || cfg.ClipClearSeconds != 5 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}
