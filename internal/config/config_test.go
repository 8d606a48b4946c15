package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Run from a temp dir so no stray config.yml is picked up.
	origDir, _ := os.Getwd()
	os.Chdir(t.TempDir())
	defer os.Chdir(origDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.Database.Path != "./rehber.db" {
		t.Errorf("Expected default database path ./rehber.db, got %s", cfg.Database.Path)
	}
	if cfg.Mebbis.AuthTimeoutMins != 3 {
		t.Errorf("Expected default auth timeout of 3 minutes, got %d", cfg.Mebbis.AuthTimeoutMins)
	}
	if cfg.Mebbis.RetentionMins != 10 {
		t.Errorf("Expected default retention of 10 minutes, got %d", cfg.Mebbis.RetentionMins)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	origDir, _ := os.Getwd()
	os.Chdir(t.TempDir())
	defer os.Chdir(origDir)

	t.Setenv("REHBER_PORT", "9999")
	t.Setenv("REHBER_MEBBIS_BASE_URL", "http://localhost:8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected env override port 9999, got %d", cfg.Port)
	}
	if cfg.Mebbis.BaseURL != "http://localhost:8081" {
		t.Errorf("Expected env override base url, got %s", cfg.Mebbis.BaseURL)
	}
}
