package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.GridSize != 4 {
		t.Errorf("expected GridSize=4, got %d", cfg.GridSize)
	}
	if cfg.MaxGridSize != 8 {
		t.Errorf("expected MaxGridSize=8, got %d", cfg.MaxGridSize)
	}
	if cfg.RevealDurationMS != 1000 {
		t.Errorf("expected RevealDurationMS=1000, got %d", cfg.RevealDurationMS)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080, got %d", cfg.WSPort)
	}
	if cfg.MaxClicksPerSecond != 10 {
		t.Errorf("expected MaxClicksPerSecond=10, got %d", cfg.MaxClicksPerSecond)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("expected empty DatabaseURL, got %q", cfg.DatabaseURL)
	}
	if len(cfg.AIProfiles) == 0 {
		t.Error("expected default AI profiles")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("GRID_SIZE", "6")
	t.Setenv("REVEAL_DURATION_MS", "250")
	t.Setenv("WS_PORT", "9090")
	t.Setenv("DATABASE_URL", "sqlite://telemetry.db")

	cfg := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))

	if cfg.GridSize != 6 {
		t.Errorf("expected GridSize=6 after env override, got %d", cfg.GridSize)
	}
	if cfg.RevealDurationMS != 250 {
		t.Errorf("expected RevealDurationMS=250 after env override, got %d", cfg.RevealDurationMS)
	}
	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090 after env override, got %d", cfg.WSPort)
	}
	if cfg.DatabaseURL != "sqlite://telemetry.db" {
		t.Errorf("expected DatabaseURL override, got %q", cfg.DatabaseURL)
	}
	// Non-overridden fields should remain default
	if cfg.MaxGridSize != 8 {
		t.Errorf("expected MaxGridSize=8 (default), got %d", cfg.MaxGridSize)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	t.Setenv("GRID_SIZE", "invalid")

	cfg := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))

	// Should fall back to default when env value is invalid
	if cfg.GridSize != 4 {
		t.Errorf("expected GridSize=4 (default) with invalid env, got %d", cfg.GridSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"grid_size": 8, "reveal_duration_ms": 500, "ai_profiles": [{"name": "Solo", "use_known_pair_chance": 50}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadFrom(path)

	if cfg.GridSize != 8 {
		t.Errorf("expected GridSize=8 from file, got %d", cfg.GridSize)
	}
	if cfg.RevealDurationMS != 500 {
		t.Errorf("expected RevealDurationMS=500 from file, got %d", cfg.RevealDurationMS)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080 (default), got %d", cfg.WSPort)
	}
	if len(cfg.AIProfiles) != 1 || cfg.AIProfiles[0].Name != "Solo" {
		t.Errorf("expected AI profiles replaced by file, got %+v", cfg.AIProfiles)
	}
}

func TestLoadWithBadFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadFrom(path)
	if cfg.GridSize != 4 {
		t.Errorf("expected GridSize=4 with unparsable file, got %d", cfg.GridSize)
	}
}

func TestProfile(t *testing.T) {
	cfg := Defaults()

	p, ok := cfg.Profile("")
	if !ok || p.Name != cfg.AIProfiles[0].Name {
		t.Errorf("empty name should return first profile, got %+v ok=%v", p, ok)
	}
	p, ok = cfg.Profile("Thalia")
	if !ok || p.Name != "Thalia" {
		t.Errorf("expected Thalia, got %+v ok=%v", p, ok)
	}
	if _, ok := cfg.Profile("Nobody"); ok {
		t.Error("unknown profile should not be found")
	}
}
