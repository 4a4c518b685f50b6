package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "evchargenet-gateway" {
		t.Errorf("expected app name 'evchargenet-gateway', got %s", cfg.App.Name)
	}
	if cfg.HTTP.Port != 3000 {
		t.Errorf("expected HTTP port 3000, got %d", cfg.HTTP.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.Scoring.WeightWaitTime != 0.25 {
		t.Errorf("expected default wait-time weight 0.25, got %f", cfg.Scoring.WeightWaitTime)
	}
	if cfg.Breaker.Threshold != 5 {
		t.Errorf("expected default breaker threshold 5, got %d", cfg.Breaker.Threshold)
	}
}

func TestLoader_LoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
app:
  name: custom-gateway
  version: 2.0.0
  environment: staging
http:
  port: 4000
log:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	loader := NewLoader(WithConfigPaths(configPath))
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "custom-gateway" {
		t.Errorf("expected app name 'custom-gateway', got %s", cfg.App.Name)
	}
	if cfg.App.Version != "2.0.0" {
		t.Errorf("expected version '2.0.0', got %s", cfg.App.Version)
	}
	if cfg.HTTP.Port != 4000 {
		t.Errorf("expected port 4000, got %d", cfg.HTTP.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Log.Level)
	}
}

func TestLoader_LoadFromEnv(t *testing.T) {
	os.Setenv("API_PORT", "3001")
	os.Setenv("WEIGHT_WAIT_TIME", "0.4")
	os.Setenv("CIRCUIT_BREAKER_THRESHOLD", "8")
	defer func() {
		os.Unsetenv("API_PORT")
		os.Unsetenv("WEIGHT_WAIT_TIME")
		os.Unsetenv("CIRCUIT_BREAKER_THRESHOLD")
	}()

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.HTTP.Port != 3001 {
		t.Errorf("expected port 3001 from API_PORT, got %d", cfg.HTTP.Port)
	}
	if cfg.Scoring.WeightWaitTime != 0.4 {
		t.Errorf("expected wait-time weight 0.4 from WEIGHT_WAIT_TIME, got %f", cfg.Scoring.WeightWaitTime)
	}
	if cfg.Breaker.Threshold != 8 {
		t.Errorf("expected breaker threshold 8 from CIRCUIT_BREAKER_THRESHOLD, got %d", cfg.Breaker.Threshold)
	}
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
http:
  port: 4000
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("API_PORT", "4500")
	defer os.Unsetenv("API_PORT")

	cfg, err := NewLoader(WithConfigPaths(configPath)).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.HTTP.Port != 4500 {
		t.Errorf("expected env override 4500, got %d", cfg.HTTP.Port)
	}
}

func TestLoader_UnmappedEnvVarIgnored(t *testing.T) {
	os.Setenv("SOME_UNRELATED_VARIABLE", "whatever")
	defer os.Unsetenv("SOME_UNRELATED_VARIABLE")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.App.Name != "evchargenet-gateway" {
		t.Errorf("unrelated env var should not affect config, got app name %s", cfg.App.Name)
	}
}

func TestMustLoad_Success(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustLoad should not panic with valid config")
		}
	}()

	cfg := MustLoad()
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoad_Simple(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoadWithServiceDefaults(t *testing.T) {
	cfg, err := LoadWithServiceDefaults("feature-engineer")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if cfg.App.Name != "feature-engineer" {
		t.Errorf("expected app name 'feature-engineer', got %s", cfg.App.Name)
	}
}

func TestLoader_ConfigEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom-config.yaml")

	configContent := `
app:
  name: config-env-var-service
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	os.Setenv("CONFIG_PATH", configPath)
	defer os.Unsetenv("CONFIG_PATH")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.Name != "config-env-var-service" {
		t.Errorf("expected 'config-env-var-service', got %s", cfg.App.Name)
	}
}

func TestBreakerConfig_CoolDownFromEnv(t *testing.T) {
	os.Setenv("CIRCUIT_BREAKER_TIMEOUT", "45000")
	defer os.Unsetenv("CIRCUIT_BREAKER_TIMEOUT")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Breaker.CoolDown().Milliseconds() != 45000 {
		t.Errorf("expected 45000ms cool-down, got %v", cfg.Breaker.CoolDown())
	}
}
