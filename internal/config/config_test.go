package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults_Valid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Defaults()
	cfg.General.MaxRecursions = 7
	cfg.Endpoint.Model = "test-model"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.MaxRecursions != 7 {
		t.Fatalf("expected maxRecursions 7, got %d", loaded.General.MaxRecursions)
	}
	if loaded.Endpoint.Model != "test-model" {
		t.Fatalf("expected model 'test-model', got %q", loaded.Endpoint.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_RejectsBadRecursions(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxRecursions = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for maxRecursions=0")
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for bad log level")
	}
}

func TestExpandEnvVars_WithValue(t *testing.T) {
	os.Setenv("DESKPILOT_TEST_VAR", "hello")
	defer os.Unsetenv("DESKPILOT_TEST_VAR")

	got := ExpandEnvVars("key=${DESKPILOT_TEST_VAR}")
	if got != "key=hello" {
		t.Fatalf("expected 'key=hello', got %q", got)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("DESKPILOT_UNSET_VAR")
	got := ExpandEnvVars("${DESKPILOT_UNSET_VAR:-fallback}")
	if got != "fallback" {
		t.Fatalf("expected 'fallback', got %q", got)
	}
}

func TestExpandEnvVars_UnsetNoDefault(t *testing.T) {
	os.Unsetenv("DESKPILOT_UNSET_VAR")
	got := ExpandEnvVars("${DESKPILOT_UNSET_VAR}")
	if got != "${DESKPILOT_UNSET_VAR}" {
		t.Fatalf("expected original placeholder, got %q", got)
	}
}

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	val, err := GetByPath(cfg, "general.logLevel")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "info" {
		t.Fatalf("expected 'info', got %v", val)
	}
}

func TestGetByPath_Missing(t *testing.T) {
	if _, err := GetByPath(Defaults(), "general.nonexistent"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestSetByPath_Coercion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.maxRecursions", "15"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.General.MaxRecursions != 15 {
		t.Fatalf("expected 15, got %d", cfg.General.MaxRecursions)
	}

	if err := SetByPath(cfg, "tools.computer.scalingEnabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Tools.Computer.ScalingEnabled {
		t.Fatal("expected scalingEnabled=false")
	}
}

func TestSanitize_MasksAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.Endpoint.APIKey = "sk-ant-veryverysecret"
	out := Sanitize(cfg)
	if out.Endpoint.APIKey == cfg.Endpoint.APIKey {
		t.Fatal("expected masked API key")
	}
	if cfg.Endpoint.APIKey != "sk-ant-veryverysecret" {
		t.Fatal("sanitize must not mutate the original")
	}
}
