package keepsake

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.OllamaModel != "mistral" {
		t.Errorf("expected default model, got %s", cfg.OllamaModel)
	}
	if cfg.DecaySchedule != "@daily" {
		t.Errorf("expected default schedule, got %s", cfg.DecaySchedule)
	}
	if cfg.Temperature.EscalationFactor != 1.5 {
		t.Errorf("expected default escalation factor, got %v", cfg.Temperature.EscalationFactor)
	}
	if len(cfg.Temperature.Explicit) == 0 {
		t.Error("expected built-in keyword lists")
	}
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "./data/keepsake.db" {
		t.Errorf("expected default db path, got %s", cfg.DBPath)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	data := `
db_path: /tmp/test.db
ollama_model: llama3
gemini_api_key: file-key
decay_schedule: "0 4 * * *"
keywords:
  mild: [wink]
  moderate: [tease]
  explicit: [naked]
phrases:
  - "turn me on"
escalation_factor: 2.0
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/test.db" || cfg.OllamaModel != "llama3" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.GeminiAPIKey != "file-key" {
		t.Errorf("expected file key, got %s", cfg.GeminiAPIKey)
	}
	if cfg.DecaySchedule != "0 4 * * *" {
		t.Errorf("expected file schedule, got %s", cfg.DecaySchedule)
	}

	tc := cfg.Temperature
	if !tc.Mild["wink"] || !tc.Moderate["tease"] || !tc.Explicit["naked"] {
		t.Errorf("keyword lists not loaded: %+v", tc)
	}
	if tc.Mild["cute"] {
		t.Error("file keyword lists must replace built-ins, not merge")
	}
	if len(tc.Phrases) != 1 || !tc.Phrases[0].MatchString("does this TURN ME ON") {
		t.Errorf("phrases must compile case-insensitively: %+v", tc.Phrases)
	}
	if tc.EscalationFactor != 2.0 {
		t.Errorf("expected escalation 2.0, got %v", tc.EscalationFactor)
	}
}

func TestLoadConfigBadPhrasePattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	data := `
keywords:
  mild: [wink]
phrases:
  - "(unclosed"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid phrase regexp")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keepsake.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}
