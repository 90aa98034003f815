package infra

import (
	"strings"
	"testing"
	"time"
)

func setRequiredKeys(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "openai-test")
	t.Setenv("LEONARDO_API_KEY", "leonardo-test")
	t.Setenv("IMGBB_API_KEY", "imgbb-test")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("PORT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("OpenAIModel = %q, want %q", cfg.OpenAIModel, "gpt-4o")
	}
	if cfg.OpenAIVisionModel != "gpt-4-turbo" {
		t.Fatalf("OpenAIVisionModel = %q, want %q", cfg.OpenAIVisionModel, "gpt-4-turbo")
	}
	if cfg.LeonardoBaseURL != "https://cloud.leonardo.ai/api/rest/v1" {
		t.Fatalf("LeonardoBaseURL = %q", cfg.LeonardoBaseURL)
	}
	if cfg.HTTPWriteTimeout != 900*time.Second {
		t.Fatalf("HTTPWriteTimeout = %s, want 900s", cfg.HTTPWriteTimeout)
	}
}

func TestLoadConfigReportsAllMissingKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LEONARDO_API_KEY", "")
	t.Setenv("IMGBB_API_KEY", "imgbb-test")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, key := range []string{"OPENAI_API_KEY", "LEONARDO_API_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not name %s", err, key)
		}
	}
	if strings.Contains(err.Error(), "IMGBB_API_KEY") {
		t.Fatalf("error %q names a key that was set", err)
	}
}

func TestLoadConfigSplitsAllowedOrigins(t *testing.T) {
	setRequiredKeys(t)
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, http://localhost:3000 ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	want := []string{"https://app.example.com", "http://localhost:3000"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %#v, want %#v", cfg.AllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.AllowedOrigins[i] != origin {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], origin)
		}
	}
}
