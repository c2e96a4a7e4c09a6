package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.HistoryWindow != 8 {
		t.Errorf("expected default history window 8, got %d", cfg.HistoryWindow)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Errorf("expected default LLM timeout 30s, got %v", cfg.LLMTimeout)
	}
	if cfg.SystemPrompt == "" || cfg.FallbackReply == "" {
		t.Error("expected non-empty default prompt and fallback reply")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HISTORY_WINDOW", "4")
	t.Setenv("OPERATOR_TOKEN", "secret")
	t.Setenv("LLM_TIMEOUT_MS", "not-a-number")

	cfg := Load()

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.HistoryWindow != 4 {
		t.Errorf("expected history window 4, got %d", cfg.HistoryWindow)
	}
	if cfg.OperatorToken != "secret" {
		t.Errorf("expected operator token override, got %q", cfg.OperatorToken)
	}
	// Malformed numbers fall back to the default.
	if cfg.LLMTimeout != 30*time.Second {
		t.Errorf("expected default LLM timeout on bad input, got %v", cfg.LLMTimeout)
	}
}
