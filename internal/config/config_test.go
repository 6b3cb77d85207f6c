package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "mysql" {
		t.Errorf("database.driver = %q, want mysql", cfg.Database.Driver)
	}
	if !cfg.Chatbot.Enabled || !cfg.Chatbot.VendorAccess || !cfg.Chatbot.CustomerAccess {
		t.Errorf("chatbot switches should default to enabled: %+v", cfg.Chatbot)
	}
	if cfg.Chatbot.MaxMessagesPerSession != 50 {
		t.Errorf("max_messages_per_session = %d, want 50", cfg.Chatbot.MaxMessagesPerSession)
	}
	if cfg.Chatbot.RetentionDays != 30 {
		t.Errorf("retention_days = %d, want 30", cfg.Chatbot.RetentionDays)
	}
	if cfg.Chatbot.HistoryTurns != 5 {
		t.Errorf("history_turns = %d, want 5", cfg.Chatbot.HistoryTurns)
	}
	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("ai.timeout = %v, want 30s", cfg.AI.Timeout)
	}
	if cfg.Chatbot.WelcomeMessage == "" {
		t.Error("welcome message should have a default")
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9090
chatbot:
  max_messages_per_session: 500
  retention_days: -3
database:
  driver: sqlite
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env-secret-0123456789abcdef0123")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("database.driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Chatbot.MaxMessagesPerSession != MaxMessagesPerSession {
		t.Errorf("max_messages_per_session = %d, want clamp to %d", cfg.Chatbot.MaxMessagesPerSession, MaxMessagesPerSession)
	}
	if cfg.Chatbot.RetentionDays != 0 {
		t.Errorf("retention_days = %d, want 0", cfg.Chatbot.RetentionDays)
	}
	if cfg.JWT.Secret != "from-env-secret-0123456789abcdef0123" {
		t.Errorf("jwt.secret = %q, want env value", cfg.JWT.Secret)
	}
}

func TestNormalizeLowerBound(t *testing.T) {
	c := ChatbotConfig{MaxMessagesPerSession: 1, RetentionDays: 900}
	c.normalize()
	if c.MaxMessagesPerSession != MinMessagesPerSession {
		t.Errorf("max = %d, want %d", c.MaxMessagesPerSession, MinMessagesPerSession)
	}
	if c.RetentionDays != MaxRetentionDays {
		t.Errorf("retention = %d, want %d", c.RetentionDays, MaxRetentionDays)
	}
}
