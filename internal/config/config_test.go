package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "0123456789abcdef")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "0123456789abcdef")

	cfg, err := LoadWithoutDatabase()
	if err != nil {
		t.Fatalf("LoadWithoutDatabase: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}

	t.Setenv("SESSION_SECRET", "")
	if _, err := LoadWithoutDatabase(); err == nil {
		t.Error("SESSION_SECRET is still required")
	}
}

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rollcall")
	t.Setenv("SESSION_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without SESSION_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rollcall")
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	for _, key := range []string{"PORT", "APP_TIMEZONE", "SESSION_TTL", "REMINDER_LEAD", "BASE_URL", "SMTP_HOST", "SMTP_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Location.String() != "Asia/Tokyo" {
		t.Errorf("Location = %s, want Asia/Tokyo", cfg.Location)
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Errorf("SessionTTL = %s", cfg.SessionTTL)
	}
	if cfg.ReminderLead != 3*time.Hour {
		t.Errorf("ReminderLead = %s", cfg.ReminderLead)
	}
	if cfg.SMTP.Enabled() {
		t.Error("SMTP should be disabled without SMTP_HOST")
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("SMTP.Port = %d", cfg.SMTP.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rollcall")
	t.Setenv("SESSION_SECRET", "0123456789abcdef")
	t.Setenv("BASE_URL", "https://rollcall.example.com/")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("SESSION_TTL", "12h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://rollcall.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %s, want UTC", cfg.Location)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %s", cfg.SessionTTL)
	}
	if !cfg.SecureCookies() {
		t.Error("https base URL should use secure cookies")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"APP_TIMEZONE", "Mars/Olympus"},
		{"SESSION_TTL", "soon"},
		{"REMINDER_INTERVAL", "-1m"},
		{"SMTP_PORT", "smtp"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/rollcall")
			t.Setenv("SESSION_SECRET", "0123456789abcdef")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
