package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsWithoutEnv(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "data/webmonitor.db" {
		t.Errorf("DatabasePath = %q, want default", cfg.DatabasePath)
	}
	if !cfg.SchedulerEnabled {
		t.Errorf("SchedulerEnabled default should be true")
	}
}

func TestLoad_EnvironmentWins(t *testing.T) {
	os.Setenv("WEBMON_DASHBOARD_URL", "https://env.example.com")
	defer os.Unsetenv("WEBMON_DASHBOARD_URL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DashboardURL != "https://env.example.com" {
		t.Errorf("DashboardURL = %q, want env override", cfg.DashboardURL)
	}
}

func TestEnvList_CommaJoined(t *testing.T) {
	os.Setenv("WEBMON_DEFAULT_NOTIFICATION_RECIPIENTS", "a@example.com, b@example.com")
	defer os.Unsetenv("WEBMON_DEFAULT_NOTIFICATION_RECIPIENTS")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"a@example.com", "b@example.com"}
	if len(cfg.DefaultRecipients) != len(want) {
		t.Fatalf("DefaultRecipients = %v, want %v", cfg.DefaultRecipients, want)
	}
	for i := range want {
		if cfg.DefaultRecipients[i] != want[i] {
			t.Errorf("DefaultRecipients[%d] = %q, want %q", i, cfg.DefaultRecipients[i], want[i])
		}
	}
}
