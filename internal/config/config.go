// Package config loads the control plane's configuration document and
// overlays it with process environment variables, following the teacher's
// Config-struct-of-structs/Load() convention (YoForex005-Trading-Engine's
// backend/config/config.go), generalized so every option — not just
// dashboard_url — can be overridden by environment, env always winning
// (spec.md §6, §9).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every option's upper-cased name to form its
// environment variable (spec.md §6: "an environment variable of the same
// name in upper case with a fixed prefix").
const EnvPrefix = "WEBMON_"

// Config holds every recognized configuration option (spec.md §6).
type Config struct {
	DataDirectory      string
	DatabasePath       string
	SnapshotDirectory  string

	DefaultRecipients []string

	NotificationSender   string
	NotificationProvider string // "smtp" or "sendgrid"
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	SMTPUseTLS           bool
	SMTPUseSSL           bool
	SendGridAPIKey       string

	DashboardURL      string
	SchedulerEnabled  bool

	RenderDelaySeconds       int
	VisualDiffThresholdPct   float64
	MaxCrawlDepth            int
	ExcludePageKeywords      []string

	HistoryRetentionDays int
	QueueRetentionDays   int

	CatalogRedisAddr string // optional; empty means in-memory cache only.

	AdminListenAddr string
	AdminJWTSecret  string
}

// Default returns the built-in defaults applied before the file and
// environment are consulted.
func Default() *Config {
	return &Config{
		DataDirectory:          "data",
		DatabasePath:           "data/webmonitor.db",
		SnapshotDirectory:      "data/snapshots",
		NotificationSender:     "monitor@example.com",
		NotificationProvider:   "smtp",
		SMTPPort:               587,
		SMTPUseTLS:             true,
		DashboardURL:           "http://localhost:8080",
		SchedulerEnabled:       true,
		RenderDelaySeconds:     2,
		VisualDiffThresholdPct: 5.0,
		MaxCrawlDepth:          3,
		HistoryRetentionDays:   180,
		QueueRetentionDays:     7,
		AdminListenAddr:        ":8090",
	}
}

// Load reads an optional .env-style file at path (missing file is not an
// error — the teacher's config layer treats its absence the same way),
// then overlays process environment variables with the WEBMON_ prefix,
// environment always winning.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	cfg := Default()

	cfg.DataDirectory = envString("DATA_DIRECTORY", cfg.DataDirectory)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.SnapshotDirectory = envString("SNAPSHOT_DIRECTORY", cfg.SnapshotDirectory)
	cfg.DefaultRecipients = envList("DEFAULT_NOTIFICATION_RECIPIENTS", cfg.DefaultRecipients)

	cfg.NotificationSender = envString("NOTIFICATION_SENDER", cfg.NotificationSender)
	cfg.NotificationProvider = envString("NOTIFICATION_PROVIDER", cfg.NotificationProvider)
	cfg.SMTPHost = envString("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envString("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envString("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPUseTLS = envBool("SMTP_USE_TLS", cfg.SMTPUseTLS)
	cfg.SMTPUseSSL = envBool("SMTP_USE_SSL", cfg.SMTPUseSSL)
	cfg.SendGridAPIKey = envString("SENDGRID_API_KEY", cfg.SendGridAPIKey)

	cfg.DashboardURL = envString("DASHBOARD_URL", cfg.DashboardURL)
	cfg.SchedulerEnabled = envBool("SCHEDULER_ENABLED", cfg.SchedulerEnabled)

	cfg.RenderDelaySeconds = envInt("RENDER_DELAY_SECONDS", cfg.RenderDelaySeconds)
	cfg.VisualDiffThresholdPct = envFloat("VISUAL_DIFF_THRESHOLD_PERCENT", cfg.VisualDiffThresholdPct)
	cfg.MaxCrawlDepth = envInt("MAX_CRAWL_DEPTH", cfg.MaxCrawlDepth)
	cfg.ExcludePageKeywords = envList("EXCLUDE_PAGE_KEYWORDS", cfg.ExcludePageKeywords)

	cfg.HistoryRetentionDays = envInt("HISTORY_RETENTION_DAYS", cfg.HistoryRetentionDays)
	cfg.QueueRetentionDays = envInt("QUEUE_RETENTION_DAYS", cfg.QueueRetentionDays)

	cfg.CatalogRedisAddr = envString("CATALOG_REDIS_ADDR", cfg.CatalogRedisAddr)

	cfg.AdminListenAddr = envString("ADMIN_LISTEN_ADDR", cfg.AdminListenAddr)
	cfg.AdminJWTSecret = envString("ADMIN_JWT_SECRET", cfg.AdminJWTSecret)

	return cfg, nil
}

func envKey(name string) string { return EnvPrefix + name }

func envString(name, def string) string {
	if v, ok := os.LookupEnv(envKey(name)); ok {
		return v
	}
	return def
}

func envList(name string, def []string) []string {
	v, ok := os.LookupEnv(envKey(name))
	if !ok {
		return def
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(name string, def int) int {
	v, ok := os.LookupEnv(envKey(name))
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func envFloat(name string, def float64) float64 {
	v, ok := os.LookupEnv(envKey(name))
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

// SchedulerStatePath is the persisted scheduler snapshot path (spec.md
// §6: "<data>/scheduler_state.json").
func (c *Config) SchedulerStatePath() string {
	return filepath.Join(c.DataDirectory, "scheduler_state.json")
}

// SchedulerLockPath is the singleton lock file path (spec.md §6:
// "<data>/scheduler.lock").
func (c *Config) SchedulerLockPath() string {
	return filepath.Join(c.DataDirectory, "scheduler.lock")
}

func envBool(name string, def bool) bool {
	v, ok := os.LookupEnv(envKey(name))
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
