package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/pagepace/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
	tuning, err := cfg.Tuning()
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	if tuning != model.DefaultTuning() {
		t.Fatalf("expected defaults, got %+v", tuning)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
db = "/tmp/reading.db"

[estimation]
document-sample = 20
default-seconds-per-page = 90.0
stretch-factor = 2.0

[analytics]
trend-days = 14

[tracker]
pomodoro = 50
show-estimate = false

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB == nil || *cfg.DB != "/tmp/reading.db" {
		t.Fatalf("unexpected db: %v", cfg.DB)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %v", cfg.Log.Level)
	}
	tuning, err := cfg.Tuning()
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	if tuning.DocumentSampleSessions != 20 || tuning.DefaultSecondsPerPage != 90 || tuning.GoalStretchFactor != 2 || tuning.TrendDays != 14 {
		t.Fatalf("overlay not applied: %+v", tuning)
	}
	if tuning.GlobalSampleSessions != 50 {
		t.Fatalf("expected untouched defaults, got %+v", tuning)
	}
	tracker, err := cfg.TrackerSettings()
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	if tracker.PomodoroMinutes != 50 || tracker.ShowEstimate || tracker.SprintMinutes != 5 {
		t.Fatalf("unexpected tracker: %+v", tracker)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	cases := map[string]string{
		"unknown key": "[estimation]\nspeed = 3\n",
		"bad syntax":  "[estimation\n",
		"wrong type":  "[analytics]\ntrend-days = \"week\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTuningValidation(t *testing.T) {
	cases := map[string]string{
		"zero sample":    "[estimation]\nmin-sample-pages = 0\n",
		"stretch":        "[estimation]\nstretch-factor = 0.5\n",
		"history window": "[analytics]\nhistory-days = 7\n",
		"spread":         "[analytics]\nspread-ratio = 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, body))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if _, err := cfg.Tuning(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestTrackerValidation(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "[tracker]\nsprint = 0\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := cfg.TrackerSettings(); err == nil || !strings.Contains(err.Error(), "positive") {
		t.Fatalf("expected positive minutes error, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	body := "PAGEPACE_DB=" + filepath.Join(dir, "env.db") + "\n"
	if err := os.WriteFile(envFile, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvDB, "")
	t.Setenv(EnvConfig, filepath.Join(dir, "custom.toml"))
	if err := os.Unsetenv(EnvDB); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	if err := LoadEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := DefaultDBPath(); got != filepath.Join(dir, "env.db") {
		t.Fatalf("expected db from .env, got %q", got)
	}
	if got := DefaultConfigPath(); got != filepath.Join(dir, "custom.toml") {
		t.Fatalf("expected config from env, got %q", got)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDB, "")
	t.Setenv(EnvConfig, "")
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	if got := DefaultDBPath(); got != filepath.Join(dir, "data", "pagepace", "pagepace.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultConfigPath(); got != filepath.Join(dir, "config", "pagepace", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
}
