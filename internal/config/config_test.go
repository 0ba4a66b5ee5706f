package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, DefaultTargetURL, cfg.Target.URL)
	require.Equal(t, DefaultTargetURL, cfg.Target.BookingURL)
	require.Equal(t, FetcherModeHTTP, cfg.Fetcher.Mode)
	require.Equal(t, 15*time.Second, cfg.Fetcher.Timeout())
	require.Equal(t, 5000, cfg.Detector.MinBytes)
	require.Equal(t, []string{"en este momento no hay citas disponibles"}, cfg.Detector.NegativePhrases)
	require.Empty(t, cfg.Detector.RequiredMarkers)
	require.Equal(t, 5*time.Second, cfg.Schedule.Interval())
	require.Equal(t, 2*time.Second, cfg.Schedule.PeakInterval())
	require.Equal(t, "10:55", cfg.Schedule.PeakStart)
	require.Equal(t, "11:10", cfg.Schedule.PeakEnd)
	require.Equal(t, 5*time.Minute, cfg.Notify.Cooldown())
	require.Equal(t, "smtp.gmail.com", cfg.Notify.SMTP.Host)
	require.Equal(t, 587, cfg.Notify.SMTP.Port)
	require.Empty(t, cfg.Notify.SMTP.Recipients)
	require.Equal(t, 50, cfg.Status.HistorySize)
	require.Equal(t, 10, cfg.TestGuard.IntervalSeconds)
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
target:
  url: https://citas.example.org/turnos
  booking_url: https://citas.example.org/reservar
fetcher:
  mode: headless
  timeout_seconds: 30
detector:
  min_bytes: 8000
  required_markers: ["alta en matrícula"]
schedule:
  interval_seconds: 7
  peak_start: "09:00"
  peak_end: "09:30"
  timezone: UTC
notify:
  cooldown_seconds: 60
  smtp:
    recipients: ["ops@example.org"]
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://citas.example.org/turnos", cfg.Target.URL)
	require.Equal(t, "https://citas.example.org/reservar", cfg.Target.BookingURL)
	require.Equal(t, FetcherModeHeadless, cfg.Fetcher.Mode)
	require.Equal(t, 8000, cfg.Detector.MinBytes)
	require.Equal(t, []string{"alta en matrícula"}, cfg.Detector.RequiredMarkers)
	require.Equal(t, 7*time.Second, cfg.Schedule.Interval())
	require.Equal(t, "UTC", cfg.Schedule.Timezone)
	require.Equal(t, time.Minute, cfg.Notify.Cooldown())
	require.Equal(t, []string{"ops@example.org"}, cfg.Notify.SMTP.Recipients)
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadPlainEnvironmentNames(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("SMTP_EMAIL", "bot@example.org")
	t.Setenv("SMTP_PASSWORD", "app-password")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8181, cfg.Server.Port)
	require.Equal(t, "123:abc", cfg.Notify.Telegram.BotToken)
	require.Equal(t, "-100200", cfg.Notify.Telegram.ChatID)
	require.Equal(t, "bot@example.org", cfg.Notify.SMTP.Username)
	require.Equal(t, "app-password", cfg.Notify.SMTP.Password)
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("PORT", "8181")
	t.Setenv("WATCHER_SERVER_PORT", "9191")
	t.Setenv("WATCHER_SCHEDULE_INTERVAL_SECONDS", "11")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, 11*time.Second, cfg.Schedule.Interval())
}

func TestLoadRecipientsFromEnvironment(t *testing.T) {
	t.Setenv("WATCHER_NOTIFY_SMTP_RECIPIENTS", "uno@example.org,dos@example.org")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"uno@example.org", "dos@example.org"}, cfg.Notify.SMTP.Recipients)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "WATCHER_DOTENV_MARKER"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "from-file", os.Getenv(key))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero min bytes", func(c *Config) { c.Detector.MinBytes = 0 }, "detector.min_bytes"},
		{"relative url", func(c *Config) { c.Target.URL = "/citas" }, "target.url"},
		{"unknown mode", func(c *Config) { c.Fetcher.Mode = "carrier-pigeon" }, "fetcher.mode"},
		{"zero timeout", func(c *Config) { c.Fetcher.TimeoutSeconds = 0 }, "fetcher.timeout_seconds"},
		{"no negative phrase", func(c *Config) { c.Detector.NegativePhrases = nil }, "detector.negative_phrases"},
		{"zero interval", func(c *Config) { c.Schedule.IntervalSeconds = 0 }, "schedule.interval_seconds"},
		{"bad peak start", func(c *Config) { c.Schedule.PeakStart = "25:99" }, "schedule.peak_start"},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, "schedule.timezone"},
		{"negative cooldown", func(c *Config) { c.Notify.CooldownSeconds = -1 }, "notify.cooldown_seconds"},
		{"zero history", func(c *Config) { c.Status.HistorySize = 0 }, "status.history_size"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}
}
