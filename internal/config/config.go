// Package config loads and validates slot watcher configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/slotwatcher/internal/detector"
)

// DefaultTargetURL is the consulate appointment page being watched.
const DefaultTargetURL = "https://www.cgeonline.com.ar/tramites/citas/varios/cita-varios.html?t=4"

// Fetcher modes.
const (
	FetcherModeHTTP     = "http"
	FetcherModeHeadless = "headless"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Target    TargetConfig    `mapstructure:"target"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Status    StatusConfig    `mapstructure:"status"`
	TestGuard TestGuardConfig `mapstructure:"test_guard"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// TargetConfig names the watched page.
type TargetConfig struct {
	URL        string `mapstructure:"url"`
	BookingURL string `mapstructure:"booking_url"`
	UserAgent  string `mapstructure:"user_agent"`
}

// FetcherConfig selects and tunes the page fetcher.
type FetcherConfig struct {
	Mode           string `mapstructure:"mode"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SettleDelayMs  int    `mapstructure:"settle_delay_ms"`
	ChromePath     string `mapstructure:"chrome_path"`
}

// DetectorConfig holds the classifier phrase sets.
type DetectorConfig struct {
	MinBytes         int      `mapstructure:"min_bytes"`
	NegativePhrases  []string `mapstructure:"negative_phrases"`
	AmbiguousPhrases []string `mapstructure:"ambiguous_phrases"`
	ErrorMarkers     []string `mapstructure:"error_markers"`
	RequiredMarkers  []string `mapstructure:"required_markers"`
	SelectionMarkers []string `mapstructure:"selection_markers"`
}

// ScheduleConfig sets the polling cadence.
type ScheduleConfig struct {
	IntervalSeconds     int    `mapstructure:"interval_seconds"`
	PeakIntervalSeconds int    `mapstructure:"peak_interval_seconds"`
	PeakStart           string `mapstructure:"peak_start"`
	PeakEnd             string `mapstructure:"peak_end"`
	Timezone            string `mapstructure:"timezone"`
	SummaryEvery        int    `mapstructure:"summary_every"`
}

// NotifyConfig configures the alert channels.
type NotifyConfig struct {
	CooldownSeconds int            `mapstructure:"cooldown_seconds"`
	Telegram        TelegramConfig `mapstructure:"telegram"`
	SMTP            SMTPConfig     `mapstructure:"smtp"`
}

// TelegramConfig holds bot credentials.
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	ChatID      string `mapstructure:"chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// SMTPConfig holds mail relay settings.
type SMTPConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	Recipients     []string `mapstructure:"recipients"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// StatusConfig sizes the dashboard history.
type StatusConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// TestGuardConfig throttles the manual test endpoint.
type TestGuardConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	Burst           int `mapstructure:"burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// LoadDotEnv exports variables from the given .env files. Missing files are skipped
// and variables already present in the environment win.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindPlainEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Target.BookingURL == "" {
		cfg.Target.BookingURL = cfg.Target.URL
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindPlainEnv maps the conventional unprefixed variable names onto their keys.
// The prefixed form is listed first and takes precedence.
func bindPlainEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"server.port":               "PORT",
		"notify.telegram.bot_token": "TELEGRAM_BOT_TOKEN",
		"notify.telegram.chat_id":   "TELEGRAM_CHAT_ID",
		"notify.smtp.username":      "SMTP_EMAIL",
		"notify.smtp.password":      "SMTP_PASSWORD",
	}
	for key, env := range bindings {
		prefixed := "WATCHER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("target.url", DefaultTargetURL)
	v.SetDefault("target.booking_url", "")
	v.SetDefault("target.user_agent", "")
	v.SetDefault("fetcher.mode", FetcherModeHTTP)
	v.SetDefault("fetcher.timeout_seconds", 15)
	v.SetDefault("fetcher.settle_delay_ms", 500)
	v.SetDefault("fetcher.chrome_path", "")
	v.SetDefault("detector.min_bytes", detector.DefaultMinBytes)
	v.SetDefault("detector.negative_phrases", detector.DefaultNegativePhrases)
	v.SetDefault("detector.ambiguous_phrases", detector.DefaultAmbiguousPhrases)
	v.SetDefault("detector.error_markers", detector.DefaultErrorMarkers)
	v.SetDefault("detector.required_markers", []string{})
	v.SetDefault("detector.selection_markers", detector.DefaultSelectionMarkers)
	v.SetDefault("schedule.interval_seconds", 5)
	v.SetDefault("schedule.peak_interval_seconds", 2)
	v.SetDefault("schedule.peak_start", "10:55")
	v.SetDefault("schedule.peak_end", "11:10")
	v.SetDefault("schedule.timezone", "America/Argentina/Buenos_Aires")
	v.SetDefault("schedule.summary_every", 50)
	v.SetDefault("notify.cooldown_seconds", 300)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
	v.SetDefault("notify.telegram.api_endpoint", "")
	v.SetDefault("notify.smtp.host", "smtp.gmail.com")
	v.SetDefault("notify.smtp.port", 587)
	v.SetDefault("notify.smtp.username", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.recipients", []string{})
	v.SetDefault("notify.smtp.timeout_seconds", 30)
	v.SetDefault("status.history_size", 50)
	v.SetDefault("test_guard.interval_seconds", 10)
	v.SetDefault("test_guard.burst", 1)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	u, err := url.Parse(c.Target.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target.url must be an absolute http(s) URL")
	}
	switch c.Fetcher.Mode {
	case FetcherModeHTTP, FetcherModeHeadless:
	default:
		return fmt.Errorf("fetcher.mode must be %q or %q", FetcherModeHTTP, FetcherModeHeadless)
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.timeout_seconds must be > 0")
	}
	if c.Detector.MinBytes <= 0 {
		return fmt.Errorf("detector.min_bytes must be > 0")
	}
	if len(c.Detector.NegativePhrases) == 0 {
		return fmt.Errorf("detector.negative_phrases must not be empty")
	}
	if c.Schedule.IntervalSeconds <= 0 {
		return fmt.Errorf("schedule.interval_seconds must be > 0")
	}
	if c.Schedule.PeakIntervalSeconds <= 0 {
		return fmt.Errorf("schedule.peak_interval_seconds must be > 0")
	}
	if _, err := time.Parse("15:04", c.Schedule.PeakStart); err != nil {
		return fmt.Errorf("schedule.peak_start must be HH:MM: %w", err)
	}
	if _, err := time.Parse("15:04", c.Schedule.PeakEnd); err != nil {
		return fmt.Errorf("schedule.peak_end must be HH:MM: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if c.Notify.CooldownSeconds < 0 {
		return fmt.Errorf("notify.cooldown_seconds must be >= 0")
	}
	if c.Notify.SMTP.Port <= 0 {
		return fmt.Errorf("notify.smtp.port must be > 0")
	}
	if c.Status.HistorySize <= 0 {
		return fmt.Errorf("status.history_size must be > 0")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

// Interval is the polling period outside the peak window.
func (c ScheduleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// PeakInterval is the polling period inside the peak window.
func (c ScheduleConfig) PeakInterval() time.Duration {
	return time.Duration(c.PeakIntervalSeconds) * time.Second
}

// Cooldown is the minimum spacing between alert rounds.
func (c NotifyConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Timeout bounds one page fetch.
func (c FetcherConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
