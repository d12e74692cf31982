// Package config loads the service configuration from the environment, an
// optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/jio-scheduler/internal/logging"
	"github.com/example/jio-scheduler/internal/reminder"
)

// Store backends accepted by JIO_STORE.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config captures the settings of the jio service.
type Config struct {
	HTTPPort        int
	Store           string
	SQLiteDSN       string
	ReminderCron    string
	TimeZone        string
	Location        *time.Location
	LogLevel        slog.Level
	ShutdownTimeout time.Duration
	TelegramToken   string
	TelegramChatID  int64
}

// fileConfig is the YAML shape read from JIO_CONFIG_FILE. Environment
// variables override every value it sets.
type fileConfig struct {
	HTTPPort        int    `yaml:"http_port"`
	Store           string `yaml:"store"`
	SQLiteDSN       string `yaml:"sqlite_dsn"`
	ReminderCron    string `yaml:"reminder_cron"`
	TimeZone        string `yaml:"timezone"`
	LogLevel        string `yaml:"log_level"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	Telegram        struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPPort:        8080,
		Store:           StoreSQLite,
		SQLiteDSN:       "jio.db",
		ReminderCron:    "0 9 * * *",
		TimeZone:        "Asia/Singapore",
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads configuration from the process environment. A .env file in the
// working directory is loaded first without overriding variables that are
// already set. When JIO_CONFIG_FILE names a YAML file its values are applied
// beneath the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()
	logLevel := ""
	shutdown := ""

	if path := strings.TrimSpace(os.Getenv("JIO_CONFIG_FILE")); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg, logLevel, shutdown = file.apply(cfg)
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := strings.TrimSpace(os.Getenv("JIO_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil {
			invalid = append(invalid, "JIO_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = appendOnce(invalid, "JIO_HTTP_PORT")
	}

	if store := strings.TrimSpace(os.Getenv("JIO_STORE")); store != "" {
		cfg.Store = strings.ToLower(store)
	}
	if cfg.Store != StoreSQLite && cfg.Store != StoreMemory {
		invalid = append(invalid, "JIO_STORE")
	}

	if dsn := strings.TrimSpace(os.Getenv("JIO_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if cfg.Store == StoreSQLite && cfg.SQLiteDSN == "" {
		missing = append(missing, "JIO_SQLITE_DSN")
	}

	if spec := strings.TrimSpace(os.Getenv("JIO_REMINDER_CRON")); spec != "" {
		cfg.ReminderCron = spec
	}
	if err := reminder.ValidateSchedule(cfg.ReminderCron); err != nil {
		invalid = append(invalid, "JIO_REMINDER_CRON")
	}

	if tz := strings.TrimSpace(os.Getenv("JIO_TIMEZONE")); tz != "" {
		cfg.TimeZone = tz
	}
	if loc, err := time.LoadLocation(cfg.TimeZone); err != nil {
		invalid = append(invalid, "JIO_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if level := strings.TrimSpace(os.Getenv("JIO_LOG_LEVEL")); level != "" {
		logLevel = level
	}
	if parsed, err := logging.ParseLevel(logLevel); err != nil {
		invalid = append(invalid, "JIO_LOG_LEVEL")
	} else {
		cfg.LogLevel = parsed
	}

	if timeout := strings.TrimSpace(os.Getenv("JIO_SHUTDOWN_TIMEOUT")); timeout != "" {
		shutdown = timeout
	}
	if shutdown != "" {
		d, err := time.ParseDuration(shutdown)
		if err != nil || d <= 0 {
			invalid = append(invalid, "JIO_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if token := strings.TrimSpace(os.Getenv("JIO_TELEGRAM_TOKEN")); token != "" {
		cfg.TelegramToken = token
	}
	if chatValue := strings.TrimSpace(os.Getenv("JIO_TELEGRAM_CHAT_ID")); chatValue != "" {
		chatID, err := strconv.ParseInt(chatValue, 10, 64)
		if err != nil {
			invalid = append(invalid, "JIO_TELEGRAM_CHAT_ID")
		} else {
			cfg.TelegramChatID = chatID
		}
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 && !contains(invalid, "JIO_TELEGRAM_CHAT_ID") {
		missing = append(missing, "JIO_TELEGRAM_CHAT_ID")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// TelegramEnabled reports whether reminder notices should go to Telegram.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func readFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fileConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return file, nil
}

// apply overlays the non-zero file values on cfg. Level and timeout are
// returned raw so that they are validated together with the environment.
func (f fileConfig) apply(cfg Config) (Config, string, string) {
	if f.HTTPPort != 0 {
		cfg.HTTPPort = f.HTTPPort
	}
	if f.Store != "" {
		cfg.Store = strings.ToLower(f.Store)
	}
	if f.SQLiteDSN != "" {
		cfg.SQLiteDSN = f.SQLiteDSN
	}
	if f.ReminderCron != "" {
		cfg.ReminderCron = f.ReminderCron
	}
	if f.TimeZone != "" {
		cfg.TimeZone = f.TimeZone
	}
	if f.Telegram.Token != "" {
		cfg.TelegramToken = f.Telegram.Token
	}
	if f.Telegram.ChatID != 0 {
		cfg.TelegramChatID = f.Telegram.ChatID
	}
	return cfg, f.LogLevel, f.ShutdownTimeout
}

func appendOnce(list []string, key string) []string {
	if contains(list, key) {
		return list
	}
	return append(list, key)
}

func contains(list []string, key string) bool {
	for _, v := range list {
		if v == key {
			return true
		}
	}
	return false
}
