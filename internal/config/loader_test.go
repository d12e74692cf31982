package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"JIO_CONFIG_FILE",
	"JIO_HTTP_PORT",
	"JIO_STORE",
	"JIO_SQLITE_DSN",
	"JIO_REMINDER_CRON",
	"JIO_TIMEZONE",
	"JIO_LOG_LEVEL",
	"JIO_SHUTDOWN_TIMEOUT",
	"JIO_TELEGRAM_TOKEN",
	"JIO_TELEGRAM_CHAT_ID",
}

// clearEnv blanks every key for the duration of the test. Empty values are
// treated as unset by Load.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 || cfg.Addr() != ":8080" {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreSQLite || cfg.SQLiteDSN != "jio.db" {
			t.Fatalf("unexpected default store: %q %q", cfg.Store, cfg.SQLiteDSN)
		}
		if cfg.ReminderCron != "0 9 * * *" {
			t.Fatalf("unexpected default cron: %q", cfg.ReminderCron)
		}
		if cfg.Location == nil || cfg.Location.String() != "Asia/Singapore" {
			t.Fatalf("unexpected default location: %v", cfg.Location)
		}
		if cfg.LogLevel != slog.LevelInfo || cfg.ShutdownTimeout != 10*time.Second {
			t.Fatalf("unexpected defaults: level=%v timeout=%s", cfg.LogLevel, cfg.ShutdownTimeout)
		}
		if cfg.TelegramEnabled() {
			t.Fatal("expected telegram to be disabled by default")
		}
	})

	t.Run("parses overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JIO_HTTP_PORT", "9090")
		t.Setenv("JIO_STORE", "Memory")
		t.Setenv("JIO_REMINDER_CRON", "30 8 * * 1")
		t.Setenv("JIO_TIMEZONE", "UTC")
		t.Setenv("JIO_LOG_LEVEL", "debug")
		t.Setenv("JIO_SHUTDOWN_TIMEOUT", "3s")
		t.Setenv("JIO_TELEGRAM_TOKEN", "123:abc")
		t.Setenv("JIO_TELEGRAM_CHAT_ID", "-100200")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.Store != StoreMemory {
			t.Fatalf("unexpected port/store: %d %q", cfg.HTTPPort, cfg.Store)
		}
		if cfg.ReminderCron != "30 8 * * 1" || cfg.Location != time.UTC {
			t.Fatalf("unexpected schedule: %q %v", cfg.ReminderCron, cfg.Location)
		}
		if cfg.LogLevel != slog.LevelDebug || cfg.ShutdownTimeout != 3*time.Second {
			t.Fatalf("unexpected level/timeout: %v %s", cfg.LogLevel, cfg.ShutdownTimeout)
		}
		if !cfg.TelegramEnabled() || cfg.TelegramChatID != -100200 {
			t.Fatalf("expected telegram enabled for chat -100200, got %d", cfg.TelegramChatID)
		}
	})

	t.Run("errors when telegram chat is missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JIO_TELEGRAM_TOKEN", "123:abc")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error when chat id is missing")
		}
		expected := "required environment variables are not set: JIO_TELEGRAM_CHAT_ID"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JIO_HTTP_PORT", "http")
		t.Setenv("JIO_STORE", "postgres")
		t.Setenv("JIO_REMINDER_CRON", "every day")
		t.Setenv("JIO_TIMEZONE", "Mars/Olympus")
		t.Setenv("JIO_LOG_LEVEL", "loud")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error for invalid values")
		}
		expected := "invalid environment variable values: JIO_HTTP_PORT, JIO_STORE, JIO_REMINDER_CRON, JIO_TIMEZONE, JIO_LOG_LEVEL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}

func TestLoader_ConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "jio.yaml")
	content := []byte(`http_port: 7000
store: memory
timezone: UTC
log_level: warn
telegram:
  token: "999:xyz"
  chat_id: 42
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv("JIO_CONFIG_FILE", path)
	t.Setenv("JIO_HTTP_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.HTTPPort != 7001 {
		t.Fatalf("expected environment to override file port, got %d", cfg.HTTPPort)
	}
	if cfg.Store != StoreMemory || cfg.LogLevel != slog.LevelWarn || cfg.Location != time.UTC {
		t.Fatalf("expected file values applied, got %+v", cfg)
	}
	if !cfg.TelegramEnabled() || cfg.TelegramChatID != 42 {
		t.Fatalf("expected telegram from file, got %+v", cfg)
	}

	t.Setenv("JIO_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
