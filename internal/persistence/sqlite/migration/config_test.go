package migration

import (
	"strings"
	"testing"
	"time"
)

func TestSQLiteConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{"default config is valid", func(*SQLiteConfig) {}, false},
		{"empty DSN", func(c *SQLiteConfig) { c.DSN = " " }, true},
		{"negative busy timeout", func(c *SQLiteConfig) { c.BusyTimeout = -time.Second }, true},
		{"unknown journal mode", func(c *SQLiteConfig) { c.JournalMode = "FAST" }, true},
		{"unknown synchronous mode", func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, true},
		{"negative pool size", func(c *SQLiteConfig) { c.MaxOpenConns = -1 }, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultSQLiteConfig("jio.db")
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConnectionStringEncodesPragmas(t *testing.T) {
	dsn := DefaultSQLiteConfig("data/jio.db").ConnectionString()
	if !strings.HasPrefix(dsn, "data/jio.db?") {
		t.Fatalf("expected DSN to keep path, got %q", dsn)
	}
	for _, want := range []string{"busy_timeout%285000%29", "journal_mode%28WAL%29", "foreign_keys%281%29"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %q in %q", want, dsn)
		}
	}

	withQuery := SQLiteConfig{DSN: "file:jio.db?cache=shared"}.ConnectionString()
	if !strings.Contains(withQuery, "cache=shared&_pragma=") {
		t.Fatalf("expected pragmas appended to existing query, got %q", withQuery)
	}
}
