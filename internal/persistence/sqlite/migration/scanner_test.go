package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScan(t *testing.T) {
	t.Run("orders by numeric version and computes checksums", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/010_indexes.sql":   {Data: []byte("CREATE INDEX idx ON t(a);")},
			"migrations/002_add_table.sql": {Data: []byte("-- adds t\nCREATE TABLE t (a TEXT);")},
			"migrations/README.md":         {Data: []byte("ignored")},
		}

		migrations, err := Scan(fsys, "migrations")
		if err != nil {
			t.Fatalf("Scan returned error: %v", err)
		}
		if len(migrations) != 2 {
			t.Fatalf("expected 2 migrations, got %d", len(migrations))
		}
		if migrations[0].Version != "002" || migrations[1].Version != "010" {
			t.Fatalf("unexpected order: %s, %s", migrations[0].Version, migrations[1].Version)
		}
		if migrations[0].Description != "add table" {
			t.Fatalf("unexpected description %q", migrations[0].Description)
		}
		if len(migrations[0].Checksum) != 64 {
			t.Fatalf("expected sha256 hex checksum, got %q", migrations[0].Checksum)
		}
	})

	t.Run("rejects malformed file names", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/initial.sql": {Data: []byte("SELECT 1;")}}
		if _, err := Scan(fsys, "migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/1_a.sql":   {Data: []byte("SELECT 1;")},
			"migrations/001_b.sql": {Data: []byte("SELECT 1;")},
		}
		if _, err := Scan(fsys, "migrations"); !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})

	t.Run("rejects comment-only files", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("-- nothing\n")}}
		if _, err := Scan(fsys, "migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	statements := SplitStatements("-- header\nCREATE TABLE a (x TEXT);\n\nCREATE TABLE b (y TEXT);\n-- trailer\n")
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE TABLE b (y TEXT)" {
		t.Fatalf("unexpected statement %q", statements[1])
	}
}
