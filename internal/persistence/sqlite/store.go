// Package sqlite implements the DocumentStore on SQLite through the
// modernc.org/sqlite driver. Documents are stored as JSON text in a single
// table keyed by (collection, id).
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/jio-scheduler/internal/persistence"
	"github.com/example/jio-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store is a DocumentStore backed by SQLite.
type Store struct {
	db     *sql.DB
	retry  RetryConfig
	now    func() time.Time
	hub    *persistence.Hub
	logger *slog.Logger
}

var _ persistence.DocumentStore = (*Store)(nil)

// Open connects to the database described by config. Call Migrate before use.
func Open(config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := migration.Open(config)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:     db,
		retry:  DefaultRetryConfig(),
		now:    time.Now,
		logger: logger.With("component", "sqlite_store"),
	}
	s.hub = persistence.NewHub(s.Query, s.logger)
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	return migration.NewManager(s.db, migrationFiles, "migrations", s.logger).Run(ctx)
}

// Close stops subscriptions and closes the connection pool.
func (s *Store) Close() error {
	s.hub.Close()
	return s.db.Close()
}

// Read returns the document stored under (collection, id).
func (s *Store) Read(ctx context.Context, collection, id string) (persistence.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read %s/%s: %w", collection, id, err)
	}
	return decodeBody(id, body)
}

// Query returns matching documents ordered by id. Conditions are evaluated
// on the decoded documents.
func (s *Store) Query(ctx context.Context, collection string, filter persistence.Filter) ([]persistence.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []persistence.Document
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", collection, err)
		}
		doc, err := decodeBody(id, body)
		if err != nil {
			return nil, err
		}
		if filter.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate %s: %w", collection, err)
	}
	if docs == nil {
		docs = []persistence.Document{}
	}
	return docs, nil
}

// Write upserts doc. With merge set, top-level fields are merged onto the
// stored document inside the same transaction.
func (s *Store) Write(ctx context.Context, collection, id string, doc persistence.Document, merge bool) error {
	normalized, err := persistence.Normalize(doc)
	if err != nil {
		return err
	}
	delete(normalized, persistence.IDField)

	err = withRetry(ctx, s.retry, func() error {
		return withTransaction(ctx, s.db, func(tx *sql.Tx) error {
			next := normalized
			if merge {
				var body string
				err := tx.QueryRowContext(ctx,
					`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
				switch {
				case errors.Is(err, sql.ErrNoRows):
				case err != nil:
					return err
				default:
					existing, decodeErr := decodeBody(id, body)
					if decodeErr != nil {
						return decodeErr
					}
					delete(existing, persistence.IDField)
					next = existing.Merge(normalized)
				}
			}

			raw, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("%w: %v", persistence.ErrInvalidDocument, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO documents (collection, id, body, updated_at) VALUES (?, ?, ?, ?)
				 ON CONFLICT (collection, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
				collection, id, string(raw), s.now().UTC().Format(time.RFC3339Nano))
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("sqlite: write %s/%s: %w", collection, id, err)
	}

	s.hub.Publish(collection)
	return nil
}

// Delete removes a document or reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	var affected int64
	err := withRetry(ctx, s.retry, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: delete %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	s.hub.Publish(collection)
	return nil
}

// Subscribe registers fn for snapshots of collection matching filter.
// Only writes made through this Store instance trigger redelivery.
func (s *Store) Subscribe(ctx context.Context, collection string, filter persistence.Filter, fn persistence.SnapshotFunc) (persistence.Unsubscribe, error) {
	return s.hub.Subscribe(ctx, collection, filter, fn)
}

func decodeBody(id, body string) (persistence.Document, error) {
	var doc persistence.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", persistence.ErrInvalidDocument, id, err)
	}
	if doc == nil {
		doc = persistence.Document{}
	}
	doc[persistence.IDField] = id
	return doc, nil
}
