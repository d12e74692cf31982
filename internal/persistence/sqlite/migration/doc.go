// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "001_documents.sql") and are read from an fs.FS, usually an
// embedded directory. Applied versions are tracked in a schema_migrations
// table together with the file checksum, and each file runs in its own
// transaction.
package migration
