// Package catalog keeps a SQLite index of mobs across many container files
// so a MobID can be traced to the files that define it without opening
// each one.
//
// The schema lives in schema.sql and is versioned by schemaVersion; an
// older database is rejected with ErrSchemaMismatch and must be rebuilt by
// re-indexing. Writes retry on SQLITE_BUSY so a CLI run can share the
// database with another process.
package catalog
