// Package sqlite provides a unified SQLite-based implementation of the driven
// storage ports.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation that needs no
// CGO. One database connection backs:
//
//   - DocumentStore: documents and their chunk sets
//   - AnalysisStore: per-document analysis records
//   - EntityStore: owning entities for entity context
//   - VectorIndex: owner-scoped chunk vectors
//   - SchedulerStore: scheduled task state and history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Each NNN_name.up.sql file is applied once, inside a
// transaction that also records its version.
//
// # Data Location
//
// By default, the database is stored at ~/.propdocs/data/propdocs.db
//
// # Thread Safety
//
// All operations are safe for concurrent use. The database runs in WAL mode
// with a busy timeout.
package sqlite
