// Package storage persists reminders.
//
// Drivers:
//   - memory: process lifetime only (default)
//   - file:   a single JSON document rewritten atomically on every change
//   - sqlite: SQLite database file (modernc.org/sqlite, no cgo)
package storage
