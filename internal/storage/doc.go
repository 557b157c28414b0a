// Package storage persists reminders keyed by session id.
//
// Backends:
//   - file: a single JSON document, the default
//   - sqlite: embedded database (build tag "sqlite")
//   - postgres: selected when a postgres URL is configured
package storage
