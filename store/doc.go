// Package store persists submitted snippets and per-language execution
// counts in a SQLite database.
package store
