// Package records persists the four structured collections (audio recordings,
// cooking records, ingredients, eating records) plus app settings in SQLite.
//
// The layout mirrors the app's export format: one row per collection holding
// the entire JSON-serialized array, newest first. Every mutating call rewrites
// the full collection, which keeps reads trivially consistent with the
// immediately preceding write. Collections are expected to stay small
// (hundreds of records), so O(collection) writes are acceptable.
//
// The store owns ID generation and timestamps; callers never assign either.
// A file lock on the data directory enforces the single-local-writer
// assumption the rest of the core relies on.
package records
