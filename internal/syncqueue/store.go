// Package syncqueue holds the durable queue of AI requests made while
// offline, and the replayer that drains it once connectivity returns.
package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mealvault/internal/config"
	"mealvault/internal/services"
)

// Store manages offline request persistence backed by SQLite. The queue gets
// its own database so record-store and queue lifecycles stay independent.
type Store struct {
	db   *sql.DB
	path string

	now func() time.Time
}

// Open initializes or connects to the queue database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "sync.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now() },
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

const entryColumns = "id, kind, audio_record_id, payload_ref, status, retry_count, last_error, enqueued_at, updated_at"

// Enqueue appends a durable entry keyed by the enqueue timestamp. Enqueues
// landing on the same millisecond are nudged forward so the key stays unique
// and ordering stays stable.
func (s *Store) Enqueue(ctx context.Context, kind, audioRecordID, payloadRef string) (*Entry, error) {
	if strings.TrimSpace(kind) == "" {
		return nil, services.Wrap(services.ErrValidation, "syncqueue", "enqueue", "kind required", nil)
	}
	if strings.TrimSpace(audioRecordID) == "" {
		return nil, services.Wrap(services.ErrValidation, "syncqueue", "enqueue", "audio record id required", nil)
	}

	now := s.now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := now.UnixMilli()

	for {
		_, err := s.db.ExecContext(
			ctx,
			`INSERT INTO offline_requests (id, kind, audio_record_id, payload_ref, status, retry_count, last_error, enqueued_at, updated_at)
             VALUES (?, ?, ?, ?, ?, 0, '', ?, ?)`,
			id, kind, audioRecordID, payloadRef, StatusQueued, timestamp, timestamp,
		)
		if err == nil {
			break
		}
		if isUniqueViolation(err) {
			id++
			continue
		}
		return nil, services.Wrap(services.ErrPersistence, "syncqueue", "enqueue", "", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches an entry by its timestamp key, returning nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM offline_requests WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "syncqueue", "get entry", "", err)
	}
	return entry, nil
}

// Queued returns all replayable entries in enqueue order.
func (s *Store) Queued(ctx context.Context) ([]*Entry, error) {
	return s.list(ctx, `WHERE status = ? ORDER BY id`, StatusQueued)
}

// List returns every entry regardless of status, in enqueue order.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	return s.list(ctx, `ORDER BY id`)
}

func (s *Store) list(ctx context.Context, clause string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM offline_requests `+clause, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "syncqueue", "list", "", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "syncqueue", "scan entry", "", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "syncqueue", "list", "", err)
	}
	return entries, nil
}

// MarkInFlight transitions an entry to in_flight for the duration of one
// replay attempt.
func (s *Store) MarkInFlight(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusInFlight, -1, "")
}

// MarkRequeued returns an entry to queued after a transient failure,
// incrementing its retry count and recording the failure.
func (s *Store) MarkRequeued(ctx context.Context, id int64, cause string) error {
	return s.setStatus(ctx, id, StatusQueued, +1, cause)
}

// MarkFailed abandons an entry permanently. It stays visible but is skipped
// by all future replay passes.
func (s *Store) MarkFailed(ctx context.Context, id int64, cause string) error {
	return s.setStatus(ctx, id, StatusFailed, 0, cause)
}

func (s *Store) setStatus(ctx context.Context, id int64, status Status, retryDelta int, cause string) error {
	query := `UPDATE offline_requests SET status = ?, last_error = ?, updated_at = ?`
	if retryDelta > 0 {
		query += `, retry_count = retry_count + 1`
	}
	query += ` WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query, status, cause, s.now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "syncqueue", "set status", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrPersistence, "syncqueue", "set status", "", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "syncqueue", "set status", fmt.Sprintf("entry %d not found", id), nil)
	}
	return nil
}

// Remove deletes an entry, reporting whether it existed. Success removal is
// the terminal state of the entry lifecycle.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM offline_requests WHERE id = ?`, id)
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "syncqueue", "remove", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "syncqueue", "remove", "", err)
	}
	return affected > 0, nil
}

// Stats counts entries by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM offline_requests GROUP BY status`)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrPersistence, "syncqueue", "stats", "", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, services.Wrap(services.ErrPersistence, "syncqueue", "stats", "", err)
		}
		switch status {
		case StatusQueued:
			stats.Queued = count
		case StatusInFlight:
			stats.InFlight = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// ResetStuckInFlight returns in-flight entries to queued. Called on startup
// so a crash mid-replay cannot strand entries.
func (s *Store) ResetStuckInFlight(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE offline_requests SET status = ?, updated_at = ? WHERE status = ?`,
		StatusQueued, s.now().UTC().Format(time.RFC3339Nano), StatusInFlight,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "syncqueue", "reset stuck", "", err)
	}
	return res.RowsAffected()
}

// Clear drops every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_requests`); err != nil {
		return services.Wrap(services.ErrPersistence, "syncqueue", "clear", "", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var entry Entry
	var enqueuedAt, updatedAt string
	if err := row.Scan(
		&entry.ID, &entry.Kind, &entry.AudioRecordID, &entry.PayloadRef,
		&entry.Status, &entry.RetryCount, &entry.LastError,
		&enqueuedAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	entry.EnqueuedAt, _ = time.Parse(time.RFC3339Nano, enqueuedAt)
	entry.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
