package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"mealvault/internal/config"
	"mealvault/internal/services"
)

// Collection keys. One row per key holds the whole JSON-serialized array.
const (
	keyAudioRecords   = "audio_records"
	keyCookingRecords = "cooking_records"
	keyIngredients    = "ingredients"
	keyEatingRecords  = "eating_records"
	keySettings       = "settings"
)

// SettingsVersion is written into fresh settings and export documents.
const SettingsVersion = "1.0.0"

// Store manages the structured record collections backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	now   func() time.Time
	newID func(time.Time) string
}

// Open initializes or connects to the records database, locks the data
// directory against concurrent writers, and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "records.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire records lock: %w", err)
	}
	if !ok {
		return nil, errors.New("records store is locked by another process")
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "records.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return &Store{
		db:    db,
		path:  dbPath,
		lock:  lock,
		now:   func() time.Time { return time.Now() },
		newID: NewID,
	}, nil
}

// Close closes the database connection and releases the writer lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
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

func loadCollection[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key = ?`, key)
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "records", "load "+key, "", err)
	}
	var items []T
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, services.Wrap(services.ErrPersistence, "records", "decode "+key, "", err)
	}
	return items, nil
}

func saveCollection[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "records", "encode "+key, "", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (key, payload, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(payload), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "records", "save "+key, "", err)
	}
	return nil
}

// GetSettings returns the persisted app settings, falling back to defaults
// when none have been written yet.
func (s *Store) GetSettings(ctx context.Context) (Settings, error) {
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE key = ?`, keySettings)
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Settings{Theme: "auto", LastUsed: s.now(), Version: SettingsVersion}, nil
	}
	if err != nil {
		return Settings{}, services.Wrap(services.ErrPersistence, "records", "load settings", "", err)
	}
	var settings Settings
	if err := json.Unmarshal([]byte(payload), &settings); err != nil {
		return Settings{}, services.Wrap(services.ErrPersistence, "records", "decode settings", "", err)
	}
	return settings, nil
}

// SetSettings persists the app settings wholesale.
func (s *Store) SetSettings(ctx context.Context, settings Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "records", "encode settings", "", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO collections (key, payload, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		keySettings, string(payload), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "records", "save settings", "", err)
	}
	return nil
}

// ClearAll removes every collection, returning the store to its initial state.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM collections`); err != nil {
		return services.Wrap(services.ErrPersistence, "records", "clear all", "", err)
	}
	return nil
}
