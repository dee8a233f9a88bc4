package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mealvault/internal/config"
	"mealvault/internal/logging"
	"mealvault/internal/services"
)

// ErrUsageUnavailable is returned by EstimateUsage when the platform cannot
// report filesystem statistics.
var ErrUsageUnavailable = errors.New("storage usage unavailable")

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Metadata describes a stored blob.
type Metadata struct {
	OwnerID   string    `json:"ownerId"`
	Filename  string    `json:"filename,omitempty"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	StoredAt  time.Time `json:"storedAt"`
}

// Usage reports blob storage consumption against filesystem capacity.
type Usage struct {
	UsedBytes  int64
	QuotaBytes uint64
	FreeBytes  uint64
	Entries    int
}

// Store persists audio payloads under a single directory.
type Store struct {
	root   string
	logger *slog.Logger
	statfs statfsFunc
	now    func() time.Time
}

// New builds a blob store rooted at the configured blob directory.
func New(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	root := strings.TrimSpace(cfg.Paths.BlobDir)
	if root == "" {
		return nil, errors.New("blobstore: blob directory not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root: %w", err)
	}
	return &Store{
		root:   root,
		logger: logging.NewComponentLogger(logger, "blobstore"),
		statfs: realStatfs,
		now:    func() time.Time { return time.Now() },
	}, nil
}

// SetClock overrides the time source. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Store) payloadPath(ownerID string) string {
	return filepath.Join(s.root, ownerID+".bin")
}

func (s *Store) metadataPath(ownerID string) string {
	return filepath.Join(s.root, ownerID+".json")
}

// Put writes a blob for the given owner. It fails when a blob already exists
// for that owner; uniqueness is enforced at write time, never by overwrite.
func (s *Store) Put(ctx context.Context, ownerID string, payload []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return "", services.Wrap(services.ErrValidation, "blobstore", "put", "owner id required", nil)
	}
	if len(payload) == 0 {
		return "", services.Wrap(services.ErrValidation, "blobstore", "put", "empty payload", nil)
	}

	target := s.payloadPath(ownerID)
	file, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", services.Wrap(services.ErrValidation, "blobstore", "put", fmt.Sprintf("blob already exists for %s", ownerID), nil)
		}
		return "", services.Wrap(services.ErrPersistence, "blobstore", "put", "", err)
	}
	if _, err := file.Write(payload); err != nil {
		_ = file.Close()
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrPersistence, "blobstore", "put", "", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrPersistence, "blobstore", "put", "", err)
	}

	meta.OwnerID = ownerID
	meta.SizeBytes = int64(len(payload))
	if meta.StoredAt.IsZero() {
		meta.StoredAt = s.now()
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrPersistence, "blobstore", "encode metadata", "", err)
	}
	if err := os.WriteFile(s.metadataPath(ownerID), encoded, 0o644); err != nil {
		_ = os.Remove(target)
		return "", services.Wrap(services.ErrPersistence, "blobstore", "write metadata", "", err)
	}

	s.logger.DebugContext(ctx, "stored blob",
		logging.String("owner_id", ownerID),
		logging.Int64("size_bytes", meta.SizeBytes),
	)
	return ownerID, nil
}

// Get returns the payload and metadata for an owner, or nils when no blob is
// stored for it.
func (s *Store) Get(ctx context.Context, ownerID string) ([]byte, *Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	payload, err := os.ReadFile(s.payloadPath(ownerID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, services.Wrap(services.ErrPersistence, "blobstore", "get", "", err)
	}

	meta := &Metadata{OwnerID: ownerID, SizeBytes: int64(len(payload))}
	if raw, err := os.ReadFile(s.metadataPath(ownerID)); err == nil {
		if decodeErr := json.Unmarshal(raw, meta); decodeErr != nil {
			return nil, nil, services.Wrap(services.ErrPersistence, "blobstore", "decode metadata", "", decodeErr)
		}
	}
	return payload, meta, nil
}

// Delete removes an owner's blob, reporting whether anything was removed.
func (s *Store) Delete(ctx context.Context, ownerID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := os.Remove(s.payloadPath(ownerID))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, services.Wrap(services.ErrPersistence, "blobstore", "delete", "", err)
	}
	if err := os.Remove(s.metadataPath(ownerID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, services.Wrap(services.ErrPersistence, "blobstore", "delete metadata", "", err)
	}
	return true, nil
}

// EstimateUsage sums stored payload sizes and reports filesystem capacity.
// Returns ErrUsageUnavailable when the platform cannot provide stats.
func (s *Store) EstimateUsage(ctx context.Context) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	usage := Usage{}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return Usage{}, services.Wrap(services.ErrPersistence, "blobstore", "usage", "", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bin") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		usage.UsedBytes += info.Size()
		usage.Entries++
	}

	total, free, err := s.statfs(s.root)
	if err != nil {
		return usage, ErrUsageUnavailable
	}
	usage.QuotaBytes = total
	usage.FreeBytes = free
	return usage, nil
}

// PurgeOlderThan removes blobs whose stored timestamp is older than maxAge
// and returns how many were deleted. Nothing in the core invokes this on its
// own; cleanup is an external trigger.
func (s *Store) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, services.Wrap(services.ErrPersistence, "blobstore", "purge", "", err)
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err != nil || meta.OwnerID == "" {
			continue
		}
		if !meta.StoredAt.Before(cutoff) {
			continue
		}
		removed, err := s.Delete(ctx, meta.OwnerID)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "purged old blobs",
			logging.Int("deleted", deleted),
			logging.Duration("max_age", maxAge),
		)
	}
	return deleted, nil
}
