package blobstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mealvault/internal/blobstore"
	"mealvault/internal/config"
	"mealvault/internal/logging"
	"mealvault/internal/services"
)

func newStore(t *testing.T) *blobstore.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BlobDir = t.TempDir()
	store, err := blobstore.New(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	payload := []byte("fake audio bytes")
	if _, err := store.Put(ctx, "rec-1", payload, blobstore.Metadata{MimeType: "audio/webm", Filename: "capture.webm"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, meta, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
	if meta == nil || meta.MimeType != "audio/webm" || meta.SizeBytes != int64(len(payload)) {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	removed, err := store.Delete(ctx, "rec-1")
	if err != nil || !removed {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", removed, err)
	}

	got, meta, err = store.Get(ctx, "rec-1")
	if err != nil || got != nil || meta != nil {
		t.Fatalf("Get after delete = (%v, %v, %v), want all nil", got, meta, err)
	}
}

func TestPutRejectsDuplicateOwner(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	if _, err := store.Put(ctx, "rec-1", []byte("one"), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	_, err := store.Put(ctx, "rec-1", []byte("two"), blobstore.Metadata{MimeType: "audio/webm"})
	if !services.IsValidation(err) {
		t.Fatalf("second Put error = %v, want validation", err)
	}

	got, _, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "one" {
		t.Fatalf("original payload clobbered: %q", got)
	}
}

func TestPutValidation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	if _, err := store.Put(ctx, "", []byte("x"), blobstore.Metadata{}); !services.IsValidation(err) {
		t.Fatalf("empty owner error = %v, want validation", err)
	}
	if _, err := store.Put(ctx, "rec-1", nil, blobstore.Metadata{}); !services.IsValidation(err) {
		t.Fatalf("empty payload error = %v, want validation", err)
	}
}

func TestDeleteMissingOwner(t *testing.T) {
	store := newStore(t)
	removed, err := store.Delete(context.Background(), "absent")
	if err != nil || removed {
		t.Fatalf("Delete = (%v, %v), want (false, nil)", removed, err)
	}
}

func TestEstimateUsage(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	if _, err := store.Put(ctx, "a", []byte("12345"), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("Put a: %v", err)
	}
	if _, err := store.Put(ctx, "b", []byte("1234567890"), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("Put b: %v", err)
	}

	usage, err := store.EstimateUsage(ctx)
	if err != nil && !errors.Is(err, blobstore.ErrUsageUnavailable) {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if usage.UsedBytes != 15 || usage.Entries != 2 {
		t.Fatalf("usage = %+v, want 15 bytes across 2 entries", usage)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base.Add(-40 * 24 * time.Hour) })
	if _, err := store.Put(ctx, "old", []byte("old"), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("Put old: %v", err)
	}
	store.SetClock(func() time.Time { return base.Add(-time.Hour) })
	if _, err := store.Put(ctx, "fresh", []byte("fresh"), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}

	store.SetClock(func() time.Time { return base })
	deleted, err := store.PurgeOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	if got, _, _ := store.Get(ctx, "old"); got != nil {
		t.Fatal("old blob survived purge")
	}
	if got, _, _ := store.Get(ctx, "fresh"); got == nil {
		t.Fatal("fresh blob removed by purge")
	}
}
