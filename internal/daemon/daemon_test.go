package daemon_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"mealvault/internal/blobstore"
	"mealvault/internal/config"
	"mealvault/internal/connectivity"
	"mealvault/internal/daemon"
	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/syncqueue"
	"mealvault/internal/testsupport"
	"mealvault/internal/transcription"
)

type staticTranscriber struct {
	result *transcription.Result
}

func (s *staticTranscriber) Transcribe(context.Context, []byte, string) (*transcription.Result, error) {
	return s.result, nil
}

func newDaemon(t *testing.T, cfg *config.Config, online *atomic.Bool) (*daemon.Daemon, *syncqueue.Store, *records.Store, *blobstore.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	queue := testsupport.MustOpenQueue(t, cfg)
	blobs, err := blobstore.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("blobstore.New: %v", err)
	}

	monitor := connectivity.NewMonitor(cfg, connectivity.ProberFunc(func(context.Context) bool {
		return online.Load()
	}), logging.NewNop())
	applier := transcription.NewApplier(store, transcription.ModeAppend, logging.NewNop())
	transcriber := &staticTranscriber{result: &transcription.Result{
		Activity: transcription.ActivityEating,
		Status:   records.StatusComplete,
		Foods:    []transcription.Food{{Name: "toast", WeightGrams: 40, CaloriesKcal: 100}},
	}}
	replayer := syncqueue.NewReplayer(queue, store, blobs, transcriber, applier, 0, logging.NewNop())

	d, err := daemon.New(cfg, queue, monitor, replayer, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, queue, store, blobs
}

func TestDaemonReplaysQueueWhenOnline(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	online := &atomic.Bool{}
	d, queue, store, blobs := newDaemon(t, cfg, online)

	audio, err := store.AddAudio(ctx, records.AudioRecord{Filename: "toast.webm", MimeType: "audio/webm"})
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if _, err := blobs.Put(ctx, audio.ID, []byte("toast audio"), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := queue.Enqueue(ctx, syncqueue.KindTranscription, audio.ID, ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	online.Store(true)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for {
		stats, err := queue.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Total() == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queue not drained: %+v", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}

	eatings, err := store.ListEating(ctx)
	if err != nil {
		t.Fatalf("ListEating: %v", err)
	}
	if len(eatings) != 1 {
		t.Fatalf("eating records = %d, want 1 from replay", len(eatings))
	}
}

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	online := &atomic.Bool{}
	d, _, _, _ := newDaemon(t, cfg, online)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start succeeded")
	}

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatalf("status = %+v", status)
	}
}
