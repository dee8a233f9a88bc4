package syncqueue_test

import (
	"context"
	"strings"
	"testing"

	"mealvault/internal/blobstore"
	"mealvault/internal/config"
	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services"
	"mealvault/internal/syncqueue"
	"mealvault/internal/testsupport"
	"mealvault/internal/transcription"
)

// scriptedTranscriber maps audio payloads to canned outcomes.
type scriptedTranscriber struct {
	results map[string]*transcription.Result
	errs    map[string]error
	calls   []string
}

func (s *scriptedTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (*transcription.Result, error) {
	key := string(audio)
	s.calls = append(s.calls, key)
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	return s.results[key], nil
}

type replayFixture struct {
	cfg         *config.Config
	store       *records.Store
	queue       *syncqueue.Store
	blobs       *blobstore.Store
	transcriber *scriptedTranscriber
}

func newReplayFixture(t *testing.T) *replayFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := &replayFixture{
		cfg:   cfg,
		store: testsupport.MustOpenStore(t, cfg),
		queue: testsupport.MustOpenQueue(t, cfg),
		transcriber: &scriptedTranscriber{
			results: map[string]*transcription.Result{},
			errs:    map[string]error{},
		},
	}
	blobs, err := blobstore.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("blobstore.New: %v", err)
	}
	f.blobs = blobs
	return f
}

func (f *replayFixture) replayer(t *testing.T, retryLimit int) *syncqueue.Replayer {
	t.Helper()
	applier := transcription.NewApplier(f.store, transcription.ModeAppend, logging.NewNop())
	return syncqueue.NewReplayer(f.queue, f.store, f.blobs, f.transcriber, applier, retryLimit, logging.NewNop())
}

// enqueueCapture stores an audio record plus its blob and queues it.
func (f *replayFixture) enqueueCapture(t *testing.T, ctx context.Context, payload string) *records.AudioRecord {
	t.Helper()
	audio, err := f.store.AddAudio(ctx, records.AudioRecord{Filename: payload + ".webm", MimeType: "audio/webm"})
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if _, err := f.blobs.Put(ctx, audio.ID, []byte(payload), blobstore.Metadata{MimeType: "audio/webm"}); err != nil {
		t.Fatalf("Put blob: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, syncqueue.KindTranscription, audio.ID, "blob:"+audio.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return audio
}

func eatingResult(food string, calories int) *transcription.Result {
	return &transcription.Result{
		Activity: transcription.ActivityEating,
		Status:   records.StatusComplete,
		Foods:    []transcription.Food{{Name: food, WeightGrams: 100, CaloriesKcal: calories}},
	}
}

func TestReplayAllProcessesEntriesIndependently(t *testing.T) {
	ctx := context.Background()
	f := newReplayFixture(t)

	f.enqueueCapture(t, ctx, "breakfast")
	flaky := f.enqueueCapture(t, ctx, "lunch")
	f.enqueueCapture(t, ctx, "dinner")

	f.transcriber.results["breakfast"] = eatingResult("oatmeal", 150)
	f.transcriber.errs["lunch"] = services.Wrap(services.ErrNetwork, "gemini", "transcribe", "connection reset", nil)
	f.transcriber.results["dinner"] = eatingResult("salmon", 320)

	report, err := f.replayer(t, 0).ReplayAll(ctx)
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if report.Attempted != 3 || report.Replayed != 2 || report.Requeued != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(f.transcriber.calls) != 3 {
		t.Fatalf("calls = %v, failure aborted the pass", f.transcriber.calls)
	}

	// The failed entry waits for the next pass with its retry recorded.
	queued, err := f.queue.Queued(ctx)
	if err != nil {
		t.Fatalf("Queued: %v", err)
	}
	if len(queued) != 1 || queued[0].AudioRecordID != flaky.ID || queued[0].RetryCount != 1 {
		t.Fatalf("queued after pass: %+v", queued)
	}

	eatings, err := f.store.ListEating(ctx)
	if err != nil {
		t.Fatalf("ListEating: %v", err)
	}
	if len(eatings) != 2 {
		t.Fatalf("eating records = %d, want 2", len(eatings))
	}
}

func TestReplayAllRemovesInvalidEntries(t *testing.T) {
	ctx := context.Background()
	f := newReplayFixture(t)

	audio := f.enqueueCapture(t, ctx, "garbled")
	f.transcriber.errs["garbled"] = services.Wrap(services.ErrValidation, "gemini", "transcribe", "unparseable response", nil)

	report, err := f.replayer(t, 0).ReplayAll(ctx)
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if report.Invalid != 1 {
		t.Fatalf("report = %+v", report)
	}

	stats, _ := f.queue.Stats(ctx)
	if stats.Total() != 0 {
		t.Fatalf("invalid entry still queued: %+v", stats)
	}

	marked, err := f.store.GetAudio(ctx, audio.ID)
	if err != nil {
		t.Fatalf("GetAudio: %v", err)
	}
	if !strings.Contains(marked.TranscriptionData, records.StatusError) {
		t.Fatalf("audio not marked with error: %+v", marked)
	}
}

func TestReplayAllHonorsRetryLimit(t *testing.T) {
	ctx := context.Background()
	f := newReplayFixture(t)

	f.enqueueCapture(t, ctx, "unlucky")
	f.transcriber.errs["unlucky"] = services.Wrap(services.ErrNetwork, "gemini", "transcribe", "timeout", nil)

	replayer := f.replayer(t, 2)
	if _, err := replayer.ReplayAll(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	report, err := replayer.ReplayAll(ctx)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if report.Abandoned != 1 {
		t.Fatalf("report = %+v, want abandonment on second attempt", report)
	}

	stats, _ := f.queue.Stats(ctx)
	if stats.Failed != 1 || stats.Queued != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestReplayAllReplaysInEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	f := newReplayFixture(t)

	for _, payload := range []string{"first", "second", "third"} {
		f.enqueueCapture(t, ctx, payload)
		f.transcriber.results[payload] = eatingResult(payload, 100)
	}

	if _, err := f.replayer(t, 0).ReplayAll(ctx); err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, call := range f.transcriber.calls {
		if call != want[i] {
			t.Fatalf("calls = %v, want %v", f.transcriber.calls, want)
		}
	}
}

func TestReplayAllMissingBlobIsInvalid(t *testing.T) {
	ctx := context.Background()
	f := newReplayFixture(t)

	audio, err := f.store.AddAudio(ctx, records.AudioRecord{Filename: "lost.webm"})
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	if _, err := f.queue.Enqueue(ctx, syncqueue.KindTranscription, audio.ID, ""); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	report, err := f.replayer(t, 0).ReplayAll(ctx)
	if err != nil {
		t.Fatalf("ReplayAll: %v", err)
	}
	if report.Invalid != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(f.transcriber.calls) != 0 {
		t.Fatal("transcriber called without a payload")
	}
}
