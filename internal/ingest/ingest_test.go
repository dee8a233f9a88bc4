package ingest_test

import (
	"context"
	"testing"

	"mealvault/internal/blobstore"
	"mealvault/internal/ingest"
	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services"
	"mealvault/internal/syncqueue"
	"mealvault/internal/testsupport"
	"mealvault/internal/transcription"
)

type fakeAI struct {
	result   *transcription.Result
	err      error
	clarify  *transcription.Result
	lastNote string
}

func (f *fakeAI) Transcribe(context.Context, []byte, string) (*transcription.Result, error) {
	return f.result, f.err
}

func (f *fakeAI) Clarify(_ context.Context, _ *transcription.Result, note string) (*transcription.Result, error) {
	f.lastNote = note
	return f.clarify, f.err
}

type fakeMonitor struct {
	online  bool
	signals []bool
}

func (f *fakeMonitor) Online() bool { return f.online }

func (f *fakeMonitor) Signal(_ context.Context, online bool) {
	f.online = online
	f.signals = append(f.signals, online)
}

type fixture struct {
	store   *records.Store
	blobs   *blobstore.Store
	queue   *syncqueue.Store
	ai      *fakeAI
	monitor *fakeMonitor
	svc     *ingest.Service
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	f := &fixture{
		store:   testsupport.MustOpenStore(t, cfg),
		queue:   testsupport.MustOpenQueue(t, cfg),
		ai:      &fakeAI{},
		monitor: &fakeMonitor{online: online},
	}
	blobs, err := blobstore.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("blobstore.New: %v", err)
	}
	f.blobs = blobs
	applier := transcription.NewApplier(f.store, transcription.ModeAppend, logging.NewNop())
	f.svc = ingest.New(f.store, f.blobs, f.queue, f.ai, applier, f.monitor, logging.NewNop())
	return f
}

func capture(name string) ingest.Capture {
	return ingest.Capture{
		Filename: name + ".webm",
		MimeType: "audio/webm",
		Audio:    []byte(name + " audio"),
	}
}

func TestIngestOnlineAppliesDirectly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.ai.result = &transcription.Result{
		Activity: transcription.ActivityEating,
		Status:   records.StatusComplete,
		Foods:    []transcription.Food{{Name: "apple", WeightGrams: 150, CaloriesKcal: 78}},
	}

	result, err := f.svc.Ingest(ctx, capture("snack"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Disposition != ingest.DispositionApplied {
		t.Fatalf("Disposition = %q", result.Disposition)
	}
	if len(result.Outcome.EatingRecords) != 1 {
		t.Fatalf("outcome = %+v", result.Outcome)
	}

	// Recording metadata and bytes are both durable.
	audio, _ := f.store.GetAudio(ctx, result.Audio.ID)
	if audio == nil || !audio.Transcribed {
		t.Fatalf("audio record = %+v", audio)
	}
	payload, _, err := f.blobs.Get(ctx, result.Audio.ID)
	if err != nil || payload == nil {
		t.Fatalf("blob = (%v, %v)", payload, err)
	}

	stats, _ := f.queue.Stats(ctx)
	if stats.Total() != 0 {
		t.Fatalf("online ingest queued an entry: %+v", stats)
	}
}

func TestIngestOfflineQueues(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	result, err := f.svc.Ingest(ctx, capture("offline"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Disposition != ingest.DispositionQueued {
		t.Fatalf("Disposition = %q", result.Disposition)
	}

	queued, err := f.queue.Queued(ctx)
	if err != nil {
		t.Fatalf("Queued: %v", err)
	}
	if len(queued) != 1 || queued[0].AudioRecordID != result.Audio.ID {
		t.Fatalf("queued = %+v", queued)
	}
}

func TestIngestNetworkFailureQueuesAndSignalsOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.ai.err = services.Wrap(services.ErrNetwork, "gemini", "transcribe", "connection reset", nil)

	result, err := f.svc.Ingest(ctx, capture("flaky"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Disposition != ingest.DispositionQueued {
		t.Fatalf("Disposition = %q", result.Disposition)
	}
	if f.monitor.online {
		t.Fatal("monitor not signalled offline")
	}
}

func TestIngestValidationFailureIsNotQueued(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.ai.err = services.Wrap(services.ErrValidation, "gemini", "transcribe", "unparseable", nil)

	if _, err := f.svc.Ingest(ctx, capture("bad")); !services.IsValidation(err) {
		t.Fatalf("Ingest error = %v, want validation", err)
	}
	stats, _ := f.queue.Stats(ctx)
	if stats.Total() != 0 {
		t.Fatalf("validation failure queued an entry: %+v", stats)
	}
}

func TestIngestRejectsEmptyAudio(t *testing.T) {
	f := newFixture(t, true)
	if _, err := f.svc.Ingest(context.Background(), ingest.Capture{Filename: "empty.webm"}); !services.IsValidation(err) {
		t.Fatalf("Ingest error = %v, want validation", err)
	}
}

func TestClarifyReprocessesStoredAnalysis(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	// First round: ambiguous result stashes the partial analysis.
	f.ai.result = &transcription.Result{
		Activity:    transcription.ActivityUnknown,
		Status:      records.StatusNeedsClarification,
		MissingData: []string{"meal name"},
	}
	first, err := f.svc.Ingest(ctx, capture("mumble"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if first.Outcome.Kind != transcription.OutcomeNeedsClarification {
		t.Fatalf("outcome = %+v", first.Outcome)
	}

	// Second round: the clarification resolves to a cooking result.
	f.ai.clarify = &transcription.Result{
		Activity: transcription.ActivityCooking,
		Status:   records.StatusComplete,
		Meals: []transcription.Meal{{
			Name: "Carrot Soup",
			Ingredients: []transcription.IngredientInput{
				{Name: "carrot", WeightGrams: 100, CaloriesPer100g: 41, TotalCaloriesKcal: 41},
			},
		}},
	}
	second, err := f.svc.Clarify(ctx, first.Audio.ID, "it was carrot soup")
	if err != nil {
		t.Fatalf("Clarify: %v", err)
	}
	if f.ai.lastNote != "it was carrot soup" {
		t.Fatalf("note = %q", f.ai.lastNote)
	}
	if len(second.Outcome.CookingRecords) != 1 {
		t.Fatalf("outcome = %+v", second.Outcome)
	}

	if _, err := f.svc.Clarify(ctx, "missing", "note"); !services.IsNotFound(err) {
		t.Fatalf("Clarify missing error = %v, want not found", err)
	}
}
