// Package ingest orchestrates the capture intake flow: persist the recording,
// then transcribe it directly when the network allows or queue it for replay
// when it does not.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"mealvault/internal/blobstore"
	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services"
	"mealvault/internal/syncqueue"
	"mealvault/internal/transcription"
)

// Clarifier extends the replay transcriber with the clarification round.
type Clarifier interface {
	syncqueue.Transcriber
	Clarify(ctx context.Context, prior *transcription.Result, note string) (*transcription.Result, error)
}

// Connectivity is the slice of the monitor the service needs: a queryable
// state plus a feedback channel for failures it observes itself.
type Connectivity interface {
	Online() bool
	Signal(ctx context.Context, online bool)
}

// Capture is one finished audio recording handed over by the caller.
type Capture struct {
	Filename        string
	MimeType        string
	DurationSeconds float64
	Audio           []byte
}

// Disposition says what happened to an ingested capture.
type Disposition string

const (
	// DispositionApplied means the AI round-trip completed and records were
	// derived (or a clarification was requested).
	DispositionApplied Disposition = "applied"
	// DispositionQueued means the request waits in the offline queue.
	DispositionQueued Disposition = "queued"
)

// Result reports the outcome of one intake.
type Result struct {
	Audio       *records.AudioRecord
	Disposition Disposition
	Outcome     *transcription.Outcome
}

// Service glues the stores, the AI client, and the connectivity monitor into
// the capture pipeline.
type Service struct {
	store       *records.Store
	blobs       *blobstore.Store
	queue       *syncqueue.Store
	transcriber Clarifier
	applier     *transcription.Applier
	monitor     Connectivity
	logger      *slog.Logger
}

func New(
	store *records.Store,
	blobs *blobstore.Store,
	queue *syncqueue.Store,
	transcriber Clarifier,
	applier *transcription.Applier,
	monitor Connectivity,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		blobs:       blobs,
		queue:       queue,
		transcriber: transcriber,
		applier:     applier,
		monitor:     monitor,
		logger:      logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest persists the capture and runs or defers the AI round-trip. The
// recording is durable before any network is touched, so a failed or offline
// call can always be replayed later from the stored blob.
func (s *Service) Ingest(ctx context.Context, capture Capture) (*Result, error) {
	if len(capture.Audio) == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "ingest", "audio payload required", nil)
	}

	audio, err := s.store.AddAudio(ctx, records.AudioRecord{
		Filename:        capture.Filename,
		MimeType:        capture.MimeType,
		SizeBytes:       int64(len(capture.Audio)),
		DurationSeconds: capture.DurationSeconds,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.blobs.Put(ctx, audio.ID, capture.Audio, blobstore.Metadata{
		Filename: capture.Filename,
		MimeType: capture.MimeType,
	}); err != nil {
		// Keep stores consistent: a capture without its bytes is useless.
		if _, deleteErr := s.store.DeleteAudio(ctx, audio.ID); deleteErr != nil {
			s.logger.WarnContext(ctx, "rollback audio record failed",
				logging.String("audio_id", audio.ID), logging.Error(deleteErr))
		}
		return nil, err
	}

	if !s.monitor.Online() {
		return s.enqueueCapture(ctx, audio)
	}
	return s.Process(ctx, audio.ID)
}

// Process runs the AI round-trip for a stored recording and applies the
// result. A network failure enqueues the request instead of surfacing.
func (s *Service) Process(ctx context.Context, audioID string) (*Result, error) {
	audio, err := s.store.GetAudio(ctx, audioID)
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return nil, services.Wrap(services.ErrNotFound, "ingest", "process", "audio record "+audioID+" not found", nil)
	}

	payload, meta, err := s.blobs.Get(ctx, audio.ID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "process", "no audio stored for "+audio.ID, nil)
	}

	// Correlate outbound AI calls with the recording they transcribe.
	ctx = services.WithRequestID(ctx, audio.ID)

	result, err := s.transcriber.Transcribe(ctx, payload, meta.MimeType)
	if err != nil {
		if services.IsNetwork(err) {
			s.monitor.Signal(ctx, false)
			return s.enqueueCapture(ctx, audio)
		}
		return nil, err
	}

	outcome, err := s.applier.Apply(ctx, result, audio.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Audio: audio, Disposition: DispositionApplied, Outcome: outcome}, nil
}

// Clarify submits the user's answer for a recording stuck in
// needs_clarification and re-applies the improved result.
func (s *Service) Clarify(ctx context.Context, audioID, note string) (*Result, error) {
	audio, err := s.store.GetAudio(ctx, audioID)
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return nil, services.Wrap(services.ErrNotFound, "ingest", "clarify", "audio record "+audioID+" not found", nil)
	}
	if audio.TranscriptionData == "" {
		return nil, services.Wrap(services.ErrValidation, "ingest", "clarify",
			"recording has no prior analysis to clarify", nil)
	}
	var prior transcription.Result
	if err := json.Unmarshal([]byte(audio.TranscriptionData), &prior); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "clarify", "stored analysis unreadable", err)
	}

	result, err := s.transcriber.Clarify(services.WithRequestID(ctx, audio.ID), &prior, note)
	if err != nil {
		return nil, err
	}
	outcome, err := s.applier.Apply(ctx, result, audio.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Audio: audio, Disposition: DispositionApplied, Outcome: outcome}, nil
}

func (s *Service) enqueueCapture(ctx context.Context, audio *records.AudioRecord) (*Result, error) {
	entry, err := s.queue.Enqueue(ctx, syncqueue.KindTranscription, audio.ID, "blob:"+audio.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "capture queued for replay",
		logging.String("audio_id", audio.ID),
		logging.Int64("entry_id", entry.ID),
	)
	return &Result{Audio: audio, Disposition: DispositionQueued}, nil
}
