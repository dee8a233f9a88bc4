package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"mealvault/internal/blobstore"
	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services"
	"mealvault/internal/transcription"
)

// Transcriber is the AI call replayed for each queued entry.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*transcription.Result, error)
}

// PassReport summarizes one replay pass over the queue.
type PassReport struct {
	Attempted int
	Replayed  int
	Requeued  int
	Abandoned int
	Invalid   int
}

// Replayer drains queued requests against the AI service once connectivity
// is back.
type Replayer struct {
	queue       *Store
	records     *records.Store
	blobs       *blobstore.Store
	transcriber Transcriber
	applier     *transcription.Applier
	retryLimit  int
	logger      *slog.Logger
}

// NewReplayer wires a replayer. retryLimit bounds attempts per entry; zero
// means entries are retried on every pass without bound.
func NewReplayer(
	queue *Store,
	recordStore *records.Store,
	blobs *blobstore.Store,
	transcriber Transcriber,
	applier *transcription.Applier,
	retryLimit int,
	logger *slog.Logger,
) *Replayer {
	return &Replayer{
		queue:       queue,
		records:     recordStore,
		blobs:       blobs,
		transcriber: transcriber,
		applier:     applier,
		retryLimit:  retryLimit,
		logger:      logging.NewComponentLogger(logger, "replayer"),
	}
}

// ReplayAll processes every queued entry in enqueue order. Entries are
// independent: a failure requeues or abandons that entry and the pass moves
// on. There is no in-pass retry; a requeued entry waits for the next online
// transition.
func (r *Replayer) ReplayAll(ctx context.Context) (PassReport, error) {
	report := PassReport{}
	entries, err := r.queue.Queued(ctx)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Attempted++
		r.replayOne(ctx, entry, &report)
	}

	if report.Attempted > 0 {
		r.logger.InfoContext(ctx, "replay pass finished",
			logging.Int("attempted", report.Attempted),
			logging.Int("replayed", report.Replayed),
			logging.Int("requeued", report.Requeued),
			logging.Int("abandoned", report.Abandoned),
			logging.Int("invalid", report.Invalid),
		)
	}
	return report, nil
}

func (r *Replayer) replayOne(ctx context.Context, entry *Entry, report *PassReport) {
	if err := r.queue.MarkInFlight(ctx, entry.ID); err != nil {
		r.logger.WarnContext(ctx, "mark in-flight failed",
			logging.Int64("entry_id", entry.ID), logging.Error(err))
		return
	}

	payload, meta, err := r.blobs.Get(ctx, entry.AudioRecordID)
	if err == nil && payload == nil {
		err = services.Wrap(services.ErrValidation, "replayer", "load blob",
			fmt.Sprintf("no audio stored for %s", entry.AudioRecordID), nil)
	}

	var result *transcription.Result
	if err == nil {
		result, err = r.transcriber.Transcribe(services.WithRequestID(ctx, entry.AudioRecordID), payload, meta.MimeType)
	}
	if err == nil {
		_, err = r.applier.Apply(ctx, result, entry.AudioRecordID)
	}

	switch {
	case err == nil:
		if _, removeErr := r.queue.Remove(ctx, entry.ID); removeErr != nil {
			r.logger.WarnContext(ctx, "remove replayed entry failed",
				logging.Int64("entry_id", entry.ID), logging.Error(removeErr))
			return
		}
		report.Replayed++
		r.logger.InfoContext(ctx, "entry replayed",
			logging.Int64("entry_id", entry.ID),
			logging.String("audio_id", entry.AudioRecordID),
		)

	case services.IsValidation(err):
		// Bad input will not get better with retries. The owning recording
		// carries the failure and the entry leaves the queue.
		report.Invalid++
		r.markAudioError(ctx, entry.AudioRecordID, err)
		if _, removeErr := r.queue.Remove(ctx, entry.ID); removeErr != nil {
			r.logger.WarnContext(ctx, "remove invalid entry failed",
				logging.Int64("entry_id", entry.ID), logging.Error(removeErr))
		}
		r.logger.WarnContext(ctx, "entry rejected",
			logging.Int64("entry_id", entry.ID), logging.Error(err))

	case services.IsNetwork(err):
		if r.retryLimit > 0 && entry.RetryCount+1 >= r.retryLimit {
			report.Abandoned++
			if failErr := r.queue.MarkFailed(ctx, entry.ID, err.Error()); failErr != nil {
				r.logger.WarnContext(ctx, "mark failed entry failed",
					logging.Int64("entry_id", entry.ID), logging.Error(failErr))
			}
			r.markAudioError(ctx, entry.AudioRecordID, err)
			r.logger.WarnContext(ctx, "entry abandoned after retry limit",
				logging.Int64("entry_id", entry.ID),
				logging.Int("retries", entry.RetryCount+1),
			)
			return
		}
		report.Requeued++
		if requeueErr := r.queue.MarkRequeued(ctx, entry.ID, err.Error()); requeueErr != nil {
			r.logger.WarnContext(ctx, "requeue entry failed",
				logging.Int64("entry_id", entry.ID), logging.Error(requeueErr))
		}
		r.logger.InfoContext(ctx, "entry requeued",
			logging.Int64("entry_id", entry.ID), logging.Error(err))

	default:
		// Persistence failures propagate nowhere useful mid-pass; requeue so
		// the entry survives and the pass continues.
		report.Requeued++
		if requeueErr := r.queue.MarkRequeued(ctx, entry.ID, err.Error()); requeueErr != nil {
			r.logger.WarnContext(ctx, "requeue entry failed",
				logging.Int64("entry_id", entry.ID), logging.Error(requeueErr))
		}
		r.logger.ErrorContext(ctx, "entry failed",
			logging.Int64("entry_id", entry.ID), logging.Error(err))
	}
}

func (r *Replayer) markAudioError(ctx context.Context, audioID string, cause error) {
	data, err := json.Marshal(map[string]string{
		"status": records.StatusError,
		"error":  cause.Error(),
	})
	if err != nil {
		return
	}
	transcribed := true
	payload := string(data)
	if _, err := r.records.UpdateAudio(ctx, audioID, records.AudioPatch{
		Transcribed:       &transcribed,
		TranscriptionData: &payload,
	}); err != nil {
		r.logger.WarnContext(ctx, "mark audio error failed",
			logging.String("audio_id", audioID), logging.Error(err))
	}
}
