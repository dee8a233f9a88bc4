package records

import "context"

// AudioPatch describes a partial update to an audio record. Nil fields are
// left untouched.
type AudioPatch struct {
	Filename          *string
	Transcribed       *bool
	TranscriptionData *string
}

// AddAudio stores a new audio record, assigning ID, capture date/time
// defaults, and CreatedAt. The stored record is returned.
func (s *Store) AddAudio(ctx context.Context, rec AudioRecord) (*AudioRecord, error) {
	now := s.now()
	if rec.ID == "" {
		rec.ID = s.newID(now)
	}
	if rec.RecordedDate == "" {
		rec.RecordedDate = DateOf(now)
	}
	if rec.RecordedTime == "" {
		rec.RecordedTime = TimeOf(now)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	items, err := loadCollection[AudioRecord](ctx, s, keyAudioRecords)
	if err != nil {
		return nil, err
	}
	items = append([]AudioRecord{rec}, items...)
	if err := saveCollection(ctx, s, keyAudioRecords, items); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAudio fetches an audio record by ID, returning nil when absent.
func (s *Store) GetAudio(ctx context.Context, id string) (*AudioRecord, error) {
	items, err := loadCollection[AudioRecord](ctx, s, keyAudioRecords)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			rec := items[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// UpdateAudio merges a patch into an existing record and persists the
// collection. Returns nil when the record does not exist.
func (s *Store) UpdateAudio(ctx context.Context, id string, patch AudioPatch) (*AudioRecord, error) {
	items, err := loadCollection[AudioRecord](ctx, s, keyAudioRecords)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if patch.Filename != nil {
			items[i].Filename = *patch.Filename
		}
		if patch.Transcribed != nil {
			items[i].Transcribed = *patch.Transcribed
		}
		if patch.TranscriptionData != nil {
			items[i].TranscriptionData = *patch.TranscriptionData
		}
		if err := saveCollection(ctx, s, keyAudioRecords, items); err != nil {
			return nil, err
		}
		rec := items[i]
		return &rec, nil
	}
	return nil, nil
}

// DeleteAudio removes a record by ID. Derived cooking/eating records are
// independent once created and are not touched.
func (s *Store) DeleteAudio(ctx context.Context, id string) (bool, error) {
	items, err := loadCollection[AudioRecord](ctx, s, keyAudioRecords)
	if err != nil {
		return false, err
	}
	kept := items[:0]
	for _, rec := range items {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	if err := saveCollection(ctx, s, keyAudioRecords, kept); err != nil {
		return false, err
	}
	return true, nil
}

// ListAudio returns all audio records, newest first.
func (s *Store) ListAudio(ctx context.Context) ([]AudioRecord, error) {
	return loadCollection[AudioRecord](ctx, s, keyAudioRecords)
}
