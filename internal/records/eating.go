package records

import "context"

// EatingPatch describes a partial update to an eating record. Nil fields are
// left untouched.
type EatingPatch struct {
	FoodName     *string
	WeightGrams  *int
	CaloriesKcal *int
	EatenDate    *string
	EatenTime    *string
	Status       *string
}

// AddEating stores a new eating record, defaulting date/time to now and
// status to complete.
func (s *Store) AddEating(ctx context.Context, rec EatingRecord) (*EatingRecord, error) {
	now := s.now()
	if rec.ID == "" {
		rec.ID = s.newID(now)
	}
	if rec.EatenDate == "" {
		rec.EatenDate = DateOf(now)
	}
	if rec.EatenTime == "" {
		rec.EatenTime = TimeOf(now)
	}
	if rec.Source == "" {
		rec.Source = SourceManual
	}
	if rec.Status == "" {
		rec.Status = StatusComplete
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	items, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
	if err != nil {
		return nil, err
	}
	items = append([]EatingRecord{rec}, items...)
	if err := saveCollection(ctx, s, keyEatingRecords, items); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetEating fetches an eating record by ID, returning nil when absent.
func (s *Store) GetEating(ctx context.Context, id string) (*EatingRecord, error) {
	items, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
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

// UpdateEating merges a patch into an existing record, refreshes UpdatedAt,
// and persists. Returns nil when the record does not exist.
func (s *Store) UpdateEating(ctx context.Context, id string, patch EatingPatch) (*EatingRecord, error) {
	items, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if patch.FoodName != nil {
			items[i].FoodName = *patch.FoodName
		}
		if patch.WeightGrams != nil {
			items[i].WeightGrams = *patch.WeightGrams
		}
		if patch.CaloriesKcal != nil {
			items[i].CaloriesKcal = *patch.CaloriesKcal
		}
		if patch.EatenDate != nil {
			items[i].EatenDate = *patch.EatenDate
		}
		if patch.EatenTime != nil {
			items[i].EatenTime = *patch.EatenTime
		}
		if patch.Status != nil {
			items[i].Status = *patch.Status
		}
		items[i].UpdatedAt = s.now()
		if err := saveCollection(ctx, s, keyEatingRecords, items); err != nil {
			return nil, err
		}
		rec := items[i]
		return &rec, nil
	}
	return nil, nil
}

// DeleteEating removes an eating record by ID. Callers that want cooked
// weight restored should go through the serving ledger instead.
func (s *Store) DeleteEating(ctx context.Context, id string) (bool, error) {
	items, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
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
	if err := saveCollection(ctx, s, keyEatingRecords, kept); err != nil {
		return false, err
	}
	return true, nil
}

// ListEating returns all eating records, newest first.
func (s *Store) ListEating(ctx context.Context) ([]EatingRecord, error) {
	return loadCollection[EatingRecord](ctx, s, keyEatingRecords)
}

// ListEatingByDate returns the eating records for one calendar date.
func (s *Store) ListEatingByDate(ctx context.Context, date string) ([]EatingRecord, error) {
	items, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
	if err != nil {
		return nil, err
	}
	var out []EatingRecord
	for _, rec := range items {
		if rec.EatenDate == date {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListEatingBySourceAudio returns eating records derived from the given
// recording.
func (s *Store) ListEatingBySourceAudio(ctx context.Context, audioID string) ([]EatingRecord, error) {
	items, err := loadCollection[EatingRecord](ctx, s, keyEatingRecords)
	if err != nil {
		return nil, err
	}
	var out []EatingRecord
	for _, rec := range items {
		if rec.SourceAudioID == audioID {
			out = append(out, rec)
		}
	}
	return out, nil
}
