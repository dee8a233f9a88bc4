package records

import "context"

// CookingPatch describes a partial update to a cooking record. Nil fields are
// left untouched.
type CookingPatch struct {
	MealName             *string
	TotalWeightGrams     *int
	TotalCaloriesKcal    *int
	RemainingWeightGrams *int
	IngredientNames      *[]string
}

// AddCooking stores a new cooking record. When RemainingWeightGrams is unset
// it starts at the full batch weight.
func (s *Store) AddCooking(ctx context.Context, rec CookingRecord) (*CookingRecord, error) {
	now := s.now()
	if rec.ID == "" {
		rec.ID = s.newID(now)
	}
	if rec.CookedDate == "" {
		rec.CookedDate = DateOf(now)
	}
	if rec.CookedTime == "" {
		rec.CookedTime = TimeOf(now)
	}
	if rec.RemainingWeightGrams == 0 && rec.TotalWeightGrams > 0 {
		rec.RemainingWeightGrams = rec.TotalWeightGrams
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	items, err := loadCollection[CookingRecord](ctx, s, keyCookingRecords)
	if err != nil {
		return nil, err
	}
	items = append([]CookingRecord{rec}, items...)
	if err := saveCollection(ctx, s, keyCookingRecords, items); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetCooking fetches a cooking record by ID, returning nil when absent.
func (s *Store) GetCooking(ctx context.Context, id string) (*CookingRecord, error) {
	items, err := loadCollection[CookingRecord](ctx, s, keyCookingRecords)
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

// UpdateCooking merges a patch into an existing record, refreshes UpdatedAt,
// and persists. Returns nil when the record does not exist.
func (s *Store) UpdateCooking(ctx context.Context, id string, patch CookingPatch) (*CookingRecord, error) {
	items, err := loadCollection[CookingRecord](ctx, s, keyCookingRecords)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if patch.MealName != nil {
			items[i].MealName = *patch.MealName
		}
		if patch.TotalWeightGrams != nil {
			items[i].TotalWeightGrams = *patch.TotalWeightGrams
		}
		if patch.TotalCaloriesKcal != nil {
			items[i].TotalCaloriesKcal = *patch.TotalCaloriesKcal
		}
		if patch.RemainingWeightGrams != nil {
			items[i].RemainingWeightGrams = *patch.RemainingWeightGrams
		}
		if patch.IngredientNames != nil {
			items[i].IngredientNames = *patch.IngredientNames
		}
		items[i].UpdatedAt = s.now()
		if err := saveCollection(ctx, s, keyCookingRecords, items); err != nil {
			return nil, err
		}
		rec := items[i]
		return &rec, nil
	}
	return nil, nil
}

// DeleteCooking removes a cooking record and cascades to its owned
// ingredients.
func (s *Store) DeleteCooking(ctx context.Context, id string) (bool, error) {
	items, err := loadCollection[CookingRecord](ctx, s, keyCookingRecords)
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
	if err := saveCollection(ctx, s, keyCookingRecords, kept); err != nil {
		return false, err
	}
	if err := s.DeleteIngredientsByMeal(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ListCooking returns all cooking records, newest first.
func (s *Store) ListCooking(ctx context.Context) ([]CookingRecord, error) {
	return loadCollection[CookingRecord](ctx, s, keyCookingRecords)
}

// ListCookingBySourceAudio returns cooking records derived from the given
// recording.
func (s *Store) ListCookingBySourceAudio(ctx context.Context, audioID string) ([]CookingRecord, error) {
	items, err := loadCollection[CookingRecord](ctx, s, keyCookingRecords)
	if err != nil {
		return nil, err
	}
	var out []CookingRecord
	for _, rec := range items {
		if rec.SourceAudioID == audioID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// AddIngredient stores an ingredient row owned by a cooking record. Total
// calories are derived from weight and density when unset.
func (s *Store) AddIngredient(ctx context.Context, ing Ingredient) (*Ingredient, error) {
	now := s.now()
	if ing.ID == "" {
		ing.ID = s.newID(now)
	}
	if ing.TotalCaloriesKcal == 0 {
		ing.TotalCaloriesKcal = IngredientCalories(ing.WeightGrams, ing.CaloriesPer100g)
	}

	items, err := loadCollection[Ingredient](ctx, s, keyIngredients)
	if err != nil {
		return nil, err
	}
	items = append(items, ing)
	if err := saveCollection(ctx, s, keyIngredients, items); err != nil {
		return nil, err
	}
	return &ing, nil
}

// ListIngredientsByMeal returns the ingredients owned by a cooking record.
func (s *Store) ListIngredientsByMeal(ctx context.Context, cookingID string) ([]Ingredient, error) {
	items, err := loadCollection[Ingredient](ctx, s, keyIngredients)
	if err != nil {
		return nil, err
	}
	var out []Ingredient
	for _, ing := range items {
		if ing.CookingRecordID == cookingID {
			out = append(out, ing)
		}
	}
	return out, nil
}

// DeleteIngredientsByMeal removes all ingredients owned by a cooking record.
func (s *Store) DeleteIngredientsByMeal(ctx context.Context, cookingID string) error {
	items, err := loadCollection[Ingredient](ctx, s, keyIngredients)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, ing := range items {
		if ing.CookingRecordID != cookingID {
			kept = append(kept, ing)
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return saveCollection(ctx, s, keyIngredients, kept)
}
