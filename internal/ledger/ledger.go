// Package ledger applies serving math on top of the record store: logging a
// serving from a cooked batch, reversing one, and keeping the batch's
// remaining weight consistent with the eating records drawn from it.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services"
)

// Service mediates every serving mutation. Calorie density is assumed uniform
// across a batch, so a serving's calories are weight * total calories / total
// weight, rounded to the nearest whole kilocalorie.
type Service struct {
	store  *records.Store
	logger *slog.Logger
}

func New(store *records.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logging.NewComponentLogger(logger, "ledger"),
	}
}

// ServingCalories computes the calories in a serving of the given weight
// taken from the batch. The batch must have a positive total weight.
func ServingCalories(batch *records.CookingRecord, weightGrams int) int {
	perGram := float64(batch.TotalCaloriesKcal) / float64(batch.TotalWeightGrams)
	return int(math.Round(float64(weightGrams) * perGram))
}

// AddServing draws weightGrams from a cooked batch: it creates an eating
// record traceable to the batch, then decrements the batch's remaining
// weight. The eating record is written first, so a crash between the two
// writes leaves an extra eating record rather than silently lost food.
func (s *Service) AddServing(ctx context.Context, cookingID string, weightGrams int) (*records.EatingRecord, error) {
	if weightGrams <= 0 {
		return nil, services.Wrap(services.ErrValidation, "ledger", "add serving", "serving weight must be positive", nil)
	}
	batch, err := s.store.GetCooking(ctx, cookingID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, services.Wrap(services.ErrNotFound, "ledger", "add serving", fmt.Sprintf("cooking record %s not found", cookingID), nil)
	}
	if batch.TotalWeightGrams <= 0 {
		return nil, services.Wrap(services.ErrValidation, "ledger", "add serving", "batch has no total weight; calorie density undefined", nil)
	}
	if weightGrams > batch.RemainingWeightGrams {
		return nil, services.Wrap(services.ErrValidation, "ledger", "add serving",
			fmt.Sprintf("serving %dg exceeds remaining %dg", weightGrams, batch.RemainingWeightGrams), nil)
	}

	eating, err := s.store.AddEating(ctx, records.EatingRecord{
		FoodName:                batch.MealName,
		WeightGrams:             weightGrams,
		CaloriesKcal:            ServingCalories(batch, weightGrams),
		Source:                  records.SourceCooking,
		OriginalCookingRecordID: batch.ID,
		Status:                  records.StatusComplete,
	})
	if err != nil {
		return nil, err
	}

	remaining := batch.RemainingWeightGrams - weightGrams
	if _, err := s.store.UpdateCooking(ctx, batch.ID, records.CookingPatch{RemainingWeightGrams: &remaining}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "serving logged",
		logging.String("cooking_id", batch.ID),
		logging.Int("weight_g", weightGrams),
		logging.Int("calories_kcal", eating.CaloriesKcal),
		logging.Int("remaining_g", remaining),
	)
	return eating, nil
}

// ReverseServing returns weightGrams to a batch. The restored remaining
// weight is clamped at the batch total, so reversing more than was ever
// served cannot inflate the batch.
func (s *Service) ReverseServing(ctx context.Context, cookingID string, weightGrams int) (*records.CookingRecord, error) {
	if weightGrams <= 0 {
		return nil, services.Wrap(services.ErrValidation, "ledger", "reverse serving", "serving weight must be positive", nil)
	}
	batch, err := s.store.GetCooking(ctx, cookingID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, services.Wrap(services.ErrNotFound, "ledger", "reverse serving", fmt.Sprintf("cooking record %s not found", cookingID), nil)
	}

	restored := batch.RemainingWeightGrams + weightGrams
	if restored > batch.TotalWeightGrams {
		restored = batch.TotalWeightGrams
	}
	updated, err := s.store.UpdateCooking(ctx, batch.ID, records.CookingPatch{RemainingWeightGrams: &restored})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "serving reversed",
		logging.String("cooking_id", batch.ID),
		logging.Int("weight_g", weightGrams),
		logging.Int("remaining_g", restored),
	)
	return updated, nil
}

// RemoveEating deletes an eating record. When the record was served from a
// cooked batch that still exists, its weight is returned to the batch first.
// A vanished origin batch is not an error; the deletion proceeds alone.
func (s *Service) RemoveEating(ctx context.Context, eatingID string) (bool, error) {
	rec, err := s.store.GetEating(ctx, eatingID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	if rec.Source == records.SourceCooking && rec.OriginalCookingRecordID != "" && rec.WeightGrams > 0 {
		_, err := s.ReverseServing(ctx, rec.OriginalCookingRecordID, rec.WeightGrams)
		if err != nil && !services.IsNotFound(err) {
			return false, err
		}
	}

	return s.store.DeleteEating(ctx, eatingID)
}
