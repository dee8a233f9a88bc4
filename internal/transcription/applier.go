package transcription

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services"
)

// Mode controls how a clarified result is re-applied to a recording that
// already produced records.
type Mode string

const (
	// ModeAppend always creates new records. Prior partial records stay.
	ModeAppend Mode = "append"
	// ModeReplace removes records previously derived from the same recording
	// before applying the new result.
	ModeReplace Mode = "replace"
)

// ParseMode validates a configured mode string.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeAppend, "":
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", services.Wrap(services.ErrValidation, "transcription", "parse mode",
			"clarification mode must be \"append\" or \"replace\"", nil)
	}
}

// maxPreviewNames bounds the ingredient preview stored on a cooking record.
const maxPreviewNames = 6

// OutcomeKind tags what an application produced.
type OutcomeKind string

const (
	OutcomeApplied            OutcomeKind = "applied"
	OutcomeNeedsClarification OutcomeKind = "needs_clarification"
)

// Outcome summarizes the record mutations an application performed.
type Outcome struct {
	Kind                  OutcomeKind
	CookingRecords        []records.CookingRecord
	EatingRecords         []records.EatingRecord
	MissingData           []string
	ClarificationQuestion string
}

// Applier turns canonical transcription results into record-store mutations.
type Applier struct {
	store  *records.Store
	logger *slog.Logger
	mode   Mode
	titler cases.Caser
}

func NewApplier(store *records.Store, mode Mode, logger *slog.Logger) *Applier {
	if mode == "" {
		mode = ModeAppend
	}
	return &Applier{
		store:  store,
		logger: logging.NewComponentLogger(logger, "applier"),
		mode:   mode,
		titler: cases.Title(language.Und),
	}
}

// Apply writes the records a result implies and marks the audio recording
// with the result. A result that is ambiguous or flagged needs_clarification
// creates nothing beyond that mark. All validation happens before the first
// store write, so a rejected result never leaves partial records behind.
func (a *Applier) Apply(ctx context.Context, result *Result, audioID string) (*Outcome, error) {
	if result == nil {
		return nil, services.Wrap(services.ErrValidation, "transcription", "apply", "nil result", nil)
	}

	if result.Status == records.StatusNeedsClarification || result.Activity == ActivityUnknown {
		if err := a.markAudio(ctx, audioID, result, false); err != nil {
			return nil, err
		}
		a.logger.InfoContext(ctx, "result needs clarification",
			logging.String("audio_id", audioID),
			logging.Any("missing_data", result.MissingData),
		)
		return &Outcome{
			Kind:                  OutcomeNeedsClarification,
			MissingData:           result.MissingData,
			ClarificationQuestion: result.ClarificationQuestion,
		}, nil
	}

	var outcome *Outcome
	var err error
	switch result.Activity {
	case ActivityCooking:
		outcome, err = a.applyCooking(ctx, result, audioID)
	case ActivityEating:
		outcome, err = a.applyEating(ctx, result, audioID)
	default:
		return nil, services.Wrap(services.ErrValidation, "transcription", "apply",
			"result has no usable activity type", nil)
	}
	if err != nil {
		return nil, err
	}
	if err := a.markAudio(ctx, audioID, result, true); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (a *Applier) applyCooking(ctx context.Context, result *Result, audioID string) (*Outcome, error) {
	if len(result.Meals) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcription", "apply", "cooking result has no meals", nil)
	}
	if err := a.maybeReplacePrior(ctx, audioID); err != nil {
		return nil, err
	}

	outcome := &Outcome{Kind: OutcomeApplied}
	for _, meal := range result.Meals {
		totalWeight, totalCalories := 0, 0
		preview := make([]string, 0, maxPreviewNames)
		for _, ing := range meal.Ingredients {
			totalWeight += ing.WeightGrams
			totalCalories += ing.TotalCaloriesKcal
			if len(preview) < maxPreviewNames {
				preview = append(preview, a.titler.String(ing.Name))
			}
		}

		batch, err := a.store.AddCooking(ctx, records.CookingRecord{
			MealName:          meal.Name,
			TotalWeightGrams:  totalWeight,
			TotalCaloriesKcal: totalCalories,
			CookedDate:        result.Date,
			CookedTime:        result.Time,
			SourceAudioID:     audioID,
			IngredientNames:   preview,
		})
		if err != nil {
			return nil, err
		}
		for _, ing := range meal.Ingredients {
			if _, err := a.store.AddIngredient(ctx, records.Ingredient{
				CookingRecordID:   batch.ID,
				Name:              ing.Name,
				WeightGrams:       ing.WeightGrams,
				CaloriesPer100g:   ing.CaloriesPer100g,
				TotalCaloriesKcal: ing.TotalCaloriesKcal,
			}); err != nil {
				return nil, err
			}
		}
		outcome.CookingRecords = append(outcome.CookingRecords, *batch)
		a.logger.InfoContext(ctx, "cooking record created",
			logging.String("cooking_id", batch.ID),
			logging.String("meal", batch.MealName),
			logging.Int("total_weight_g", totalWeight),
			logging.Int("total_calories_kcal", totalCalories),
		)
	}
	return outcome, nil
}

func (a *Applier) applyEating(ctx context.Context, result *Result, audioID string) (*Outcome, error) {
	if len(result.Foods) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transcription", "apply", "eating result has no foods", nil)
	}
	if err := a.maybeReplacePrior(ctx, audioID); err != nil {
		return nil, err
	}

	outcome := &Outcome{Kind: OutcomeApplied, MissingData: result.MissingData}
	for _, food := range result.Foods {
		eating, err := a.store.AddEating(ctx, records.EatingRecord{
			FoodName:      food.Name,
			WeightGrams:   food.WeightGrams,
			CaloriesKcal:  food.CaloriesKcal,
			EatenDate:     result.Date,
			EatenTime:     result.Time,
			Source:        records.SourceAudio,
			SourceAudioID: audioID,
			Status:        result.Status,
			MissingData:   result.MissingData,
		})
		if err != nil {
			return nil, err
		}
		outcome.EatingRecords = append(outcome.EatingRecords, *eating)
	}
	a.logger.InfoContext(ctx, "eating records created",
		logging.String("audio_id", audioID),
		logging.Int("count", len(outcome.EatingRecords)),
	)
	return outcome, nil
}

// maybeReplacePrior purges records previously derived from the recording when
// the applier runs in replace mode and the recording has already been applied
// once. Append mode leaves them, so clarification rounds are additive.
func (a *Applier) maybeReplacePrior(ctx context.Context, audioID string) error {
	if a.mode != ModeReplace || audioID == "" {
		return nil
	}
	audio, err := a.store.GetAudio(ctx, audioID)
	if err != nil {
		return err
	}
	if audio == nil || !audio.Transcribed {
		return nil
	}

	batches, err := a.store.ListCookingBySourceAudio(ctx, audioID)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		if _, err := a.store.DeleteCooking(ctx, batch.ID); err != nil {
			return err
		}
	}
	eatings, err := a.store.ListEatingBySourceAudio(ctx, audioID)
	if err != nil {
		return err
	}
	for _, eating := range eatings {
		if _, err := a.store.DeleteEating(ctx, eating.ID); err != nil {
			return err
		}
	}
	if len(batches) > 0 || len(eatings) > 0 {
		a.logger.InfoContext(ctx, "replaced prior derived records",
			logging.String("audio_id", audioID),
			logging.Int("cooking", len(batches)),
			logging.Int("eating", len(eatings)),
		)
	}
	return nil
}

// markAudio stores the result on the owning audio record. Unknown recordings
// are tolerated so results can be applied even after the recording metadata
// was deleted.
func (a *Applier) markAudio(ctx context.Context, audioID string, result *Result, transcribed bool) error {
	if audioID == "" {
		return nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "transcription", "encode result", "", err)
	}
	data := string(encoded)
	_, err = a.store.UpdateAudio(ctx, audioID, records.AudioPatch{
		Transcribed:       &transcribed,
		TranscriptionData: &data,
	})
	return err
}
