package records_test

import (
	"context"
	"encoding/json"
	"testing"

	"mealvault/internal/records"
	"mealvault/internal/testsupport"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	audio, err := source.AddAudio(ctx, records.AudioRecord{Filename: "note.webm"})
	if err != nil {
		t.Fatalf("AddAudio: %v", err)
	}
	batch := testsupport.NewCookedBatch(t, source, "Stew", 800, 1200)
	if _, err := source.AddIngredient(ctx, records.Ingredient{
		CookingRecordID: batch.ID, Name: "beef", WeightGrams: 500, CaloriesPer100g: 200,
	}); err != nil {
		t.Fatalf("AddIngredient: %v", err)
	}
	if _, err := source.AddEating(ctx, records.EatingRecord{FoodName: "apple", WeightGrams: 150, CaloriesKcal: 78}); err != nil {
		t.Fatalf("AddEating: %v", err)
	}

	backup, err := source.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if backup.Version != records.SettingsVersion || backup.ExportDate.IsZero() {
		t.Fatalf("backup header = version %q, date %v", backup.Version, backup.ExportDate)
	}

	// Round-trip through JSON the way an export file would.
	encoded, err := json.Marshal(backup)
	if err != nil {
		t.Fatalf("marshal backup: %v", err)
	}
	var decoded records.Backup
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal backup: %v", err)
	}

	target := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := target.Import(ctx, &decoded); err != nil {
		t.Fatalf("Import: %v", err)
	}

	restoredAudio, err := target.GetAudio(ctx, audio.ID)
	if err != nil || restoredAudio == nil {
		t.Fatalf("GetAudio after import = (%v, %v)", restoredAudio, err)
	}
	restoredBatch, err := target.GetCooking(ctx, batch.ID)
	if err != nil || restoredBatch == nil || restoredBatch.MealName != "Stew" {
		t.Fatalf("GetCooking after import = (%+v, %v)", restoredBatch, err)
	}
	owned, err := target.ListIngredientsByMeal(ctx, batch.ID)
	if err != nil || len(owned) != 1 {
		t.Fatalf("ingredients after import = (%d, %v)", len(owned), err)
	}
	eatings, err := target.ListEating(ctx)
	if err != nil || len(eatings) != 1 {
		t.Fatalf("eating after import = (%d, %v)", len(eatings), err)
	}
}

func TestImportLeavesAbsentCollectionsUntouched(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	if _, err := store.AddEating(ctx, records.EatingRecord{FoodName: "toast", WeightGrams: 40, CaloriesKcal: 100}); err != nil {
		t.Fatalf("AddEating: %v", err)
	}

	// A backup carrying only audio records must not clear the eating ledger.
	err := store.Import(ctx, &records.Backup{
		AudioRecords: []records.AudioRecord{{ID: "a1", Filename: "x.webm"}},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	eatings, err := store.ListEating(ctx)
	if err != nil || len(eatings) != 1 {
		t.Fatalf("eating after partial import = (%d, %v)", len(eatings), err)
	}
	audio, err := store.GetAudio(ctx, "a1")
	if err != nil || audio == nil {
		t.Fatalf("imported audio = (%v, %v)", audio, err)
	}
}

func TestExportJSONFieldNames(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	backup, err := store.Export(ctx)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	encoded, err := json.Marshal(backup)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"audioRecords", "cookingRecords", "ingredients", "eatingRecords", "exportDate", "version"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("export document missing %q: %s", key, encoded)
		}
	}
}
