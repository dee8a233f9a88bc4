package testsupport

import (
	"context"
	"testing"

	"mealvault/internal/config"
	"mealvault/internal/records"
	"mealvault/internal/syncqueue"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenQueue opens a syncqueue.Store for tests and registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *syncqueue.Store {
	t.Helper()

	queue, err := syncqueue.Open(cfg)
	if err != nil {
		t.Fatalf("syncqueue.Open: %v", err)
	}
	t.Cleanup(func() {
		queue.Close()
	})
	return queue
}

// NewCookedBatch inserts a cooking record for tests using the provided store.
func NewCookedBatch(t testing.TB, store *records.Store, name string, totalWeight, totalCalories int) *records.CookingRecord {
	t.Helper()

	rec, err := store.AddCooking(context.Background(), records.CookingRecord{
		MealName:          name,
		TotalWeightGrams:  totalWeight,
		TotalCaloriesKcal: totalCalories,
	})
	if err != nil {
		t.Fatalf("store.AddCooking: %v", err)
	}
	return rec
}
