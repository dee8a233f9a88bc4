package records

import "time"

// Source describes how an eating record came to exist.
type Source string

const (
	SourceAudio     Source = "audio"
	SourceCooking   Source = "cooking"
	SourceManual    Source = "manual"
	SourceProcessed Source = "processed"
)

// Statuses carried by audio and eating records after an AI round-trip.
const (
	StatusComplete           = "complete"
	StatusNeedsClarification = "needs_clarification"
	StatusError              = "error"
)

// AudioRecord is the metadata for one captured voice note. The audio bytes
// themselves live in the blob store, keyed by this record's ID.
type AudioRecord struct {
	ID                string    `json:"id"`
	Filename          string    `json:"filename"`
	MimeType          string    `json:"mimeType"`
	SizeBytes         int64     `json:"sizeBytes"`
	DurationSeconds   float64   `json:"durationSeconds"`
	RecordedDate      string    `json:"recordedDate"`
	RecordedTime      string    `json:"recordedTime"`
	Transcribed       bool      `json:"transcribed"`
	TranscriptionData string    `json:"transcriptionData,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CookingRecord is a tracked batch of prepared food with a depletable
// remaining weight. Calorie density is assumed constant across the batch:
// TotalCaloriesKcal / TotalWeightGrams.
type CookingRecord struct {
	ID                   string    `json:"id"`
	MealName             string    `json:"mealName"`
	TotalWeightGrams     int       `json:"totalWeightGrams"`
	TotalCaloriesKcal    int       `json:"totalCaloriesKcal"`
	RemainingWeightGrams int       `json:"remainingWeightGrams"`
	CookedDate           string    `json:"cookedDate"`
	CookedTime           string    `json:"cookedTime"`
	SourceAudioID        string    `json:"sourceAudioId,omitempty"`
	IngredientNames      []string  `json:"ingredientNames,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Ingredient is owned by exactly one cooking record and lives no longer than
// it does.
type Ingredient struct {
	ID                string `json:"id"`
	CookingRecordID   string `json:"cookingRecordId"`
	Name              string `json:"name"`
	WeightGrams       int    `json:"weightGrams"`
	CaloriesPer100g   int    `json:"caloriesPer100g"`
	TotalCaloriesKcal int    `json:"totalCaloriesKcal"`
}

// EatingRecord is a single logged consumption event, optionally traceable to
// the cooking record it was served from.
type EatingRecord struct {
	ID                      string    `json:"id"`
	FoodName                string    `json:"foodName"`
	WeightGrams             int       `json:"weightGrams"`
	CaloriesKcal            int       `json:"caloriesKcal"`
	EatenDate               string    `json:"eatenDate"`
	EatenTime               string    `json:"eatenTime"`
	Source                  Source    `json:"source"`
	OriginalCookingRecordID string    `json:"originalCookingRecordId,omitempty"`
	SourceAudioID           string    `json:"sourceAudioId,omitempty"`
	Status                  string    `json:"status"`
	MissingData             []string  `json:"missingData,omitempty"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

// Settings holds app-level preferences persisted alongside the collections.
type Settings struct {
	Theme    string    `json:"theme"`
	LastUsed time.Time `json:"lastUsed"`
	Version  string    `json:"version"`
}

// IngredientCalories computes an ingredient's total calories from its weight
// and per-100g density.
func IngredientCalories(weightGrams, caloriesPer100g int) int {
	return roundDiv(weightGrams*caloriesPer100g, 100)
}

// roundDiv divides a by b rounding half away from zero. Inputs here are never
// negative in practice.
func roundDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
