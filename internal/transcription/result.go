// Package transcription normalizes the loosely shaped JSON produced by the
// AI transcription service into one canonical result type, and applies a
// canonical result to the record store. Shape-sniffing happens exactly once,
// at Decode; everything downstream sees the tagged form.
package transcription

import (
	"encoding/json"
	"fmt"
	"strings"

	"mealvault/internal/records"
	"mealvault/internal/services"
)

// Activity classifies what the recording described.
type Activity string

const (
	ActivityCooking Activity = "cooking"
	ActivityEating  Activity = "eating"
	// ActivityUnknown means the service could not classify the recording.
	// Nothing may be created from an unknown result.
	ActivityUnknown Activity = ""
)

// Result is the canonical form of a transcription response.
type Result struct {
	RawTranscription      string   `json:"rawTranscription,omitempty"`
	Activity              Activity `json:"activityType"`
	Status                string   `json:"status"`
	Date                  string   `json:"date,omitempty"`
	Time                  string   `json:"time,omitempty"`
	Meals                 []Meal   `json:"meals,omitempty"`
	Foods                 []Food   `json:"foods,omitempty"`
	MissingData           []string `json:"missingData,omitempty"`
	ClarificationQuestion string   `json:"clarificationQuestion,omitempty"`
}

// Meal is one cooked dish with its normalized ingredient list.
type Meal struct {
	Name        string            `json:"mealName"`
	Ingredients []IngredientInput `json:"ingredients"`
}

// IngredientInput is a fully normalized ingredient: both the per-100g density
// and the item total are populated, derived from each other when only one was
// supplied.
type IngredientInput struct {
	Name              string `json:"name"`
	WeightGrams       int    `json:"weightGrams"`
	CaloriesPer100g   int    `json:"caloriesPer100g"`
	TotalCaloriesKcal int    `json:"totalCaloriesKcal"`
}

// Food is one consumed item from an eating-activity result.
type Food struct {
	Name         string `json:"name"`
	WeightGrams  int    `json:"weightGrams"`
	CaloriesKcal int    `json:"caloriesKcal"`
}

// Decode parses a raw service response into the canonical result. The service
// has emitted several shapes over time: meals with per-meal ingredients, a
// legacy flat top-level ingredient list, and eating responses where a food
// either declares calories directly or nests an ingredient list. All of them
// normalize here; a shape that fits none of them is a validation error.
func Decode(raw []byte) (*Result, error) {
	var loose map[string]any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, services.Wrap(services.ErrValidation, "transcription", "decode", "response is not a JSON object", err)
	}
	return fromLoose(loose)
}

func fromLoose(loose map[string]any) (*Result, error) {
	result := &Result{
		RawTranscription:      stringField(loose, "raw_transcription", "transcription"),
		Status:                strings.ToLower(stringField(loose, "status")),
		Date:                  stringField(loose, "date"),
		Time:                  stringField(loose, "time"),
		MissingData:           stringSlice(loose["missing_data"]),
		ClarificationQuestion: stringField(loose, "clarification_question", "question"),
	}

	switch strings.ToLower(stringField(loose, "activity_type", "activityType")) {
	case "cooking":
		result.Activity = ActivityCooking
	case "eating":
		result.Activity = ActivityEating
	case "", "null", "unknown":
		result.Activity = ActivityUnknown
	default:
		return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
			fmt.Sprintf("unrecognized activity_type %q", stringField(loose, "activity_type")), nil)
	}
	if result.Status == "" {
		result.Status = records.StatusComplete
	}
	switch result.Status {
	case records.StatusComplete, records.StatusNeedsClarification, records.StatusError:
	default:
		return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
			fmt.Sprintf("unrecognized status %q", result.Status), nil)
	}

	switch result.Activity {
	case ActivityCooking:
		meals, err := decodeMeals(loose)
		if err != nil {
			return nil, err
		}
		result.Meals = meals
	case ActivityEating:
		foods, err := decodeFoods(loose["foods"])
		if err != nil {
			return nil, err
		}
		result.Foods = foods
	}
	return result, nil
}

// decodeMeals accepts the meals[] shape, the legacy flat shape where
// meal_name and ingredients sit at the top level, and the oldest shape where
// a cooking response carries foods[] entries that each nest an ingredient
// list. Foods without a nested list are skipped in that last shape.
func decodeMeals(loose map[string]any) ([]Meal, error) {
	if rawMeals, ok := loose["meals"].([]any); ok && len(rawMeals) > 0 {
		meals := make([]Meal, 0, len(rawMeals))
		for i, entry := range rawMeals {
			obj, ok := entry.(map[string]any)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
					fmt.Sprintf("meals[%d] is not an object", i), nil)
			}
			meal, err := decodeMeal(obj)
			if err != nil {
				return nil, err
			}
			meals = append(meals, meal)
		}
		return meals, nil
	}
	if _, ok := loose["ingredients"]; ok {
		meal, err := decodeMeal(loose)
		if err != nil {
			return nil, err
		}
		return []Meal{meal}, nil
	}
	if rawFoods, ok := loose["foods"].([]any); ok {
		var meals []Meal
		for i, entry := range rawFoods {
			obj, ok := entry.(map[string]any)
			if !ok {
				return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
					fmt.Sprintf("foods[%d] is not an object", i), nil)
			}
			if _, nested := obj["ingredients"]; !nested {
				continue
			}
			meal, err := decodeMeal(obj)
			if err != nil {
				return nil, err
			}
			meals = append(meals, meal)
		}
		if len(meals) > 0 {
			return meals, nil
		}
	}
	return nil, nil
}

func decodeMeal(obj map[string]any) (Meal, error) {
	meal := Meal{Name: stringField(obj, "meal_name", "mealName", "name")}
	if meal.Name == "" {
		meal.Name = "Unnamed Meal"
	}
	rawIngredients, ok := obj["ingredients"].([]any)
	if !ok || len(rawIngredients) == 0 {
		return Meal{}, services.Wrap(services.ErrValidation, "transcription", "decode",
			fmt.Sprintf("meal %q has no ingredients", meal.Name), nil)
	}
	for i, entry := range rawIngredients {
		ingObj, ok := entry.(map[string]any)
		if !ok {
			return Meal{}, services.Wrap(services.ErrValidation, "transcription", "decode",
				fmt.Sprintf("meal %q ingredient %d is not an object", meal.Name, i), nil)
		}
		ing, err := decodeIngredient(ingObj)
		if err != nil {
			return Meal{}, err
		}
		meal.Ingredients = append(meal.Ingredients, ing)
	}
	return meal, nil
}

// decodeIngredient normalizes one ingredient: weight is required, and at
// least one of the per-100g density or the item total must be present so the
// other can be derived. An explicit zero counts as present: water and spices
// legitimately carry no calories.
func decodeIngredient(obj map[string]any) (IngredientInput, error) {
	ing := IngredientInput{
		Name:        stringField(obj, "name", "ingredient"),
		WeightGrams: intField(obj, "weight_g", "weight_grams", "weight", "amount"),
	}
	if ing.Name == "" {
		return IngredientInput{}, services.Wrap(services.ErrValidation, "transcription", "decode", "ingredient missing name", nil)
	}
	if ing.WeightGrams <= 0 {
		return IngredientInput{}, services.Wrap(services.ErrValidation, "transcription", "decode",
			fmt.Sprintf("ingredient %q missing weight", ing.Name), nil)
	}
	per100, per100Present := intFieldOK(obj, "calories_per_100g", "caloriesPer100g")
	total, totalPresent := intFieldOK(obj, "total_calories", "totalCalories", "calories")
	ing.CaloriesPer100g = per100
	ing.TotalCaloriesKcal = total
	switch {
	case per100Present && !totalPresent:
		ing.TotalCaloriesKcal = records.IngredientCalories(ing.WeightGrams, per100)
	case totalPresent && !per100Present:
		ing.CaloriesPer100g = roundRatio(total*100, ing.WeightGrams)
	case !per100Present && !totalPresent:
		return IngredientInput{}, services.Wrap(services.ErrValidation, "transcription", "decode",
			fmt.Sprintf("ingredient %q has no calorie information", ing.Name), nil)
	}
	return ing, nil
}

// decodeFoods normalizes the eating shapes. A food either carries its own
// calories, or nests an ingredient list whose totals are summed for it.
func decodeFoods(raw any) ([]Food, error) {
	rawFoods, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	foods := make([]Food, 0, len(rawFoods))
	for i, entry := range rawFoods {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
				fmt.Sprintf("foods[%d] is not an object", i), nil)
		}
		food := Food{
			Name:         stringField(obj, "name", "food_name"),
			WeightGrams:  intField(obj, "weight_g", "weight_grams", "weight", "amount"),
			CaloriesKcal: intField(obj, "calories", "total_calories", "calories_kcal"),
		}
		if food.Name == "" {
			return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
				fmt.Sprintf("foods[%d] missing name", i), nil)
		}
		if food.CaloriesKcal == 0 {
			if per100 := intField(obj, "calories_per_100g"); per100 > 0 && food.WeightGrams > 0 {
				food.CaloriesKcal = records.IngredientCalories(food.WeightGrams, per100)
			} else if nested, ok := obj["ingredients"].([]any); ok && len(nested) > 0 {
				nestedWeight := 0
				for _, nestedEntry := range nested {
					ingObj, ok := nestedEntry.(map[string]any)
					if !ok {
						continue
					}
					ing, err := decodeIngredient(ingObj)
					if err != nil {
						return nil, err
					}
					food.CaloriesKcal += ing.TotalCaloriesKcal
					nestedWeight += ing.WeightGrams
				}
				if food.WeightGrams == 0 {
					food.WeightGrams = nestedWeight
				}
			}
		}
		if food.CaloriesKcal <= 0 {
			return nil, services.Wrap(services.ErrValidation, "transcription", "decode",
				fmt.Sprintf("food %q has no calorie information", food.Name), nil)
		}
		foods = append(foods, food)
	}
	return foods, nil
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func intField(obj map[string]any, keys ...string) int {
	value, _ := intFieldOK(obj, keys...)
	return value
}

// intFieldOK reports whether any of the keys carried a parseable number, so
// callers can distinguish an explicit zero from an absent field. The first
// positive value wins; otherwise a present zero is reported as (0, true).
func intFieldOK(obj map[string]any, keys ...string) (int, bool) {
	present := false
	for _, key := range keys {
		value, ok := numericValue(obj[key])
		if !ok {
			continue
		}
		if value > 0 {
			return value, true
		}
		present = true
	}
	return 0, present
}

func numericValue(raw any) (int, bool) {
	switch value := raw.(type) {
	case float64:
		if value < 0 {
			return 0, true
		}
		return int(value + 0.5), true
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(strings.TrimSpace(value), "%g", &parsed); err == nil {
			if parsed < 0 {
				return 0, true
			}
			return int(parsed + 0.5), true
		}
	}
	return 0, false
}

func stringSlice(raw any) []string {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(entries))
	for _, entry := range entries {
		if value, ok := entry.(string); ok && strings.TrimSpace(value) != "" {
			values = append(values, strings.TrimSpace(value))
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func roundRatio(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
