package planner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"recipe-planner/internal/recipe"
)

// Bounds accepted by the plan generation form.
const (
	MinTotalCalories  = 1000
	MaxTotalCalories  = 5000
	TotalCaloriesStep = 100
	MinMeals          = 1
	MaxMeals          = 6

	DefaultTotalCalories = 2000
	DefaultMeals         = 3
)

// MealRecipe is the denormalized recipe summary embedded in a meal entry.
type MealRecipe struct {
	ID       string  `json:"_id"`
	Title    string  `json:"title"`
	Image    string  `json:"image,omitempty"`
	Calories float64 `json:"calories"`
}

// MealEntry is one scheduled recipe within a meal plan.
type MealEntry struct {
	// Day of the week, 1=Sunday through 7=Saturday.
	Day        int        `json:"day"`
	MealNumber int        `json:"mealNumber"`
	Recipe     MealRecipe `json:"recipe"`

	// raw is the entry exactly as the API sent it, including fields this
	// type does not model. It is written back unchanged on update.
	raw json.RawMessage
}

type mealEntryFields MealEntry

func (m *MealEntry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var f mealEntryFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = MealEntry(f)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the entry as received when it came from the API, so a
// round trip keeps every server field.
func (m MealEntry) MarshalJSON() ([]byte, error) {
	if len(m.raw) > 0 {
		return m.raw, nil
	}
	return json.Marshal(mealEntryFields(m))
}

// MealPlan is the single active weekly plan of a user.
type MealPlan struct {
	ID    string      `json:"_id"`
	User  *recipe.Ref `json:"user,omitempty"`
	Meals []MealEntry `json:"meals"`
}

// TotalCalories sums the calories of every meal in the plan.
func (p *MealPlan) TotalCalories() float64 {
	if p == nil {
		return 0
	}
	var total float64
	for _, m := range p.Meals {
		total += m.Recipe.Calories
	}
	return total
}

// GenerateRequest asks the API to compute a new set of meal entries.
type GenerateRequest struct {
	TotalCalories int `json:"totalCalories"`
	NumberOfMeals int `json:"numberOfMeals"`
}

// DefaultGenerateRequest returns the values the generation form starts with.
func DefaultGenerateRequest() GenerateRequest {
	return GenerateRequest{TotalCalories: DefaultTotalCalories, NumberOfMeals: DefaultMeals}
}

// Validate checks the request against the form bounds. The synchronizer does
// not call it; front-ends do before submitting.
func (r GenerateRequest) Validate() error {
	if r.TotalCalories < MinTotalCalories || r.TotalCalories > MaxTotalCalories {
		return fmt.Errorf("total calories must be between %d and %d, got %d", MinTotalCalories, MaxTotalCalories, r.TotalCalories)
	}
	if r.TotalCalories%TotalCaloriesStep != 0 {
		return fmt.Errorf("total calories must be a multiple of %d, got %d", TotalCaloriesStep, r.TotalCalories)
	}
	if r.NumberOfMeals < MinMeals || r.NumberOfMeals > MaxMeals {
		return fmt.Errorf("number of meals must be between %d and %d, got %d", MinMeals, MaxMeals, r.NumberOfMeals)
	}
	return nil
}
