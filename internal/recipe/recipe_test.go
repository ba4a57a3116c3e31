package recipe

import (
	"encoding/json"
	"testing"
)

func TestRecipeUnmarshal(t *testing.T) {
	t.Run("PopulatedReferences", func(t *testing.T) {
		body := `{
			"_id": "r1",
			"name": "Pancakes",
			"timeToCook": 20,
			"calories": 350.5,
			"ingredients": [{"_id": "i1", "name": "Flour"}, {"_id": "i2", "name": "Milk"}],
			"category": [{"_id": "c1", "name": "Breakfast"}],
			"image": "uploads/pancakes.png",
			"user": {"_id": "u1", "name": "alice"}
		}`

		var r Recipe
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if r.ID != "r1" || r.Name != "Pancakes" {
			t.Errorf("Unexpected identity: %+v", r)
		}
		if len(r.Ingredients) != 2 || r.Ingredients[1].Name != "Milk" {
			t.Errorf("Expected 2 ingredients ending in Milk, got %+v", r.Ingredients)
		}
		if len(r.Categories) != 1 || r.Categories[0].Name != "Breakfast" {
			t.Errorf("Expected Breakfast category, got %+v", r.Categories)
		}
		if r.CaloriesText() != "350.5" {
			t.Errorf("Expected calories text '350.5', got '%s'", r.CaloriesText())
		}
		if !r.OwnedBy("u1") || r.OwnedBy("u2") {
			t.Error("Ownership check failed")
		}
	})

	t.Run("BareIDReferences", func(t *testing.T) {
		var r Recipe
		if err := json.Unmarshal([]byte(`{"_id": "r1", "ingredients": ["i1", "i2"], "user": "u1"}`), &r); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(r.Ingredients) != 2 || r.Ingredients[0].ID != "i1" || r.Ingredients[0].Name != "" {
			t.Errorf("Expected id-only references, got %+v", r.Ingredients)
		}
		if r.User == nil || r.User.ID != "u1" {
			t.Errorf("Expected user reference u1, got %+v", r.User)
		}
	})

	t.Run("MalformedLists", func(t *testing.T) {
		for _, body := range []string{
			`{"_id": "r1", "ingredients": "flour", "category": {"name": "x"}}`,
			`{"_id": "r1", "ingredients": null, "category": 7}`,
			`{"_id": "r1"}`,
		} {
			var r Recipe
			if err := json.Unmarshal([]byte(body), &r); err != nil {
				t.Fatalf("Expected no error for %s, got %v", body, err)
			}
			if len(r.Ingredients) != 0 || len(r.Categories) != 0 {
				t.Errorf("Expected empty lists for %s, got %+v / %+v", body, r.Ingredients, r.Categories)
			}
		}
	})

	t.Run("SkipsInvalidElements", func(t *testing.T) {
		var l RefList
		if err := json.Unmarshal([]byte(`[{"name": "Salt"}, 42, true, "i9"]`), &l); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(l) != 2 || l[0].Name != "Salt" || l[1].ID != "i9" {
			t.Errorf("Expected [Salt i9], got %+v", l)
		}
	})
}
