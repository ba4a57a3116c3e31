package recipe

import "strings"

// Criteria narrows a recipe list. Empty fields match everything.
type Criteria struct {
	// Search is matched as a case-insensitive substring of the name, the
	// time to cook or the calories.
	Search string
	// Ingredient must equal (case-insensitively) one of the recipe's ingredients.
	Ingredient string
	// Category must equal (case-insensitively) one of the recipe's categories.
	Category string
}

// IsZero reports whether the criteria match every recipe.
func (c Criteria) IsZero() bool {
	return c.Search == "" && c.Ingredient == "" && c.Category == ""
}

// Filter returns the recipes matching all of the criteria, in input order.
// It does not modify its input.
func Filter(recipes []Recipe, c Criteria) []Recipe {
	search := strings.ToLower(c.Search)
	out := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		if matchesSearch(r, search) &&
			matchesRef(r.Ingredients, c.Ingredient) &&
			matchesRef(r.Categories, c.Category) {
			out = append(out, r)
		}
	}
	return out
}

// SearchByName keeps the recipes whose name contains term, case-insensitively.
func SearchByName(recipes []Recipe, term string) []Recipe {
	term = strings.ToLower(term)
	out := make([]Recipe, 0, len(recipes))
	for _, r := range recipes {
		if strings.Contains(strings.ToLower(r.Name), term) {
			out = append(out, r)
		}
	}
	return out
}

func matchesSearch(r Recipe, lowerTerm string) bool {
	if lowerTerm == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), lowerTerm) ||
		strings.Contains(strings.ToLower(r.TimeToCookText()), lowerTerm) ||
		strings.Contains(strings.ToLower(r.CaloriesText()), lowerTerm)
}

func matchesRef(refs RefList, want string) bool {
	if want == "" {
		return true
	}
	for _, ref := range refs {
		if strings.EqualFold(ref.Name, want) {
			return true
		}
	}
	return false
}
