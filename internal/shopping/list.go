package shopping

import (
	"sort"
	"strings"

	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
)

// Build collects the ingredients of every meal in plan, looking recipes up
// in catalog by id. Ingredients are merged case-insensitively and sorted by
// name.
func Build(plan *planner.MealPlan, catalog []recipe.Recipe) *ShoppingList {
	list := &ShoppingList{}
	if plan == nil {
		return list
	}
	list.MealPlanID = plan.ID

	byID := make(map[string]recipe.Recipe, len(catalog))
	for _, r := range catalog {
		byID[r.ID] = r
	}

	index := make(map[string]int)
	unknown := make(map[string]bool)
	for _, m := range plan.Meals {
		r, ok := byID[m.Recipe.ID]
		if !ok {
			if !unknown[m.Recipe.Title] {
				unknown[m.Recipe.Title] = true
				list.Unknown = append(list.Unknown, m.Recipe.Title)
			}
			continue
		}
		title := m.Recipe.Title
		if title == "" {
			title = r.Name
		}
		for _, name := range r.Ingredients.Names() {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			i, seen := index[key]
			if !seen {
				i = len(list.Items)
				index[key] = i
				list.Items = append(list.Items, Item{Ingredient: name})
			}
			item := &list.Items[i]
			item.Meals++
			if !contains(item.Recipes, title) {
				item.Recipes = append(item.Recipes, title)
			}
		}
	}

	sort.SliceStable(list.Items, func(a, b int) bool {
		return strings.ToLower(list.Items[a].Ingredient) < strings.ToLower(list.Items[b].Ingredient)
	})
	return list
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
