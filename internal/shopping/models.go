package shopping

// Item is one ingredient to buy for the week.
type Item struct {
	Ingredient string `json:"ingredient"`
	// Meals is how many scheduled meals use the ingredient.
	Meals int `json:"meals"`
	// Recipes lists the recipe titles needing it, in plan order.
	Recipes []string `json:"recipes"`
}

// ShoppingList is derived from a meal plan and the recipe catalog.
type ShoppingList struct {
	MealPlanID string `json:"meal_plan_id"`
	Items      []Item `json:"items"`
	// Unknown holds titles of planned recipes missing from the catalog,
	// whose ingredients could not be listed.
	Unknown []string `json:"unknown,omitempty"`
}
