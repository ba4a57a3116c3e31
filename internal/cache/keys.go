package cache

import "fmt"

// Kind enumerates the cacheable resources.
type Kind int

const (
	KindRecipes Kind = iota + 1
	KindRecipe
	KindIngredients
	KindCategories
	KindMealPlan
	KindCurrentUser
	KindFavoriteRecipes
)

var kindNames = map[Kind]string{
	KindRecipes:         "recipes",
	KindRecipe:          "recipe",
	KindIngredients:     "ingredients",
	KindCategories:      "categories",
	KindMealPlan:        "mealplan",
	KindCurrentUser:     "currentUser",
	KindFavoriteRecipes: "favoriteRecipes",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key identifies a cached query. Keys are only built through the
// constructors below so every invalidation target is one of a fixed set.
type Key struct {
	kind  Kind
	param string
}

func RecipesKey() Key         { return Key{kind: KindRecipes} }
func RecipeKey(id string) Key { return Key{kind: KindRecipe, param: id} }
func IngredientsKey() Key     { return Key{kind: KindIngredients} }
func CategoriesKey() Key      { return Key{kind: KindCategories} }
func MealPlanKey() Key        { return Key{kind: KindMealPlan} }
func CurrentUserKey() Key     { return Key{kind: KindCurrentUser} }
func FavoritesKey() Key       { return Key{kind: KindFavoriteRecipes} }

func (k Key) Kind() Kind    { return k.kind }
func (k Key) Param() string { return k.param }
func (k Key) IsZero() bool  { return k.kind == 0 }

// String is the store representation of the key, e.g. "recipes" or "recipe:42".
func (k Key) String() string {
	if k.param == "" {
		return k.kind.String()
	}
	return k.kind.String() + ":" + k.param
}
