package recipe

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Ref is a reference to another entity (ingredient, category, user). The API
// returns either a populated object or just the identifier.
type Ref struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON accepts both `{"_id": "...", "name": "..."}` and `"<id>"`.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref{ID: id}
		return nil
	}
	type plain Ref
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ref(p)
	return nil
}

// RefList is an ordered list of references. Anything that is not a JSON array
// (missing, null, a string, an object) decodes as an empty list, and array
// elements that are neither objects nor strings are skipped.
type RefList []Ref

func (l *RefList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(RefList, 0, len(raw))
	for _, item := range raw {
		var ref Ref
		if err := json.Unmarshal(item, &ref); err != nil {
			continue
		}
		out = append(out, ref)
	}
	*l = out
	return nil
}

// Names returns the names of the referenced entities, in order.
func (l RefList) Names() []string {
	names := make([]string, 0, len(l))
	for _, r := range l {
		names = append(names, r.Name)
	}
	return names
}

// Recipe is a recipe as served by the API.
type Recipe struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	TimeToCook  float64 `json:"timeToCook"`
	Calories    float64 `json:"calories"`
	Ingredients RefList `json:"ingredients"`
	Categories  RefList `json:"category"`
	Image       string  `json:"image,omitempty"`
	User        *Ref    `json:"user,omitempty"`
}

// TimeToCookText renders TimeToCook the way it is shown and searched.
func (r Recipe) TimeToCookText() string {
	return formatNumber(r.TimeToCook)
}

// CaloriesText renders Calories the way it is shown and searched.
func (r Recipe) CaloriesText() string {
	return formatNumber(r.Calories)
}

// OwnedBy reports whether userID owns the recipe.
func (r Recipe) OwnedBy(userID string) bool {
	return r.User != nil && userID != "" && r.User.ID == userID
}

// List is a list of recipes that may arrive populated or as bare ids. Bare
// ids decode as recipes with only ID set; non-arrays decode as empty.
type List []Recipe

func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(List, 0, len(raw))
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var id string
			if err := json.Unmarshal(item, &id); err == nil {
				out = append(out, Recipe{ID: id})
			}
			continue
		}
		var r Recipe
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Ingredient is read-only reference data.
type Ingredient struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Category is read-only reference data.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Draft is the input for creating or updating a recipe. Ingredient and
// category names are resolved to identifiers before the draft is sent.
type Draft struct {
	Name          string
	Description   string
	TimeToCook    float64
	Calories      float64
	IngredientIDs []string
	CategoryIDs   []string

	// Unresolved names, filled by importers.
	IngredientNames []string
	CategoryNames   []string

	ImageName string
	Image     []byte
	SourceURL string
}
