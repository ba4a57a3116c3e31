package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"recipe-planner/internal/recipe"
)

// ErrImportDisabled is returned when no clipper is configured.
var ErrImportDisabled = errors.New("recipe import is not configured")

// ImportResult is a created recipe plus the names that matched nothing in
// the catalog and were dropped.
type ImportResult struct {
	Recipe               *recipe.Recipe
	UnmatchedIngredients []string
	UnmatchedCategories  []string
}

// ImportRecipe clips url, resolves its ingredient and category names against
// the catalog and publishes the recipe.
func (w *Workspace) ImportRecipe(ctx context.Context, url string) (*ImportResult, error) {
	if w.app.clipper == nil {
		return nil, ErrImportDisabled
	}

	draft, err := w.app.clipper.Extract(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to extract recipe: %w", err)
	}

	ingredients, err := w.Ingredients(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := w.Categories(ctx)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	draft.IngredientIDs, res.UnmatchedIngredients = resolve(draft.IngredientNames, ingredientNames(ingredients))
	draft.CategoryIDs, res.UnmatchedCategories = resolve(draft.CategoryNames, categoryNames(categories))
	w.log.Info("importing recipe", "url", url, "name", draft.Name,
		"ingredients", len(draft.IngredientIDs), "unmatched_ingredients", len(res.UnmatchedIngredients))

	created, err := w.CreateRecipe(ctx, *draft)
	if err != nil {
		return nil, err
	}
	res.Recipe = created
	return res, nil
}

type namedID struct{ id, name string }

func ingredientNames(in []recipe.Ingredient) []namedID {
	out := make([]namedID, 0, len(in))
	for _, i := range in {
		out = append(out, namedID{i.ID, i.Name})
	}
	return out
}

func categoryNames(in []recipe.Category) []namedID {
	out := make([]namedID, 0, len(in))
	for _, c := range in {
		out = append(out, namedID{c.ID, c.Name})
	}
	return out
}

// resolve maps each name to a catalog id. An exact case-insensitive match
// wins; otherwise the longest catalog name found in the text as whole words
// is used, so "2 ripe tomatoes" still finds "Tomato" but "eggplant" does not
// find "Egg". Each id is returned once.
func resolve(names []string, catalog []namedID) (ids []string, unmatched []string) {
	seen := make(map[string]bool)
	for _, name := range names {
		id := matchName(name, catalog)
		if id == "" {
			unmatched = append(unmatched, name)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, unmatched
}

func matchName(name string, catalog []namedID) string {
	text := strings.ToLower(strings.TrimSpace(name))
	if text == "" {
		return ""
	}
	textWords := words(text)
	best, bestLen := "", 0
	for _, c := range catalog {
		candidate := strings.ToLower(strings.TrimSpace(c.name))
		if candidate == "" {
			continue
		}
		if candidate == text {
			return c.id
		}
		if len(candidate) > bestLen && containsWords(textWords, words(candidate)) {
			best, bestLen = c.id, len(candidate)
		}
	}
	return best
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// containsWords reports whether want occurs in text as consecutive words.
// A plural "s" or "es" on a text word still matches.
func containsWords(text, want []string) bool {
	if len(want) == 0 {
		return false
	}
	for i := 0; i+len(want) <= len(text); i++ {
		match := true
		for j, w := range want {
			if t := text[i+j]; t != w && t != w+"s" && t != w+"es" {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
