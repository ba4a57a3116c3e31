package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"recipe-planner/internal/recipe"
)

// GetRecipes returns every recipe in the catalog.
func (c *Client) GetRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	var list recipe.List
	if err := c.do(ctx, request{op: "getAllRecipes", method: http.MethodGet, path: "/recipes"}, &list); err != nil {
		return nil, err
	}
	return []recipe.Recipe(list), nil
}

// GetRecipe returns one recipe by id.
func (c *Client) GetRecipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	var r recipe.Recipe
	err := c.do(ctx, request{op: "getOneRecipe", method: http.MethodGet, path: "/recipes/" + url.PathEscape(id)}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) CreateRecipe(ctx context.Context, d recipe.Draft) (*recipe.Recipe, error) {
	var r recipe.Recipe
	err := c.do(ctx, request{op: "createRecipe", method: http.MethodPost, path: "/recipes", form: draftForm(d), auth: true}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) UpdateRecipe(ctx context.Context, id string, d recipe.Draft) (*recipe.Recipe, error) {
	var r recipe.Recipe
	err := c.do(ctx, request{op: "updateRecipe", method: http.MethodPut, path: "/recipes/" + url.PathEscape(id), form: draftForm(d), auth: true}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) DeleteRecipe(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "deleteOneRecipe", method: http.MethodDelete, path: "/recipes/" + url.PathEscape(id), auth: true}, nil)
}

func draftForm(d recipe.Draft) *form {
	f := &form{}
	f.add("name", d.Name)
	if d.Description != "" {
		f.add("description", d.Description)
	}
	f.add("timeToCook", strconv.FormatFloat(d.TimeToCook, 'f', -1, 64))
	f.add("calories", strconv.FormatFloat(d.Calories, 'f', -1, 64))
	for _, id := range d.IngredientIDs {
		f.add("ingredients", id)
	}
	for _, id := range d.CategoryIDs {
		f.add("category", id)
	}
	if len(d.Image) > 0 {
		name := d.ImageName
		if name == "" {
			name = "image.jpg"
		}
		f.addFile("image", name, d.Image)
	}
	return f
}
