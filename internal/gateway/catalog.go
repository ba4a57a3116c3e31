package gateway

import (
	"context"
	"net/http"

	"recipe-planner/internal/recipe"
)

func (c *Client) GetIngredients(ctx context.Context) ([]recipe.Ingredient, error) {
	var out []recipe.Ingredient
	if err := c.do(ctx, request{op: "getAllIngredients", method: http.MethodGet, path: "/ingredients"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCategories(ctx context.Context) ([]recipe.Category, error) {
	var out []recipe.Category
	if err := c.do(ctx, request{op: "getAllCategories", method: http.MethodGet, path: "/categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
