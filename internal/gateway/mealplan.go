package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"recipe-planner/internal/planner"
)

// GenerateMealPlan asks the API to compute meal entries for req.
func (c *Client) GenerateMealPlan(ctx context.Context, req planner.GenerateRequest) (*planner.MealPlan, error) {
	var plan planner.MealPlan
	if err := c.do(ctx, request{op: "generateMealPlan", method: http.MethodPost, path: "/meal/generate", body: req, auth: true}, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetMealPlan returns the user's plan, or nil when there is none. The API
// answers with 404, an empty body, null, or a list holding the plan.
func (c *Client) GetMealPlan(ctx context.Context) (*planner.MealPlan, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{op: "getMealPlan", method: http.MethodGet, path: "/meal", auth: true}, &raw)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var plans []planner.MealPlan
		if err := json.Unmarshal(raw, &plans); err != nil {
			return nil, transportError("getMealPlan", fmt.Errorf("failed to decode response: %w", err))
		}
		if len(plans) == 0 {
			return nil, nil
		}
		return &plans[0], nil
	}
	var plan planner.MealPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, transportError("getMealPlan", fmt.Errorf("failed to decode response: %w", err))
	}
	return &plan, nil
}

// UpdateMealPlan replaces the meals of plan id.
func (c *Client) UpdateMealPlan(ctx context.Context, id string, meals []planner.MealEntry) (*planner.MealPlan, error) {
	if meals == nil {
		meals = []planner.MealEntry{}
	}
	body := struct {
		Meals []planner.MealEntry `json:"meals"`
	}{meals}

	var plan *planner.MealPlan
	err := c.do(ctx, request{op: "updateMealPlan", method: http.MethodPut, path: "/meal/" + url.PathEscape(id), body: body, auth: true}, &plan)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (c *Client) DeleteMealPlan(ctx context.Context, id string) error {
	return c.do(ctx, request{op: "deleteMealPlan", method: http.MethodDelete, path: "/meal/" + url.PathEscape(id), auth: true}, nil)
}
