package planner

import (
	"context"
	"fmt"

	"recipe-planner/internal/cache"
	"recipe-planner/internal/logger"
)

// PlanGateway is the part of the REST gateway the synchronizer talks to.
type PlanGateway interface {
	GenerateMealPlan(ctx context.Context, req GenerateRequest) (*MealPlan, error)
	UpdateMealPlan(ctx context.Context, id string, meals []MealEntry) (*MealPlan, error)
}

// Invalidator drops cached queries.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...cache.Key) error
}

// UpdateError is returned when a plan was generated but writing it into the
// existing plan failed. Generated holds the entries that were not saved.
type UpdateError struct {
	PlanID    string
	Generated *MealPlan
	Err       error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("failed to update meal plan %s: %v", e.PlanID, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// Synchronizer turns a generation request into the user's single active plan.
type Synchronizer struct {
	gateway PlanGateway
	cache   Invalidator
	log     *logger.Logger
}

func NewSynchronizer(gw PlanGateway, inv Invalidator, log *logger.Logger) *Synchronizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synchronizer{gateway: gw, cache: inv, log: log}
}

// Generate asks the API for a new plan. When the user already has a plan its
// meals are replaced with the generated ones, so the plan id never changes.
// The cached plan is invalidated only after every step succeeded. A generate
// failure is returned as is; an update failure is returned as *UpdateError.
// An existing plan with an empty id counts as no plan.
func (s *Synchronizer) Generate(ctx context.Context, req GenerateRequest, existing *MealPlan) (*MealPlan, error) {
	generated, err := s.gateway.GenerateMealPlan(ctx, req)
	if err != nil {
		s.log.Warn("meal plan generation failed", "calories", req.TotalCalories, "meals", req.NumberOfMeals, "error", err)
		return nil, err
	}

	result := generated
	if existing != nil && existing.ID != "" {
		var meals []MealEntry
		if generated != nil {
			meals = generated.Meals
		}
		updated, err := s.gateway.UpdateMealPlan(ctx, existing.ID, meals)
		if err != nil {
			s.log.Warn("meal plan update failed", "plan_id", existing.ID, "error", err)
			return nil, &UpdateError{PlanID: existing.ID, Generated: generated, Err: err}
		}
		result = updated
		if result == nil {
			result = &MealPlan{ID: existing.ID, User: existing.User, Meals: meals}
		}
	}

	if err := s.cache.Invalidate(context.WithoutCancel(ctx), cache.MealPlanKey()); err != nil {
		return result, fmt.Errorf("failed to invalidate meal plan cache: %w", err)
	}
	s.log.Info("meal plan synchronized", "plan_id", planID(result), "meals", len(planMeals(result)))
	return result, nil
}

func planID(p *MealPlan) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func planMeals(p *MealPlan) []MealEntry {
	if p == nil {
		return nil
	}
	return p.Meals
}
