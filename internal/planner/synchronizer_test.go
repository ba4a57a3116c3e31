package planner

import (
	"context"
	"errors"
	"testing"

	"recipe-planner/internal/cache"
)

type MockPlanGateway struct {
	calls       *[]string
	generated   *MealPlan
	generateErr error
	updateErr   error

	updatedID    string
	updatedMeals []MealEntry
	updates      int
}

func (m *MockPlanGateway) GenerateMealPlan(ctx context.Context, req GenerateRequest) (*MealPlan, error) {
	*m.calls = append(*m.calls, "generate")
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.generated, nil
}

func (m *MockPlanGateway) UpdateMealPlan(ctx context.Context, id string, meals []MealEntry) (*MealPlan, error) {
	*m.calls = append(*m.calls, "update")
	m.updates++
	m.updatedID = id
	m.updatedMeals = meals
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &MealPlan{ID: id, Meals: meals}, nil
}

type MockInvalidator struct {
	calls *[]string
	keys  []cache.Key
}

func (m *MockInvalidator) Invalidate(ctx context.Context, keys ...cache.Key) error {
	*m.calls = append(*m.calls, "invalidate")
	m.keys = append(m.keys, keys...)
	return nil
}

var generatedMeals = []MealEntry{
	{Day: 1, MealNumber: 1, Recipe: MealRecipe{ID: "r1", Title: "Oats", Calories: 320}},
	{Day: 1, MealNumber: 2, Recipe: MealRecipe{ID: "r2", Title: "Pasta", Calories: 640}},
}

func newSyncFixture() (*Synchronizer, *MockPlanGateway, *MockInvalidator, *[]string) {
	calls := &[]string{}
	gw := &MockPlanGateway{calls: calls, generated: &MealPlan{ID: "fresh", Meals: generatedMeals}}
	inv := &MockInvalidator{calls: calls}
	return NewSynchronizer(gw, inv, nil), gw, inv, calls
}

func equalCalls(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSynchronizerGenerate(t *testing.T) {
	ctx := context.Background()
	req := GenerateRequest{TotalCalories: 2000, NumberOfMeals: 3}

	t.Run("NoExistingPlan", func(t *testing.T) {
		s, gw, inv, calls := newSyncFixture()

		plan, err := s.Generate(ctx, req, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.ID != "fresh" || len(plan.Meals) != 2 {
			t.Errorf("unexpected plan: %+v", plan)
		}
		if gw.updates != 0 {
			t.Errorf("expected no update, got %d", gw.updates)
		}
		if !equalCalls(*calls, []string{"generate", "invalidate"}) {
			t.Errorf("unexpected call order: %v", *calls)
		}
		if len(inv.keys) != 1 || inv.keys[0] != cache.MealPlanKey() {
			t.Errorf("expected mealplan invalidation, got %v", inv.keys)
		}
	})

	t.Run("ExistingPlanIsUpdatedInPlace", func(t *testing.T) {
		s, gw, _, calls := newSyncFixture()

		plan, err := s.Generate(ctx, req, &MealPlan{ID: "p1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gw.updatedID != "p1" {
			t.Errorf("expected update of p1, got %q", gw.updatedID)
		}
		if len(gw.updatedMeals) != len(generatedMeals) || gw.updatedMeals[1].Recipe.ID != "r2" {
			t.Errorf("update must carry the generated meals, got %+v", gw.updatedMeals)
		}
		if plan.ID != "p1" {
			t.Errorf("plan id must stay p1, got %q", plan.ID)
		}
		if !equalCalls(*calls, []string{"generate", "update", "invalidate"}) {
			t.Errorf("unexpected call order: %v", *calls)
		}
	})

	t.Run("ExistingPlanWithoutIDCountsAsAbsent", func(t *testing.T) {
		s, gw, _, _ := newSyncFixture()

		if _, err := s.Generate(ctx, req, &MealPlan{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gw.updates != 0 {
			t.Errorf("expected no update, got %d", gw.updates)
		}
	})

	t.Run("GenerateFailure", func(t *testing.T) {
		s, gw, inv, _ := newSyncFixture()
		boom := errors.New("generation unavailable")
		gw.generateErr = boom

		plan, err := s.Generate(ctx, req, &MealPlan{ID: "p1"})
		if err != boom {
			t.Fatalf("expected generate error unchanged, got %v", err)
		}
		if plan != nil {
			t.Errorf("expected no plan, got %+v", plan)
		}
		if gw.updates != 0 || len(inv.keys) != 0 {
			t.Errorf("expected no update and no invalidation, got %d updates, %v", gw.updates, inv.keys)
		}
	})

	t.Run("UpdateFailure", func(t *testing.T) {
		s, gw, inv, _ := newSyncFixture()
		boom := errors.New("write rejected")
		gw.updateErr = boom

		_, err := s.Generate(ctx, req, &MealPlan{ID: "p1"})
		var updateErr *UpdateError
		if !errors.As(err, &updateErr) {
			t.Fatalf("expected *UpdateError, got %v", err)
		}
		if updateErr.PlanID != "p1" || updateErr.Generated == nil || len(updateErr.Generated.Meals) != 2 {
			t.Errorf("unexpected update error: %+v", updateErr)
		}
		if !errors.Is(err, boom) {
			t.Error("update error should unwrap to the gateway error")
		}
		if len(inv.keys) != 0 {
			t.Errorf("failed update must not invalidate, got %v", inv.keys)
		}
	})
}
