package acceptance_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/session"
)

// --- Mock Recipe API ---
type mockRecipeAPI struct {
	token string

	mu    sync.Mutex
	calls map[string]int
	plan  *planner.MealPlan
}

func (m *mockRecipeAPI) count(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[route]
}

func (m *mockRecipeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	route := r.Method + " " + r.URL.Path
	m.calls[route]++

	switch route {
	case "POST /users/signin":
		fmt.Fprintf(w, `{"token": %q}`, m.token)
	case "GET /recipes":
		fmt.Fprint(w, `[{"_id": "1", "name": "Test Recipe", "timeToCook": 10, "calories": 400}]`)
	case "GET /meal":
		if m.plan == nil {
			fmt.Fprint(w, `[]`)
			return
		}
		_ = json.NewEncoder(w).Encode([]*planner.MealPlan{m.plan})
	case "POST /meal/generate":
		var req planner.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var meals []planner.MealEntry
		for day := 1; day <= 7; day++ {
			for n := 1; n <= req.NumberOfMeals; n++ {
				meals = append(meals, planner.MealEntry{Day: day, MealNumber: n, Recipe: planner.MealRecipe{ID: "1", Title: "Test Recipe", Calories: 400}})
			}
		}
		generated := &planner.MealPlan{ID: "draft", Meals: meals}
		if m.plan == nil {
			m.plan = &planner.MealPlan{ID: "plan-1", Meals: meals}
		}
		_ = json.NewEncoder(w).Encode(generated)
	case "PUT /meal/plan-1":
		var body struct {
			Meals []planner.MealEntry `json:"meals"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.plan = &planner.MealPlan{ID: "plan-1", Meals: body.Meals}
		_ = json.NewEncoder(w).Encode(m.plan)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// --- Acceptance Test ---
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"_id": "u1", "username": "tester"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	api := &mockRecipeAPI{token: token, calls: make(map[string]int)}
	server := httptest.NewServer(api)
	defer server.Close()

	// 1. Set up a temporary directory for the database and the file cache
	tempDir := t.TempDir()
	cfg := &config.Config{
		APIBaseURL:   server.URL,
		AssetBaseURL: server.URL,
		DatabasePath: filepath.Join(tempDir, "planner.db"),
		CacheDir:     filepath.Join(tempDir, "cache"),
	}

	start := func() (*app.Services, *app.Workspace) {
		t.Helper()
		s, err := app.Bootstrap(ctx, cfg, logger.Nop())
		if err != nil {
			t.Fatalf("Bootstrap failed: %v", err)
		}
		ws, err := s.App.Workspace(ctx, session.CLIOwner)
		if err != nil {
			t.Fatalf("Workspace failed: %v", err)
		}
		return s, ws
	}

	// --- Step 1: Sign in and read the catalog twice ---
	t.Log("--- Step 1: Sign in and browse ---")
	first, ws := start()
	if _, err := ws.SignIn(ctx, "tester", "pw"); err != nil {
		t.Fatalf("Sign in failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := ws.Recipes(ctx); err != nil {
			t.Fatalf("Recipes failed: %v", err)
		}
	}
	if n := api.count("GET /recipes"); n != 1 {
		t.Errorf("Expected 1 catalog request, got %d", n)
	}
	first.Close()

	// --- Step 2: A new process reuses the session and the cache ---
	t.Log("--- Step 2: Restart ---")
	second, ws := start()
	defer second.Close()
	if !ws.SignedIn() {
		t.Fatal("Expected the session to be restored")
	}
	if _, err := ws.Recipes(ctx); err != nil {
		t.Fatalf("Recipes failed: %v", err)
	}
	if n := api.count("GET /recipes"); n != 1 {
		t.Errorf("Expected the catalog to come from the file cache, got %d requests", n)
	}

	// --- Step 3: Generate, then regenerate in place ---
	t.Log("--- Step 3: Generating Meal Plans ---")
	if _, err := ws.GenerateMealPlan(ctx, planner.GenerateRequest{TotalCalories: 2000, NumberOfMeals: 2}); err != nil {
		t.Fatalf("Meal planning failed: %v", err)
	}
	plan, err := ws.MealPlan(ctx)
	if err != nil || plan == nil || plan.ID != "plan-1" || len(plan.Meals) != 14 {
		t.Fatalf("Expected the stored plan with 14 meals, got %+v, %v", plan, err)
	}

	updated, err := ws.GenerateMealPlan(ctx, planner.GenerateRequest{TotalCalories: 2000, NumberOfMeals: 3})
	if err != nil {
		t.Fatalf("Regeneration failed: %v", err)
	}
	if updated.ID != "plan-1" || api.count("PUT /meal/plan-1") != 1 {
		t.Errorf("Expected the existing plan to be updated in place, got %s", updated.ID)
	}
	plan, err = ws.MealPlan(ctx)
	if err != nil || len(plan.Meals) != 21 {
		t.Errorf("Expected the refetched plan to have 21 meals, got %+v, %v", plan, err)
	}

	// --- Step 4: Sign out drops everything cached ---
	t.Log("--- Step 4: Sign out ---")
	if err := ws.SignOut(ctx); err != nil {
		t.Fatalf("Sign out failed: %v", err)
	}
	if _, err := ws.Recipes(ctx); err != nil {
		t.Fatalf("Recipes failed: %v", err)
	}
	if n := api.count("GET /recipes"); n != 2 {
		t.Errorf("Expected a fresh catalog request after sign out, got %d", n)
	}
}
