package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"recipe-planner/internal/cache"
	"recipe-planner/internal/gateway"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/session"
	"recipe-planner/internal/shopping"
	"recipe-planner/internal/user"
)

// ErrNoMealPlan is returned by plan operations when the user has no plan yet.
var ErrNoMealPlan = errors.New("no meal plan yet")

// Workspace is everything one signed-in (or anonymous) user works with: an
// API client bound to their session, their cache namespace and the plan
// synchronizer.
type Workspace struct {
	app   *App
	owner string
	cache *cache.Client
	log   *logger.Logger

	mu   sync.RWMutex
	api  *gateway.Client
	sync *planner.Synchronizer
}

func (w *Workspace) bind(s *session.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.api = w.app.api.WithSession(s)
	w.sync = planner.NewSynchronizer(w.api, w.cache, w.app.log.With("owner", w.owner))
}

func (w *Workspace) client() *gateway.Client {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.api
}

func (w *Workspace) synchronizer() *planner.Synchronizer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sync
}

// Owner returns the owner this workspace belongs to.
func (w *Workspace) Owner() string { return w.owner }

// Session returns the active session, or nil when signed out.
func (w *Workspace) Session() *session.Session {
	return w.client().Session()
}

func (w *Workspace) SignedIn() bool {
	return w.Session().Active(w.app.now())
}

// CacheState reports the cache state of key for this user.
func (w *Workspace) CacheState(ctx context.Context, key cache.Key) cache.State {
	return w.cache.State(ctx, key)
}

// --- Authentication ---

// SignIn authenticates and makes the new session current. Cached data of
// any previous identity is dropped.
func (w *Workspace) SignIn(ctx context.Context, username, password string) (*session.Session, error) {
	s, err := w.client().SignIn(ctx, user.Credentials{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return s, w.activate(ctx, s)
}

// SignUp creates an account and signs it in.
func (w *Workspace) SignUp(ctx context.Context, creds user.Credentials) (*session.Session, error) {
	s, err := w.client().SignUp(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s, w.activate(ctx, s)
}

// activate binds s before clearing the cache: a read that starts after the
// clear must already use the new token.
func (w *Workspace) activate(ctx context.Context, s *session.Session) error {
	w.bind(s)
	if err := w.cache.Clear(ctx); err != nil {
		w.log.Warn("failed to clear cache on sign-in", "error", err)
	}
	if w.app.sessions != nil {
		if err := w.app.sessions.Save(ctx, w.owner, s); err != nil {
			return fmt.Errorf("signed in but failed to store session: %w", err)
		}
	}
	w.log.Info("signed in", "user_id", s.UserID, "username", s.Username)
	return nil
}

// SignOut forgets the session and clears every cached query of this user.
func (w *Workspace) SignOut(ctx context.Context) error {
	w.bind(nil)
	if w.app.sessions != nil {
		if err := w.app.sessions.Delete(ctx, w.owner); err != nil {
			return err
		}
	}
	if err := w.cache.Clear(ctx); err != nil {
		return err
	}
	w.log.Info("signed out")
	return nil
}

// --- Recipes ---

// Recipes returns the full catalog.
func (w *Workspace) Recipes(ctx context.Context) ([]recipe.Recipe, error) {
	return cache.Query(ctx, w.cache, cache.RecipesKey(), func(ctx context.Context) ([]recipe.Recipe, error) {
		return w.client().GetRecipes(ctx)
	})
}

// SearchRecipes filters the catalog by c.
func (w *Workspace) SearchRecipes(ctx context.Context, c recipe.Criteria) ([]recipe.Recipe, error) {
	all, err := w.Recipes(ctx)
	if err != nil {
		return nil, err
	}
	return recipe.Filter(all, c), nil
}

// SearchByName is the home page search: names only.
func (w *Workspace) SearchByName(ctx context.Context, term string) ([]recipe.Recipe, error) {
	all, err := w.Recipes(ctx)
	if err != nil {
		return nil, err
	}
	return recipe.SearchByName(all, term), nil
}

func (w *Workspace) Recipe(ctx context.Context, id string) (*recipe.Recipe, error) {
	return cache.Query(ctx, w.cache, cache.RecipeKey(id), func(ctx context.Context) (*recipe.Recipe, error) {
		return w.client().GetRecipe(ctx, id)
	})
}

// MyRecipes filters the signed-in user's own recipes by c. Recipes the user
// document only lists by id are filled in from the catalog.
func (w *Workspace) MyRecipes(ctx context.Context, c recipe.Criteria) ([]recipe.Recipe, error) {
	me, err := w.Me(ctx)
	if err != nil {
		return nil, err
	}

	own := []recipe.Recipe(me.Recipes)
	if needsCatalog(own) {
		all, err := w.Recipes(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]recipe.Recipe, len(all))
		for _, r := range all {
			byID[r.ID] = r
		}
		filled := make([]recipe.Recipe, 0, len(own))
		for _, r := range own {
			if r.Name == "" {
				full, ok := byID[r.ID]
				if !ok {
					continue
				}
				r = full
			}
			filled = append(filled, r)
		}
		own = filled
	}
	return recipe.Filter(own, c), nil
}

func needsCatalog(rs []recipe.Recipe) bool {
	for _, r := range rs {
		if r.Name == "" {
			return true
		}
	}
	return false
}

// CreateRecipe publishes d. ImportRecipe is the usual caller.
func (w *Workspace) CreateRecipe(ctx context.Context, d recipe.Draft) (*recipe.Recipe, error) {
	return cache.Mutate(ctx, w.cache, func(ctx context.Context) (*recipe.Recipe, error) {
		return w.client().CreateRecipe(ctx, d)
	}, cache.RecipesKey(), cache.CurrentUserKey())
}

// DeleteRecipe removes one of the user's recipes.
func (w *Workspace) DeleteRecipe(ctx context.Context, id string) error {
	_, err := cache.Mutate(ctx, w.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client().DeleteRecipe(ctx, id)
	}, cache.CurrentUserKey(), cache.RecipesKey(), cache.RecipeKey(id))
	return err
}

func (w *Workspace) Ingredients(ctx context.Context) ([]recipe.Ingredient, error) {
	return cache.Query(ctx, w.cache, cache.IngredientsKey(), func(ctx context.Context) ([]recipe.Ingredient, error) {
		return w.client().GetIngredients(ctx)
	})
}

func (w *Workspace) Categories(ctx context.Context) ([]recipe.Category, error) {
	return cache.Query(ctx, w.cache, cache.CategoriesKey(), func(ctx context.Context) ([]recipe.Category, error) {
		return w.client().GetCategories(ctx)
	})
}

// --- Meal plan ---

// MealPlan returns the user's plan, or nil when there is none.
func (w *Workspace) MealPlan(ctx context.Context) (*planner.MealPlan, error) {
	return cache.Query(ctx, w.cache, cache.MealPlanKey(), func(ctx context.Context) (*planner.MealPlan, error) {
		return w.client().GetMealPlan(ctx)
	})
}

// Week returns the plan laid out Sunday to Saturday.
func (w *Workspace) Week(ctx context.Context) (*planner.MealPlan, [7]planner.DayColumn, error) {
	plan, err := w.MealPlan(ctx)
	if err != nil {
		return nil, [7]planner.DayColumn{}, err
	}
	var meals []planner.MealEntry
	if plan != nil {
		meals = plan.Meals
	}
	return plan, planner.Week(meals), nil
}

// GenerateMealPlan creates a plan, or replaces the meals of the existing one.
func (w *Workspace) GenerateMealPlan(ctx context.Context, req planner.GenerateRequest) (*planner.MealPlan, error) {
	existing, err := w.MealPlan(ctx)
	if err != nil {
		return nil, err
	}
	return w.synchronizer().Generate(ctx, req, existing)
}

// ShoppingList gathers the ingredients of the user's planned meals.
func (w *Workspace) ShoppingList(ctx context.Context) (*shopping.ShoppingList, error) {
	plan, err := w.MealPlan(ctx)
	if err != nil {
		return nil, err
	}
	if plan == nil || len(plan.Meals) == 0 {
		return nil, ErrNoMealPlan
	}
	catalog, err := w.Recipes(ctx)
	if err != nil {
		return nil, err
	}
	return shopping.Build(plan, catalog), nil
}

// DeleteMealPlan removes the user's plan.
func (w *Workspace) DeleteMealPlan(ctx context.Context) error {
	plan, err := w.MealPlan(ctx)
	if err != nil {
		return err
	}
	if plan == nil || plan.ID == "" {
		return ErrNoMealPlan
	}
	_, err = cache.Mutate(ctx, w.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client().DeleteMealPlan(ctx, plan.ID)
	}, cache.MealPlanKey())
	return err
}

// --- Profile ---

// Me returns the signed-in user.
func (w *Workspace) Me(ctx context.Context) (*user.User, error) {
	return cache.Query(ctx, w.cache, cache.CurrentUserKey(), func(ctx context.Context) (*user.User, error) {
		return w.client().GetMe(ctx)
	})
}

func (w *Workspace) UpdateProfile(ctx context.Context, upd user.Update) (*user.User, error) {
	return cache.Mutate(ctx, w.cache, func(ctx context.Context) (*user.User, error) {
		return w.client().UpdateMe(ctx, upd)
	}, cache.CurrentUserKey())
}

func (w *Workspace) Follow(ctx context.Context, userID string) error {
	_, err := cache.Mutate(ctx, w.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client().Follow(ctx, userID)
	}, cache.CurrentUserKey())
	return err
}

func (w *Workspace) Unfollow(ctx context.Context, userID string) error {
	_, err := cache.Mutate(ctx, w.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client().Unfollow(ctx, userID)
	}, cache.CurrentUserKey())
	return err
}

// --- Favorites ---

func (w *Workspace) Favorites(ctx context.Context) ([]recipe.Recipe, error) {
	return cache.Query(ctx, w.cache, cache.FavoritesKey(), func(ctx context.Context) ([]recipe.Recipe, error) {
		return w.client().GetFavorites(ctx)
	})
}

func (w *Workspace) AddFavorite(ctx context.Context, recipeID string) error {
	_, err := cache.Mutate(ctx, w.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client().AddFavorite(ctx, recipeID)
	}, cache.FavoritesKey())
	return err
}

func (w *Workspace) RemoveFavorite(ctx context.Context, recipeID string) error {
	_, err := cache.Mutate(ctx, w.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, w.client().RemoveFavorite(ctx, recipeID)
	}, cache.FavoritesKey())
	return err
}
