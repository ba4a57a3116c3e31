package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"recipe-planner/internal/app"
	"recipe-planner/internal/config"
	"recipe-planner/internal/gateway"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/session"
	"recipe-planner/internal/user"
)

// Other users change the catalog too; a disk cache without an age limit
// would never see their recipes.
const defaultCLICacheMaxAge = 10 * time.Minute

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	os.Exit(start(os.Args[1], os.Args[2:]))
}

// start runs one command and returns the process exit code. It returns
// rather than exits so the deferred cleanup always runs.
func start(cmd string, args []string) int {
	envErr := godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Each command is a separate process, so keep the cache on disk.
	if cfg.CacheDir == "" && cfg.RedisAddr == "" {
		cfg.CacheDir = filepath.Join(filepath.Dir(cfg.DatabasePath), "cache")
		if cfg.CacheMaxAge == 0 {
			cfg.CacheMaxAge = defaultCLICacheMaxAge
		}
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	if envErr != nil {
		log.Debug("no .env file loaded", "error", envErr)
	}

	ctx := context.Background()
	services, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		return 1
	}
	defer services.Close()

	ws, err := services.App.Workspace(ctx, session.CLIOwner)
	if err != nil {
		log.Error("failed to open workspace", "error", err)
		return 1
	}

	if err := run(ctx, services, ws, cmd, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		log.Debug("command failed", "command", cmd, "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, s *app.Services, ws *app.Workspace, cmd string, args []string) error {
	switch cmd {
	case "signin":
		fs := flag.NewFlagSet("signin", flag.ContinueOnError)
		username := fs.String("u", "", "Username")
		password := fs.String("p", os.Getenv("RECIPE_PLANNER_PASSWORD"), "Password (or RECIPE_PLANNER_PASSWORD)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		sess, err := ws.SignIn(ctx, *username, *password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s.\n", sess.Username)

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ContinueOnError)
		username := fs.String("u", "", "Username")
		email := fs.String("email", "", "Email address")
		password := fs.String("p", os.Getenv("RECIPE_PLANNER_PASSWORD"), "Password (or RECIPE_PLANNER_PASSWORD)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		sess, err := ws.SignUp(ctx, user.Credentials{Username: *username, Email: *email, Password: *password})
		if err != nil {
			return err
		}
		fmt.Printf("Welcome, %s!\n", sess.Username)

	case "signout":
		if err := ws.SignOut(ctx); err != nil {
			return err
		}
		fmt.Println("Signed out.")

	case "recipes":
		fs := flag.NewFlagSet("recipes", flag.ContinueOnError)
		search := fs.String("q", "", "Search name, time to cook or calories")
		ingredient := fs.String("ingredient", "", "Only recipes with this ingredient")
		category := fs.String("category", "", "Only recipes in this category")
		mine := fs.Bool("mine", false, "Only your own recipes")
		if err := fs.Parse(args); err != nil {
			return err
		}
		c := recipe.Criteria{Search: *search, Ingredient: *ingredient, Category: *category}
		var (
			rs  []recipe.Recipe
			err error
		)
		if *mine {
			rs, err = ws.MyRecipes(ctx, c)
		} else {
			rs, err = ws.SearchRecipes(ctx, c)
		}
		if err != nil {
			return err
		}
		printRecipes(rs)

	case "recipe":
		if len(args) != 1 {
			return errors.New("usage: recipe <id>")
		}
		r, err := ws.Recipe(ctx, args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return errors.New("recipe not found")
		}
		fmt.Printf("%s\n%s\n\nTime to cook: %s min\nCalories: %s kcal\n", r.Name, r.Description, r.TimeToCookText(), r.CaloriesText())
		fmt.Printf("Ingredients: %s\nCategories: %s\n", strings.Join(r.Ingredients.Names(), ", "), strings.Join(r.Categories.Names(), ", "))
		if r.Image != "" {
			fmt.Printf("Image: %s\n", s.App.AssetURL(r.Image))
		}

	case "recipe-delete":
		if len(args) != 1 {
			return errors.New("usage: recipe-delete <id>")
		}
		if err := ws.DeleteRecipe(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Recipe deleted.")

	case "import":
		if len(args) != 1 {
			return errors.New("usage: import <url>")
		}
		res, err := ws.ImportRecipe(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %q (%s).\n", res.Recipe.Name, res.Recipe.ID)
		if len(res.UnmatchedIngredients) > 0 {
			fmt.Printf("Ingredients not in the catalog: %s\n", strings.Join(res.UnmatchedIngredients, ", "))
		}
		if len(res.UnmatchedCategories) > 0 {
			fmt.Printf("Categories not in the catalog: %s\n", strings.Join(res.UnmatchedCategories, ", "))
		}

	case "ingredients":
		items, err := ws.Ingredients(ctx)
		if err != nil {
			return err
		}
		for _, i := range items {
			fmt.Printf("%s\t%s\n", i.ID, i.Name)
		}

	case "categories":
		items, err := ws.Categories(ctx)
		if err != nil {
			return err
		}
		for _, c := range items {
			fmt.Printf("%s\t%s\n", c.ID, c.Name)
		}

	case "plan":
		plan, week, err := ws.Week(ctx)
		if err != nil {
			return err
		}
		printWeek(plan, week)

	case "plan-generate":
		fs := flag.NewFlagSet("plan-generate", flag.ContinueOnError)
		defaults := planner.DefaultGenerateRequest()
		calories := fs.Int("calories", defaults.TotalCalories, "Total daily calories")
		meals := fs.Int("meals", defaults.NumberOfMeals, "Meals per day")
		if err := fs.Parse(args); err != nil {
			return err
		}
		req := planner.GenerateRequest{TotalCalories: *calories, NumberOfMeals: *meals}
		if err := req.Validate(); err != nil {
			return err
		}
		plan, err := ws.GenerateMealPlan(ctx, req)
		if err != nil {
			return err
		}
		printWeek(plan, planner.Week(plan.Meals))

	case "shopping":
		list, err := ws.ShoppingList(ctx)
		if err != nil {
			return err
		}
		for _, item := range list.Items {
			fmt.Printf("[ ] %s (%s)\n", item.Ingredient, strings.Join(item.Recipes, ", "))
		}
		if len(list.Unknown) > 0 {
			fmt.Printf("\nNot in the catalog anymore: %s\n", strings.Join(list.Unknown, ", "))
		}

	case "plan-delete":
		if err := ws.DeleteMealPlan(ctx); err != nil {
			return err
		}
		fmt.Println("Meal plan deleted.")

	case "profile":
		me, err := ws.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s>\nGender: %s\nRecipes: %d\nFollowers: %d\nFollowing: %d\n",
			me.Username, me.Email, me.Gender, len(me.Recipes), len(me.Followers), len(me.Following))
		if me.ProfileImage != "" {
			fmt.Printf("Image: %s\n", s.App.AssetURL(me.ProfileImage))
		}

	case "profile-update":
		fs := flag.NewFlagSet("profile-update", flag.ContinueOnError)
		username := fs.String("username", "", "New username")
		email := fs.String("email", "", "New email")
		gender := fs.String("gender", "", "male or female")
		image := fs.String("image", "", "Path to a new profile image")
		if err := fs.Parse(args); err != nil {
			return err
		}
		g, err := user.ParseGender(*gender)
		if err != nil {
			return err
		}
		upd := user.Update{Username: *username, Email: *email, Gender: g}
		if *image != "" {
			data, err := os.ReadFile(*image)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			upd.ProfileImage, upd.ProfileImageName = data, filepath.Base(*image)
		}
		if upd.IsZero() {
			return errors.New("nothing to update")
		}
		me, err := ws.UpdateProfile(ctx, upd)
		if err != nil {
			return err
		}
		fmt.Printf("Profile of %s updated.\n", me.Username)

	case "favorites":
		rs, err := ws.Favorites(ctx)
		if err != nil {
			return err
		}
		printRecipes(rs)

	case "favorite-add", "favorite-remove":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <recipe id>", cmd)
		}
		change := ws.AddFavorite
		if cmd == "favorite-remove" {
			change = ws.RemoveFavorite
		}
		if err := change(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Favorites updated.")

	case "follow", "unfollow":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s <user id>", cmd)
		}
		change := ws.Follow
		if cmd == "unfollow" {
			change = ws.Unfollow
		}
		if err := change(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("Done.")

	case "metrics":
		fs := flag.NewFlagSet("metrics", flag.ContinueOnError)
		days := fs.Int("days", 7, "Report the last N days")
		if err := fs.Parse(args); err != nil {
			return err
		}
		usage, err := s.Metrics.GetDailyUsage(*days)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tREQUESTS\tFAILED\tAVG LATENCY")
		for _, d := range usage {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.0fms\n", d.Date, d.Requests, d.Failures, d.AvgLatencyMS)
		}
		w.Flush()

	case "metrics-cleanup":
		fs := flag.NewFlagSet("metrics-cleanup", flag.ContinueOnError)
		days := fs.Int("days", 30, "Keep records for the last N days")
		if err := fs.Parse(args); err != nil {
			return err
		}
		affected, err := s.Metrics.Cleanup(*days)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, gateway.ErrNotSignedIn) || gateway.IsUnauthorized(err):
		return "not signed in, run `recipe-planner signin` first"
	case gateway.TypeOf(err) == gateway.ErrTransport:
		return "the recipe service is unreachable: " + err.Error()
	}
	return gateway.Message(err, err.Error())
}

func printRecipes(rs []recipe.Recipe) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME (MIN)\tKCAL")
	for _, r := range rs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.TimeToCookText(), r.CaloriesText())
	}
	w.Flush()
	fmt.Printf("%d recipes\n", len(rs))
}

func printWeek(plan *planner.MealPlan, week [7]planner.DayColumn) {
	if plan == nil || len(plan.Meals) == 0 {
		fmt.Println("No meal plan yet. Run `recipe-planner plan-generate` to create one.")
		return
	}
	for _, col := range week {
		fmt.Printf("%s\n", col.Name)
		if len(col.Meals) == 0 {
			fmt.Println("  -")
		}
		for _, m := range col.Meals {
			fmt.Printf("  %d. %s (%.0f kcal)\n", m.MealNumber, m.Recipe.Title, m.Recipe.Calories)
		}
	}
	fmt.Printf("\nTotal: %.0f kcal\n", plan.TotalCalories())
}

func printUsage() {
	fmt.Println("Usage: recipe-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  signin -u <user> -p <password>     Sign in and remember the session")
	fmt.Println("  signup -u <user> -email <e> -p <pw> Create an account")
	fmt.Println("  signout                            Forget the session and cached data")
	fmt.Println("  recipes [-q] [-ingredient] [-category] [-mine]")
	fmt.Println("  recipe <id>                        Show one recipe")
	fmt.Println("  recipe-delete <id>                 Delete one of your recipes")
	fmt.Println("  import <url>                       Import a recipe from a web page")
	fmt.Println("  ingredients, categories            List reference data")
	fmt.Println("  plan                               Show your weekly meal plan")
	fmt.Println("  plan-generate [-calories] [-meals] Create or refresh your meal plan")
	fmt.Println("  shopping                           Shopping list for your plan")
	fmt.Println("  plan-delete                        Delete your meal plan")
	fmt.Println("  profile                            Show your profile")
	fmt.Println("  profile-update [-username] [-email] [-gender] [-image]")
	fmt.Println("  favorites, favorite-add <id>, favorite-remove <id>")
	fmt.Println("  follow <user id>, unfollow <user id>")
	fmt.Println("  metrics [-days]                    API usage report")
	fmt.Println("  metrics-cleanup [-days]            Remove old metric records")
}
