package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recipe-planner/internal/app"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/shopping"
	"recipe-planner/internal/user"
)

// maxListed caps recipe lists so a reply stays under Telegram's message size.
const maxListed = 20

// escape makes user or server supplied text safe inside legacy Markdown.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatWeek(plan *planner.MealPlan, week [7]planner.DayColumn) string {
	if plan == nil || len(plan.Meals) == 0 {
		return "📅 You have no meal plan yet.\nSend /generate to create one."
	}

	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*\n\n")
	for _, col := range week {
		if len(col.Meals) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s*\n", col.Name))
		for _, m := range col.Meals {
			sb.WriteString(fmt.Sprintf("• %s (%s kcal)\n", escape(m.Recipe.Title), formatKcal(m.Recipe.Calories)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("🔥 *Total:* %s kcal", formatKcal(plan.TotalCalories())))
	return sb.String()
}

func formatKcal(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

func formatShoppingList(list *shopping.ShoppingList) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if len(list.Items) == 0 {
		sb.WriteString("_Nothing to buy_\n")
	}
	for _, item := range list.Items {
		sb.WriteString(fmt.Sprintf("• %s", escape(item.Ingredient)))
		if item.Meals > 1 {
			sb.WriteString(fmt.Sprintf(" (×%d)", item.Meals))
		}
		sb.WriteString("\n")
	}
	if len(list.Unknown) > 0 {
		sb.WriteString(fmt.Sprintf("\n_Not in the catalog anymore: %s_", escape(strings.Join(list.Unknown, ", "))))
	}
	return sb.String()
}

func formatRecipes(title string, rs []recipe.Recipe) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📖 *%s* (%d)\n\n", title, len(rs)))
	if len(rs) == 0 {
		sb.WriteString("_No recipes found_")
		return sb.String()
	}
	for i, r := range rs {
		if i == maxListed {
			sb.WriteString(fmt.Sprintf("\n_…and %d more_", len(rs)-maxListed))
			break
		}
		sb.WriteString(fmt.Sprintf("• *%s*: %s min, %s kcal `%s`\n", escape(r.Name), r.TimeToCookText(), r.CaloriesText(), r.ID))
	}
	return sb.String()
}

func formatRecipe(r *recipe.Recipe, imageURL string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *%s*\n", escape(r.Name)))
	if r.Description != "" {
		sb.WriteString(fmt.Sprintf("_%s_\n", escape(r.Description)))
	}
	sb.WriteString(fmt.Sprintf("\n⏱ %s min  🔥 %s kcal\n", r.TimeToCookText(), r.CaloriesText()))
	if names := r.Ingredients.Names(); len(names) > 0 {
		sb.WriteString(fmt.Sprintf("*Ingredients:* %s\n", escape(strings.Join(names, ", "))))
	}
	if names := r.Categories.Names(); len(names) > 0 {
		sb.WriteString(fmt.Sprintf("*Categories:* %s\n", escape(strings.Join(names, ", "))))
	}
	if imageURL != "" {
		sb.WriteString(imageURL)
	}
	return sb.String()
}

func formatProfile(u *user.User) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 *%s*\n", escape(u.Username)))
	if u.Email != "" {
		sb.WriteString(fmt.Sprintf("✉️ %s\n", escape(u.Email)))
	}
	if u.Gender != user.GenderUnspecified {
		sb.WriteString(fmt.Sprintf("Gender: %s\n", u.Gender))
	}
	sb.WriteString(fmt.Sprintf("\n📖 Recipes: %d\n", len(u.Recipes)))
	sb.WriteString(fmt.Sprintf("👥 Followers: %d · Following: %d", len(u.Followers), len(u.Following)))
	return sb.String()
}

func formatImport(res *app.ImportResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ *Recipe Saved!*\n\n*Title:* %s\n*ID:* `%s`", escape(res.Recipe.Name), res.Recipe.ID))
	if len(res.UnmatchedIngredients) > 0 {
		sb.WriteString(fmt.Sprintf("\n\n⚠️ Ingredients not in the catalog: %s", escape(strings.Join(res.UnmatchedIngredients, ", "))))
	}
	if len(res.UnmatchedCategories) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ Categories not in the catalog: %s", escape(strings.Join(res.UnmatchedCategories, ", "))))
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, ops []metrics.OperationUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent API Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d requests (%d failed, avg %.0fms)\n", d.Date, d.Requests, d.Failures, d.AvgLatencyMS))
	}

	if len(ops) > 0 {
		sb.WriteString("\n🔝 *Top Operations*\n")
		for _, o := range ops {
			sb.WriteString(fmt.Sprintf("• %s: %d (%d failed)\n", escape(o.Operation), o.Requests, o.Failures))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

const helpText = `🧑‍🍳 *Recipe Planner*

/signin <username> <password>
/signout
/plan - show your weekly plan
/generate [calories] [meals] - create or refresh your plan
/shopping - ingredients for your plan
/deleteplan
/search [text] [ingredient=x] [category=y]
/recipe <id>
/mine [text] - your own recipes
/favorites, /fav <id>, /unfav <id>
/profile

Send a recipe link to import it.`
