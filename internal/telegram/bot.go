package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"recipe-planner/internal/app"
	"recipe-planner/internal/clipper"
	"recipe-planner/internal/config"
	"recipe-planner/internal/gateway"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/user"
)

const requestTimeout = time.Minute

// botAPI is the part of *tgbotapi.BotAPI the bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Bot serves the recipe planner over Telegram. Every Telegram user gets
// their own workspace, so sessions and cached data never mix.
type Bot struct {
	api          botAPI
	app          *app.App
	metricsStore *metrics.Store
	dataDir      string
	cfg          *config.Config
	log          *logger.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	application *app.App,
	metricsStore *metrics.Store,
	dataDir string,
	log *logger.Logger,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("authorized on telegram", "account", bot.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("webhook set", "description", resp.Description)

	return newBot(bot, cfg, application, metricsStore, dataDir, log), nil
}

func newBot(api botAPI, cfg *config.Config, application *app.App, metricsStore *metrics.Store, dataDir string, log *logger.Logger) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:          api,
		app:          application,
		metricsStore: metricsStore,
		dataDir:      dataDir,
		cfg:          cfg,
		log:          log,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warn("error parsing update", "error", err)
		return
	}

	if q := update.CallbackQuery; q != nil {
		if b.allowed(q.From) {
			go b.handleCallbackQuery(q)
		}
		return
	}

	if update.Message == nil || !b.allowed(update.Message.From) {
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) allowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if from.ID == id {
			return true
		}
	}
	b.log.Warn("unauthorized access attempt", "telegram_user_id", from.ID, "username", from.UserName)
	return false
}

func owner(from *tgbotapi.User) string {
	return "tg:" + strconv.FormatInt(from.ID, 10)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// Admin commands do not need a workspace.
	if msg.Command() == "metrics" {
		b.handleMetricsRequest(msg)
		return
	}

	ws, err := b.app.Workspace(ctx, owner(msg.From))
	if err != nil {
		b.log.Error("failed to open workspace", "telegram_user_id", msg.From.ID, "error", err)
		b.reply(msg.Chat.ID, "❌ Something went wrong, please try again later.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleImportRequest(ctx, ws, msg.Chat.ID, text)
		return
	}

	args := msg.CommandArguments()
	switch msg.Command() {
	case "signin":
		b.handleSignIn(ctx, ws, msg)
	case "signup":
		b.handleSignUp(ctx, ws, msg)
	case "signout":
		if err := ws.SignOut(ctx); err != nil {
			b.replyError(msg.Chat.ID, err, "Could not sign out.")
			return
		}
		b.reply(msg.Chat.ID, "👋 Signed out.")
	case "plan":
		plan, week, err := ws.Week(ctx)
		if err != nil {
			b.replyError(msg.Chat.ID, err, "Could not load your meal plan.")
			return
		}
		b.reply(msg.Chat.ID, formatWeek(plan, week))
	case "generate":
		b.handleGenerateRequest(ctx, ws, msg.Chat.ID, args)
	case "shopping":
		list, err := ws.ShoppingList(ctx)
		if err != nil {
			b.replyError(msg.Chat.ID, err, "Could not build your shopping list.")
			return
		}
		b.reply(msg.Chat.ID, formatShoppingList(list))
	case "deleteplan":
		if err := ws.DeleteMealPlan(ctx); err != nil {
			b.replyError(msg.Chat.ID, err, "Could not delete your meal plan.")
			return
		}
		b.reply(msg.Chat.ID, "🗑 Meal plan deleted.")
	case "search":
		rs, err := ws.SearchRecipes(ctx, parseCriteria(args))
		if err != nil {
			b.replyError(msg.Chat.ID, err, "Could not load recipes.")
			return
		}
		b.reply(msg.Chat.ID, formatRecipes("Recipes", rs))
	case "mine":
		rs, err := ws.MyRecipes(ctx, parseCriteria(args))
		if err != nil {
			b.replyError(msg.Chat.ID, err, "Could not load your recipes.")
			return
		}
		b.reply(msg.Chat.ID, formatRecipes("My Recipes", rs))
	case "recipe":
		b.handleRecipeRequest(ctx, ws, msg.Chat.ID, strings.TrimSpace(args))
	case "favorites":
		rs, err := ws.Favorites(ctx)
		if err != nil {
			b.replyError(msg.Chat.ID, err, "Could not load your favorites.")
			return
		}
		b.reply(msg.Chat.ID, formatRecipes("Favorites", rs))
	case "fav", "unfav":
		id := strings.TrimSpace(args)
		if id == "" {
			b.reply(msg.Chat.ID, fmt.Sprintf("Usage: /%s <recipe id>", msg.Command()))
			return
		}
		change, done := ws.AddFavorite, "⭐ Added to favorites."
		if msg.Command() == "unfav" {
			change, done = ws.RemoveFavorite, "Removed from favorites."
		}
		if err := change(ctx, id); err != nil {
			b.replyError(msg.Chat.ID, err, "Could not update your favorites.")
			return
		}
		b.reply(msg.Chat.ID, done)
	case "profile":
		me, err := ws.Me(ctx)
		if err != nil {
			b.replyError(msg.Chat.ID, err, "Could not load your profile.")
			return
		}
		b.reply(msg.Chat.ID, formatProfile(me))
	default:
		b.reply(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handleSignIn(ctx context.Context, ws *app.Workspace, msg *tgbotapi.Message) {
	b.forget(msg)
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.reply(msg.Chat.ID, "Usage: /signin <username> <password>")
		return
	}
	s, err := ws.SignIn(ctx, fields[0], fields[1])
	if err != nil {
		b.replyError(msg.Chat.ID, err, "Sign in failed.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Signed in as *%s*.", escape(s.Username)))
}

func (b *Bot) handleSignUp(ctx context.Context, ws *app.Workspace, msg *tgbotapi.Message) {
	b.forget(msg)
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 3 {
		b.reply(msg.Chat.ID, "Usage: /signup <username> <email> <password>")
		return
	}
	s, err := ws.SignUp(ctx, user.Credentials{Username: fields[0], Email: fields[1], Password: fields[2]})
	if err != nil {
		b.replyError(msg.Chat.ID, err, "Sign up failed.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("🎉 Welcome, *%s*!", escape(s.Username)))
}

// forget deletes a message carrying a password from the chat history.
func (b *Bot) forget(msg *tgbotapi.Message) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.log.Debug("could not delete credentials message", "error", err)
	}
}

func (b *Bot) handleRecipeRequest(ctx context.Context, ws *app.Workspace, chatID int64, id string) {
	if id == "" {
		b.reply(chatID, "Usage: /recipe <id>")
		return
	}
	r, err := ws.Recipe(ctx, id)
	if err != nil {
		b.replyError(chatID, err, "Could not load the recipe.")
		return
	}
	if r == nil {
		b.reply(chatID, "Recipe not found.")
		return
	}
	b.reply(chatID, formatRecipe(r, b.app.AssetURL(r.Image)))
}

func (b *Bot) handleImportRequest(ctx context.Context, ws *app.Workspace, chatID int64, url string) {
	sent, err := b.send(chatID, "✂️ *Clipping recipe...* \n(Extracting and saving it to your recipes)")
	if err != nil {
		return
	}

	res, err := ws.ImportRecipe(ctx, url)
	if err != nil {
		b.log.Warn("recipe import failed", "url", url, "owner", ws.Owner(), "error", err)
		b.edit(chatID, sent.MessageID, errorText(err, "Could not import the recipe."))
		return
	}
	b.edit(chatID, sent.MessageID, formatImport(res))
}

// parseGenerateArgs reads "[calories] [meals]", falling back to the form
// defaults for missing values.
func parseGenerateArgs(args string) (planner.GenerateRequest, error) {
	req := planner.DefaultGenerateRequest()
	fields := strings.Fields(args)
	if len(fields) > 2 {
		return req, fmt.Errorf("expected at most two numbers")
	}
	targets := []*int{&req.TotalCalories, &req.NumberOfMeals}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return req, fmt.Errorf("%q is not a number", f)
		}
		*targets[i] = n
	}
	return req, req.Validate()
}

func (b *Bot) handleGenerateRequest(ctx context.Context, ws *app.Workspace, chatID int64, args string) {
	req, err := parseGenerateArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("⚠️ %s\nUsage: /generate [calories] [meals]", escape(err.Error())))
		return
	}

	existing, err := ws.MealPlan(ctx)
	if err != nil {
		b.replyError(chatID, err, "Could not load your meal plan.")
		return
	}
	if existing != nil && existing.ID != "" {
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Replace meals", fmt.Sprintf("generate|%d|%d", req.TotalCalories, req.NumberOfMeals)),
				tgbotapi.NewInlineKeyboardButtonData("✖️ Keep current plan", "keep"),
			),
		)
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("🗓️ You already have a plan with %d meals.\nReplace them with a new %d kcal plan?", len(existing.Meals), req.TotalCalories))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = keyboard
		if _, err := b.api.Send(msg); err != nil {
			b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
		}
		return
	}

	sent, err := b.send(chatID, "🧑‍🍳 *Thinking...* \n(Generating your plan)")
	if err != nil {
		return
	}
	b.generateAndSendPlan(ctx, ws, chatID, sent.MessageID, req)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Debug("failed to answer callback", "error", err)
	}
	if query.Message == nil {
		return
	}
	chatID, messageID := query.Message.Chat.ID, query.Message.MessageID

	parts := strings.Split(query.Data, "|")
	if parts[0] != "generate" || len(parts) != 3 {
		b.edit(chatID, messageID, "👍 Keeping your current plan.")
		return
	}
	req, err := parseGenerateArgs(parts[1] + " " + parts[2])
	if err != nil {
		b.edit(chatID, messageID, "⚠️ "+escape(err.Error()))
		return
	}

	ws, err := b.app.Workspace(ctx, owner(query.From))
	if err != nil {
		b.log.Error("failed to open workspace", "telegram_user_id", query.From.ID, "error", err)
		return
	}
	b.edit(chatID, messageID, "🧑‍🍳 *Thinking...*")
	b.generateAndSendPlan(ctx, ws, chatID, messageID, req)
}

func (b *Bot) generateAndSendPlan(ctx context.Context, ws *app.Workspace, chatID int64, messageID int, req planner.GenerateRequest) {
	plan, err := ws.GenerateMealPlan(ctx, req)
	if err != nil {
		b.log.Warn("error generating plan", "owner", ws.Owner(), "error", err)
		b.edit(chatID, messageID, errorText(err, "Error generating plan."))
		return
	}
	b.edit(chatID, messageID, formatWeek(plan, planner.Week(plan.Meals)))
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	ops, err := b.metricsStore.GetOperationUsage(7, 5)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatMetrics(usage, ops, metrics.GetSysHealth(b.dataDir)))
}

// parseCriteria splits "/search" arguments: "ingredient=" and "category="
// tokens set the filters (underscores stand for spaces), the rest is the
// search text.
func parseCriteria(args string) recipe.Criteria {
	var (
		c    recipe.Criteria
		text []string
	)
	for _, f := range strings.Fields(args) {
		key, value, ok := strings.Cut(f, "=")
		value = strings.ReplaceAll(value, "_", " ")
		switch {
		case ok && strings.EqualFold(key, "ingredient"):
			c.Ingredient = value
		case ok && strings.EqualFold(key, "category"):
			c.Category = value
		default:
			text = append(text, f)
		}
	}
	c.Search = strings.Join(text, " ")
	return c
}

func errorText(err error, fallback string) string {
	var updateErr *planner.UpdateError
	switch {
	case errors.Is(err, gateway.ErrNotSignedIn) || gateway.IsUnauthorized(err):
		return "🔒 Please /signin first."
	case errors.Is(err, app.ErrNoMealPlan):
		return "📅 You have no meal plan yet."
	case errors.Is(err, app.ErrImportDisabled):
		return "✂️ Recipe import is not enabled on this bot."
	case errors.Is(err, clipper.ErrNoRecipe):
		return "🤷 No recipe found on that page."
	case errors.As(err, &updateErr):
		return "❌ *Your plan was generated but could not be saved:*\n" + escape(gateway.Message(err, "please try again."))
	case gateway.TypeOf(err) == gateway.ErrTransport:
		return "📡 The recipe service is unreachable, please try again later."
	}
	return "❌ " + escape(gateway.Message(err, fallback))
}

func (b *Bot) replyError(chatID int64, err error, fallback string) {
	b.log.Debug("request failed", "chat_id", chatID, "error", err)
	b.reply(chatID, errorText(err, fallback))
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(chatID, text)
}

func (b *Bot) send(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
	return sent, err
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("failed to edit message", "chat_id", chatID, "error", err)
	}
}
