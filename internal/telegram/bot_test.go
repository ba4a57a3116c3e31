package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang-jwt/jwt/v5"

	"recipe-planner/internal/app"
	"recipe-planner/internal/cache"
	"recipe-planner/internal/config"
	"recipe-planner/internal/database"
	"recipe-planner/internal/gateway"
	"recipe-planner/internal/metrics"
	"recipe-planner/internal/planner"
	"recipe-planner/internal/recipe"
	"recipe-planner/internal/user"
)

// --- Mocks ---

type MockBotAPI struct {
	mu       sync.Mutex
	Sent     []tgbotapi.Chattable
	Requests []tgbotapi.Chattable
}

func (m *MockBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, c)
	return tgbotapi.Message{MessageID: len(m.Sent)}, nil
}

func (m *MockBotAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *MockBotAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// texts returns the text of every message sent or edited so far.
func (m *MockBotAPI) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.Sent {
		switch msg := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, msg.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, msg.Text)
		}
	}
	return out
}

func (m *MockBotAPI) last(t *testing.T) string {
	t.Helper()
	texts := m.texts()
	if len(texts) == 0 {
		t.Fatal("nothing was sent")
	}
	return texts[len(texts)-1]
}

// recipeAPI serves just enough of the REST API for the bot flows.
func recipeAPI(t *testing.T) http.Handler {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"_id": "u1", "username": "chef"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	var (
		mu   sync.Mutex
		plan *planner.MealPlan
	)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method + " " + r.URL.Path {
		case "POST /users/signin":
			fmt.Fprintf(w, `{"token": %q}`, token)
		case "GET /recipes":
			fmt.Fprint(w, `[
				{"_id": "r1", "name": "Tomato Pasta", "timeToCook": 25, "calories": 640, "ingredients": [{"_id": "i1", "name": "Tomato"}]},
				{"_id": "r2", "name": "Green Salad", "timeToCook": 10, "calories": 180, "category": [{"_id": "c1", "name": "Lunch"}]}
			]`)
		case "GET /meal":
			if plan == nil {
				fmt.Fprint(w, `[]`)
				return
			}
			_ = json.NewEncoder(w).Encode([]*planner.MealPlan{plan})
		case "POST /meal/generate":
			plan = &planner.MealPlan{ID: "p1", Meals: []planner.MealEntry{
				{Day: 2, MealNumber: 1, Recipe: planner.MealRecipe{ID: "r1", Title: "Tomato Pasta", Calories: 640}},
				{Day: 3, MealNumber: 1, Recipe: planner.MealRecipe{ID: "r2", Title: "Green Salad", Calories: 180}},
			}}
			_ = json.NewEncoder(w).Encode(plan)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

const adminID = 99

func newTestBot(t *testing.T) (*Bot, *MockBotAPI) {
	t.Helper()
	server := httptest.NewServer(recipeAPI(t))
	t.Cleanup(server.Close)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		APIBaseURL:             server.URL,
		AssetBaseURL:           server.URL,
		TelegramAllowedUserIDs: []int64{1, adminID},
		AdminTelegramID:        adminID,
	}
	application := app.NewApp(cfg, gateway.NewClient(cfg), cache.NewMemoryStore(), nil, nil, nil)
	mock := &MockBotAPI{}
	return newBot(mock, cfg, application, metrics.NewStore(db.SQL), db.Dir(), nil), mock
}

func command(from int64, text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: from, UserName: "cook"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

// --- Tests ---

func TestProcessMessage(t *testing.T) {
	b, mock := newTestBot(t)

	t.Run("NotSignedIn", func(t *testing.T) {
		b.processMessage(command(1, "/plan"))
		if got := mock.last(t); !strings.Contains(got, "/signin") {
			t.Errorf("expected sign-in hint, got %q", got)
		}
	})

	t.Run("SignIn", func(t *testing.T) {
		b.processMessage(command(1, "/signin chef secret"))
		if got := mock.last(t); !strings.Contains(got, "Signed in as *chef*") {
			t.Errorf("unexpected reply %q", got)
		}
		if len(mock.Requests) == 0 {
			t.Fatal("expected the credentials message to be deleted")
		}
		del, ok := mock.Requests[len(mock.Requests)-1].(tgbotapi.DeleteMessageConfig)
		if !ok || del.MessageID != 7 {
			t.Errorf("expected delete of message 7, got %#v", mock.Requests[len(mock.Requests)-1])
		}
	})

	t.Run("EmptyPlan", func(t *testing.T) {
		b.processMessage(command(1, "/plan"))
		if got := mock.last(t); !strings.Contains(got, "no meal plan") {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("GenerateFirstPlan", func(t *testing.T) {
		b.processMessage(command(1, "/generate 1800 2"))
		got := mock.last(t)
		for _, want := range []string{"*Monday*", "Tomato Pasta", "*Tuesday*", "820 kcal"} {
			if !strings.Contains(got, want) {
				t.Errorf("plan reply missing %q:\n%s", want, got)
			}
		}
	})

	t.Run("ShoppingList", func(t *testing.T) {
		b.processMessage(command(1, "/shopping"))
		if got := mock.last(t); !strings.Contains(got, "Shopping List") || !strings.Contains(got, "• Tomato") {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("GenerateAsksBeforeReplacing", func(t *testing.T) {
		b.processMessage(command(1, "/generate"))
		msg, ok := mock.Sent[len(mock.Sent)-1].(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("expected a new message, got %#v", mock.Sent[len(mock.Sent)-1])
		}
		keyboard, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		if !ok {
			t.Fatalf("expected an inline keyboard, got %#v", msg.ReplyMarkup)
		}
		if data := *keyboard.InlineKeyboard[0][0].CallbackData; data != "generate|2000|3" {
			t.Errorf("unexpected callback data %q", data)
		}
	})

	t.Run("InvalidGenerateArgs", func(t *testing.T) {
		b.processMessage(command(1, "/generate 150"))
		if got := mock.last(t); !strings.Contains(got, "Usage: /generate") {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("Search", func(t *testing.T) {
		b.processMessage(command(1, "/search category=lunch"))
		got := mock.last(t)
		if !strings.Contains(got, "Green Salad") || strings.Contains(got, "Tomato Pasta") {
			t.Errorf("unexpected search reply %q", got)
		}
	})

	t.Run("OtherUsersAreSeparate", func(t *testing.T) {
		b.processMessage(command(adminID, "/plan"))
		if got := mock.last(t); !strings.Contains(got, "/signin") {
			t.Errorf("expected a fresh workspace, got %q", got)
		}
	})
}

func TestCallbackQuery(t *testing.T) {
	b, mock := newTestBot(t)
	b.processMessage(command(1, "/signin chef secret"))

	query := &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 1},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 1}},
	}

	t.Run("Keep", func(t *testing.T) {
		query.Data = "keep"
		b.handleCallbackQuery(query)
		if got := mock.last(t); !strings.Contains(got, "Keeping") {
			t.Errorf("unexpected reply %q", got)
		}
	})

	t.Run("Generate", func(t *testing.T) {
		query.Data = "generate|2000|2"
		b.handleCallbackQuery(query)
		edit, ok := mock.Sent[len(mock.Sent)-1].(tgbotapi.EditMessageTextConfig)
		if !ok || edit.MessageID != 3 {
			t.Fatalf("expected the prompt to be edited, got %#v", mock.Sent[len(mock.Sent)-1])
		}
		if !strings.Contains(edit.Text, "Weekly Meal Plan") {
			t.Errorf("unexpected reply %q", edit.Text)
		}
	})
}

func TestMetricsCommand(t *testing.T) {
	b, mock := newTestBot(t)
	_ = b.metricsStore.Record(context.Background(), metrics.RequestMetric{Operation: "getAllRecipes", Status: 200})

	b.processMessage(command(1, "/metrics"))
	if got := mock.last(t); !strings.Contains(got, "Access Denied") {
		t.Errorf("expected access denied, got %q", got)
	}

	b.processMessage(command(adminID, "/metrics"))
	got := mock.last(t)
	if !strings.Contains(got, "1 requests") || !strings.Contains(got, "getAllRecipes: 1") {
		t.Errorf("unexpected report %q", got)
	}
}

func TestWebhookIgnoresUnknownUsers(t *testing.T) {
	b, mock := newTestBot(t)
	mux := http.NewServeMux()
	b.RegisterHandlers(mux)

	body := `{"update_id": 1, "message": {"message_id": 1, "from": {"id": 555}, "chat": {"id": 555}, "text": "/plan"}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	if len(mock.texts()) != 0 {
		t.Errorf("expected no replies, got %v", mock.texts())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestParseCriteria(t *testing.T) {
	got := parseCriteria("quick ingredient=cherry_tomato pasta Category=Dinner")
	want := recipe.Criteria{Search: "quick pasta", Ingredient: "cherry tomato", Category: "Dinner"}
	if got != want {
		t.Errorf("parseCriteria = %+v, want %+v", got, want)
	}
	if !parseCriteria("").IsZero() {
		t.Error("empty arguments should match everything")
	}
}

func TestParseGenerateArgs(t *testing.T) {
	tests := []struct {
		args    string
		want    planner.GenerateRequest
		wantErr bool
	}{
		{"", planner.DefaultGenerateRequest(), false},
		{"2500", planner.GenerateRequest{TotalCalories: 2500, NumberOfMeals: 3}, false},
		{"1200 5", planner.GenerateRequest{TotalCalories: 1200, NumberOfMeals: 5}, false},
		{"1250", planner.GenerateRequest{}, true},
		{"2000 9", planner.GenerateRequest{}, true},
		{"lots", planner.GenerateRequest{}, true},
		{"2000 3 1", planner.GenerateRequest{}, true},
	}
	for _, tt := range tests {
		got, err := parseGenerateArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseGenerateArgs(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseGenerateArgs(%q) = %+v, want %+v", tt.args, got, tt.want)
		}
	}
}

func TestErrorText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"NotSignedIn", fmt.Errorf("wrapped: %w", gateway.ErrNotSignedIn), "/signin"},
		{"NoPlan", app.ErrNoMealPlan, "no meal plan"},
		{"UpdateFailed", &planner.UpdateError{Err: errors.New("boom")}, "could not be saved"},
		{"Other", errors.New("boom"), "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorText(tt.err, "fallback"); !strings.Contains(got, tt.want) {
				t.Errorf("errorText = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestFormatWeek(t *testing.T) {
	plan := &planner.MealPlan{ID: "p1", Meals: []planner.MealEntry{
		{Day: 1, MealNumber: 1, Recipe: planner.MealRecipe{Title: "Pan_cakes", Calories: 500}},
		{Day: 1, MealNumber: 2, Recipe: planner.MealRecipe{Title: "Soup", Calories: 300}},
		{Day: 7, MealNumber: 1, Recipe: planner.MealRecipe{Title: "Tacos", Calories: 700}},
	}}

	out := formatWeek(plan, planner.Week(plan.Meals))

	if !strings.Contains(out, "📅 *Weekly Meal Plan*") {
		t.Error("Missing plan header")
	}
	if !strings.Contains(out, "*Sunday*\n• Pan\\_cakes (500 kcal)\n• Soup (300 kcal)") {
		t.Errorf("Sunday meals missing or out of order:\n%s", out)
	}
	if strings.Contains(out, "*Monday*") {
		t.Error("Days without meals should be skipped")
	}
	if !strings.Contains(out, "*Saturday*") || !strings.Contains(out, "1500 kcal") {
		t.Errorf("Missing Saturday or total:\n%s", out)
	}
	if got := formatWeek(nil, planner.Week(nil)); !strings.Contains(got, "/generate") {
		t.Errorf("Empty plan should point to /generate, got %q", got)
	}
}

func TestFormatRecipes(t *testing.T) {
	var rs []recipe.Recipe
	for i := 0; i < maxListed+3; i++ {
		rs = append(rs, recipe.Recipe{ID: fmt.Sprintf("r%d", i), Name: "Dish", TimeToCook: 10, Calories: 100})
	}
	out := formatRecipes("Recipes", rs)
	if !strings.Contains(out, "(23)") || !strings.Contains(out, "and 3 more") {
		t.Errorf("unexpected list:\n%s", out)
	}
	if strings.Count(out, "• ") != maxListed {
		t.Errorf("expected %d entries", maxListed)
	}
}

func TestFormatProfile(t *testing.T) {
	u := &user.User{
		Username:  "chef_anna",
		Gender:    user.GenderFemale,
		Recipes:   recipe.List{{ID: "r1"}, {ID: "r2"}},
		Followers: user.SummaryList{{ID: "u2"}},
	}
	out := formatProfile(u)
	for _, want := range []string{"*chef\\_anna*", "Recipes: 2", "Followers: 1", "Following: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRecipeEscapesMarkdown(t *testing.T) {
	r := &recipe.Recipe{ID: "r1", Name: "Mac_and*Cheese `v2` [best]", TimeToCook: 20, Calories: 700}
	out := formatRecipe(r, "")
	if want := "🍽 *Mac\\_and\\*Cheese \\`v2\\` \\[best]*"; !strings.Contains(out, want) {
		t.Errorf("expected escaped title %q in:\n%s", want, out)
	}
}
