package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"recipe-planner/internal/llm"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/recipe"
)

const (
	maxPageText  = 12000
	maxImageSize = 5 << 20
)

// ErrNoRecipe is returned when a page holds no recognizable recipe.
var ErrNoRecipe = errors.New("no recipe found on page")

// Clipper turns recipe web pages into drafts.
type Clipper struct {
	httpClient *http.Client
	textGen    llm.TextGenerator
	log        *logger.Logger
}

// NewClipper creates a new Clipper. textGen may be nil, in which case only
// pages with schema.org markup can be imported.
func NewClipper(textGen llm.TextGenerator, log *logger.Logger) *Clipper {
	if log == nil {
		log = logger.Nop()
	}
	return &Clipper{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		textGen:    textGen,
		log:        log,
	}
}

// Extract fetches url and builds a draft from its schema.org Recipe data, or
// from the page text through the LLM when the page has none.
func (c *Clipper) Extract(ctx context.Context, url string) (*recipe.Draft, error) {
	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	draft, imageURL, ok := fromJSONLD(doc)
	if !ok {
		if c.textGen == nil {
			return nil, ErrNoRecipe
		}
		c.log.Info("no structured recipe data, falling back to LLM", "url", url)
		draft, err = c.extractWithLLM(ctx, cleanText(doc))
		if err != nil {
			return nil, err
		}
	}
	draft.SourceURL = url

	if imageURL != "" {
		data, err := c.fetchImage(ctx, imageURL)
		if err != nil {
			c.log.Warn("failed to download recipe image", "url", imageURL, "error", err)
		} else {
			draft.Image = data
			draft.ImageName = imageName(imageURL)
		}
	}
	return draft, nil
}

func (c *Clipper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "recipe-planner/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (c *Clipper) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageSize)
	}
	return data, nil
}

// cleanText strips scripts, navigation and ads and returns the body text.
func cleanText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, nav, footer, header, iframe, noscript, .ads, #ads, .advertisement").Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")
	if len(text) > maxPageText {
		text = text[:maxPageText]
	}
	return text
}

type llmRecipe struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TimeToCook  float64  `json:"time_to_cook_minutes"`
	Calories    float64  `json:"calories"`
	Ingredients []string `json:"ingredients"`
	Categories  []string `json:"categories"`
}

func (c *Clipper) extractWithLLM(ctx context.Context, text string) (*recipe.Draft, error) {
	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe from the following page text.
Return the result strictly as a JSON object with this structure:
{
  "name": "Recipe name",
  "description": "One sentence summary",
  "time_to_cook_minutes": 30,
  "calories": 450,
  "ingredients": ["plain ingredient name", ...],
  "categories": ["e.g. Breakfast", ...]
}
Use 0 for unknown numbers. Ingredient entries are names only, without quantities.
If the page holds no recipe, return {"name": ""}.

Page text:
%s
`, text)

	resp, err := c.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}
	c.log.Debug("llm extraction", "model", resp.Usage.Model, "tokens", resp.Usage.TotalTokens, "latency", resp.Latency)

	var out llmRecipe
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &out); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}
	if strings.TrimSpace(out.Name) == "" {
		return nil, ErrNoRecipe
	}
	return &recipe.Draft{
		Name:            strings.TrimSpace(out.Name),
		Description:     strings.TrimSpace(out.Description),
		TimeToCook:      out.TimeToCook,
		Calories:        out.Calories,
		IngredientNames: out.Ingredients,
		CategoryNames:   out.Categories,
	}, nil
}

// stripCodeFence removes a ```json fence some models wrap their answer in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func imageName(url string) string {
	name := path.Base(strings.SplitN(url, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		return "image.jpg"
	}
	return name
}
