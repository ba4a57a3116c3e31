package clipper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recipe-planner/internal/recipe"
)

// fromJSONLD looks for a schema.org Recipe in the page's JSON-LD blocks,
// including nested @graph lists.
func fromJSONLD(doc *goquery.Document) (*recipe.Draft, string, bool) {
	var found map[string]interface{}
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		found = findRecipeNode(data)
		return found == nil
	})
	if found == nil {
		return nil, "", false
	}

	name := strings.TrimSpace(stringValue(found["name"]))
	if name == "" {
		return nil, "", false
	}

	d := &recipe.Draft{
		Name:            name,
		Description:     strings.TrimSpace(stringValue(found["description"])),
		TimeToCook:      cookMinutes(found),
		IngredientNames: stringList(found["recipeIngredient"]),
		CategoryNames:   stringList(found["recipeCategory"]),
	}
	if nutrition, ok := found["nutrition"].(map[string]interface{}); ok {
		d.Calories = leadingNumber(stringValue(nutrition["calories"]))
	}
	return d, imageValue(found["image"]), true
}

func findRecipeNode(v interface{}) map[string]interface{} {
	switch node := v.(type) {
	case []interface{}:
		for _, item := range node {
			if r := findRecipeNode(item); r != nil {
				return r
			}
		}
	case map[string]interface{}:
		if isRecipeType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(v interface{}) bool {
	for _, t := range stringList(v) {
		if strings.EqualFold(t, "Recipe") {
			return true
		}
	}
	return false
}

// cookMinutes prefers totalTime, then cookTime plus prepTime.
func cookMinutes(node map[string]interface{}) float64 {
	if total, ok := parseISODuration(stringValue(node["totalTime"])); ok {
		return total
	}
	var sum float64
	for _, field := range []string{"cookTime", "prepTime"} {
		if m, ok := parseISODuration(stringValue(node[field])); ok {
			sum += m
		}
	}
	return sum
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseISODuration converts durations like "PT1H30M" to minutes.
func parseISODuration(s string) (float64, bool) {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0, false
	}
	var (
		minutes float64
		seen    bool
	)
	// days, hours, minutes, seconds
	units := [4]struct{ mul, div float64 }{{24 * 60, 1}, {60, 1}, {1, 1}, {1, 60}}
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		minutes += n * u.mul / u.div
		seen = true
	}
	return minutes, seen
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

func leadingNumber(s string) float64 {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0
	}
	n, _ := strconv.ParseFloat(strings.Replace(match, ",", ".", 1), 64)
	return n
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// stringList accepts a string, a comma separated string or a list of strings.
func stringList(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case string:
		for _, part := range strings.Split(val, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	case []interface{}:
		for _, item := range val {
			if s := strings.TrimSpace(stringValue(item)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func imageValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []interface{}:
		for _, item := range val {
			if s := imageValue(item); s != "" {
				return s
			}
		}
	case map[string]interface{}:
		return stringValue(val["url"])
	}
	return ""
}
