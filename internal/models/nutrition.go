package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Keys the model is asked to return.
const (
	KeyName          = "name"
	KeyHealthScore   = "health_score"
	KeyCalories      = "calories"
	KeyProtein       = "protein"
	KeyCarbs         = "carbs"
	KeyFats          = "fats"
	KeyIngredients   = "ingredients"
	KeyHealthSummary = "health_summary"
)

// DefaultDishName is shown when the model gives no usable name.
const DefaultDishName = "Dish"

// NutritionRecord is the canonical, fully-defaulted result of one meal analysis.
// Treat it as immutable once Normalize returns it.
type NutritionRecord struct {
	Name          string   `json:"name"`
	HealthScore   int      `json:"health_score"`
	Calories      int      `json:"calories"`
	Protein       int      `json:"protein"`
	Carbs         int      `json:"carbs"`
	Fats          int      `json:"fats"`
	Ingredients   []string `json:"ingredients"`
	HealthSummary string   `json:"health_summary"`
}

// IngredientsText joins the ingredient list for display.
func (nr NutritionRecord) IngredientsText() string {
	return strings.Join(nr.Ingredients, ", ")
}

// AsRaw expresses the record with the same keys the model returns,
// so it can be fed back through Normalize.
func (nr NutritionRecord) AsRaw() map[string]any {
	ingredients := make([]any, len(nr.Ingredients))
	for i, ing := range nr.Ingredients {
		ingredients[i] = ing
	}
	return map[string]any{
		KeyName:          nr.Name,
		KeyHealthScore:   float64(nr.HealthScore),
		KeyCalories:      float64(nr.Calories),
		KeyProtein:       float64(nr.Protein),
		KeyCarbs:         float64(nr.Carbs),
		KeyFats:          float64(nr.Fats),
		KeyIngredients:   ingredients,
		KeyHealthSummary: nr.HealthSummary,
	}
}

// Normalize maps a loosely-structured model response onto a NutritionRecord.
// Every field degrades to a default instead of failing, so a partially
// conforming response still yields something displayable. A nil map is fine.
//
// Health scores in (0, 10] are taken to be on a 0-10 scale and multiplied by 10.
// This misreads a genuine low score such as 7/100 as 70/100, and scores above
// 100 are not clamped. Both are kept for compatibility with existing prompts.
func Normalize(raw map[string]any) NutritionRecord {
	return NutritionRecord{
		Name:          stringOr(raw[KeyName], DefaultDishName),
		HealthScore:   healthScore(raw[KeyHealthScore]),
		Calories:      nonNegativeInt(raw[KeyCalories]),
		Protein:       nonNegativeInt(raw[KeyProtein]),
		Carbs:         nonNegativeInt(raw[KeyCarbs]),
		Fats:          nonNegativeInt(raw[KeyFats]),
		Ingredients:   stringList(raw[KeyIngredients]),
		HealthSummary: stringOr(raw[KeyHealthSummary], ""),
	}
}

// RescaleHealthScore applies the 0-10 to 0-100 correction.
func RescaleHealthScore(score float64) float64 {
	if score > 0 && score <= 10 {
		return score * 10
	}
	return score
}

// healthScore keeps a raw score above 10 above 10 after rounding, so a
// stored score is never rescaled a second time.
func healthScore(v any) int {
	score, ok := number(v)
	if !ok || score < 0 {
		return 0
	}
	stored := round(RescaleHealthScore(score))
	if score > 10 && stored <= 10 {
		return 11
	}
	return stored
}

func nonNegativeInt(v any) int {
	n, ok := number(v)
	if !ok || n < 0 {
		return 0
	}
	return round(n)
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func round(f float64) int {
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(f))
}

func stringOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	return s
}

func stringList(v any) []string {
	switch items := v.(type) {
	case string:
		if s := strings.TrimSpace(items); s != "" {
			return []string{s}
		}
	case []string:
		return compact(items)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
