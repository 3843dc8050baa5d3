package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizeWellFormed(t *testing.T) {
	raw := map[string]any{
		"health_score":   8.0,
		"calories":       450.0,
		"protein":        30.0,
		"carbs":          50.0,
		"fats":           10.0,
		"ingredients":    []any{"rice", "chicken"},
		"name":           "Chicken Rice",
		"health_summary": "Balanced meal.",
	}

	got := Normalize(raw)
	want := NutritionRecord{
		Name:          "Chicken Rice",
		HealthScore:   80,
		Calories:      450,
		Protein:       30,
		Carbs:         50,
		Fats:          10,
		Ingredients:   []string{"rice", "chicken"},
		HealthSummary: "Balanced meal.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize() = %+v, want %+v", got, want)
	}
	if got.IngredientsText() != "rice, chicken" {
		t.Errorf("IngredientsText() = %q, want %q", got.IngredientsText(), "rice, chicken")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for name, raw := range map[string]map[string]any{
		"empty object": {},
		"nil map":      nil,
	} {
		t.Run(name, func(t *testing.T) {
			got := Normalize(raw)
			if got.Name != DefaultDishName {
				t.Errorf("Name = %q, want %q", got.Name, DefaultDishName)
			}
			if got.HealthScore != 0 || got.Calories != 0 || got.Protein != 0 || got.Carbs != 0 || got.Fats != 0 {
				t.Errorf("numbers = %+v, want all zero", got)
			}
			if got.Ingredients == nil || len(got.Ingredients) != 0 {
				t.Errorf("Ingredients = %#v, want empty non-nil slice", got.Ingredients)
			}
			if got.IngredientsText() != "" {
				t.Errorf("IngredientsText() = %q, want empty", got.IngredientsText())
			}
			if got.HealthSummary != "" {
				t.Errorf("HealthSummary = %q, want empty", got.HealthSummary)
			}
		})
	}
}

func TestNormalizeMissingSubsets(t *testing.T) {
	full := map[string]any{
		KeyName:          "Salad",
		KeyHealthScore:   90.0,
		KeyCalories:      200.0,
		KeyProtein:       5.0,
		KeyCarbs:         20.0,
		KeyFats:          8.0,
		KeyIngredients:   []any{"lettuce"},
		KeyHealthSummary: "Light.",
	}
	keys := make([]string, 0, len(full))
	for k := range full {
		keys = append(keys, k)
	}

	// every subset of keys removed
	for mask := 0; mask < 1<<len(keys); mask++ {
		raw := make(map[string]any)
		for i, k := range keys {
			if mask&(1<<i) == 0 {
				raw[k] = full[k]
			}
		}
		got := Normalize(raw)
		if _, ok := raw[KeyName]; !ok && got.Name != DefaultDishName {
			t.Fatalf("mask %b: Name = %q, want placeholder", mask, got.Name)
		}
		if _, ok := raw[KeyCalories]; !ok && got.Calories != 0 {
			t.Fatalf("mask %b: Calories = %d, want 0", mask, got.Calories)
		}
		if _, ok := raw[KeyIngredients]; !ok && len(got.Ingredients) != 0 {
			t.Fatalf("mask %b: Ingredients = %v, want empty", mask, got.Ingredients)
		}
		if _, ok := raw[KeyHealthSummary]; ok && got.HealthSummary != "Light." {
			t.Fatalf("mask %b: HealthSummary = %q", mask, got.HealthSummary)
		}
	}
}

func TestHealthScoreRescale(t *testing.T) {
	tests := []struct {
		raw  any
		want int
	}{
		{0.0, 0},
		{0.5, 5},
		{1.0, 10},
		{7.0, 70},
		{8.5, 85},
		{10.0, 100},
		{10.4, 11},
		{10.49, 11},
		{10.5, 11},
		{11.0, 11},
		{75.0, 75},
		{100.0, 100},
		{150.0, 150},
		{-3.0, 0},
		{"8", 80},
		{"72", 72},
		{json.Number("9"), 90},
		{"high", 0},
		{true, 0},
		{nil, 0},
	}

	for _, tt := range tests {
		got := Normalize(map[string]any{KeyHealthScore: tt.raw}).HealthScore
		if got != tt.want {
			t.Errorf("health_score %#v: got %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestRescaleLaw(t *testing.T) {
	for s := 0.1; s <= 200; s += 0.7 {
		got := RescaleHealthScore(s)
		if s <= 10 && got != 10*s {
			t.Fatalf("RescaleHealthScore(%v) = %v, want %v", s, got, 10*s)
		}
		if s > 10 && got != s {
			t.Fatalf("RescaleHealthScore(%v) = %v, want unchanged", s, got)
		}
	}
	if RescaleHealthScore(0) != 0 {
		t.Errorf("RescaleHealthScore(0) should stay 0")
	}
}

func TestNormalizeMacroCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want int
	}{
		{"float", 450.0, 450},
		{"rounded", 29.6, 30},
		{"int", 12, 12},
		{"numeric string", " 50 ", 50},
		{"unit string", "30g", 0},
		{"negative", -5.0, 0},
		{"bool", false, 0},
		{"object", map[string]any{"value": 3.0}, 0},
		{"list", []any{1.0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(map[string]any{KeyProtein: tt.raw}).Protein
			if got != tt.want {
				t.Errorf("protein %#v: got %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeStrings(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		wantName    string
		wantSummary string
	}{
		{"blank name", map[string]any{KeyName: "   "}, DefaultDishName, ""},
		{"numeric name", map[string]any{KeyName: 42.0}, DefaultDishName, ""},
		{"trimmed", map[string]any{KeyName: " Pho ", KeyHealthSummary: " Hearty. "}, "Pho", "Hearty."},
		{"summary not string", map[string]any{KeyHealthSummary: []any{"a"}}, DefaultDishName, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
			if got.HealthSummary != tt.wantSummary {
				t.Errorf("HealthSummary = %q, want %q", got.HealthSummary, tt.wantSummary)
			}
		})
	}
}

func TestNormalizeIngredients(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want []string
	}{
		{"list", []any{"rice", "egg"}, []string{"rice", "egg"}},
		{"typed list", []string{"rice", " ", "egg"}, []string{"rice", "egg"}},
		{"mixed", []any{"rice", 3.0, nil, map[string]any{}, " egg "}, []string{"rice", "egg"}},
		{"single string", "soup", []string{"soup"}},
		{"blank string", "  ", []string{}},
		{"number", 5.0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(map[string]any{KeyIngredients: tt.raw}).Ingredients
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Ingredients = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestIngredientsRoundTrip(t *testing.T) {
	ingredients := []string{"brown rice", "grilled chicken", "soy sauce", "scallion"}
	rec := Normalize(map[string]any{KeyIngredients: []any{"brown rice", "grilled chicken", "soy sauce", "scallion"}})

	back := strings.Split(rec.IngredientsText(), ", ")
	if !reflect.DeepEqual(back, ingredients) {
		t.Errorf("split(join(ingredients)) = %#v, want %#v", back, ingredients)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []map[string]any{
		{KeyName: "Burger", KeyHealthScore: 35.0, KeyCalories: 800.0, KeyFats: 45.0, KeyIngredients: []any{"bun", "beef"}},
		{KeyHealthScore: 8.0, KeyProtein: "12"},
		{KeyHealthScore: 10.4},
		{KeyHealthScore: 10.49},
		{KeyHealthScore: "10.2"},
		{},
	}

	for _, raw := range raws {
		once := Normalize(raw)
		twice := Normalize(once.AsRaw())
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Normalize not stable:\n once  %+v\n twice %+v", once, twice)
		}
	}
}
