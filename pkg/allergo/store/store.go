// Package store defines the keyed record store consumed by the derivation
// engine and the suggestion workflow.
package store

import (
	"context"
	"time"

	"github.com/menulex/allergo/pkg/allergo/suggest"
)

// Store is the persistence interface for all engine records.
type Store interface {
	Close() error

	// Reference data
	UpsertAllergen(ctx context.Context, a Allergen) error
	ListAllergens(ctx context.Context) ([]Allergen, error)
	UpsertAdditive(ctx context.Context, a Additive) error
	ListAdditives(ctx context.Context) ([]Additive, error)

	// Ingredients
	UpsertIngredient(ctx context.Context, ing Ingredient) (int64, error)
	GetIngredient(ctx context.Context, id int64) (Ingredient, bool, error)
	ListIngredientsByOwners(ctx context.Context, owners []string) ([]Ingredient, error)

	// Lexicon
	InsertLexeme(ctx context.Context, lex KeywordLexeme) (int64, error)
	UpdateLexeme(ctx context.Context, lex KeywordLexeme) error
	ListLexemes(ctx context.Context, owners []string, lang string) ([]KeywordLexeme, error)
	InsertCue(ctx context.Context, cue NegationCue) (int64, error)
	ListCues(ctx context.Context, owners []string, lang string) ([]NegationCue, error)

	// Dishes
	UpsertDish(ctx context.Context, d Dish) error
	GetDish(ctx context.Context, id int64) (Dish, bool, error)
	ListDishesByOwner(ctx context.Context, owner string) ([]Dish, error)

	// Audit rows, upserted by (dish, code, source)
	UpsertDishAllergen(ctx context.Context, row DishAllergen) error
	ListDishAllergens(ctx context.Context, dishID int64) ([]DishAllergen, error)
	ListDishAllergensBySource(ctx context.Context, dishID int64, source string) ([]DishAllergen, error)

	// Suggestions
	UpsertSuggestion(ctx context.Context, s suggest.Suggestion) error
	GetSuggestion(ctx context.Context, id string) (suggest.Suggestion, bool, error)
	PendingSuggestionByHash(ctx context.Context, hash string) (suggest.Suggestion, bool, error)
	ListSuggestionsByDish(ctx context.Context, dishID int64) ([]suggest.Suggestion, error)
}

// Allergen is immutable reference data: one regulated allergen category.
type Allergen struct {
	Code    string
	LabelDE string
	LabelEN string
	LabelAR string
}

// Additive is immutable reference data: one regulated food additive.
type Additive struct {
	Number  int
	LabelDE string
	LabelEN string
	LabelAR string
}

// Ingredient is an owner-scoped named ingredient.
type Ingredient struct {
	ID        int64
	Owner     string
	Name      string
	Allergens []string
	Additives []int
	Synonyms  []string
}

// KeywordLexeme is a persisted rule entry. Soft-disabled via IsActive
// rather than deleted, to preserve audit history.
type KeywordLexeme struct {
	ID           int64
	Owner        string
	Lang         string
	Term         string
	IsRegex      bool
	Weight       float64
	IsActive     bool
	IngredientID int64
	Allergens    []string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NegationCue is a persisted negation phrase with its window.
type NegationCue struct {
	ID           int64
	Owner        string
	Lang         string
	Cue          string
	IsRegex      bool
	WindowBefore int
	WindowAfter  int
	IsActive     bool
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Dish is the owning entity for classification. DisplayCodes is computed
// by the derivation engine and never edited directly.
type Dish struct {
	ID             int64
	Owner          string
	Lang           string
	Name           string
	Description    string
	IngredientIDs  []int64
	GeneratedCodes string
	HasManualCodes bool
	ManualCodes    string
	ExtraAllergens []string
	ExtraAdditives []int
	DisplayCodes   string
}

// DishAllergen is one audit attribution, unique per (dish, code, source).
type DishAllergen struct {
	DishID      int64
	Code        string
	Source      string
	Confidence  float64
	Rationale   string
	IsConfirmed bool
	CreatedBy   string
	CreatedAt   time.Time
}
