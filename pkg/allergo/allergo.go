// Package allergo is the main derivation engine facade. It wires the
// lexicon, matcher, derivation policy, explanation builder and suggestion
// workflow around a Store.
package allergo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/menulex/allergo/pkg/allergo/codes"
	"github.com/menulex/allergo/pkg/allergo/derive"
	"github.com/menulex/allergo/pkg/allergo/explain"
	"github.com/menulex/allergo/pkg/allergo/internalerr"
	"github.com/menulex/allergo/pkg/allergo/lexicon"
	"github.com/menulex/allergo/pkg/allergo/match"
	"github.com/menulex/allergo/pkg/allergo/store"
	"github.com/menulex/allergo/pkg/allergo/suggest"
	"github.com/menulex/allergo/pkg/allergo/textnorm"
)

// Engine is the main allergen code derivation facade
type Engine struct {
	store      store.Store
	shared     string
	thresholds derive.Thresholds
	scanner    *match.Scanner
	workflow   *suggest.Workflow
	log        *logrus.Logger
}

// Options configures an Engine instance
type Options struct {
	Store store.Store

	// SharedOwner names the global lexicon tier. Defaults to "shared".
	SharedOwner string

	// MinCoverageTokens is the low-confidence threshold. Defaults to 3.
	MinCoverageTokens int

	// Collaborator enables the suggestion fallback. When nil, low-confidence
	// dishes are flagged but no suggestion is requested.
	Collaborator suggest.Collaborator
	Model        string
	LLMTimeout   time.Duration

	Logger *logrus.Logger
}

// New creates an Engine with the given dependencies
func New(opts Options) *Engine {
	if opts.SharedOwner == "" {
		opts.SharedOwner = "shared"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	e := &Engine{
		store:      opts.Store,
		shared:     opts.SharedOwner,
		thresholds: derive.Thresholds{MinCoverageTokens: opts.MinCoverageTokens},
		scanner:    match.NewScanner(opts.Logger),
		log:        opts.Logger,
	}
	if opts.Collaborator != nil {
		e.workflow = &suggest.Workflow{
			Store:        suggestStore{opts.Store},
			Collaborator: opts.Collaborator,
			Model:        opts.Model,
			Timeout:      opts.LLMTimeout,
		}
	}
	return e
}

// Close cleanly shuts down the engine
func (e *Engine) Close() error {
	return e.store.Close()
}

// DeriveResult reports one dish derivation.
type DeriveResult struct {
	DishID         int64
	GeneratedCodes string
	DisplayCodes   string
	LowConfidence  bool
	SuggestionID   string
	Warnings       []string
}

// DeriveDish re-derives one dish's codes from the current lexicon and
// persists the result: the dish's code strings plus one audit row per
// (code, source) attribution. When the text is non-trivial and nothing
// classified it, the suggestion fallback is triggered; fallback failures
// are logged, never fatal.
func (e *Engine) DeriveDish(ctx context.Context, dishID int64) (DeriveResult, error) {
	dish, ok, err := e.store.GetDish(ctx, dishID)
	if err != nil {
		return DeriveResult{}, fmt.Errorf("load dish %d: %w", dishID, err)
	}
	if !ok {
		return DeriveResult{}, fmt.Errorf("dish %d: %w", dishID, internalerr.ErrNotFound)
	}

	resolver, err := e.resolver(ctx, dish.Owner, dish.Lang)
	if err != nil {
		return DeriveResult{}, err
	}

	return e.deriveWith(ctx, dish, resolver)
}

// resolver builds the two-tier lexicon snapshot for one owner and language.
func (e *Engine) resolver(ctx context.Context, owner, lang string) (*lexicon.Resolver, error) {
	owners := []string{owner, e.shared}

	lexRecords, err := e.store.ListLexemes(ctx, owners, lang)
	if err != nil {
		return nil, fmt.Errorf("list lexemes: %w", err)
	}
	cueRecords, err := e.store.ListCues(ctx, owners, lang)
	if err != nil {
		return nil, fmt.Errorf("list cues: %w", err)
	}
	ingRecords, err := e.store.ListIngredientsByOwners(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}

	lexemes := lo.Map(lexRecords, func(r store.KeywordLexeme, _ int) lexicon.Lexeme {
		return lexicon.Lexeme(r)
	})
	cues := lo.Map(cueRecords, func(r store.NegationCue, _ int) lexicon.Cue {
		return lexicon.Cue(r)
	})
	ingredients := lo.Map(ingRecords, func(r store.Ingredient, _ int) lexicon.Ingredient {
		return lexicon.Ingredient(r)
	})

	tiers := lexicon.Tiers{Owner: owner, Shared: e.shared}
	return lexicon.NewResolver(tiers, lang, lexemes, cues, ingredients, textnorm.DefaultProfile(lang)), nil
}

func (e *Engine) deriveWith(ctx context.Context, dish store.Dish, resolver *lexicon.Resolver) (DeriveResult, error) {
	original := strings.TrimSpace(textnorm.StripHTML(strings.TrimSpace(dish.Name + " " + dish.Description)))
	norm := textnorm.Normalize(original, textnorm.DefaultProfile(dish.Lang))

	scan := e.scanner.Scan(norm.Text, resolver)

	var linked []lexicon.Ingredient
	for _, id := range dish.IngredientIDs {
		ing, ok := resolver.Ingredient(id)
		if !ok {
			e.log.WithFields(logrus.Fields{"dish": dish.ID, "ingredient": id}).
				Warn("linked ingredient not in lexicon snapshot")
			continue
		}
		linked = append(linked, ing)
	}

	out := derive.Derive(derive.Input{
		DishID:         dish.ID,
		Original:       original,
		Norm:           norm,
		Ingredients:    linked,
		Matches:        scan.Spans,
		MatchedBy:      resolver.Ingredient,
		HasManualCodes: dish.HasManualCodes,
		ManualCodes:    dish.ManualCodes,
		ExtraAllergens: dish.ExtraAllergens,
		ExtraAdditives: dish.ExtraAdditives,
	}, e.thresholds)

	dish.GeneratedCodes = out.GeneratedCodes
	dish.DisplayCodes = out.DisplayCodes
	if err := e.store.UpsertDish(ctx, dish); err != nil {
		return DeriveResult{}, fmt.Errorf("store dish %d: %w", dish.ID, err)
	}

	for _, row := range out.Audit {
		rec := store.DishAllergen{
			DishID:     row.DishID,
			Code:       row.Code,
			Source:     string(row.Source),
			Confidence: row.Confidence,
			Rationale:  row.Rationale,
		}
		if err := e.store.UpsertDishAllergen(ctx, rec); err != nil {
			return DeriveResult{}, fmt.Errorf("store audit row %d/%s/%s: %w", row.DishID, row.Code, row.Source, err)
		}
	}

	result := DeriveResult{
		DishID:         dish.ID,
		GeneratedCodes: out.GeneratedCodes,
		DisplayCodes:   out.DisplayCodes,
		LowConfidence:  out.LowConfidence,
		Warnings:       scan.Warnings,
	}

	if out.LowConfidence && e.workflow != nil {
		ref := suggest.DishRef{ID: dish.ID, Owner: dish.Owner, Lang: dish.Lang}
		sugg, err := e.workflow.Request(ctx, ref, norm.Text)
		if err != nil {
			e.log.WithError(err).WithField("dish", dish.ID).Warn("suggestion request failed")
		} else {
			result.SuggestionID = sugg.ID
		}
	}

	return result, nil
}

// BatchResult summarizes a batch derivation run.
type BatchResult struct {
	Processed int
	Updated   int
	Failed    int
	Results   []DeriveResult
}

// DeriveBatch re-derives every dish of one owner. The lexicon is
// snapshotted once per language, so a whole batch sees a consistent rule
// set. One dish failing does not stop the rest.
func (e *Engine) DeriveBatch(ctx context.Context, owner string) (BatchResult, error) {
	dishes, err := e.store.ListDishesByOwner(ctx, owner)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list dishes for %s: %w", owner, err)
	}

	resolvers := make(map[string]*lexicon.Resolver)
	var batch BatchResult

	for _, dish := range dishes {
		batch.Processed++

		resolver, ok := resolvers[dish.Lang]
		if !ok {
			resolver, err = e.resolver(ctx, owner, dish.Lang)
			if err != nil {
				return batch, err
			}
			resolvers[dish.Lang] = resolver
		}

		res, err := e.deriveWith(ctx, dish, resolver)
		if err != nil {
			batch.Failed++
			e.log.WithError(err).WithField("dish", dish.ID).Error("derivation failed")
			continue
		}
		batch.Updated++
		batch.Results = append(batch.Results, res)
	}

	return batch, nil
}

// ReviewSuggestion records a human decision on a pending suggestion.
// Approved terms in acceptTerms are promoted into the dish owner's lexicon.
func (e *Engine) ReviewSuggestion(ctx context.Context, id string, approve bool, reviewer string, acceptTerms []string) (suggest.Suggestion, error) {
	if e.workflow == nil {
		return suggest.Suggestion{}, fmt.Errorf("suggestion workflow not configured: %w", internalerr.ErrInvalidConfig)
	}

	sugg, ok, err := e.store.GetSuggestion(ctx, id)
	if err != nil {
		return suggest.Suggestion{}, fmt.Errorf("load suggestion %s: %w", id, err)
	}
	if !ok {
		return suggest.Suggestion{}, fmt.Errorf("suggestion %s: %w", id, internalerr.ErrNotFound)
	}

	dish, ok, err := e.store.GetDish(ctx, sugg.DishID)
	if err != nil {
		return suggest.Suggestion{}, fmt.Errorf("load dish %d: %w", sugg.DishID, err)
	}
	if !ok {
		return suggest.Suggestion{}, fmt.Errorf("dish %d: %w", sugg.DishID, internalerr.ErrNotFound)
	}

	ref := suggest.DishRef{ID: dish.ID, Owner: dish.Owner, Lang: dish.Lang}
	return e.workflow.Review(ctx, id, approve, reviewer, ref, acceptTerms)
}

// DisplayCodes returns the code string a menu should print for a dish:
// the persisted display value, falling back to a manual override, falling
// back to generated codes.
func (e *Engine) DisplayCodes(ctx context.Context, dishID int64) (string, error) {
	dish, ok, err := e.store.GetDish(ctx, dishID)
	if err != nil {
		return "", fmt.Errorf("load dish %d: %w", dishID, err)
	}
	if !ok {
		return "", fmt.Errorf("dish %d: %w", dishID, internalerr.ErrNotFound)
	}
	return displayFor(dish), nil
}

// Audit returns a dish's attribution rows, optionally filtered by source
// tier ("" returns all). This is the surface a reviewer uses to answer why
// a code was attributed.
func (e *Engine) Audit(ctx context.Context, dishID int64, source string) ([]store.DishAllergen, error) {
	if source == "" {
		return e.store.ListDishAllergens(ctx, dishID)
	}
	return e.store.ListDishAllergensBySource(ctx, dishID, source)
}

// Explanation renders the human-readable allergen sentence for a dish in
// the given language, e.g. "Enthält Gluten und Milch." Unknown codes are
// dropped; a dish without codes yields an empty string.
func (e *Engine) Explanation(ctx context.Context, dishID int64, lang explain.Lang) (string, error) {
	dish, ok, err := e.store.GetDish(ctx, dishID)
	if err != nil {
		return "", fmt.Errorf("load dish %d: %w", dishID, err)
	}
	if !ok {
		return "", fmt.Errorf("dish %d: %w", dishID, internalerr.ErrNotFound)
	}

	letters := codes.ExtractLetters(displayFor(dish))
	if len(letters) == 0 {
		return "", nil
	}

	allergens, err := e.store.ListAllergens(ctx)
	if err != nil {
		return "", fmt.Errorf("load legend: %w", err)
	}
	legend := lo.Map(allergens, func(a store.Allergen, _ int) explain.Label {
		return explain.Label{Code: a.Code, LabelDE: a.LabelDE, LabelEN: a.LabelEN, LabelAR: a.LabelAR}
	})

	return explain.Sentence(letters, legend, lang), nil
}

func displayFor(dish store.Dish) string {
	if s := strings.TrimSpace(dish.DisplayCodes); s != "" {
		return s
	}
	if dish.HasManualCodes {
		if s := strings.TrimSpace(dish.ManualCodes); s != "" {
			return s
		}
	}
	return dish.GeneratedCodes
}

// suggestStore adapts a store.Store to the narrower surface the suggestion
// workflow needs, converting promoted lexemes to store records.
type suggestStore struct {
	s store.Store
}

func (a suggestStore) PendingSuggestionByHash(ctx context.Context, hash string) (suggest.Suggestion, bool, error) {
	return a.s.PendingSuggestionByHash(ctx, hash)
}

func (a suggestStore) GetSuggestion(ctx context.Context, id string) (suggest.Suggestion, bool, error) {
	return a.s.GetSuggestion(ctx, id)
}

func (a suggestStore) UpsertSuggestion(ctx context.Context, s suggest.Suggestion) error {
	return a.s.UpsertSuggestion(ctx, s)
}

func (a suggestStore) InsertLexeme(ctx context.Context, lex lexicon.Lexeme) (int64, error) {
	return a.s.InsertLexeme(ctx, store.KeywordLexeme(lex))
}
