// Package memstore is an in-memory implementation of store.Store for tests
// and examples.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/menulex/allergo/pkg/allergo/store"
	"github.com/menulex/allergo/pkg/allergo/suggest"
)

// Store is an in-memory store.Store implementation.
type Store struct {
	mu           sync.RWMutex
	nextID       int64
	allergens    map[string]store.Allergen
	additives    map[int]store.Additive
	ingredients  map[int64]store.Ingredient
	lexemes      map[int64]store.KeywordLexeme
	lexemeOrder  []int64
	cues         map[int64]store.NegationCue
	cueOrder     []int64
	dishes       map[int64]store.Dish
	audit        map[[3]string]store.DishAllergen // dishID|code|source
	suggestions  map[string]suggest.Suggestion
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID:      1,
		allergens:   make(map[string]store.Allergen),
		additives:   make(map[int]store.Additive),
		ingredients: make(map[int64]store.Ingredient),
		lexemes:     make(map[int64]store.KeywordLexeme),
		cues:        make(map[int64]store.NegationCue),
		dishes:      make(map[int64]store.Dish),
		audit:       make(map[[3]string]store.DishAllergen),
		suggestions: make(map[string]suggest.Suggestion),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// UpsertAllergen stores reference data keyed by letter code.
func (s *Store) UpsertAllergen(ctx context.Context, a store.Allergen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Code == "" {
		return nil
	}
	s.allergens[a.Code] = a
	return nil
}

// ListAllergens returns all allergens sorted by code.
func (s *Store) ListAllergens(ctx context.Context) ([]store.Allergen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Allergen, 0, len(s.allergens))
	for _, a := range s.allergens {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// UpsertAdditive stores reference data keyed by number.
func (s *Store) UpsertAdditive(ctx context.Context, a store.Additive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Number <= 0 {
		return nil
	}
	s.additives[a.Number] = a
	return nil
}

// ListAdditives returns all additives sorted by number.
func (s *Store) ListAdditives(ctx context.Context) ([]store.Additive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Additive, 0, len(s.additives))
	for _, a := range s.additives {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// UpsertIngredient inserts or updates an ingredient, allocating an ID when
// unset.
func (s *Store) UpsertIngredient(ctx context.Context, ing store.Ingredient) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ing.ID == 0 {
		ing.ID = s.allocID()
	}
	s.ingredients[ing.ID] = copyIngredient(ing)
	return ing.ID, nil
}

// GetIngredient returns an ingredient by ID.
func (s *Store) GetIngredient(ctx context.Context, id int64) (store.Ingredient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ing, ok := s.ingredients[id]
	if !ok {
		return store.Ingredient{}, false, nil
	}
	return copyIngredient(ing), true, nil
}

// ListIngredientsByOwners returns ingredients for any of the given owners,
// ordered by ID.
func (s *Store) ListIngredientsByOwners(ctx context.Context, owners []string) ([]store.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerSet := toSet(owners)
	var out []store.Ingredient
	for _, ing := range s.ingredients {
		if _, ok := ownerSet[ing.Owner]; ok {
			out = append(out, copyIngredient(ing))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertLexeme appends a new lexeme, preserving insertion order.
func (s *Store) InsertLexeme(ctx context.Context, lex store.KeywordLexeme) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lex.ID = s.allocID()
	if lex.CreatedAt.IsZero() {
		lex.CreatedAt = time.Now()
	}
	lex.UpdatedAt = lex.CreatedAt
	s.lexemes[lex.ID] = copyLexeme(lex)
	s.lexemeOrder = append(s.lexemeOrder, lex.ID)
	return lex.ID, nil
}

// UpdateLexeme replaces an existing lexeme in place.
func (s *Store) UpdateLexeme(ctx context.Context, lex store.KeywordLexeme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lexemes[lex.ID]; !ok {
		return nil
	}
	lex.UpdatedAt = time.Now()
	s.lexemes[lex.ID] = copyLexeme(lex)
	return nil
}

// ListLexemes returns lexemes for the given owners and language in
// insertion order. Inactive entries are included; tier filtering happens in
// the lexicon resolver.
func (s *Store) ListLexemes(ctx context.Context, owners []string, lang string) ([]store.KeywordLexeme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerSet := toSet(owners)
	var out []store.KeywordLexeme
	for _, id := range s.lexemeOrder {
		lex := s.lexemes[id]
		if lex.Lang != lang {
			continue
		}
		if _, ok := ownerSet[lex.Owner]; !ok {
			continue
		}
		out = append(out, copyLexeme(lex))
	}
	return out, nil
}

// InsertCue appends a new negation cue.
func (s *Store) InsertCue(ctx context.Context, cue store.NegationCue) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cue.ID = s.allocID()
	if cue.CreatedAt.IsZero() {
		cue.CreatedAt = time.Now()
	}
	cue.UpdatedAt = cue.CreatedAt
	s.cues[cue.ID] = cue
	s.cueOrder = append(s.cueOrder, cue.ID)
	return cue.ID, nil
}

// ListCues returns cues for the given owners and language in insertion
// order.
func (s *Store) ListCues(ctx context.Context, owners []string, lang string) ([]store.NegationCue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerSet := toSet(owners)
	var out []store.NegationCue
	for _, id := range s.cueOrder {
		cue := s.cues[id]
		if cue.Lang != lang {
			continue
		}
		if _, ok := ownerSet[cue.Owner]; !ok {
			continue
		}
		out = append(out, cue)
	}
	return out, nil
}

// UpsertDish inserts or updates a dish keyed by ID.
func (s *Store) UpsertDish(ctx context.Context, d store.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.allocID()
	} else if d.ID >= s.nextID {
		s.nextID = d.ID + 1
	}
	s.dishes[d.ID] = copyDish(d)
	return nil
}

// GetDish returns a dish by ID.
func (s *Store) GetDish(ctx context.Context, id int64) (store.Dish, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dishes[id]
	if !ok {
		return store.Dish{}, false, nil
	}
	return copyDish(d), true, nil
}

// ListDishesByOwner returns an owner's dishes ordered by ID.
func (s *Store) ListDishesByOwner(ctx context.Context, owner string) ([]store.Dish, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Dish
	for _, d := range s.dishes {
		if d.Owner == owner {
			out = append(out, copyDish(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpsertDishAllergen upserts an audit row by (dish, code, source).
func (s *Store) UpsertDishAllergen(ctx context.Context, row store.DishAllergen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := auditKey(row.DishID, row.Code, row.Source)
	if existing, ok := s.audit[key]; ok {
		// keep original creation metadata, refresh the finding
		row.CreatedAt = existing.CreatedAt
		row.CreatedBy = existing.CreatedBy
		row.IsConfirmed = existing.IsConfirmed
	} else if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	s.audit[key] = row
	return nil
}

// ListDishAllergens returns a dish's audit rows ordered by code then
// source.
func (s *Store) ListDishAllergens(ctx context.Context, dishID int64) ([]store.DishAllergen, error) {
	return s.listAudit(dishID, "")
}

// ListDishAllergensBySource filters a dish's audit rows by source tier.
func (s *Store) ListDishAllergensBySource(ctx context.Context, dishID int64, source string) ([]store.DishAllergen, error) {
	return s.listAudit(dishID, source)
}

func (s *Store) listAudit(dishID int64, source string) ([]store.DishAllergen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.DishAllergen
	for _, row := range s.audit {
		if row.DishID != dishID {
			continue
		}
		if source != "" && row.Source != source {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}

// UpsertSuggestion stores a suggestion keyed by ID.
func (s *Store) UpsertSuggestion(ctx context.Context, sg suggest.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sg.ID == "" {
		return nil
	}
	s.suggestions[sg.ID] = copySuggestion(sg)
	return nil
}

// GetSuggestion returns a suggestion by ID.
func (s *Store) GetSuggestion(ctx context.Context, id string) (suggest.Suggestion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, ok := s.suggestions[id]
	if !ok {
		return suggest.Suggestion{}, false, nil
	}
	return copySuggestion(sg), true, nil
}

// PendingSuggestionByHash returns the pending suggestion with the given
// prompt hash, if any.
func (s *Store) PendingSuggestionByHash(ctx context.Context, hash string) (suggest.Suggestion, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sg := range s.suggestions {
		if sg.PromptHash == hash && sg.Status == suggest.StatusPending {
			return copySuggestion(sg), true, nil
		}
	}
	return suggest.Suggestion{}, false, nil
}

// ListSuggestionsByDish returns a dish's suggestions ordered by creation
// time.
func (s *Store) ListSuggestionsByDish(ctx context.Context, dishID int64) ([]suggest.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []suggest.Suggestion
	for _, sg := range s.suggestions {
		if sg.DishID == dishID {
			out = append(out, copySuggestion(sg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func auditKey(dishID int64, code, source string) [3]string {
	return [3]string{strconv.FormatInt(dishID, 10), code, source}
}

func toSet(in []string) map[string]struct{} {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	return set
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}

func copyIngredient(ing store.Ingredient) store.Ingredient {
	ing.Allergens = copyStrings(ing.Allergens)
	ing.Additives = copyInts(ing.Additives)
	ing.Synonyms = copyStrings(ing.Synonyms)
	return ing
}

func copyLexeme(lex store.KeywordLexeme) store.KeywordLexeme {
	lex.Allergens = copyStrings(lex.Allergens)
	return lex
}

func copyDish(d store.Dish) store.Dish {
	ids := make([]int64, len(d.IngredientIDs))
	copy(ids, d.IngredientIDs)
	d.IngredientIDs = ids
	d.ExtraAllergens = copyStrings(d.ExtraAllergens)
	d.ExtraAdditives = copyInts(d.ExtraAdditives)
	return d
}

func copySuggestion(sg suggest.Suggestion) suggest.Suggestion {
	cands := make([]suggest.Candidate, len(sg.Candidates))
	copy(cands, sg.Candidates)
	sg.Candidates = cands
	return sg
}
