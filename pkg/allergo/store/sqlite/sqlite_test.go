package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/menulex/allergo/pkg/allergo/store"
	"github.com/menulex/allergo/pkg/allergo/suggest"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "allergo.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLegendRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertAllergen(ctx, store.Allergen{Code: "G", LabelDE: "Milch", LabelEN: "Milk"}); err != nil {
		t.Fatalf("UpsertAllergen failed: %v", err)
	}
	if err := s.UpsertAllergen(ctx, store.Allergen{Code: "A", LabelDE: "Gluten", LabelEN: "Gluten"}); err != nil {
		t.Fatalf("UpsertAllergen failed: %v", err)
	}
	// Update in place
	if err := s.UpsertAllergen(ctx, store.Allergen{Code: "G", LabelDE: "Milch", LabelEN: "Milk", LabelAR: "حليب"}); err != nil {
		t.Fatalf("UpsertAllergen update failed: %v", err)
	}

	allergens, err := s.ListAllergens(ctx)
	if err != nil {
		t.Fatalf("ListAllergens failed: %v", err)
	}
	if len(allergens) != 2 {
		t.Fatalf("expected 2 allergens, got %d", len(allergens))
	}
	if allergens[0].Code != "A" || allergens[1].Code != "G" {
		t.Errorf("expected codes ordered A, G; got %s, %s", allergens[0].Code, allergens[1].Code)
	}
	if allergens[1].LabelAR != "حليب" {
		t.Errorf("update did not apply, LabelAR = %q", allergens[1].LabelAR)
	}

	if err := s.UpsertAdditive(ctx, store.Additive{Number: 12, LabelDE: "geschwärzt"}); err != nil {
		t.Fatalf("UpsertAdditive failed: %v", err)
	}
	additives, err := s.ListAdditives(ctx)
	if err != nil {
		t.Fatalf("ListAdditives failed: %v", err)
	}
	if len(additives) != 1 || additives[0].Number != 12 {
		t.Fatalf("unexpected additives: %+v", additives)
	}
}

func TestIngredientUpsertByOwnerName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.UpsertIngredient(ctx, store.Ingredient{
		Owner:     "rest-1",
		Name:      "Butter",
		Allergens: []string{"G"},
	})
	if err != nil {
		t.Fatalf("UpsertIngredient failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero ingredient ID")
	}

	// Same (owner, name) keeps the same row
	id2, err := s.UpsertIngredient(ctx, store.Ingredient{
		Owner:     "rest-1",
		Name:      "Butter",
		Allergens: []string{"G"},
		Additives: []int{2},
	})
	if err != nil {
		t.Fatalf("second UpsertIngredient failed: %v", err)
	}
	if id2 != id {
		t.Errorf("expected upsert to reuse ID %d, got %d", id, id2)
	}

	ing, ok, err := s.GetIngredient(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetIngredient: ok=%v err=%v", ok, err)
	}
	if len(ing.Additives) != 1 || ing.Additives[0] != 2 {
		t.Errorf("additives not updated: %+v", ing.Additives)
	}

	byOwner, err := s.ListIngredientsByOwners(ctx, []string{"rest-1", "shared"})
	if err != nil {
		t.Fatalf("ListIngredientsByOwners failed: %v", err)
	}
	if len(byOwner) != 1 {
		t.Fatalf("expected 1 ingredient, got %d", len(byOwner))
	}
}

func TestLexemeInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	terms := []string{"milch", "sahne", "butter"}
	for _, term := range terms {
		if _, err := s.InsertLexeme(ctx, store.KeywordLexeme{
			Owner: "shared", Lang: "de", Term: term, Weight: 1, IsActive: true,
		}); err != nil {
			t.Fatalf("InsertLexeme(%q) failed: %v", term, err)
		}
	}

	lexemes, err := s.ListLexemes(ctx, []string{"shared"}, "de")
	if err != nil {
		t.Fatalf("ListLexemes failed: %v", err)
	}
	if len(lexemes) != len(terms) {
		t.Fatalf("expected %d lexemes, got %d", len(terms), len(lexemes))
	}
	for i, term := range terms {
		if lexemes[i].Term != term {
			t.Errorf("position %d: expected %q, got %q", i, term, lexemes[i].Term)
		}
	}

	// Language filter excludes other languages
	en, err := s.ListLexemes(ctx, []string{"shared"}, "en")
	if err != nil {
		t.Fatalf("ListLexemes(en) failed: %v", err)
	}
	if len(en) != 0 {
		t.Errorf("expected no English lexemes, got %d", len(en))
	}
}

func TestUpdateLexemeDeactivates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertLexeme(ctx, store.KeywordLexeme{
		Owner: "shared", Lang: "de", Term: "nuss", Weight: 1, IsActive: true,
	})
	if err != nil {
		t.Fatalf("InsertLexeme failed: %v", err)
	}

	lexemes, _ := s.ListLexemes(ctx, []string{"shared"}, "de")
	lex := lexemes[0]
	lex.IsActive = false
	if err := s.UpdateLexeme(ctx, lex); err != nil {
		t.Fatalf("UpdateLexeme failed: %v", err)
	}

	lexemes, _ = s.ListLexemes(ctx, []string{"shared"}, "de")
	if lexemes[0].ID != id || lexemes[0].IsActive {
		t.Errorf("expected lexeme %d deactivated, got %+v", id, lexemes[0])
	}
}

func TestCueRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertCue(ctx, store.NegationCue{
		Owner: "shared", Lang: "de", Cue: "ohne", WindowBefore: 0, WindowAfter: 40, IsActive: true,
	}); err != nil {
		t.Fatalf("InsertCue failed: %v", err)
	}

	cues, err := s.ListCues(ctx, []string{"shared"}, "de")
	if err != nil {
		t.Fatalf("ListCues failed: %v", err)
	}
	if len(cues) != 1 || cues[0].Cue != "ohne" || cues[0].WindowAfter != 40 {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestDishRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dish := store.Dish{
		ID:             7,
		Owner:          "rest-1",
		Lang:           "de",
		Name:           "Käsespätzle",
		Description:    "mit Bergkäse",
		IngredientIDs:  []int64{1, 2},
		ExtraAdditives: []int{12},
	}
	if err := s.UpsertDish(ctx, dish); err != nil {
		t.Fatalf("UpsertDish failed: %v", err)
	}

	dish.GeneratedCodes = "(A,G)"
	dish.DisplayCodes = "(A,G)"
	if err := s.UpsertDish(ctx, dish); err != nil {
		t.Fatalf("UpsertDish update failed: %v", err)
	}

	got, ok, err := s.GetDish(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("GetDish: ok=%v err=%v", ok, err)
	}
	if got.GeneratedCodes != "(A,G)" || got.Name != "Käsespätzle" {
		t.Errorf("unexpected dish: %+v", got)
	}
	if len(got.IngredientIDs) != 2 || got.IngredientIDs[1] != 2 {
		t.Errorf("ingredient IDs lost: %+v", got.IngredientIDs)
	}

	dishes, err := s.ListDishesByOwner(ctx, "rest-1")
	if err != nil {
		t.Fatalf("ListDishesByOwner failed: %v", err)
	}
	if len(dishes) != 1 {
		t.Fatalf("expected 1 dish, got %d", len(dishes))
	}

	if _, ok, _ := s.GetDish(ctx, 99); ok {
		t.Error("expected missing dish to report ok=false")
	}
}

func TestDishAllergenUpsertPreservesConfirmation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := store.DishAllergen{
		DishID: 7, Code: "G", Source: "rule-match",
		Confidence: 1, Rationale: "matched 'milch'",
		IsConfirmed: true, CreatedBy: "reviewer",
	}
	if err := s.UpsertDishAllergen(ctx, row); err != nil {
		t.Fatalf("UpsertDishAllergen failed: %v", err)
	}

	// Re-derivation updates confidence and rationale but must not clear
	// the reviewer's confirmation.
	row.Confidence = 0.5
	row.Rationale = "matched 'sahne'"
	row.IsConfirmed = false
	row.CreatedBy = ""
	if err := s.UpsertDishAllergen(ctx, row); err != nil {
		t.Fatalf("second UpsertDishAllergen failed: %v", err)
	}

	rows, err := s.ListDishAllergens(ctx, 7)
	if err != nil {
		t.Fatalf("ListDishAllergens failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(rows))
	}
	got := rows[0]
	if got.Confidence != 0.5 || got.Rationale != "matched 'sahne'" {
		t.Errorf("confidence/rationale not updated: %+v", got)
	}
	if !got.IsConfirmed || got.CreatedBy != "reviewer" {
		t.Errorf("confirmation metadata lost on upsert: %+v", got)
	}
}

func TestListDishAllergensBySource(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, row := range []store.DishAllergen{
		{DishID: 7, Code: "G", Source: "rule-match"},
		{DishID: 7, Code: "G", Source: "structured-ingredient"},
		{DishID: 7, Code: "A", Source: "manual"},
	} {
		if err := s.UpsertDishAllergen(ctx, row); err != nil {
			t.Fatalf("UpsertDishAllergen failed: %v", err)
		}
	}

	rules, err := s.ListDishAllergensBySource(ctx, 7, "rule-match")
	if err != nil {
		t.Fatalf("ListDishAllergensBySource failed: %v", err)
	}
	if len(rules) != 1 || rules[0].Code != "G" {
		t.Fatalf("unexpected rule rows: %+v", rules)
	}

	all, err := s.ListDishAllergens(ctx, 7)
	if err != nil {
		t.Fatalf("ListDishAllergens failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 audit rows, got %d", len(all))
	}
	if all[0].Code != "A" {
		t.Errorf("expected ordering by code, got %+v", all)
	}
}

func TestSuggestionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sg := suggest.Suggestion{
		ID:           "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		DishID:       7,
		Lang:         "de",
		TextSnapshot: "käsespätzle mit bergkäse",
		Candidates:   []suggest.Candidate{{Term: "bergkäse", Score: 0.9}},
		ModelName:    "gpt-4o-mini",
		PromptHash:   "abc123",
		Status:       suggest.StatusPending,
	}
	if err := s.UpsertSuggestion(ctx, sg); err != nil {
		t.Fatalf("UpsertSuggestion failed: %v", err)
	}

	got, ok, err := s.GetSuggestion(ctx, sg.ID)
	if err != nil || !ok {
		t.Fatalf("GetSuggestion: ok=%v err=%v", ok, err)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].Term != "bergkäse" {
		t.Errorf("candidates lost: %+v", got.Candidates)
	}

	pending, ok, err := s.PendingSuggestionByHash(ctx, "abc123")
	if err != nil || !ok {
		t.Fatalf("PendingSuggestionByHash: ok=%v err=%v", ok, err)
	}
	if pending.ID != sg.ID {
		t.Errorf("expected pending suggestion %s, got %s", sg.ID, pending.ID)
	}

	// A reviewed suggestion no longer matches the pending lookup
	sg.Status = suggest.StatusRejected
	if err := s.UpsertSuggestion(ctx, sg); err != nil {
		t.Fatalf("UpsertSuggestion update failed: %v", err)
	}
	if _, ok, _ := s.PendingSuggestionByHash(ctx, "abc123"); ok {
		t.Error("rejected suggestion still reported as pending")
	}

	byDish, err := s.ListSuggestionsByDish(ctx, 7)
	if err != nil {
		t.Fatalf("ListSuggestionsByDish failed: %v", err)
	}
	if len(byDish) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(byDish))
	}
}
