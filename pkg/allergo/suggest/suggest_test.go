package suggest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/menulex/allergo/pkg/allergo/internalerr"
	"github.com/menulex/allergo/pkg/allergo/lexicon"
)

type fakeStore struct {
	suggestions map[string]Suggestion
	lexemes     []lexicon.Lexeme
	nextLexID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{suggestions: make(map[string]Suggestion), nextLexID: 1}
}

func (s *fakeStore) PendingSuggestionByHash(ctx context.Context, hash string) (Suggestion, bool, error) {
	for _, sg := range s.suggestions {
		if sg.PromptHash == hash && sg.Status == StatusPending {
			return sg, true, nil
		}
	}
	return Suggestion{}, false, nil
}

func (s *fakeStore) GetSuggestion(ctx context.Context, id string) (Suggestion, bool, error) {
	sg, ok := s.suggestions[id]
	return sg, ok, nil
}

func (s *fakeStore) UpsertSuggestion(ctx context.Context, sg Suggestion) error {
	s.suggestions[sg.ID] = sg
	return nil
}

func (s *fakeStore) InsertLexeme(ctx context.Context, lex lexicon.Lexeme) (int64, error) {
	lex.ID = s.nextLexID
	s.nextLexID++
	s.lexemes = append(s.lexemes, lex)
	return lex.ID, nil
}

type fakeCollaborator struct {
	candidates []Candidate
	err        error
	calls      int
}

func (c *fakeCollaborator) SuggestTerms(ctx context.Context, model, prompt string) ([]Candidate, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.candidates, nil
}

var dish = DishRef{ID: 42, Owner: "owner-7", Lang: "de"}

func workflow(store *fakeStore, collab *fakeCollaborator) *Workflow {
	return &Workflow{
		Store:        store,
		Collaborator: collab,
		Model:        "test-model",
		Timeout:      time.Second,
		Now:          func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestRequestPersistsPendingSuggestion(t *testing.T) {
	store := newFakeStore()
	collab := &fakeCollaborator{candidates: []Candidate{{Term: "safran", Score: 0.9}}}

	sugg, err := workflow(store, collab).Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if sugg.Status != StatusPending || sugg.DishID != 42 {
		t.Errorf("Suggestion = %+v", sugg)
	}
	if sugg.TextSnapshot != "Hausgemachte Safransauce" {
		t.Errorf("Snapshot = %q", sugg.TextSnapshot)
	}
	if sugg.PromptHash == "" || sugg.ID == "" {
		t.Error("Hash and ID must be set")
	}
	if len(store.suggestions) != 1 {
		t.Errorf("Stored %d suggestions", len(store.suggestions))
	}
}

func TestRequestDedupsByPendingHash(t *testing.T) {
	store := newFakeStore()
	collab := &fakeCollaborator{candidates: []Candidate{{Term: "safran", Score: 0.9}}}
	wf := workflow(store, collab)

	first, err := wf.Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err != nil {
		t.Fatal(err)
	}
	second, err := wf.Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err != nil {
		t.Fatal(err)
	}
	if collab.calls != 1 {
		t.Errorf("Collaborator called %d times, want 1", collab.calls)
	}
	if first.ID != second.ID {
		t.Errorf("Expected the existing suggestion, got %s vs %s", first.ID, second.ID)
	}
}

func TestRequestCollaboratorFailureLeavesNoState(t *testing.T) {
	store := newFakeStore()
	collab := &fakeCollaborator{err: errors.New("connection refused")}

	_, err := workflow(store, collab).Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("Collaborator failure should be retryable: %v", err)
	}
	if len(store.suggestions) != 0 {
		t.Errorf("No suggestion may be persisted on failure, got %d", len(store.suggestions))
	}
}

func TestReviewApprovalPromotesLexemes(t *testing.T) {
	store := newFakeStore()
	collab := &fakeCollaborator{candidates: []Candidate{
		{Term: "safran", Score: 0.9, IngredientID: 3},
		{Term: "sauce", Score: 0.2},
	}}
	wf := workflow(store, collab)

	sugg, err := wf.Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err != nil {
		t.Fatal(err)
	}

	reviewed, err := wf.Review(context.Background(), sugg.ID, true, "reviewer-1", dish, []string{"safran"})
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.Status != StatusApproved || reviewed.ReviewedBy != "reviewer-1" {
		t.Errorf("Reviewed = %+v", reviewed)
	}
	if reviewed.AppliedAt.IsZero() {
		t.Error("AppliedAt must be stamped after promotion")
	}
	if len(store.lexemes) != 1 {
		t.Fatalf("Expected 1 promoted lexeme, got %d", len(store.lexemes))
	}
	lex := store.lexemes[0]
	if lex.Owner != "owner-7" || lex.Term != "safran" || lex.IngredientID != 3 || !lex.IsActive {
		t.Errorf("Promoted lexeme = %+v", lex)
	}
}

func TestReviewRejectionLeavesLexiconUntouched(t *testing.T) {
	store := newFakeStore()
	collab := &fakeCollaborator{candidates: []Candidate{{Term: "safran", Score: 0.9}}}
	wf := workflow(store, collab)

	sugg, err := wf.Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err != nil {
		t.Fatal(err)
	}

	reviewed, err := wf.Review(context.Background(), sugg.ID, false, "reviewer-1", dish, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reviewed.Status != StatusRejected {
		t.Errorf("Status = %s", reviewed.Status)
	}
	if !reviewed.AppliedAt.IsZero() {
		t.Error("AppliedAt must stay zero on rejection")
	}
	if len(store.lexemes) != 0 {
		t.Errorf("Rejection must not touch the lexicon, got %d lexemes", len(store.lexemes))
	}
}

func TestReviewTwiceFails(t *testing.T) {
	store := newFakeStore()
	collab := &fakeCollaborator{candidates: []Candidate{{Term: "safran", Score: 0.9}}}
	wf := workflow(store, collab)

	sugg, err := wf.Request(context.Background(), dish, "Hausgemachte Safransauce")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wf.Review(context.Background(), sugg.ID, true, "reviewer-1", dish, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := wf.Review(context.Background(), sugg.ID, true, "reviewer-2", dish, nil); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("Second review should fail with ErrDuplicate, got %v", err)
	}
}

func TestReviewUnknownSuggestion(t *testing.T) {
	wf := workflow(newFakeStore(), &fakeCollaborator{})
	if _, err := wf.Review(context.Background(), "missing", true, "r", dish, nil); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPromptHashStable(t *testing.T) {
	a := PromptHash("m", "p")
	b := PromptHash("m", "p")
	if a != b {
		t.Error("Hash must be stable")
	}
	if a == PromptHash("m", "q") {
		t.Error("Different prompts must hash differently")
	}
}
