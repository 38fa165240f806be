// Package suggest implements the low-coverage fallback: when rules cannot
// classify a text, candidate term→ingredient mappings are requested from an
// external LLM collaborator, held pending human review, and on approval
// promoted into the keyword lexicon.
package suggest

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/menulex/allergo/pkg/allergo/internalerr"
	"github.com/menulex/allergo/pkg/allergo/lexicon"
)

// Status is the review state of a suggestion.
type Status string

// Suggestion lifecycle states.
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Candidate is one ranked term proposal from the collaborator.
type Candidate struct {
	Term         string  `json:"term"`
	Score        float64 `json:"score"`
	IngredientID int64   `json:"mapped_ingredient_id,omitempty"`
}

// Suggestion is one low-confidence classification attempt. TextSnapshot
// keeps the exact text classified so a reviewer can reproduce the call;
// PromptHash deduplicates identical pending calls.
type Suggestion struct {
	ID           string
	DishID       int64
	Lang         string
	TextSnapshot string
	Candidates   []Candidate
	ModelName    string
	PromptHash   string
	Status       Status
	Notes        string
	ReviewedBy   string
	ReviewedAt   time.Time
	AppliedAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Collaborator calls the external LLM. Implementations must honor the
// context deadline and return an error for transport failures.
type Collaborator interface {
	SuggestTerms(ctx context.Context, model, prompt string) ([]Candidate, error)
}

// Store is the persistence surface the workflow needs.
type Store interface {
	PendingSuggestionByHash(ctx context.Context, hash string) (Suggestion, bool, error)
	GetSuggestion(ctx context.Context, id string) (Suggestion, bool, error)
	UpsertSuggestion(ctx context.Context, s Suggestion) error
	InsertLexeme(ctx context.Context, lex lexicon.Lexeme) (int64, error)
}

// Workflow drives suggestion creation, review and promotion.
type Workflow struct {
	Store        Store
	Collaborator Collaborator
	Model        string
	Timeout      time.Duration

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// DishRef identifies the dish a suggestion belongs to.
type DishRef struct {
	ID    int64
	Owner string
	Lang  string
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Workflow) timeout() time.Duration {
	if w.Timeout > 0 {
		return w.Timeout
	}
	return 10 * time.Second
}

// PromptHash computes the stable dedup hash of a (model, prompt) pair.
func PromptHash(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\n" + prompt))
	return hex.EncodeToString(sum[:])
}

// BuildPrompt assembles the collaborator prompt for a text snapshot.
func BuildPrompt(lang, snapshot string) string {
	return fmt.Sprintf(
		"Extract the food ingredient terms from the following %s menu text. "+
			"Reply with a JSON array of {\"term\", \"score\"} objects ranked by confidence.\n\n%s",
		lang, snapshot)
}

// Request runs the fallback for one dish. If a pending suggestion with the
// same prompt hash already exists it is returned without calling the
// collaborator again (cost control). On collaborator failure a retryable
// error is returned and no partial suggestion is persisted.
func (w *Workflow) Request(ctx context.Context, dish DishRef, snapshot string) (Suggestion, error) {
	if w.Store == nil || w.Collaborator == nil {
		return Suggestion{}, fmt.Errorf("suggest: store and collaborator required: %w", internalerr.ErrInvalidConfig)
	}

	prompt := BuildPrompt(dish.Lang, snapshot)
	hash := PromptHash(w.Model, prompt)

	if existing, ok, err := w.Store.PendingSuggestionByHash(ctx, hash); err != nil {
		return Suggestion{}, fmt.Errorf("suggest: pending lookup: %w", err)
	} else if ok {
		return existing, nil
	}

	// The call is bounded and completes before any write happens, so no
	// transaction is held open across it.
	callCtx, cancel := context.WithTimeout(ctx, w.timeout())
	defer cancel()

	candidates, err := w.Collaborator.SuggestTerms(callCtx, w.Model, prompt)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: collaborator: %v: %w", err, internalerr.ErrRetryable)
	}

	now := w.now()
	sugg := Suggestion{
		ID:           ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		DishID:       dish.ID,
		Lang:         dish.Lang,
		TextSnapshot: snapshot,
		Candidates:   candidates,
		ModelName:    w.Model,
		PromptHash:   hash,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := w.Store.UpsertSuggestion(ctx, sugg); err != nil {
		return Suggestion{}, fmt.Errorf("suggest: persist: %w", err)
	}
	return sugg, nil
}

// Review records a human decision. AcceptTerms selects which candidate
// terms to materialize on approval; an approved review with no accepted
// terms only stamps the status. Each accepted candidate becomes a new
// active KeywordLexeme for the dish owner, and AppliedAt is stamped once
// any lexeme was created.
func (w *Workflow) Review(ctx context.Context, id string, approve bool, reviewer string, dish DishRef, acceptTerms []string) (Suggestion, error) {
	if w.Store == nil {
		return Suggestion{}, fmt.Errorf("suggest: store required: %w", internalerr.ErrInvalidConfig)
	}

	sugg, ok, err := w.Store.GetSuggestion(ctx, id)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggest: load: %w", err)
	}
	if !ok {
		return Suggestion{}, fmt.Errorf("suggest: %s: %w", id, internalerr.ErrNotFound)
	}
	if sugg.Status != StatusPending {
		return Suggestion{}, fmt.Errorf("suggest: %s already %s: %w", id, sugg.Status, internalerr.ErrDuplicate)
	}

	now := w.now()
	sugg.ReviewedBy = reviewer
	sugg.ReviewedAt = now
	sugg.UpdatedAt = now

	if !approve {
		sugg.Status = StatusRejected
		if err := w.Store.UpsertSuggestion(ctx, sugg); err != nil {
			return Suggestion{}, fmt.Errorf("suggest: persist review: %w", err)
		}
		return sugg, nil
	}

	sugg.Status = StatusApproved
	accepted := make(map[string]struct{}, len(acceptTerms))
	for _, term := range acceptTerms {
		accepted[term] = struct{}{}
	}

	promoted := 0
	for _, cand := range sugg.Candidates {
		if _, ok := accepted[cand.Term]; !ok {
			continue
		}
		lex := lexicon.Lexeme{
			Owner:        dish.Owner,
			Lang:         sugg.Lang,
			Term:         cand.Term,
			Weight:       cand.Score,
			IsActive:     true,
			IngredientID: cand.IngredientID,
			Notes:        fmt.Sprintf("promoted from suggestion %s", sugg.ID),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := w.Store.InsertLexeme(ctx, lex); err != nil {
			return Suggestion{}, fmt.Errorf("suggest: promote %q: %w", cand.Term, err)
		}
		promoted++
	}
	if promoted > 0 {
		sugg.AppliedAt = now
	}

	if err := w.Store.UpsertSuggestion(ctx, sugg); err != nil {
		return Suggestion{}, fmt.Errorf("suggest: persist review: %w", err)
	}
	return sugg, nil
}

// IsRetryable reports whether an error from the workflow may be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, internalerr.ErrRetryable)
}
