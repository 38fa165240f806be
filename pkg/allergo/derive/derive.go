// Package derive combines structured ingredient links, surviving rule
// matches, manual overrides and ad-hoc extras into the final ordered code
// string, plus the audit rows that let a reviewer answer "why was code X
// attributed to this dish".
package derive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/menulex/allergo/pkg/allergo/codes"
	"github.com/menulex/allergo/pkg/allergo/lexicon"
	"github.com/menulex/allergo/pkg/allergo/match"
	"github.com/menulex/allergo/pkg/allergo/textnorm"
)

// Source identifies the tier a code was attributed from.
type Source string

// Attribution tiers, in audit terms.
const (
	SourceIngredient Source = "structured-ingredient"
	SourceRule       Source = "rule-match"
	SourceManual     Source = "manual"
	SourceExtra      Source = "extra"
)

// AuditRow is one (dish, code, source) attribution. Re-derivation upserts
// by that key, never duplicates.
type AuditRow struct {
	DishID     int64
	Code       string
	Source     Source
	Confidence float64
	Rationale  string
}

// Input is everything the engine needs for one dish. Norm must be the
// normalization result of the exact text the matches were scanned on.
type Input struct {
	DishID         int64
	Original       string
	Norm           textnorm.Result
	Ingredients    []lexicon.Ingredient
	Matches        []match.Span
	MatchedBy      func(id int64) (lexicon.Ingredient, bool)
	HasManualCodes bool
	ManualCodes    string
	ExtraAllergens []string
	ExtraAdditives []int
}

// Output is the derivation result for one dish.
type Output struct {
	GeneratedCodes string
	DisplayCodes   string
	Audit          []AuditRow

	// LowConfidence is set when non-trivial text produced no codes from
	// rules or structured ingredients, signalling the suggestion workflow.
	LowConfidence bool
}

// Thresholds controls the coverage check. MinCoverageTokens is the minimum
// number of content tokens for a text to count as non-trivial.
type Thresholds struct {
	MinCoverageTokens int
}

func (t Thresholds) orDefault() Thresholds {
	if t.MinCoverageTokens == 0 {
		t.MinCoverageTokens = 3
	}
	return t
}

// Derive applies the precedence policy. It is pure: running it twice on
// unchanged inputs yields byte-identical code strings and the same audit
// row set.
func Derive(in Input, th Thresholds) Output {
	th = th.orDefault()

	type attribution struct {
		confidence float64
		rationale  string
	}
	// keyed by (code, source); first attribution wins, matching upsert
	// semantics downstream
	attrs := make(map[[2]string]attribution)
	record := func(code string, src Source, conf float64, rationale string) {
		key := [2]string{code, string(src)}
		if _, ok := attrs[key]; !ok {
			attrs[key] = attribution{confidence: conf, rationale: rationale}
		}
	}

	var letters []string
	var numbers []int

	for _, ing := range in.Ingredients {
		for _, code := range codes.CanonicalLetters(ing.Allergens) {
			letters = append(letters, code)
			record(code, SourceIngredient, 1, fmt.Sprintf("linked ingredient %q", ing.Name))
		}
		numbers = append(numbers, ing.Additives...)
	}

	var ruleLetters []string
	for _, sp := range in.Matches {
		spanLetters := sp.Allergens
		rationale := matchRationale(in, sp)
		if sp.IngredientID != 0 && in.MatchedBy != nil {
			if ing, ok := in.MatchedBy(sp.IngredientID); ok {
				spanLetters = append(spanLetters, ing.Allergens...)
				numbers = append(numbers, ing.Additives...)
			}
		}
		for _, code := range codes.CanonicalLetters(spanLetters) {
			ruleLetters = append(ruleLetters, code)
			record(code, SourceRule, sp.Weight, rationale)
		}
	}
	letters = append(letters, ruleLetters...)

	for _, code := range codes.CanonicalLetters(in.ExtraAllergens) {
		letters = append(letters, code)
		record(code, SourceExtra, 1, "owner-added extra code")
	}
	numbers = append(numbers, in.ExtraAdditives...)

	out := Output{
		GeneratedCodes: codes.Display(letters, numbers),
	}

	manual := ""
	if in.HasManualCodes {
		manual = in.ManualCodes
	}
	out.DisplayCodes, _ = ResolveDisplaySource(manual, out.GeneratedCodes)
	if in.HasManualCodes {
		for _, code := range codes.ExtractLetters(in.ManualCodes) {
			record(code, SourceManual, 1, "manual override by owner")
		}
	}

	out.Audit = lo.Map(lo.Keys(attrs), func(key [2]string, _ int) AuditRow {
		a := attrs[key]
		return AuditRow{
			DishID:     in.DishID,
			Code:       key[0],
			Source:     Source(key[1]),
			Confidence: a.confidence,
			Rationale:  a.rationale,
		}
	})
	sortAudit(out.Audit)

	// Coverage check counts only evidence-derived codes; manual overrides
	// and extras do not make an unclassified text trustworthy.
	evidence := len(codes.CanonicalLetters(append(append([]string{}, ruleLetters...), ingredientLetters(in.Ingredients)...)))
	if evidence == 0 && textnorm.ContentTokens(in.Norm.Text) >= th.MinCoverageTokens {
		out.LowConfidence = true
	}

	return out
}

// ResolveDisplaySource picks the displayed value with an explicit ordered
// fallback: a non-empty manual override wins, otherwise generated codes.
// The returned Source names the chosen tier.
func ResolveDisplaySource(manual, generated string) (string, Source) {
	if m := strings.TrimSpace(manual); m != "" {
		return m, SourceManual
	}
	return generated, SourceRule
}

func matchRationale(in Input, sp match.Span) string {
	start, end := in.Norm.OriginalSpan(sp.Start, sp.End)
	cited := ""
	if start < end && end <= len(in.Original) {
		cited = in.Original[start:end]
	}
	if cited == "" {
		return fmt.Sprintf("matched term %q", sp.Term)
	}
	return fmt.Sprintf("matched term %q at [%d,%d) %q", sp.Term, start, end, cited)
}

func ingredientLetters(ings []lexicon.Ingredient) []string {
	var out []string
	for _, ing := range ings {
		out = append(out, ing.Allergens...)
	}
	return out
}

func sortAudit(rows []AuditRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Code != rows[j].Code {
			return rows[i].Code < rows[j].Code
		}
		return rows[i].Source < rows[j].Source
	})
}
