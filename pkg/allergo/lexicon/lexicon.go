// Package lexicon holds the rule dictionary the matcher runs against:
// keyword lexemes (term → ingredient/allergen evidence) and negation cues
// (phrases that suppress nearby matches).
//
// Design principles:
// - Two explicit tiers: owner-scoped entries plus a named shared tier;
//   owner entries win on exact term collision.
// - Explainable: every resolved entry keeps its source lexeme so audit
//   rationale can cite the matched rule.
// - Append/soft-disable only: lexemes are deactivated via IsActive, never
//   removed, to preserve audit history.
package lexicon

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/menulex/allergo/pkg/allergo/textnorm"
)

// Lexeme is a single rule entry. A lexeme maps text evidence to either an
// ingredient (whose allergens and additives are inherited) or directly to
// allergen codes, or both.
type Lexeme struct {
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

// Cue is a negation phrase. Any match whose span falls inside
// [cue start - WindowBefore, cue end + WindowAfter] is suppressed.
// Windows are byte distances in normalized text.
type Cue struct {
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

// Ingredient is the structured side of the lexicon: a named ingredient with
// its allergen codes, additive numbers and synonym terms.
type Ingredient struct {
	ID        int64
	Owner     string
	Name      string
	Allergens []string
	Additives []int
	Synonyms  []string
}

// Tiers names the two lookup tiers. Shared is the identity of the global
// fallback owner; it is explicit configuration, not a magic sentinel.
type Tiers struct {
	Owner  string
	Shared string
}

// Entry is one matchable term after tier resolution and synonym expansion.
// Several entries can point at the same lexeme (one per synonym).
type Entry struct {
	Lexeme  Lexeme
	Term    string // normalized
	IsRegex bool
	Order   int // insertion order, the stable tie-break
}

// Resolver is a resolved lexicon snapshot for one (owner, lang) pair.
// It is immutable after construction, so a batch can safely share one
// snapshot across dishes.
type Resolver struct {
	tiers       Tiers
	lang        string
	entries     []Entry
	cues        []Cue
	ingredients map[int64]Ingredient
}

// NewResolver resolves the applicable rule set: active lexemes and cues for
// (tiers.Owner, lang) union the shared tier, with owner entries taking
// precedence on exact normalized-term collision. Ingredient synonyms become
// additional literal entries pointing at the same lexeme.
func NewResolver(tiers Tiers, lang string, lexemes []Lexeme, cues []Cue, ingredients []Ingredient, profile textnorm.Profile) *Resolver {
	r := &Resolver{
		tiers:       tiers,
		lang:        lang,
		ingredients: make(map[int64]Ingredient, len(ingredients)),
	}
	for _, ing := range ingredients {
		r.ingredients[ing.ID] = ing
	}

	// Owner-tier terms shadow shared-tier terms with the same normalized term.
	ownerTerms := make(map[string]struct{})
	for _, lex := range lexemes {
		if lex.Owner == tiers.Owner && lex.IsActive && lex.Lang == lang {
			ownerTerms[textnorm.NormalizeTerm(lex.Term, profile)] = struct{}{}
		}
	}

	order := 0
	add := func(lex Lexeme, term string, isRegex bool) {
		r.entries = append(r.entries, Entry{Lexeme: lex, Term: term, IsRegex: isRegex, Order: order})
		order++
	}

	for _, lex := range lexemes {
		if !lex.IsActive || lex.Lang != lang {
			continue
		}
		if lex.Owner != tiers.Owner && lex.Owner != tiers.Shared {
			continue
		}
		term := lex.Term
		if !lex.IsRegex {
			term = textnorm.NormalizeTerm(lex.Term, profile)
			if term == "" {
				continue
			}
			if lex.Owner == tiers.Shared && lex.Owner != tiers.Owner {
				if _, shadowed := ownerTerms[term]; shadowed {
					continue
				}
			}
		}
		add(lex, term, lex.IsRegex)

		if lex.IngredientID == 0 {
			continue
		}
		ing, ok := r.ingredients[lex.IngredientID]
		if !ok {
			continue
		}
		for _, syn := range ing.Synonyms {
			normalized := textnorm.NormalizeTerm(syn, profile)
			if normalized == "" || normalized == term {
				continue
			}
			add(lex, normalized, false)
		}
	}

	for _, cue := range cues {
		if !cue.IsActive || cue.Lang != lang {
			continue
		}
		if cue.Owner != tiers.Owner && cue.Owner != tiers.Shared {
			continue
		}
		c := cue
		if !c.IsRegex {
			c.Cue = textnorm.NormalizeTerm(c.Cue, profile)
			if c.Cue == "" {
				continue
			}
		}
		r.cues = append(r.cues, c)
	}

	return r
}

// Entries returns the resolved, synonym-expanded entries in insertion order.
func (r *Resolver) Entries() []Entry { return r.entries }

// Cues returns the resolved active negation cues.
func (r *Resolver) Cues() []Cue { return r.cues }

// Ingredient looks up an ingredient referenced by a lexeme.
func (r *Resolver) Ingredient(id int64) (Ingredient, bool) {
	ing, ok := r.ingredients[id]
	return ing, ok
}

// Lang returns the language this snapshot was resolved for.
func (r *Resolver) Lang() string { return r.lang }

// Seed is the YAML representation of a lexicon seed file.
//
// Expected format:
//
//	lexemes:
//	  - owner: shared
//	    lang: de
//	    term: milch
//	    allergens: [G]
//	cues:
//	  - owner: shared
//	    lang: de
//	    cue: ohne
//	    window_after: 24
type Seed struct {
	Lexemes []SeedLexeme `yaml:"lexemes"`
	Cues    []SeedCue    `yaml:"cues"`
}

// SeedLexeme is one lexeme entry in a seed file.
type SeedLexeme struct {
	Owner        string   `yaml:"owner"`
	Lang         string   `yaml:"lang"`
	Term         string   `yaml:"term"`
	IsRegex      bool     `yaml:"is_regex"`
	Weight       float64  `yaml:"weight"`
	IngredientID int64    `yaml:"ingredient_id"`
	Allergens    []string `yaml:"allergens"`
	Notes        string   `yaml:"notes"`
}

// SeedCue is one negation cue entry in a seed file.
type SeedCue struct {
	Owner        string `yaml:"owner"`
	Lang         string `yaml:"lang"`
	Cue          string `yaml:"cue"`
	IsRegex      bool   `yaml:"is_regex"`
	WindowBefore int    `yaml:"window_before"`
	WindowAfter  int    `yaml:"window_after"`
	Notes        string `yaml:"notes"`
}

// LoadSeed loads lexemes and cues from a YAML seed file. Entries are
// returned active with a default weight of 1 when unset.
func LoadSeed(path string) ([]Lexeme, []Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, nil, err
	}

	lexemes := make([]Lexeme, 0, len(seed.Lexemes))
	for _, sl := range seed.Lexemes {
		weight := sl.Weight
		if weight == 0 {
			weight = 1
		}
		lexemes = append(lexemes, Lexeme{
			Owner:        sl.Owner,
			Lang:         sl.Lang,
			Term:         sl.Term,
			IsRegex:      sl.IsRegex,
			Weight:       weight,
			IsActive:     true,
			IngredientID: sl.IngredientID,
			Allergens:    sl.Allergens,
			Notes:        sl.Notes,
		})
	}

	cues := make([]Cue, 0, len(seed.Cues))
	for _, sc := range seed.Cues {
		cues = append(cues, Cue{
			Owner:        sc.Owner,
			Lang:         sc.Lang,
			Cue:          sc.Cue,
			IsRegex:      sc.IsRegex,
			WindowBefore: sc.WindowBefore,
			WindowAfter:  sc.WindowAfter,
			IsActive:     true,
			Notes:        sc.Notes,
		})
	}

	return lexemes, cues, nil
}
