// Package match scans normalized dish text for lexicon hits and suppresses
// hits that fall inside a negation cue's window. Scanning is pure and
// side-effect-free; it performs no writes.
package match

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menulex/allergo/pkg/allergo/lexicon"
)

// Span is one surviving match in normalized-text byte offsets.
type Span struct {
	LexemeID     int64
	Term         string
	Start        int
	End          int
	Allergens    []string
	IngredientID int64
	Weight       float64
}

// Result holds surviving spans plus warnings about skipped rules, so an
// admin can clean up malformed lexicon entries.
type Result struct {
	Spans    []Span
	Warnings []string
}

// Scanner runs a resolved lexicon snapshot against normalized text.
// A nil logger disables logging; warnings are still returned.
type Scanner struct {
	log *logrus.Logger
}

// NewScanner creates a scanner. log may be nil.
func NewScanner(log *logrus.Logger) *Scanner {
	return &Scanner{log: log}
}

type candidate struct {
	span  Span
	order int
}

// Scan finds lexeme occurrences in normalized text, resolves overlaps
// (longer span wins, ties broken by lexeme insertion order) and suppresses
// matches inside negation windows. An empty lexicon yields an empty result,
// not an error. A malformed regex skips that entry and continues.
func (s *Scanner) Scan(text string, res *lexicon.Resolver) Result {
	var out Result
	if text == "" || res == nil {
		return out
	}

	var candidates []candidate
	for _, entry := range res.Entries() {
		spans, warn := s.occurrences(text, entry.Term, entry.IsRegex)
		if warn != "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("lexeme %d: %s", entry.Lexeme.ID, warn))
			s.warnf("skipping lexeme %d (%q): %s", entry.Lexeme.ID, entry.Lexeme.Term, warn)
			continue
		}
		for _, pos := range spans {
			candidates = append(candidates, candidate{
				span: Span{
					LexemeID:     entry.Lexeme.ID,
					Term:         text[pos[0]:pos[1]],
					Start:        pos[0],
					End:          pos[1],
					Allergens:    entry.Lexeme.Allergens,
					IngredientID: entry.Lexeme.IngredientID,
					Weight:       entry.Lexeme.Weight,
				},
				order: entry.Order,
			})
		}
	}
	if len(candidates) == 0 {
		return out
	}

	accepted := resolveOverlaps(candidates)
	accepted = s.suppressNegated(text, accepted, res, &out)

	sort.Slice(accepted, func(i, j int) bool { return accepted[i].Start < accepted[j].Start })
	out.Spans = accepted
	return out
}

// occurrences finds all disjoint byte spans of term in text. Literal terms
// match on token boundaries so "ei" does not fire inside "reis".
func (s *Scanner) occurrences(text, term string, isRegex bool) ([][2]int, string) {
	if isRegex {
		re, err := regexp.Compile(term)
		if err != nil {
			return nil, fmt.Sprintf("invalid pattern: %v", err)
		}
		raw := re.FindAllStringIndex(text, -1)
		spans := make([][2]int, 0, len(raw))
		for _, m := range raw {
			if m[0] < m[1] {
				spans = append(spans, [2]int{m[0], m[1]})
			}
		}
		return spans, ""
	}

	if term == "" {
		return nil, ""
	}
	var spans [][2]int
	for from := 0; ; {
		idx := strings.Index(text[from:], term)
		if idx < 0 {
			break
		}
		start := from + idx
		end := start + len(term)
		if boundedAt(text, start, end) {
			spans = append(spans, [2]int{start, end})
		}
		from = end
	}
	return spans, ""
}

// boundedAt reports whether [start,end) sits on token boundaries.
func boundedAt(text string, start, end int) bool {
	if start > 0 && text[start-1] != ' ' {
		return false
	}
	if end < len(text) && text[end] != ' ' {
		return false
	}
	return true
}

// resolveOverlaps keeps non-overlapping spans, preferring longer spans;
// ties go to the earlier-inserted lexeme (stable).
func resolveOverlaps(candidates []candidate) []Span {
	sort.SliceStable(candidates, func(i, j int) bool {
		li := candidates[i].span.End - candidates[i].span.Start
		lj := candidates[j].span.End - candidates[j].span.Start
		if li != lj {
			return li > lj
		}
		if candidates[i].order != candidates[j].order {
			return candidates[i].order < candidates[j].order
		}
		return candidates[i].span.Start < candidates[j].span.Start
	})

	var accepted []Span
	for _, c := range candidates {
		overlaps := false
		for _, a := range accepted {
			if c.span.Start < a.End && a.Start < c.span.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, c.span)
		}
	}
	return accepted
}

// suppressNegated removes spans intersecting any active cue window.
func (s *Scanner) suppressNegated(text string, spans []Span, res *lexicon.Resolver, out *Result) []Span {
	type window struct{ start, end int }
	var windows []window

	for _, cue := range res.Cues() {
		occ, warn := s.occurrences(text, cue.Cue, cue.IsRegex)
		if warn != "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("cue %d: %s", cue.ID, warn))
			s.warnf("skipping cue %d (%q): %s", cue.ID, cue.Cue, warn)
			continue
		}
		for _, pos := range occ {
			start := pos[0] - cue.WindowBefore
			if start < 0 {
				start = 0
			}
			windows = append(windows, window{start: start, end: pos[1] + cue.WindowAfter})
		}
	}
	if len(windows) == 0 {
		return spans
	}

	surviving := spans[:0]
	for _, sp := range spans {
		negated := false
		for _, w := range windows {
			if sp.Start < w.end && w.start < sp.End {
				negated = true
				break
			}
		}
		if !negated {
			surviving = append(surviving, sp)
		}
	}
	return surviving
}

func (s *Scanner) warnf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Warnf(format, args...)
	}
}
