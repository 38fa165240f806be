// Package textnorm normalizes free-text dish descriptions into a matchable
// form while keeping an offset map back to the input, so negation windows
// and audit rationale can cite the original text.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Profile controls language-specific normalization. Strip lists the
// punctuation runes replaced by whitespace; everything else that is neither
// a letter, a digit nor whitespace is kept verbatim so regex lexemes can
// still anchor on it.
type Profile struct {
	Lang  string
	Strip string
}

// DefaultProfile returns the normalization profile for a language tag.
// Unknown languages fall back to the shared default set.
func DefaultProfile(lang string) Profile {
	return Profile{Lang: lang, Strip: `.,;:!?"'` + "`" + `()[]{}/\*`}
}

// Result is a normalized text plus the byte-offset map back to the input.
type Result struct {
	Text string

	// offsets[i] is the byte index in the original input of the rune that
	// produced byte i of Text.
	offsets []int
}

// OriginalSpan maps a [start,end) byte span of the normalized text back to
// the corresponding span in the original input. Out-of-range spans are
// clamped; an empty Result maps everything to [0,0).
func (r Result) OriginalSpan(start, end int) (int, int) {
	if len(r.offsets) == 0 || start >= end {
		return 0, 0
	}
	if start < 0 {
		start = 0
	}
	if end > len(r.offsets) {
		end = len(r.offsets)
	}
	return r.offsets[start], r.offsets[end-1] + 1
}

// diacriticFold maps common Latin diacritics to their base form. Folding is
// applied to both lexicon terms and dish text, so matching stays consistent
// even though the fold is lossy.
var diacriticFold = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
	'ç': "c", 'ñ': "n", 'ý': "y",
	'ß': "ss",
}

// Normalize case-folds, folds diacritics, replaces the profile's punctuation
// with whitespace and collapses whitespace runs into single spaces. It is
// deterministic and pure; calling it twice on the same input yields the same
// Result.
func Normalize(text string, profile Profile) Result {
	var out strings.Builder
	offsets := make([]int, 0, len(text))

	pendingSpace := false
	wrote := false

	write := func(s string, origIdx int) {
		if pendingSpace && wrote {
			out.WriteByte(' ')
			offsets = append(offsets, origIdx)
		}
		pendingSpace = false
		wrote = true
		out.WriteString(s)
		for range []byte(s) {
			offsets = append(offsets, origIdx)
		}
	}

	for idx, r := range text {
		switch {
		case unicode.IsSpace(r) || strings.ContainsRune(profile.Strip, r):
			pendingSpace = true
		default:
			lower := unicode.ToLower(r)
			if folded, ok := diacriticFold[lower]; ok {
				write(folded, idx)
			} else {
				write(string(lower), idx)
			}
		}
	}

	return Result{Text: out.String(), offsets: offsets}
}

// NormalizeTerm folds a lexicon term the same way dish text is folded, so
// literal terms compare against normalized text.
func NormalizeTerm(term string, profile Profile) string {
	return Normalize(term, profile).Text
}

// ContentTokens counts whitespace-separated tokens in a normalized text.
// Used by the derivation engine's coverage check.
func ContentTokens(normalized string) int {
	return len(strings.Fields(normalized))
}

// StripHTML extracts the text content of a markup fragment. Dish
// descriptions come from a web editor and may carry tags; stripping happens
// before Normalize so offsets refer to the plain text actually classified.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		// Fallback to string if parsing fails
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
