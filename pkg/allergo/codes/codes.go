// Package codes implements the canonical encoding of allergen letter codes
// and additive numbers, and the compact display string shared with the
// surrounding menu application, e.g. "(A,G,K,12,34)".
package codes

import (
	"sort"
	"strconv"
	"strings"
)

// CanonicalLetters uppercases, deduplicates and alphabetically sorts a set
// of allergen letter codes. Tokens that are not a single A-Z letter are
// dropped silently.
func CanonicalLetters(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, raw := range in {
		tok := strings.ToUpper(strings.TrimSpace(raw))
		if len(tok) != 1 || tok[0] < 'A' || tok[0] > 'Z' {
			continue
		}
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// CanonicalNumbers deduplicates and numerically sorts additive numbers.
// Non-positive numbers are dropped.
func CanonicalNumbers(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	var out []int
	for _, n := range in {
		if n <= 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Display renders letters and additive numbers into the compact display
// form "(A,G,12,34)". Inputs are canonicalized first. An empty set renders
// as the empty string, not "()".
func Display(letters []string, numbers []int) string {
	letters = CanonicalLetters(letters)
	numbers = CanonicalNumbers(numbers)
	if len(letters) == 0 && len(numbers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(letters)+len(numbers))
	parts = append(parts, letters...)
	for _, n := range numbers {
		parts = append(parts, strconv.Itoa(n))
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Parse splits a display string back into letter codes and additive
// numbers. It accepts optional surrounding parentheses and ignores tokens
// that are neither a single letter nor a positive integer.
func Parse(display string) (letters []string, numbers []int) {
	for _, tok := range splitDisplay(display) {
		upper := strings.ToUpper(tok)
		if len(upper) == 1 && upper[0] >= 'A' && upper[0] <= 'Z' {
			letters = append(letters, upper)
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil && n > 0 {
			numbers = append(numbers, n)
		}
	}
	return CanonicalLetters(letters), CanonicalNumbers(numbers)
}

// ExtractLetters extracts only the allergen letter codes from a display
// string such as "A,G,K", "(A,G,K)" or "(A,G,K,12,34)". Additive numbers
// are ignored. Duplicates are removed preserving first occurrence; the
// original token order is kept, not re-sorted.
func ExtractLetters(display string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, tok := range splitDisplay(display) {
		upper := strings.ToUpper(tok)
		if len(upper) != 1 || upper[0] < 'A' || upper[0] > 'Z' {
			continue
		}
		if _, ok := seen[upper]; ok {
			continue
		}
		seen[upper] = struct{}{}
		out = append(out, upper)
	}
	return out
}

func splitDisplay(display string) []string {
	raw := strings.TrimSpace(display)
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		raw = raw[1 : len(raw)-1]
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
