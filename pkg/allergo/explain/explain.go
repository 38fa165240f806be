// Package explain renders allergen letter codes into a templated sentence
// using the legend's per-language labels.
package explain

import (
	"sort"
	"strings"
)

// Label carries the legend labels for one allergen code.
type Label struct {
	Code    string
	LabelDE string
	LabelEN string
	LabelAR string
}

// Lang selects the sentence language.
type Lang string

// Supported explanation languages.
const (
	LangDE Lang = "de"
	LangEN Lang = "en"
	LangAR Lang = "ar"
)

type template struct {
	prefix string
	pair   string // joiner between exactly two labels and before the last of three or more
}

var templates = map[Lang]template{
	LangDE: {prefix: "Enthält ", pair: " und "},
	LangEN: {prefix: "Contains ", pair: " and "},
	LangAR: {prefix: "يحتوي على ", pair: " و "},
}

// Sentence builds the explanation for a set of letter codes. Labels are
// resolved per code and sorted by code; codes with no matching label are
// silently dropped. No resolvable labels means an empty string, not a
// sentence.
func Sentence(letters []string, legend []Label, lang Lang) string {
	tpl, ok := templates[lang]
	if !ok {
		tpl = templates[LangDE]
	}

	byCode := make(map[string]Label, len(legend))
	for _, l := range legend {
		byCode[strings.ToUpper(l.Code)] = l
	}

	codes := append([]string(nil), letters...)
	sort.Strings(codes)

	seen := make(map[string]struct{}, len(codes))
	var labels []string
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		entry, ok := byCode[code]
		if !ok {
			continue
		}
		label := strings.TrimSpace(labelFor(entry, lang))
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		return ""
	}

	var body string
	switch len(labels) {
	case 1:
		body = labels[0]
	case 2:
		body = labels[0] + tpl.pair + labels[1]
	default:
		body = strings.Join(labels[:len(labels)-1], ", ") + tpl.pair + labels[len(labels)-1]
	}
	return tpl.prefix + body + "."
}

func labelFor(l Label, lang Lang) string {
	switch lang {
	case LangEN:
		return l.LabelEN
	case LangAR:
		return l.LabelAR
	default:
		return l.LabelDE
	}
}
