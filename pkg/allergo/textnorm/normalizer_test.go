package textnorm

import (
	"strings"
	"testing"
)

func TestNormalizeLowercasesAndCollapses(t *testing.T) {
	res := Normalize("Frische   MILCH,  Sahne", DefaultProfile("de"))
	if res.Text != "frische milch sahne" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	in := "Käse-Spätzle mit Röstzwiebeln!"
	a := Normalize(in, DefaultProfile("de"))
	b := Normalize(in, DefaultProfile("de"))
	if a.Text != b.Text {
		t.Errorf("Normalize not deterministic: %q vs %q", a.Text, b.Text)
	}
}

func TestNormalizeFoldsDiacritics(t *testing.T) {
	res := Normalize("Käse über Crème", DefaultProfile("de"))
	if res.Text != "kase uber creme" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestNormalizeFoldsSharpS(t *testing.T) {
	res := Normalize("Nußallergie", DefaultProfile("de"))
	if res.Text != "nussallergie" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestOriginalSpanMapsBack(t *testing.T) {
	in := "With  MILK, please"
	res := Normalize(in, DefaultProfile("en"))

	idx := strings.Index(res.Text, "milk")
	if idx < 0 {
		t.Fatalf("normalized text %q missing token", res.Text)
	}
	start, end := res.OriginalSpan(idx, idx+len("milk"))
	if got := in[start:end]; got != "MILK" {
		t.Errorf("OriginalSpan cites %q, want %q", got, "MILK")
	}
}

func TestOriginalSpanClampsOutOfRange(t *testing.T) {
	res := Normalize("milk", DefaultProfile("en"))
	start, end := res.OriginalSpan(-3, 100)
	if start != 0 || end != len("milk") {
		t.Errorf("clamped span = [%d,%d)", start, end)
	}
}

func TestOriginalSpanEmptyInput(t *testing.T) {
	res := Normalize("", DefaultProfile("en"))
	start, end := res.OriginalSpan(0, 4)
	if start != 0 || end != 0 {
		t.Errorf("empty input span = [%d,%d)", start, end)
	}
}

func TestNormalizeTermMatchesTextFold(t *testing.T) {
	profile := DefaultProfile("de")
	term := NormalizeTerm("Milch", profile)
	res := Normalize("enthält MILCH.", profile)
	if !strings.Contains(res.Text, term) {
		t.Errorf("folded term %q not found in %q", term, res.Text)
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML("<p>Pasta with <b>milk</b> &amp; cream</p>")
	if got != "Pasta with milk & cream" {
		t.Errorf("StripHTML = %q", got)
	}
}

func TestStripHTMLPlainTextPassthrough(t *testing.T) {
	in := "plain text, no markup"
	if got := StripHTML(in); got != in {
		t.Errorf("StripHTML = %q", got)
	}
}

func TestContentTokens(t *testing.T) {
	if n := ContentTokens("contains milk no nuts"); n != 4 {
		t.Errorf("ContentTokens = %d", n)
	}
	if n := ContentTokens(""); n != 0 {
		t.Errorf("ContentTokens empty = %d", n)
	}
}
