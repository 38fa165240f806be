package explain

import "testing"

var legend = []Label{
	{Code: "A", LabelDE: "Glutenhaltiges Getreide", LabelEN: "Cereals containing gluten"},
	{Code: "G", LabelDE: "Milch (einschl. Laktose)", LabelEN: "Milk (incl. lactose)"},
	{Code: "K", LabelDE: "Sesam", LabelEN: "Sesame"},
}

func TestSentenceEmpty(t *testing.T) {
	if got := Sentence(nil, legend, LangDE); got != "" {
		t.Errorf("Zero codes should yield empty string, got %q", got)
	}
}

func TestSentenceSingle(t *testing.T) {
	got := Sentence([]string{"G"}, legend, LangDE)
	want := "Enthält Milch (einschl. Laktose)."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSentencePair(t *testing.T) {
	got := Sentence([]string{"A", "G"}, legend, LangDE)
	want := "Enthält Glutenhaltiges Getreide und Milch (einschl. Laktose)."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSentenceThreeOrMore(t *testing.T) {
	got := Sentence([]string{"A", "G", "K"}, legend, LangDE)
	want := "Enthält Glutenhaltiges Getreide, Milch (einschl. Laktose) und Sesam."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSentenceSortsByCode(t *testing.T) {
	got := Sentence([]string{"K", "A"}, legend, LangDE)
	want := "Enthält Glutenhaltiges Getreide und Sesam."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSentenceDropsUnknownCode(t *testing.T) {
	got := Sentence([]string{"G", "Z"}, legend, LangDE)
	want := "Enthält Milch (einschl. Laktose)."
	if got != want {
		t.Errorf("Unknown code should be dropped silently, got %q", got)
	}
}

func TestSentenceAllUnknown(t *testing.T) {
	if got := Sentence([]string{"Z"}, legend, LangDE); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestSentenceEnglish(t *testing.T) {
	got := Sentence([]string{"A", "G"}, legend, LangEN)
	want := "Contains Cereals containing gluten and Milk (incl. lactose)."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSentenceMissingLanguageLabelDropped(t *testing.T) {
	got := Sentence([]string{"K"}, legend, LangEN)
	want := "Contains Sesame."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	// K has no Arabic label; the code is dropped, leaving nothing.
	if got := Sentence([]string{"K"}, legend, LangAR); got != "" {
		t.Errorf("Code with empty label should be dropped, got %q", got)
	}
}
