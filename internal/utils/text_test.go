package utils

import "testing"

func TestCleanText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "   ", expect: ""},
		{name: "separators become spaces", input: "Junior/Middle", expect: "junior middle"},
		{name: "collapses punctuation runs", input: "Lviv,,  Kyiv!", expect: "lviv kyiv"},
		{name: "strips accents", input: "Café Résumé", expect: "cafe resume"},
		{name: "keeps cyrillic letters", input: "Київ-Львів", expect: "київ львів"},
		{name: "keeps short i", input: "Йошкар-Ола", expect: "йошкар ола"},
		{name: "strips latin marks only", input: "Zürich Їжак", expect: "zurich їжак"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CleanText(tt.input); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestCleanTextKeepsDistinctCyrillicWords(t *testing.T) {
	t.Parallel()

	if CleanText("Йошкар") == CleanText("Иошкар") {
		t.Fatalf("expected й and и to stay distinct")
	}
	if CleanText("Їжак") == CleanText("Іжак") {
		t.Fatalf("expected ї and і to stay distinct")
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()

	got := Tokens("Go, PostgreSQL; k8s")
	want := []string{"go", "postgresql", "k8s"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
