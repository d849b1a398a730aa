package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText lower-cases s, strips accents from Latin letters and replaces
// every run of non-alphanumeric characters with a single space.
// "Junior/Middle" becomes "junior middle". Marks on other scripts are kept:
// й and и are different Cyrillic letters.
func CleanText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	folded := norm.NFC.String(stripLatinMarks(norm.NFD.String(s)))

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}

	return strings.TrimSpace(b.String())
}

// stripLatinMarks drops nonspacing marks that follow a Latin base letter in
// decomposed text.
func stripLatinMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	latin := false
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			if !latin {
				b.WriteRune(r)
			}
			continue
		}
		latin = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}
	return b.String()
}

// Tokens splits cleaned text into words.
func Tokens(s string) []string {
	return strings.Fields(CleanText(s))
}
