// Package textproc holds the text preprocessing shared by the mood classifier
// and the similarity vectorizer.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
)

// sectionMarkup matches bracketed section headers such as "[Chorus]" or
// "[Verse 2: Artist]" and parenthesised repeat marks such as "(x2)".
var sectionMarkup = regexp.MustCompile(`(?i)\[[^\]\n]*\]|\(\s*x\s*\d+\s*\)|\(\s*\d+\s*x\s*\)`)

// Words splits text into lowercase word tokens of at least two word
// characters (letters, digits or underscore). Apostrophes and other
// punctuation split words, so "don't" yields "don".
func Words(text string) []string {
	var (
		words []string
		b     strings.Builder
		n     int
	)
	flush := func() {
		if n >= 2 {
			words = append(words, b.String())
		}
		b.Reset()
		n = 0
	}
	for _, r := range text {
		if isWordRune(r) {
			b.WriteRune(unicode.ToLower(r))
			n++
			continue
		}
		flush()
	}
	flush()
	return words
}

// ContentWords is Words with English stop words removed.
func ContentWords(text string) []string {
	words := Words(text)
	out := words[:0]
	for _, w := range words {
		if !IsStopWord(w) {
			out = append(out, w)
		}
	}
	return out
}

// Process is the preprocessing pipeline applied to lyrics before they reach
// the classifier tokenizer: section markup is stripped, the text lowercased,
// punctuation removed (apostrophes inside words survive), stop words dropped
// and whitespace collapsed to single spaces.
func Process(lyrics string) string {
	text := sectionMarkup.ReplaceAllString(lyrics, " ")
	text = strings.ToLower(text)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r) && r != '\'' && r != '’'
	})

	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.ReplaceAll(f, "’", "'"), "'")
		if f == "" || IsStopWord(f) {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
