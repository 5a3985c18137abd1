// Package match validates fetched job rows against the task that
// produced them, using normalized, fuzzy string matching. It is a
// defense against noisy upstream full-text search: boards routinely
// return rows that mention none of the query terms.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldReplacer handles characters that do not decompose into a base
// letter plus combining mark under NFD (the transform chain below
// would leave them untouched).
var foldReplacer = strings.NewReplacer(
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ø", "o",
	"đ", "d",
	"ł", "l",
)

// foldTransformer strips combining marks after canonical decomposition,
// turning "zürich" into "zurich" and "café" into "cafe".
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stopWords are dropped during tokenization: articles, prepositions,
// and auxiliary verbs carry no matching signal.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "of": {}, "in": {}, "at": {}, "on": {},
	"for": {}, "to": {}, "with": {}, "by": {}, "from": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"am": {}, "do": {}, "does": {}, "did": {},
	"has": {}, "have": {}, "had": {},
	"will": {}, "would": {}, "can": {}, "could": {},
	"shall": {}, "should": {}, "may": {}, "might": {}, "must": {},
	"it": {}, "its": {}, "this": {}, "that": {},
	"we": {}, "you": {}, "your": {}, "our": {}, "their": {},
}

// Fold lowercases the input and folds common Latin diacritics to their
// base letters.
//
// Examples:
//
//	"Zürich"  → "zurich"
//	"Straße"  → "strasse"
//	"Café"    → "cafe"
func Fold(s string) string {
	s = strings.ToLower(s)
	s = foldReplacer.Replace(s)
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return folded
}

// Tokens splits the folded input on word boundaries and drops
// single-character tokens and stop words.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, tok := range fields {
		if len(tok) <= 1 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
