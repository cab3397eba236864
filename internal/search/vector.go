// Package search turns todo text into a searchable token vector and turns
// free-form user input into prefix queries against that vector.
//
// The same normalisation runs on both sides: the store calls Vector through
// the todo_search_vector SQL function whenever a todo's text is written, and
// Parse applies it to every search term, so "Café" typed by the user matches
// "cafe" stored in a todo and vice versa.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Vector returns the search representation of text: normalised, lower-cased
// tokens in their original order, duplicates removed, joined by one space.
//
// Vector is pure and deterministic; it is registered with SQLite as a
// deterministic function and must never depend on anything but its input.
func Vector(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens splits text into normalised tokens. Every rune that is neither a
// letter nor a digit separates tokens.
func Tokens(text string) []string {
	normalized := normalize(text)
	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// normalize folds diacritics and case. Transformers carry state, so a fresh
// chain is built per call.
func normalize(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return cases.Lower(language.Und).String(folded)
}
