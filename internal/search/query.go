package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Query is a parsed search: every term must prefix-match some token of a
// todo's search vector.
type Query struct {
	// Terms are the normalised prefixes, ANDed together.
	Terms []string

	// Pending is set when the raw input ends in whitespace. The user is
	// still typing the next word, so the query matches nothing rather than
	// everything.
	Pending bool
}

// Parse converts raw user input into a Query.
//
// Examples:
//
//	Parse("buy")       // Terms: [buy]
//	Parse("Buy Milk")  // Terms: [buy milk]
//	Parse("buy ")      // Pending
//	Parse("")          // empty
func Parse(raw string) Query {
	if raw == "" {
		return Query{}
	}

	last, _ := utf8.DecodeLastRuneInString(raw)
	if unicode.IsSpace(last) {
		return Query{Pending: true}
	}

	var terms []string
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(raw) {
		for _, tok := range Tokens(field) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			terms = append(terms, tok)
		}
	}
	return Query{Terms: terms}
}

// Searchable reports whether the query should be sent to the store.
// Pending and empty queries yield an empty result set without a round trip.
func (q Query) Searchable() bool {
	return !q.Pending && len(q.Terms) > 0
}

// String renders the query in prefix-query notation, e.g. "buy:* & milk:*".
func (q Query) String() string {
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		parts[i] = t + ":*"
	}
	return strings.Join(parts, " & ")
}

// LikePatterns returns one SQL LIKE pattern per term. Each pattern matches a
// search vector (prefixed with a single space) that contains a token
// starting with the term. Wildcards inside the term are escaped with '\'.
func (q Query) LikePatterns() []string {
	patterns := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		patterns[i] = "% " + escapeLike(t) + "%"
	}
	return patterns
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
