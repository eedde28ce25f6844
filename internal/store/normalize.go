package store

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases and strips diacritics so a query like "quoc" matches
// "Quốc". Transformers are stateful, so build the chain per call.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// matchesQuery reports whether the folded name contains the folded query.
func matchesQuery(name, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(foldText(name), foldText(query))
}

// pageBounds clamps offset/limit pagination against a result of n records.
func pageBounds(n, offset, limit int) (int, int) {
	lo := offset
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi := n
	if limit > 0 && lo+limit < hi {
		hi = lo + limit
	}
	return lo, hi
}
