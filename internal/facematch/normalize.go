// Package facematch ranks candidates by descriptor similarity and normalizes
// free text for comparison. It is shared by the storage backends, the CLI
// and the web handlers.
package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
// Arabic harakat are nonspacing marks too, so "مُحَمَّد" becomes "محمد".
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeText folds s for case- and diacritic-insensitive comparison:
// no diacritics, lowercase, dashes as spaces, whitespace collapsed.
func NormalizeText(s string) string {
	s = RemoveDiacritics(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// ContainsFold reports whether needle occurs in haystack, either verbatim or
// after both are normalized. An empty needle always matches.
func ContainsFold(haystack, needle string) bool {
	if needle == "" || strings.Contains(haystack, needle) {
		return true
	}
	return strings.Contains(NormalizeText(haystack), NormalizeText(needle))
}
