package shared

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// TitleKey is the deduplication key of a release title: trimmed and Unicode case-folded.
//
// Nothing else is normalized, so "Abbey Road" and "Abbey Road (Remastered)" stay distinct.
func TitleKey(title string) string {
	return cases.Fold().String(strings.TrimSpace(title))
}

// MatchKey is the looser key used to compare catalog names with library folder names.
// It strips diacritics and punctuation, collapses whitespace and case-folds.
func MatchKey(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	for _, r := range s {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}

	s = punctRegex.ReplaceAllString(b.String(), " ")
	s = strings.ReplaceAll(s, "&", " and ")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return cases.Fold().String(strings.TrimSpace(s))
}

// ArtistKey is [MatchKey] with a leading article removed ("The Beatles" == "Beatles").
func ArtistKey(artist string) string {
	key := MatchKey(artist)
	if rest, ok := strings.CutPrefix(key, "the "); ok && rest != "" {
		return rest
	}
	return key
}
