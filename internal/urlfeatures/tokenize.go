package urlfeatures

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// commonTokens never carry signal. Comparison is case-insensitive.
var commonTokens = map[string]struct{}{
	"com": {}, "www": {}, "http": {}, "https": {}, "org": {}, "net": {},
	"io": {}, "co": {}, "uk": {}, "html": {}, "htm": {},
}

// Tokenize splits a normalized URL on '/', '-' and '.'. Both the '-' pieces
// and their '.' sub-pieces are kept, so "login.exe.ru" yields the whole piece
// as well as "login", "exe" and "ru". The result is lowercase, deduplicated,
// sorted, and free of stopwords and single-character tokens.
func Tokenize(url string) []string {
	seen := make(map[string]struct{})
	for _, segment := range strings.Split(url, "/") {
		for _, piece := range strings.Split(segment, "-") {
			addToken(seen, piece)
			for _, sub := range strings.Split(piece, ".") {
				addToken(seen, sub)
			}
		}
	}

	tokens := make([]string, 0, len(seen))
	for t := range seen {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

func addToken(seen map[string]struct{}, raw string) {
	t := strings.ToLower(raw)
	if utf8.RuneCountInString(t) <= 1 {
		return
	}
	if IsStopword(t) {
		return
	}
	seen[t] = struct{}{}
}

// IsStopword reports whether t is excluded from token sets.
func IsStopword(t string) bool {
	_, ok := commonTokens[strings.ToLower(t)]
	return ok
}
