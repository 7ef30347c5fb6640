// Package urlfeatures turns raw URL strings into the features consumed by the
// SafeLink classifier: a normalized URL, a token set, a Shannon entropy score
// and, for malicious verdicts, a human-readable threat report.
package urlfeatures

import (
	"regexp"
	"strings"
)

var (
	reScheme = regexp.MustCompile(`^(https?|ftp)://`)
	reWWW    = regexp.MustCompile(`^www\.`)
)

// Normalize strips a leading scheme, a leading "www." and a trailing slash.
// The pass is repeated until the string is stable, so Normalize(Normalize(u))
// always equals Normalize(u). An empty result means the URL is unusable.
func Normalize(raw string) string {
	url := raw
	for {
		next := normalizeOnce(url)
		if next == url {
			return next
		}
		url = next
	}
}

func normalizeOnce(url string) string {
	url = reScheme.ReplaceAllString(url, "")
	url = reWWW.ReplaceAllString(url, "")
	return strings.TrimSuffix(url, "/")
}
