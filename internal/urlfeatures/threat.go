package urlfeatures

import (
	"fmt"
	"sort"
)

const (
	// MaliciousLabel is the only classifier label that produces a report.
	MaliciousLabel = "bad"

	// HighEntropyThreshold is the entropy above which a URL is reported as random.
	HighEntropyThreshold = 4.0

	genericReason = "Matches a general malicious URL pattern."
)

var highRiskTokens = map[string]struct{}{
	"exe": {}, "php": {}, "install": {}, "toolbar": {}, "crack": {},
	"spider": {}, "lucky": {}, "admin": {}, "login": {}, "secure": {},
	"account": {}, "password": {}, "key": {}, "download": {}, "free": {},
	"gift": {}, "prize": {}, "winner": {}, "click": {},
}

// IsHighRisk reports whether token is on the high-risk list.
func IsHighRisk(token string) bool {
	_, ok := highRiskTokens[token]
	return ok
}

// ThreatReport explains a verdict. It is empty unless label is "bad", and
// never empty when it is.
func ThreatReport(tokens []string, entropy float64, label string) []string {
	if label != MaliciousLabel {
		return []string{}
	}

	sorted := append([]string(nil), tokens...)
	sort.Strings(sorted)

	report := []string{}
	for _, t := range sorted {
		if IsHighRisk(t) {
			report = append(report, fmt.Sprintf("Contains suspicious token: '%s'", t))
		}
	}
	if entropy > HighEntropyThreshold {
		report = append(report, fmt.Sprintf("High randomness score: %.2f", entropy))
	}
	if len(report) == 0 {
		report = append(report, genericReason)
	}
	return report
}
