package guardrails

import "strings"

// shamingPhrases triggers an immediate tone failure when present anywhere
// in the recommendation text. Maintained list; lower-case.
var shamingPhrases = []string{
	"you should be ashamed",
	"irresponsible",
	"reckless",
	"careless",
	"foolish",
	"lazy",
	"failure",
	"bad with money",
	"your fault",
	"wasteful",
	"stupid",
	"terrible with",
	"out of control",
}

// empoweringPhrases are the positive markers the keyword fallback looks
// for when the scoring provider is unavailable.
var empoweringPhrases = []string{
	"you can",
	"good place to start",
	"step",
	"progress",
	"momentum",
	"helps",
	"builds on",
	"fits how",
	"keep more",
	"protects you",
	"works for you",
	"toward",
}

// findShamingPhrase returns the first shaming phrase found in the text,
// or empty.
func findShamingPhrase(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range shamingPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return ""
}

// hasEmpoweringPhrase reports whether any positive marker is present.
func hasEmpoweringPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range empoweringPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
