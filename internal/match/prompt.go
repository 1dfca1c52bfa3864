package match

import (
	"strings"

	"github.com/gzhole/skillguard/internal/normalize"
	"github.com/gzhole/skillguard/internal/rules"
)

// Prompt reports whether text triggers t. Keywords are case-insensitive
// substrings; intent patterns are case-insensitive regular expressions.
// Invisible characters are stripped from text first. A nil t never matches.
func Prompt(text string, t *rules.PromptTriggers) bool {
	if t == nil || text == "" {
		return false
	}
	text = normalize.Text(text)

	lower := strings.ToLower(text)
	for _, kw := range t.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}

	for _, p := range t.IntentPatterns {
		if p != "" && MatchString("(?i)"+p, text) {
			return true
		}
	}
	return false
}
