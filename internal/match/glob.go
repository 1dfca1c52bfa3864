package match

import (
	"regexp"
	"strings"
)

// GlobToPattern translates a path glob into an anchored, case-insensitive
// regular expression:
//
//	**/   zero or more whole path segments
//	**    any remaining characters, including '/'
//	*     any run of characters except '/'
//
// Every other character is literal. Character classes and braces are not
// supported.
func GlobToPattern(glob string) string {
	var sb strings.Builder
	sb.WriteString("(?i)^")

	for i := 0; i < len(glob); {
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			sb.WriteString("(?:[^/]*/)*")
			i += 3
		case strings.HasPrefix(glob[i:], "**"):
			sb.WriteString(".*")
			i += 2
		case glob[i] == '*':
			sb.WriteString("[^/]*")
			i++
		default:
			j := i + 1
			for j < len(glob) && glob[j] != '*' {
				j++
			}
			sb.WriteString(regexp.QuoteMeta(glob[i:j]))
			i = j
		}
	}

	sb.WriteString("$")
	return sb.String()
}

// Glob reports whether the forward-slash path rel matches glob.
func Glob(glob, rel string) bool {
	return MatchString(GlobToPattern(glob), rel)
}

// GlobAny reports whether rel matches any of globs.
func GlobAny(globs []string, rel string) bool {
	for _, g := range globs {
		if Glob(g, rel) {
			return true
		}
	}
	return false
}
