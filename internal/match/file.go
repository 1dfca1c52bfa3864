package match

import (
	"io"
	"os"

	"github.com/gzhole/skillguard/internal/normalize"
	"github.com/gzhole/skillguard/internal/rules"
)

// maxContentBytes bounds how much of a file content patterns see.
const maxContentBytes = 2 << 20

// FileTrigger reports whether editing path triggers rule. Exclusions win
// over everything; an empty include list matches every path; content
// patterns are only consulted after a path match. When the file cannot be
// read the match stands (fail open), so a guardrail is not disabled by a file
// that briefly vanished.
func FileTrigger(projectRoot, path string, rule rules.SkillRule) bool {
	ft := rule.FileTriggers
	if ft == nil || path == "" {
		return false
	}

	np := normalize.Path(projectRoot, path)

	if GlobAny(ft.PathExclusions, np.Rel) {
		return false
	}
	if len(ft.PathPatterns) > 0 && !GlobAny(ft.PathPatterns, np.Rel) {
		return false
	}
	if len(ft.ContentPatterns) == 0 {
		return true
	}

	content, err := ReadContent(np.Abs)
	if err != nil {
		return true
	}
	for _, p := range ft.ContentPatterns {
		if p != "" && MatchString("(?i)"+p, content) {
			return true
		}
	}
	return false
}

// ReadContent reads at most the first 2 MiB of the file at abs.
func ReadContent(abs string) (string, error) {
	f, err := os.Open(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxContentBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
