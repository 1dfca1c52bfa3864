package normalize

import (
	"os"
	"path/filepath"
	"strings"
)

// NormalizedPath is an edited path resolved against a project root.
type NormalizedPath struct {
	Raw    string // as supplied by the host
	Abs    string // absolute, cleaned, OS separators
	Rel    string // project-relative with forward slashes; absolute slash form when outside
	Inside bool   // Abs lies within the project root
}

// Path resolves p against projectRoot. Relative paths are taken relative to
// the root, "~/" is expanded to the user's home directory.
func Path(projectRoot, p string) NormalizedPath {
	np := NormalizedPath{Raw: p}
	if p == "" {
		return np
	}

	homeDir, _ := os.UserHomeDir()
	np.Abs = expandPath(p, projectRoot, homeDir)

	root := filepath.Clean(projectRoot)
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	rel, err := filepath.Rel(root, np.Abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		np.Rel = filepath.ToSlash(np.Abs)
		return np
	}

	np.Inside = true
	np.Rel = filepath.ToSlash(rel)
	return np
}

// Rel is shorthand for Path(projectRoot, p).Rel.
func Rel(projectRoot, p string) string {
	return Path(projectRoot, p).Rel
}

func expandPath(path, cwd, homeDir string) string {
	if strings.HasPrefix(path, "~/") && homeDir != "" {
		path = filepath.Join(homeDir, path[2:])
	}

	path = filepath.FromSlash(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}

	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// UniqueStrings returns input without duplicates, keeping first occurrences.
func UniqueStrings(input []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(input))
	for _, s := range input {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
