package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Path returns the rule file for a project. skill-rules.json is preferred; a
// YAML sibling is used when only that exists.
func Path(projectRoot string) string {
	base := filepath.Join(projectRoot, ".claude", "skills")
	jsonPath := filepath.Join(base, "skill-rules.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	for _, name := range []string{"skill-rules.yaml", "skill-rules.yml"} {
		p := filepath.Join(base, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return jsonPath
}

// Load reads the rule file at path. Missing, unreadable or malformed files,
// and files without a skills section, all yield Empty(). Never fails.
func Load(path string) *SkillRules {
	rs, err := LoadStrict(path)
	if err != nil {
		return Empty()
	}
	return rs
}

// LoadStrict is Load but reports why a file was rejected. A missing file is
// not an error.
func LoadStrict(path string) (*SkillRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}

	rs, err := Parse(data, isYAMLFile(path))
	if err != nil {
		return nil, fmt.Errorf("parse rules %s: %w", path, err)
	}
	return rs, nil
}

// Parse decodes a rule document. JSON is the canonical format.
func Parse(data []byte, asYAML bool) (*SkillRules, error) {
	var rs SkillRules
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &rs)
	} else {
		err = json.Unmarshal(data, &rs)
	}
	if err != nil {
		return nil, err
	}

	if rs.Skills == nil {
		rs.Skills = map[string]SkillRule{}
	}
	if rs.Version == "" {
		rs.Version = "0"
	}
	return &rs, nil
}

func isYAMLFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// Cache memoizes loaded rule files on modification time and size, so a
// long-lived engine does not re-parse the file for every event.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	rules   *SkillRules
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Load returns the rules at path, re-reading only when the file changed.
func (c *Cache) Load(path string) *SkillRules {
	info, err := os.Stat(path)
	if err != nil {
		c.mu.Lock()
		delete(c.entries, path)
		c.mu.Unlock()
		return Empty()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		return e.rules
	}

	rs := Load(path)
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), rules: rs}
	return rs
}
