package rules

import (
	"sort"
	"strings"
)

// Enforcement is the severity of the engine's reaction to a match.
type Enforcement string

const (
	EnforceSuggest Enforcement = "suggest"
	EnforceWarn    Enforcement = "warn"
	EnforceBlock   Enforcement = "block"
)

// Priority only orders rendered output.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// SkillRules maps skill names to their rule. Loaded from one file per project.
type SkillRules struct {
	Version string               `json:"version" yaml:"version"`
	Skills  map[string]SkillRule `json:"skills" yaml:"skills"`
}

type SkillRule struct {
	Type           string          `json:"type,omitempty" yaml:"type,omitempty"`
	Description    string          `json:"description,omitempty" yaml:"description,omitempty"`
	Enforcement    Enforcement     `json:"enforcement,omitempty" yaml:"enforcement,omitempty"`
	Priority       Priority        `json:"priority,omitempty" yaml:"priority,omitempty"`
	PromptTriggers *PromptTriggers `json:"promptTriggers,omitempty" yaml:"promptTriggers,omitempty"`
	FileTriggers   *FileTriggers   `json:"fileTriggers,omitempty" yaml:"fileTriggers,omitempty"`
	BlockMessage   string          `json:"blockMessage,omitempty" yaml:"blockMessage,omitempty"`
	SkipConditions *SkipConditions `json:"skipConditions,omitempty" yaml:"skipConditions,omitempty"`
}

type PromptTriggers struct {
	Keywords       []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	IntentPatterns []string `json:"intentPatterns,omitempty" yaml:"intentPatterns,omitempty"`
}

// FileTriggers selects edited files. An empty PathPatterns list matches every
// path; an empty ContentPatterns list means the path match is sufficient.
type FileTriggers struct {
	PathPatterns    []string `json:"pathPatterns,omitempty" yaml:"pathPatterns,omitempty"`
	PathExclusions  []string `json:"pathExclusions,omitempty" yaml:"pathExclusions,omitempty"`
	ContentPatterns []string `json:"contentPatterns,omitempty" yaml:"contentPatterns,omitempty"`
}

// SkipConditions gate block-level matches only.
type SkipConditions struct {
	SessionSkillUsed bool     `json:"sessionSkillUsed,omitempty" yaml:"sessionSkillUsed,omitempty"`
	FileMarkers      []string `json:"fileMarkers,omitempty" yaml:"fileMarkers,omitempty"`
	EnvOverride      string   `json:"envOverride,omitempty" yaml:"envOverride,omitempty"`
}

// Empty returns the canonical rule set with no skills.
func Empty() *SkillRules {
	return &SkillRules{Version: "0", Skills: map[string]SkillRule{}}
}

// Level returns the rule's enforcement, defaulting unknown values to suggest.
func (r SkillRule) Level() Enforcement {
	switch Enforcement(strings.ToLower(string(r.Enforcement))) {
	case EnforceWarn:
		return EnforceWarn
	case EnforceBlock:
		return EnforceBlock
	default:
		return EnforceSuggest
	}
}

// Rank orders priorities: critical sorts first.
func (r SkillRule) Rank() int {
	switch Priority(strings.ToLower(string(r.Priority))) {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// PriorityLevel returns the normalized priority, defaulting to low.
func (r SkillRule) PriorityLevel() Priority {
	return [...]Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}[r.Rank()]
}

func (r SkillRule) HasPromptTriggers() bool {
	return r.PromptTriggers != nil &&
		(len(r.PromptTriggers.Keywords) > 0 || len(r.PromptTriggers.IntentPatterns) > 0)
}

func (r SkillRule) HasFileTriggers() bool {
	return r.FileTriggers != nil
}

// Names returns skill names in lexical order.
func (rs *SkillRules) Names() []string {
	names := make([]string, 0, len(rs.Skills))
	for name := range rs.Skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of skills.
func (rs *SkillRules) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Skills)
}
