package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Issue is a problem found in a rule file. The engine tolerates all of them;
// they are reported so authors can fix rules that silently never match.
type Issue struct {
	Skill   string
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Skill, i.Field, i.Message)
}

// Validate reports rule-authoring mistakes in lexical skill order.
func Validate(rs *SkillRules) []Issue {
	var issues []Issue
	for _, name := range rs.Names() {
		r := rs.Skills[name]
		add := func(field, format string, args ...any) {
			issues = append(issues, Issue{Skill: name, Field: field, Message: fmt.Sprintf(format, args...)})
		}

		if r.Enforcement != "" && Enforcement(strings.ToLower(string(r.Enforcement))) != r.Level() {
			add("enforcement", "unknown value %q, treated as suggest", r.Enforcement)
		}
		if r.Priority != "" && Priority(strings.ToLower(string(r.Priority))) != r.PriorityLevel() {
			add("priority", "unknown value %q, treated as low", r.Priority)
		}
		if !r.HasPromptTriggers() && !r.HasFileTriggers() {
			add("triggers", "no promptTriggers or fileTriggers; the skill never matches")
		}
		if r.Level() == EnforceSuggest && r.HasFileTriggers() && !r.HasPromptTriggers() {
			add("fileTriggers", "suggest-level skills are only evaluated against prompts")
		}
		if r.BlockMessage != "" && r.Level() != EnforceBlock {
			add("blockMessage", "set on a %s-level skill and never shown", r.Level())
		}
		if r.PromptTriggers != nil {
			for _, p := range r.PromptTriggers.IntentPatterns {
				if _, err := regexp.Compile("(?i)" + p); err != nil {
					add("promptTriggers.intentPatterns", "invalid regex %q: %v", p, err)
				}
			}
		}
		if r.FileTriggers != nil {
			for _, p := range r.FileTriggers.ContentPatterns {
				if _, err := regexp.Compile("(?i)" + p); err != nil {
					add("fileTriggers.contentPatterns", "invalid regex %q: %v", p, err)
				}
			}
		}
	}
	return issues
}
