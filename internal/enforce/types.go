package enforce

import (
	"strings"

	"github.com/gzhole/skillguard/internal/rules"
)

// Output accumulates hint text for the host. A nil *Output discards hints.
type Output struct {
	Text string `json:"text"`
}

// Append adds s after any existing text, separated by a blank line.
func (o *Output) Append(s string) {
	if o == nil || s == "" {
		return
	}
	if o.Text == "" {
		o.Text = s
		return
	}
	o.Text += "\n\n" + s
}

// BlockError is returned when an enforced block-level rule matched. It is
// the only error handlers return.
type BlockError struct {
	Skills  []string
	Message string
}

func (e *BlockError) Error() string {
	return e.Message
}

// Match is one rule triggered by an event.
type Match struct {
	Skill string
	Rule  rules.SkillRule
}

func matchNames(ms []Match) []string {
	names := make([]string, len(ms))
	for i, m := range ms {
		names[i] = m.Skill
	}
	return names
}

func byLevel(ms []Match, level rules.Enforcement) []Match {
	var out []Match
	for _, m := range ms {
		if m.Rule.Level() == level {
			out = append(out, m)
		}
	}
	return out
}

// blockMessage joins the block templates of ms with {file_path} replaced by
// path, or names the skills when none has a template.
func blockMessage(ms []Match, path string) string {
	var parts []string
	for _, m := range ms {
		if m.Rule.BlockMessage != "" {
			parts = append(parts, strings.ReplaceAll(m.Rule.BlockMessage, "{file_path}", path))
		}
	}
	if len(parts) == 0 {
		return genericBlockMessage(ms)
	}
	return strings.Join(parts, "\n\n")
}

func genericBlockMessage(ms []Match) string {
	return "Blocked by guardrail: " + strings.Join(matchNames(ms), ", ")
}
