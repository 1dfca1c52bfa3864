package event

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// MaxPayloadSize limits a hook payload read from stdin to 10 MiB.
const MaxPayloadSize = 10 * 1024 * 1024

// maxSampleKeys bounds the key list stored in a payload sample.
const maxSampleKeys = 32

// Payload is the loosely-shaped JSON object a host hands to a hook. Field
// names differ between host versions, so values are looked up through ranked
// alias lists rather than a fixed struct.
type Payload map[string]any

// Alias lists, highest rank first. A dotted name descends into nested objects.
var (
	sessionAliases = []string{"session_id", "sessionID", "sessionId", "session.id"}
	promptAliases  = []string{"prompt", "text", "message", "content", "user_prompt"}
	toolAliases    = []string{"tool_name", "toolName", "tool.name", "tool"}
	pathAliases    = []string{"file_path", "filePath", "path", "file", "notebook_path"}
	skillAliases   = []string{"skill", "skill_name", "name", "command"}

	// Containers searched for tool arguments after the top level.
	inputContainers = []string{"tool_input", "tool.input", "args", "input", "properties"}
)

// Decode reads one JSON object from r. Empty input yields an empty payload.
func Decode(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Payload{}, nil
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse payload JSON: %w", err)
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// SessionID returns the host session identifier.
func (p Payload) SessionID() (string, bool) {
	return p.first(sessionAliases)
}

// Prompt returns the submitted prompt text, untrimmed.
func (p Payload) Prompt() (string, bool) {
	return p.first(promptAliases)
}

// ToolName returns the name of the tool being invoked.
func (p Payload) ToolName() (string, bool) {
	return p.first(toolAliases)
}

// FilePath returns the single path an event names, looking at the top level
// first and then inside the tool argument containers.
func (p Payload) FilePath() (string, bool) {
	if v, ok := p.first(pathAliases); ok {
		return v, true
	}
	return p.fromInputs(pathAliases)
}

// SkillName returns the skill a skill-tool invocation names. Only the tool
// argument containers are consulted, so a top-level "name" is never mistaken
// for a skill.
func (p Payload) SkillName() (string, bool) {
	if v, ok := p.first([]string{"skill", "skill_name"}); ok {
		return v, true
	}
	return p.fromInputs(skillAliases)
}

// HookEventName returns the Claude Code hook_event_name, if present.
func (p Payload) HookEventName() (string, bool) {
	return p.first([]string{"hook_event_name", "hookEventName", "type", "event"})
}

// Cwd returns the working directory reported by the host.
func (p Payload) Cwd() (string, bool) {
	return p.first([]string{"cwd", "directory"})
}

// Keys returns the sorted top-level key names, capped for sampling.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxSampleKeys {
		keys = keys[:maxSampleKeys]
	}
	return keys
}

func (p Payload) fromInputs(aliases []string) (string, bool) {
	for _, c := range inputContainers {
		nested, ok := lookup(p, c).(map[string]any)
		if !ok {
			continue
		}
		if v, ok := Payload(nested).first(aliases); ok {
			return v, true
		}
	}
	return "", false
}

// first returns the first alias holding a non-blank string.
func (p Payload) first(aliases []string) (string, bool) {
	for _, a := range aliases {
		if s, ok := lookup(p, a).(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

func lookup(m map[string]any, dotted string) any {
	if v, ok := m[dotted]; ok {
		return v
	}
	head, rest, found := strings.Cut(dotted, ".")
	if !found {
		return nil
	}
	nested, ok := m[head].(map[string]any)
	if !ok {
		return nil
	}
	return lookup(nested, rest)
}
