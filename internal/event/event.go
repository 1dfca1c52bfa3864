// Package event turns raw host payloads into typed events.
package event

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultSession is used when a payload carries no session identifier.
	DefaultSession = "default"
)

var (
	ErrUnknownKind = errors.New("unknown event kind")
	ErrNoSession   = errors.New("session id is empty")

	ErrSessionIDInvalid = errors.New("session id contains a path separator or NUL")
)

// Kind identifies one of the five events the engine handles.
type Kind string

const (
	KindPromptSubmit Kind = "prompt-submit"
	KindToolBefore   Kind = "tool-before"
	KindToolAfter    Kind = "tool-after"
	KindFileEdited   Kind = "file-edited"
	KindSessionIdle  Kind = "session-idle"
)

// Kinds lists every kind in dispatch order.
var Kinds = []Kind{KindPromptSubmit, KindToolBefore, KindToolAfter, KindFileEdited, KindSessionIdle}

var eventNames = map[Kind]string{
	KindPromptSubmit: "tui.prompt.append",
	KindToolBefore:   "tool.execute.before",
	KindToolAfter:    "tool.execute.after",
	KindFileEdited:   "file.edited",
	KindSessionIdle:  "session.idle",
}

// Claude Code hook_event_name values.
var hookNames = map[string]Kind{
	"userpromptsubmit": KindPromptSubmit,
	"pretooluse":       KindToolBefore,
	"posttooluse":      KindToolAfter,
	"stop":             KindSessionIdle,
	"subagentstop":     KindSessionIdle,
}

// EventName is the name recorded in violations and payload samples.
func (k Kind) EventName() string {
	if n, ok := eventNames[k]; ok {
		return n
	}
	return string(k)
}

// ParseKind accepts a kind, its event name, or a Claude Code hook name.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.EventName()) {
			return k, nil
		}
	}
	if k, ok := hookNames[strings.ToLower(s)]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Detect infers the kind from the payload's own hook event name.
func Detect(p Payload) (Kind, error) {
	name, ok := p.HookEventName()
	if !ok {
		return "", fmt.Errorf("%w: payload has no hook_event_name", ErrUnknownKind)
	}
	return ParseKind(name)
}

// Event is one of PromptSubmit, ToolBefore, ToolAfter, FileEdited or
// SessionIdle.
type Event interface {
	Kind() Kind
	Session() string
	Raw() Payload
}

type base struct {
	SessionID string
	Payload   Payload
}

func (b base) Session() string { return b.SessionID }
func (b base) Raw() Payload    { return b.Payload }

type PromptSubmit struct {
	base
	Prompt string
}

type ToolBefore struct {
	base
	Tool string
	Path string
}

type ToolAfter struct {
	base
	Tool  string
	Path  string
	Skill string
}

type FileEdited struct {
	base
	Path string
}

type SessionIdle struct {
	base
}

func (PromptSubmit) Kind() Kind { return KindPromptSubmit }
func (ToolBefore) Kind() Kind   { return KindToolBefore }
func (ToolAfter) Kind() Kind    { return KindToolAfter }
func (FileEdited) Kind() Kind   { return KindFileEdited }
func (SessionIdle) Kind() Kind  { return KindSessionIdle }

// Normalize extracts the fields kind needs from p. Missing fields become
// empty strings; a missing session id becomes DefaultSession.
func Normalize(kind Kind, p Payload) (Event, error) {
	if p == nil {
		p = Payload{}
	}
	sid, ok := p.SessionID()
	if !ok {
		sid = DefaultSession
	}
	b := base{SessionID: sid, Payload: p}

	switch kind {
	case KindPromptSubmit:
		prompt, _ := p.Prompt()
		return PromptSubmit{base: b, Prompt: prompt}, nil
	case KindToolBefore:
		tool, _ := p.ToolName()
		path, _ := p.FilePath()
		return ToolBefore{base: b, Tool: tool, Path: path}, nil
	case KindToolAfter:
		tool, _ := p.ToolName()
		path, _ := p.FilePath()
		ev := ToolAfter{base: b, Tool: tool, Path: path}
		if IsSkillTool(tool) {
			ev.Skill, _ = p.SkillName()
		}
		return ev, nil
	case KindFileEdited:
		path, _ := p.FilePath()
		return FileEdited{base: b, Path: path}, nil
	case KindSessionIdle:
		return SessionIdle{base: b}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// IsEditTool reports whether tool writes files: Edit, MultiEdit, Write or
// NotebookEdit, matched loosely on case and separators.
func IsEditTool(tool string) bool {
	switch squash(tool) {
	case "edit", "multiedit", "write", "notebookedit":
		return true
	}
	return false
}

// IsSkillTool reports whether tool is the skill-invocation tool.
func IsSkillTool(tool string) bool {
	return squash(tool) == "skill"
}

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// ValidateSessionID checks an operator-supplied session id before it is used
// to address state on disk. Any id a host could send is accepted except one
// that is empty or contains a path separator or NUL; session.FileID maps the
// rest to a safe file name.
func ValidateSessionID(id string) error {
	if id == "" {
		return ErrNoSession
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return ErrSessionIDInvalid
	}
	return nil
}
