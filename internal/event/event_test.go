package event

import (
	"errors"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) Payload {
	t.Helper()
	p, err := Decode(strings.NewReader(s))
	if err != nil {
		t.Fatalf("decode %s: %v", s, err)
	}
	return p
}

func TestDecode(t *testing.T) {
	if p := decode(t, "   "); len(p) != 0 {
		t.Errorf("expected empty payload for blank input, got %v", p)
	}
	if p := decode(t, "null"); p == nil {
		t.Error("expected non-nil payload for JSON null")
	}
	if _, err := Decode(strings.NewReader("{nope")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestSessionID_Aliases(t *testing.T) {
	tests := []struct {
		payload string
		want    string
		ok      bool
	}{
		{`{"session_id":"a","sessionId":"b"}`, "a", true},
		{`{"sessionID":"b"}`, "b", true},
		{`{"sessionId":"c"}`, "c", true},
		{`{"session":{"id":"d"}}`, "d", true},
		{`{"session_id":"  ","sessionId":"e"}`, "e", true},
		{`{"session_id":42}`, "", false},
		{`{}`, "", false},
	}

	for _, tt := range tests {
		got, ok := decode(t, tt.payload).SessionID()
		if got != tt.want || ok != tt.ok {
			t.Errorf("SessionID(%s) = (%q, %v), want (%q, %v)", tt.payload, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFilePath_Aliases(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"file_path":"a.go"}`, "a.go"},
		{`{"path":"b.go"}`, "b.go"},
		{`{"tool_input":{"file_path":"c.go"}}`, "c.go"},
		{`{"tool":{"name":"Edit","input":{"file_path":"d.go"}}}`, "d.go"},
		{`{"tool_input":{"notebook_path":"e.ipynb"}}`, "e.ipynb"},
		{`{"properties":{"file":"f.ts"}}`, "f.ts"},
		{`{"filePath":"top.go","tool_input":{"file_path":"nested.go"}}`, "top.go"},
	}

	for _, tt := range tests {
		got, ok := decode(t, tt.payload).FilePath()
		if !ok || got != tt.want {
			t.Errorf("FilePath(%s) = (%q, %v), want %q", tt.payload, got, ok, tt.want)
		}
	}

	if _, ok := decode(t, `{"tool_input":{"command":"ls"}}`).FilePath(); ok {
		t.Error("expected no path for a Bash payload")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"UserPromptSubmit", KindPromptSubmit},
		{"PreToolUse", KindToolBefore},
		{"PostToolUse", KindToolAfter},
		{"Stop", KindSessionIdle},
		{"SubagentStop", KindSessionIdle},
		{"file.edited", KindFileEdited},
	}

	for _, tt := range tests {
		got, err := Detect(Payload{"hook_event_name": tt.name})
		if err != nil || got != tt.want {
			t.Errorf("Detect(%s) = (%s, %v), want %s", tt.name, got, err, tt.want)
		}
	}

	if _, err := Detect(Payload{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := ParseKind("Notification"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind for unsupported hook, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	p := decode(t, `{"session_id":"s1","prompt":"Add a page"}`)
	ev, err := Normalize(KindPromptSubmit, p)
	if err != nil {
		t.Fatal(err)
	}
	ps, ok := ev.(PromptSubmit)
	if !ok || ps.Prompt != "Add a page" || ps.Session() != "s1" {
		t.Errorf("unexpected prompt event: %#v", ev)
	}

	ev, _ = Normalize(KindToolBefore, decode(t, `{"tool_name":"Edit","tool_input":{"file_path":"x.sql"}}`))
	tb := ev.(ToolBefore)
	if tb.Tool != "Edit" || tb.Path != "x.sql" || tb.Session() != DefaultSession {
		t.Errorf("unexpected tool-before event: %#v", tb)
	}

	ev, _ = Normalize(KindToolAfter, decode(t, `{"session_id":"s","tool_name":"Skill","tool_input":{"skill":"db-guard"}}`))
	if ta := ev.(ToolAfter); ta.Skill != "db-guard" {
		t.Errorf("expected skill db-guard, got %q", ta.Skill)
	}

	ev, _ = Normalize(KindToolAfter, decode(t, `{"tool_name":"Read","tool_input":{"name":"x"}}`))
	if ta := ev.(ToolAfter); ta.Skill != "" {
		t.Errorf("non-skill tool should not yield a skill, got %q", ta.Skill)
	}

	if _, err := Normalize(Kind("bogus"), p); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestToolClassification(t *testing.T) {
	for _, tool := range []string{"Edit", "MultiEdit", "Write", "NotebookEdit", "multi_edit", "notebook-edit"} {
		if !IsEditTool(tool) {
			t.Errorf("expected %s to be an edit tool", tool)
		}
	}
	for _, tool := range []string{"Read", "Bash", "Grep", ""} {
		if IsEditTool(tool) {
			t.Errorf("expected %s not to be an edit tool", tool)
		}
	}
	if !IsSkillTool("skill") || IsSkillTool("SkillSearch") {
		t.Error("skill tool detection is wrong")
	}
}

func TestKeys(t *testing.T) {
	keys := Payload{"b": 1, "a": 2, "c": 3}.Keys()
	if strings.Join(keys, ",") != "a,b,c" {
		t.Errorf("expected sorted keys, got %v", keys)
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want error
	}{
		{"abc-123_x", nil},
		{"agent.session:42", nil},
		{"a b", nil},
		{strings.Repeat("a", 300), nil},
		{"", ErrNoSession},
		{"../etc", ErrSessionIDInvalid},
		{`a\b`, ErrSessionIDInvalid},
		{"a\x00b", ErrSessionIDInvalid},
	}
	for _, tt := range tests {
		if err := ValidateSessionID(tt.id); !errors.Is(err, tt.want) {
			t.Errorf("ValidateSessionID(%q) = %v, want %v", tt.id, err, tt.want)
		}
	}
}
