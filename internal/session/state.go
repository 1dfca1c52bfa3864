package session

import (
	"time"
)

const (
	MaxEditedFiles = 200
	MaxViolations  = 200
)

// Action records what the engine did with a violation.
type Action string

const (
	ActionShadow  Action = "shadow"
	ActionEnforce Action = "enforce"
)

type EditedFile struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Path      string    `json:"path" yaml:"path"`
}

type Violation struct {
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Skill       string    `json:"skill" yaml:"skill"`
	Enforcement string    `json:"enforcement" yaml:"enforcement"`
	Path        string    `json:"path" yaml:"path"`
	Event       string    `json:"event" yaml:"event"`
	Action      Action    `json:"action" yaml:"action"`
}

// PayloadSample is a debugging aid: which top-level keys a host event carried.
type PayloadSample struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Event     string    `json:"event" yaml:"event"`
	Keys      []string  `json:"keys" yaml:"keys"`
}

// State is everything persisted for one session. The four collections are
// independent; each is appended to and capped on its own.
type State struct {
	SessionID      string          `json:"sessionId" yaml:"sessionId"`
	UpdatedAt      time.Time       `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
	EditedFiles    []EditedFile    `json:"editedFiles" yaml:"editedFiles"`
	AppliedSkills  []string        `json:"appliedSkills" yaml:"appliedSkills"`
	Violations     []Violation     `json:"violations" yaml:"violations"`
	PayloadSamples []PayloadSample `json:"payloadSamples" yaml:"payloadSamples"`
}

// New returns the empty state for sessionID.
func New(sessionID string) *State {
	return &State{
		SessionID:      sessionID,
		EditedFiles:    []EditedFile{},
		AppliedSkills:  []string{},
		Violations:     []Violation{},
		PayloadSamples: []PayloadSample{},
	}
}

// RecordEdit appends path as the most recent edit. An existing entry for the
// same path is moved rather than duplicated.
func (s *State) RecordEdit(path string, at time.Time) {
	if path == "" {
		return
	}
	kept := s.EditedFiles[:0]
	for _, e := range s.EditedFiles {
		if e.Path != path {
			kept = append(kept, e)
		}
	}
	s.EditedFiles = capTail(append(kept, EditedFile{Timestamp: at, Path: path}), MaxEditedFiles)
}

// ApplySkill marks a skill as invoked in this session.
func (s *State) ApplySkill(name string) bool {
	if name == "" {
		return false
	}
	for _, existing := range s.AppliedSkills {
		if existing == name {
			return false
		}
	}
	s.AppliedSkills = append(s.AppliedSkills, name)
	return true
}

// HasAppliedSkill reports whether any skill was invoked in this session.
func (s *State) HasAppliedSkill() bool {
	return len(s.AppliedSkills) > 0
}

func (s *State) AddViolation(v Violation) {
	s.Violations = capTail(append(s.Violations, v), MaxViolations)
}

// AddSample records a payload sample until limit samples are held; later
// samples are dropped. It reports whether p was recorded.
func (s *State) AddSample(p PayloadSample, limit int) bool {
	if len(s.PayloadSamples) >= limit {
		return false
	}
	s.PayloadSamples = append(s.PayloadSamples, p)
	return true
}

// EditedPaths returns edited paths, oldest first.
func (s *State) EditedPaths() []string {
	paths := make([]string, len(s.EditedFiles))
	for i, e := range s.EditedFiles {
		paths[i] = e.Path
	}
	return paths
}

// fill replaces nil collections left by a partial document.
func (s *State) fill(sessionID string) {
	if s.SessionID == "" {
		s.SessionID = sessionID
	}
	if s.EditedFiles == nil {
		s.EditedFiles = []EditedFile{}
	}
	if s.AppliedSkills == nil {
		s.AppliedSkills = []string{}
	}
	if s.Violations == nil {
		s.Violations = []Violation{}
	}
	if s.PayloadSamples == nil {
		s.PayloadSamples = []PayloadSample{}
	}
}

func capTail[T any](items []T, max int) []T {
	if len(items) > max {
		return items[len(items)-max:]
	}
	return items
}
