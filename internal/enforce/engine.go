// Package enforce classifies host events against skill rules, keeps the
// session state current, and decides whether an event is blocked.
package enforce

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gzhole/skillguard/internal/checks"
	"github.com/gzhole/skillguard/internal/config"
	"github.com/gzhole/skillguard/internal/event"
	"github.com/gzhole/skillguard/internal/logger"
	"github.com/gzhole/skillguard/internal/match"
	"github.com/gzhole/skillguard/internal/normalize"
	"github.com/gzhole/skillguard/internal/rules"
	"github.com/gzhole/skillguard/internal/session"
)

// Auditor receives one record per decision.
type Auditor interface {
	Log(logger.AuditEvent) error
}

// Engine handles host events. It holds no per-session state in memory; all
// of it is re-read from the session store on every event.
type Engine struct {
	cfg     *config.Config
	rules   *rules.Cache
	store   *session.Store
	planner *checks.Planner
	runner  *checks.Runner
	auditor Auditor
	getenv  func(string) string
	now     func() time.Time
	stderr  io.Writer
}

type Option func(*Engine)

func WithAuditor(a Auditor) Option {
	return func(e *Engine) { e.auditor = a }
}

// WithGetenv replaces the lookup used for skipConditions.envOverride.
func WithGetenv(fn func(string) string) Option {
	return func(e *Engine) { e.getenv = fn }
}

// WithClock replaces the time source for violation, sample, and audit
// timestamps.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func WithStderr(w io.Writer) Option {
	return func(e *Engine) { e.stderr = w }
}

func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		rules:   rules.NewCache(),
		store:   session.NewStore(cfg.StateDir),
		planner: checks.NewPlanner(cfg.ProjectRoot, cfg.MaxChecks),
		runner:  checks.NewRunner(cfg.CheckTimeout, cfg.CheckParallelism),
		getenv:  os.Getenv,
		now:     time.Now,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the session store the engine writes to.
func (e *Engine) Store() *session.Store {
	return e.store
}

// Rules returns the current rule set.
func (e *Engine) Rules() *rules.SkillRules {
	return e.rules.Load(e.cfg.RulesPath)
}

// Handle dispatches ev to its handler.
func (e *Engine) Handle(ctx context.Context, ev event.Event, out *Output) error {
	switch ev := ev.(type) {
	case event.PromptSubmit:
		return e.OnPromptSubmit(ev, out)
	case event.ToolBefore:
		return e.OnToolBefore(ev, out)
	case event.ToolAfter:
		return e.OnToolAfter(ev)
	case event.FileEdited:
		return e.OnFileEdited(ev)
	case event.SessionIdle:
		return e.OnSessionIdle(ctx, ev, out)
	}
	return fmt.Errorf("%w: %T", event.ErrUnknownKind, ev)
}

// OnPromptSubmit surfaces every skill whose prompt triggers match. In
// enforce mode a block-level match stops the prompt.
func (e *Engine) OnPromptSubmit(ev event.PromptSubmit, out *Output) error {
	if e.cfg.Disabled {
		return nil
	}
	e.sampleOnly(ev)

	if strings.TrimSpace(ev.Prompt) == "" {
		return nil
	}

	rs := e.Rules()
	var matched []Match
	for _, name := range rs.Names() {
		rule := rs.Skills[name]
		if match.Prompt(ev.Prompt, rule.PromptTriggers) {
			matched = append(matched, Match{Skill: name, Rule: rule})
		}
	}
	if len(matched) == 0 {
		return nil
	}

	out.Append(Render(matched, e.cfg.Enforcing()))

	var blockErr *BlockError
	if blocks := byLevel(matched, rules.EnforceBlock); len(blocks) > 0 && e.cfg.Enforcing() {
		blockErr = &BlockError{Skills: matchNames(blocks), Message: genericBlockMessage(blocks)}
	}
	e.audit(ev, matched, "", blockErr)

	if blockErr != nil {
		return blockErr
	}
	return nil
}

// OnToolBefore checks an edit tool's target against file-triggered rules.
// Other tools only contribute a payload sample.
func (e *Engine) OnToolBefore(ev event.ToolBefore, out *Output) error {
	if e.cfg.Disabled {
		return nil
	}
	if !event.IsEditTool(ev.Tool) || ev.Path == "" {
		e.sampleOnly(ev)
		return nil
	}
	return e.checkEdit(ev, ev.Path, out, false)
}

// OnToolAfter records applied skills and edited files.
func (e *Engine) OnToolAfter(ev event.ToolAfter) error {
	if e.cfg.Disabled {
		return nil
	}

	edited := event.IsEditTool(ev.Tool) && ev.Path != ""
	e.update(ev, func(st *session.State) bool {
		changed := false
		if ev.Skill != "" {
			changed = st.ApplySkill(ev.Skill)
		}
		if edited {
			st.RecordEdit(e.editKey(ev.Path), e.now().UTC())
			changed = true
		}
		return changed
	})
	return nil
}

// OnFileEdited records the edit and evaluates file-triggered rules against
// it. The host has no output channel for this event, so hints are only
// persisted as violations and audited.
func (e *Engine) OnFileEdited(ev event.FileEdited) error {
	if e.cfg.Disabled {
		return nil
	}
	if ev.Path == "" {
		e.sampleOnly(ev)
		return nil
	}
	return e.checkEdit(ev, ev.Path, nil, true)
}

// OnSessionIdle plans, and in execute mode runs, the checks for every file
// edited this session.
func (e *Engine) OnSessionIdle(ctx context.Context, ev event.SessionIdle, out *Output) error {
	if e.cfg.Disabled {
		return nil
	}
	e.sampleOnly(ev)

	plans := e.Plan(ev.Session())
	if len(plans) == 0 {
		return nil
	}

	record := logger.AuditEvent{Event: ev.Kind().EventName(), Session: ev.Session(), Decision: logger.DecisionChecks}
	if e.cfg.IdleMode == config.IdleExecute {
		results := e.runner.Run(ctx, plans)
		out.Append(checks.FormatResults(e.cfg.ProjectRoot, results))
		for _, r := range results {
			ok := r.OK
			record.Checks = append(record.Checks, logger.CheckRecord{
				Dir: checks.DisplayDir(e.cfg.ProjectRoot, r.Plan.Dir), Command: r.Plan.Command, OK: &ok,
			})
		}
	} else {
		out.Append(checks.FormatPlans(e.cfg.ProjectRoot, plans))
		for _, p := range plans {
			record.Checks = append(record.Checks, logger.CheckRecord{
				Dir: checks.DisplayDir(e.cfg.ProjectRoot, p.Dir), Command: p.Command,
			})
		}
	}
	e.log(record)
	return nil
}

// Plan returns the check plan for a session's edited files.
func (e *Engine) Plan(sessionID string) []checks.Plan {
	paths := e.store.Read(sessionID).EditedPaths()
	if len(paths) == 0 {
		return nil
	}
	return e.planner.Plan(paths)
}

// Run executes plans with the engine's runner.
func (e *Engine) Run(ctx context.Context, plans []checks.Plan) []checks.Result {
	return e.runner.Run(ctx, plans)
}

// checkEdit evaluates warn and block rules for path, records surviving
// matches as violations, and renders them. recordEdit also adds path to the
// session's edited files.
func (e *Engine) checkEdit(ev event.Event, path string, out *Output, recordEdit bool) error {
	rs := e.Rules()

	var matched []Match
	evaluated := false
	e.update(ev, func(st *session.State) bool {
		evaluated = true
		matched = e.fileMatches(rs, st, path)

		now := e.now().UTC()
		if recordEdit {
			st.RecordEdit(e.editKey(path), now)
		}
		for _, m := range matched {
			st.AddViolation(session.Violation{
				Timestamp:   now,
				Skill:       m.Skill,
				Enforcement: string(m.Rule.Level()),
				Path:        path,
				Event:       ev.Kind().EventName(),
				Action:      e.action(m),
			})
		}
		return recordEdit || len(matched) > 0
	})
	if !evaluated {
		// State could not be locked; still decide from what is on disk.
		matched = e.fileMatches(rs, e.store.Read(ev.Session()), path)
	}
	if len(matched) == 0 {
		return nil
	}

	out.Append(Render(matched, e.cfg.Enforcing()))

	var blockErr *BlockError
	if blocks := byLevel(matched, rules.EnforceBlock); len(blocks) > 0 && e.cfg.Enforcing() {
		blockErr = &BlockError{Skills: matchNames(blocks), Message: blockMessage(blocks, path)}
	}
	e.audit(ev, matched, path, blockErr)

	if blockErr != nil {
		return blockErr
	}
	return nil
}

// fileMatches returns the warn and block rules triggered by editing path.
// Block matches whose skip conditions hold are dropped.
func (e *Engine) fileMatches(rs *rules.SkillRules, st *session.State, path string) []Match {
	var content *string
	readContent := func() string {
		if content == nil {
			s, _ := match.ReadContent(normalize.Path(e.cfg.ProjectRoot, path).Abs)
			content = &s
		}
		return *content
	}

	var matched []Match
	for _, name := range rs.Names() {
		rule := rs.Skills[name]
		level := rule.Level()
		if level == rules.EnforceSuggest {
			continue
		}
		if !match.FileTrigger(e.cfg.ProjectRoot, path, rule) {
			continue
		}
		if level == rules.EnforceBlock && e.bypassed(rule.SkipConditions, st, readContent) {
			continue
		}
		matched = append(matched, Match{Skill: name, Rule: rule})
	}
	return matched
}

func (e *Engine) bypassed(skip *rules.SkipConditions, st *session.State, content func() string) bool {
	if skip == nil {
		return false
	}
	if skip.EnvOverride != "" && e.getenv(skip.EnvOverride) != "" {
		return true
	}
	if skip.SessionSkillUsed && st.HasAppliedSkill() {
		return true
	}
	if len(skip.FileMarkers) > 0 {
		text := content()
		for _, marker := range skip.FileMarkers {
			if marker != "" && strings.Contains(text, marker) {
				return true
			}
		}
	}
	return false
}

func (e *Engine) action(m Match) session.Action {
	if e.cfg.Enforcing() && m.Rule.Level() == rules.EnforceBlock {
		return session.ActionEnforce
	}
	return session.ActionShadow
}

// editKey is the form an edited path is stored in: project-relative with
// forward slashes, or absolute when outside the project.
func (e *Engine) editKey(path string) string {
	return normalize.Rel(e.cfg.ProjectRoot, path)
}

// update runs fn under the session lock together with the payload sample.
// fn reports whether it changed the state. Failures are warnings.
func (e *Engine) update(ev event.Event, fn func(*session.State) bool) {
	err := e.store.Update(ev.Session(), func(st *session.State) error {
		sampled := e.addSample(st, ev)
		changed := fn != nil && fn(st)
		if !sampled && !changed {
			return session.ErrSkipWrite
		}
		return nil
	})
	if err != nil {
		e.warnf("failed to update session %s: %v", ev.Session(), err)
	}
}

func (e *Engine) sampleOnly(ev event.Event) {
	if e.cfg.SampleLimit <= 0 {
		return
	}
	e.update(ev, nil)
}

func (e *Engine) addSample(st *session.State, ev event.Event) bool {
	return st.AddSample(session.PayloadSample{
		Timestamp: e.now().UTC(),
		Event:     ev.Kind().EventName(),
		Keys:      ev.Raw().Keys(),
	}, e.cfg.SampleLimit)
}

func (e *Engine) audit(ev event.Event, matched []Match, path string, blockErr *BlockError) {
	record := logger.AuditEvent{
		Event:    ev.Kind().EventName(),
		Session:  ev.Session(),
		Decision: decisionFor(matched, e.cfg.Enforcing()),
		Skills:   matchNames(matched),
		Path:     path,
	}
	if tb, ok := ev.(event.ToolBefore); ok {
		record.Tool = tb.Tool
	}
	if blockErr != nil {
		record.Message = blockErr.Message
	}
	e.log(record)
}

func (e *Engine) log(record logger.AuditEvent) {
	if e.auditor == nil {
		return
	}
	record.Timestamp = e.now().UTC().Format(time.RFC3339)
	record.Mode = string(e.cfg.Mode)
	if err := e.auditor.Log(record); err != nil {
		e.warnf("failed to write audit log: %v", err)
	}
}

// decisionFor names the most severe outcome among matched.
func decisionFor(matched []Match, enforcing bool) string {
	switch {
	case len(byLevel(matched, rules.EnforceBlock)) > 0 && enforcing:
		return logger.DecisionBlock
	case len(byLevel(matched, rules.EnforceBlock)) > 0:
		return logger.DecisionShadowBlock
	case len(byLevel(matched, rules.EnforceWarn)) > 0:
		return logger.DecisionWarn
	case len(matched) > 0:
		return logger.DecisionSuggest
	}
	return logger.DecisionNone
}

func (e *Engine) warnf(format string, args ...any) {
	fmt.Fprintf(e.stderr, "[skillguard] warning: "+format+"\n", args...)
}
