package checks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultTimeout bounds a single check command.
const DefaultTimeout = 120 * time.Second

// Result is the outcome of one plan.
type Result struct {
	Plan     Plan          `json:"plan"`
	OK       bool          `json:"ok"`
	ExitCode int           `json:"exitCode"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// Runner executes plans with an in-process POSIX shell. Each plan gets its
// own interpreter, working directory, and output buffer.
type Runner struct {
	Timeout     time.Duration
	Parallelism int
}

// NewRunner returns a runner. A zero timeout uses DefaultTimeout; a
// parallelism below 2 runs plans one after another.
func NewRunner(timeout time.Duration, parallelism int) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Timeout: timeout, Parallelism: parallelism}
}

// Run executes every plan and returns results in plan order. A failing plan
// never stops the ones after it.
func (r *Runner) Run(ctx context.Context, plans []Plan) []Result {
	results := make([]Result, len(plans))

	if r.Parallelism < 2 {
		for i, plan := range plans {
			results[i] = r.runOne(ctx, plan)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(r.Parallelism)
	for i, plan := range plans {
		g.Go(func() error {
			results[i] = r.runOne(ctx, plan)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors
	return results
}

func (r *Runner) runOne(ctx context.Context, plan Plan) Result {
	start := time.Now()
	res := Result{Plan: plan}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var out bytes.Buffer
	err := execute(ctx, plan, &out)
	res.Duration = time.Since(start)
	res.Output = strings.TrimSpace(out.String())

	switch {
	case err == nil:
		res.OK = true
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.ExitCode = -1
		if res.Output == "" {
			res.Output = "check timed out after " + r.Timeout.String()
		}
	default:
		var status interp.ExitStatus
		if errors.As(err, &status) {
			res.ExitCode = int(status)
		} else {
			res.ExitCode = -1
		}
		if res.Output == "" {
			res.Output = err.Error()
		}
	}
	return res
}

func execute(ctx context.Context, plan Plan, out *bytes.Buffer) error {
	file, err := Parse(plan.Command)
	if err != nil {
		return err
	}

	runner, err := interp.New(
		interp.Dir(plan.Dir),
		interp.StdIO(nil, out, out),
	)
	if err != nil {
		return fmt.Errorf("create shell: %w", err)
	}
	return runner.Run(ctx, file)
}

// Parse parses a plan command as a bash program.
func Parse(command string) (*syntax.File, error) {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", command, err)
	}
	return file, nil
}

// Validate reports an error for a plan whose command does not parse or whose
// directory is empty.
func Validate(plan Plan) error {
	if plan.Dir == "" {
		return fmt.Errorf("plan %q has no directory", plan.Command)
	}
	_, err := Parse(plan.Command)
	return err
}
