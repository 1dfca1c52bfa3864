package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gzhole/skillguard/internal/enforce"
	"github.com/gzhole/skillguard/internal/event"
	"github.com/spf13/cobra"
)

// blockExitCode tells the host the event was refused; stderr carries the
// reason.
const blockExitCode = 2

// hookOutput is the JSON response Claude Code reads from hook stdout.
type hookOutput struct {
	SystemMessage      string              `json:"systemMessage,omitempty"`
	HookSpecificOutput *hookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

type hookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

var hookCmd = &cobra.Command{
	Use:   "hook [kind]",
	Short: "Handle one host event read as JSON from stdin",
	Long: `Reads a hook JSON payload from stdin, evaluates it against the project's
skill rules, and responds in the host's format.

The event kind is taken from the argument or, when omitted, from the
payload's hook_event_name:
  prompt-submit   UserPromptSubmit
  tool-before     PreToolUse
  tool-after      PostToolUse
  file-edited     (explicit only)
  session-idle    Stop, SubagentStop

Hints are written to stdout as {"systemMessage": ...}. A block exits with
code 2 and the reason on stderr. Every other failure is a warning on stderr
and exit 0.

Setup:
  skillguard setup`,
	Args: cobra.MaximumNArgs(1),
	RunE: hookCommand,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func hookCommand(cmd *cobra.Command, args []string) error {
	if isTerminal(os.Stdin) {
		return fmt.Errorf("hook expects a JSON payload on stdin")
	}

	payload, err := event.Decode(os.Stdin)
	if err != nil {
		// If we can't parse the input, allow the action (fail open)
		fmt.Fprintf(os.Stderr, "[skillguard] warning: could not parse hook input: %v\n", err)
		return writeHookOutput(cmd.OutOrStdout(), "", "")
	}

	err = handleHook(cmd.Context(), args, payload, cmd.OutOrStdout())

	var blockErr *enforce.BlockError
	if errors.As(err, &blockErr) {
		return &ExitError{Code: blockExitCode, Message: blockErr.Message}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[skillguard] warning: %v\n", err)
	}
	return nil
}

// handleHook runs one payload through the engine and writes the host
// response. The only error it lets through unchanged is *enforce.BlockError.
func handleHook(ctx context.Context, args []string, payload event.Payload, w io.Writer) error {
	var kind event.Kind
	var err error
	if len(args) > 0 {
		kind, err = event.ParseKind(args[0])
	} else {
		kind, err = event.Detect(payload)
	}
	if err != nil {
		// Unsupported hook events pass through
		_ = writeHookOutput(w, "", "")
		return err
	}

	cwd, _ := payload.Cwd()
	cfg, err := loadConfig(cwd)
	if err != nil {
		_ = writeHookOutput(w, "", "")
		return err
	}

	ev, err := event.Normalize(kind, payload)
	if err != nil {
		_ = writeHookOutput(w, "", "")
		return err
	}

	engine, closeLog := newEngine(cfg)
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}
	out := &enforce.Output{}
	handleErr := engine.Handle(ctx, ev, out)

	hookName, _ := payload.HookEventName()
	if kind != event.KindPromptSubmit {
		hookName = ""
	}
	if err := writeHookOutput(w, out.Text, hookName); err != nil {
		fmt.Fprintf(os.Stderr, "[skillguard] warning: failed to write hook output: %v\n", err)
	}
	return handleErr
}

// writeHookOutput writes {} when there is nothing to say. Prompt hints are
// also passed as additional context so the model sees them.
func writeHookOutput(w io.Writer, text, promptHookName string) error {
	if text == "" {
		_, err := io.WriteString(w, "{}\n")
		return err
	}

	out := hookOutput{SystemMessage: text}
	if promptHookName != "" {
		out.HookSpecificOutput = &hookSpecificOutput{HookEventName: promptHookName, AdditionalContext: text}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
