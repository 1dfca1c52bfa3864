package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gzhole/skillguard/internal/checks"
	"github.com/gzhole/skillguard/internal/event"
	"github.com/spf13/cobra"
)

var (
	checksRun  bool
	checksJSON bool
)

var checksCmd = &cobra.Command{
	Use:   "checks <session-id>",
	Short: "Plan or run the checks for a session's edited files",
	Long: `Build the check plan a session-idle event would produce and print it.
With --run the plan is executed and the command exits 1 if any check fails.

  skillguard checks 3f2a...          # show the plan
  skillguard checks 3f2a... --run    # run it`,
	Args: cobra.ExactArgs(1),
	RunE: checksCommand,
}

func init() {
	checksCmd.Flags().BoolVar(&checksRun, "run", false, "Execute the planned checks")
	checksCmd.Flags().BoolVar(&checksJSON, "json", false, "Print plans or results as JSON")
	rootCmd.AddCommand(checksCmd)
}

func checksCommand(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	if err := event.ValidateSessionID(sessionID); err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	engine, closeLog := newEngine(cfg)
	defer closeLog()

	w := cmd.OutOrStdout()
	plans := engine.Plan(sessionID)
	if len(plans) == 0 {
		fmt.Fprintln(w, "No checks planned for this session.")
		return nil
	}

	for _, p := range plans {
		if err := checks.Validate(p); err != nil {
			fmt.Fprintf(os.Stderr, "[skillguard] warning: %v\n", err)
		}
	}

	if !checksRun {
		if checksJSON {
			return writeJSON(w, plans)
		}
		fmt.Fprintln(w, checks.FormatPlans(cfg.ProjectRoot, plans))
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if isTerminal(os.Stdout) && !checksJSON {
		fmt.Fprintf(w, "Running %d check(s)...\n", len(plans))
	}
	results := engine.Run(ctx, plans)

	if checksJSON {
		if err := writeJSON(w, results); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, checks.FormatResults(cfg.ProjectRoot, results))
	}

	if failed := checks.Failed(results); failed > 0 {
		return &ExitError{Code: 1, Message: fmt.Sprintf("%d of %d check(s) failed", failed, len(results))}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
