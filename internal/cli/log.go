package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gzhole/skillguard/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logFilterDecision string
	logFilterSession  string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the audit log",
	Long: `View the skillguard audit log with filtering and summary options.

Examples:
  skillguard log                        # Show all entries
  skillguard log --last 20              # Show last 20 entries
  skillguard log --decision BLOCK       # Show only enforced blocks
  skillguard log --session 3f2a...      # Show one session
  skillguard log --summary              # Show summary stats`,
	Args: cobra.NoArgs,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterDecision, "decision", "", "Filter by decision (SUGGEST, WARN, BLOCK, SHADOW_BLOCK, CHECKS)")
	logCmd.Flags().StringVar(&logFilterSession, "session", "", "Filter by session id")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	events, err := logger.Read(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(w, "No audit log entries found.")
		return nil
	}

	filtered := filterEvents(events, logFilterDecision, logFilterSession)

	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printSummary(w, events)
		return nil
	}

	printEvents(w, filtered, isTerminal(os.Stdout))
	return nil
}

func filterEvents(events []logger.AuditEvent, decision, sessionID string) []logger.AuditEvent {
	if decision == "" && sessionID == "" {
		return events
	}

	var filtered []logger.AuditEvent
	for _, e := range events {
		if decision != "" && !strings.EqualFold(e.Decision, decision) {
			continue
		}
		if sessionID != "" && e.Session != sessionID {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

func printEvents(w io.Writer, events []logger.AuditEvent, icons bool) {
	for _, e := range events {
		label := e.Decision
		if icons {
			label = decisionIcon(e.Decision) + " " + e.Decision
		}

		fmt.Fprintf(w, "%s %s %s", label, formatTimestamp(e.Timestamp), e.Event)
		if e.Path != "" {
			fmt.Fprintf(w, " %s", e.Path)
		}
		fmt.Fprintln(w)

		if len(e.Skills) > 0 {
			fmt.Fprintf(w, "     Skills: %s\n", strings.Join(e.Skills, ", "))
		}
		if e.Message != "" {
			fmt.Fprintf(w, "     Message: %s\n", strings.ReplaceAll(e.Message, "\n", " / "))
		}
		for _, c := range e.Checks {
			status := "planned"
			if c.OK != nil && *c.OK {
				status = "OK"
			} else if c.OK != nil {
				status = "FAIL"
			}
			fmt.Fprintf(w, "     Check: %s %s: %s\n", status, c.Dir, c.Command)
		}
		if e.Error != "" {
			fmt.Fprintf(w, "     Error: %s\n", e.Error)
		}
		fmt.Fprintf(w, "     Session: %s (%s)\n", e.Session, e.Mode)
		fmt.Fprintln(w)
	}
}

func printSummary(w io.Writer, all []logger.AuditEvent) {
	counts := map[string]int{}
	skills := map[string]int{}
	sessions := map[string]bool{}
	for _, e := range all {
		counts[e.Decision]++
		sessions[e.Session] = true
		if e.Decision == logger.DecisionBlock || e.Decision == logger.DecisionShadowBlock {
			for _, s := range e.Skills {
				skills[s]++
			}
		}
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintln(w, "  skillguard Audit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════")
	fmt.Fprintf(w, "  Total events:    %d\n", len(all))
	fmt.Fprintf(w, "  Sessions:        %d\n", len(sessions))
	fmt.Fprintf(w, "  SUGGEST:         %d\n", counts[logger.DecisionSuggest])
	fmt.Fprintf(w, "  WARN:            %d\n", counts[logger.DecisionWarn])
	fmt.Fprintf(w, "  SHADOW_BLOCK:    %d\n", counts[logger.DecisionShadowBlock])
	fmt.Fprintf(w, "  BLOCK:           %d\n", counts[logger.DecisionBlock])
	fmt.Fprintf(w, "  CHECKS:          %d\n", counts[logger.DecisionChecks])
	fmt.Fprintln(w, "═══════════════════════════════════════════")

	fmt.Fprintf(w, "  First event:     %s\n", formatTimestamp(all[0].Timestamp))
	fmt.Fprintf(w, "  Last event:      %s\n", formatTimestamp(all[len(all)-1].Timestamp))

	if len(skills) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Block-level matches by skill:")
		for _, name := range sortedKeys(skills) {
			fmt.Fprintf(w, "    %-24s %d\n", name, skills[name])
		}
	}

	fmt.Fprintln(w)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decisionIcon(decision string) string {
	switch decision {
	case logger.DecisionBlock:
		return "\xf0\x9f\x9b\x91" // stop sign
	case logger.DecisionShadowBlock, logger.DecisionWarn:
		return "\xe2\x9a\xa0" // warning
	case logger.DecisionSuggest:
		return "\xf0\x9f\x92\xa1" // light bulb
	case logger.DecisionChecks:
		return "\xe2\x9c\x85" // check mark
	default:
		return "\xe2\x9d\x93" // question mark
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
