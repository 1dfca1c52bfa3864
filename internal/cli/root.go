package cli

import (
	"fmt"
	"os"

	"github.com/gzhole/skillguard/internal/config"
	"github.com/gzhole/skillguard/internal/enforce"
	"github.com/gzhole/skillguard/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	projectDir string
	rulesPath  string
	logPath    string
	mode       string
	idleMode   string
	maxChecks  string
)

var rootCmd = &cobra.Command{
	Use:   "skillguard",
	Short: "skillguard - skill-rule guardrails for coding assistants",
	Long: `skillguard receives events from a coding assistant (prompt submission,
tool invocation, file edits, session idle), matches them against the
project's skill rules, and answers with suggestions, warnings, or a block.
When a session goes idle it plans (or runs) the lint, type-check, test, and
build commands covering the files that were edited.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", "", "Project root (default: $CLAUDE_PROJECT_DIR, payload cwd, or working directory)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Path to skill rules file (default: <project>/.claude/skills/skill-rules.json)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: <project>/.claude/cache/skillguard-audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "Enforcement mode: shadow or enforce")
	rootCmd.PersistentFlags().StringVar(&idleMode, "idle", "", "Idle check mode: plan or execute")
	rootCmd.PersistentFlags().StringVar(&maxChecks, "max-checks", "", "Maximum number of check commands per session")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the project root from flags, environment, or the
// payload's cwd and layers configuration on top of it. Skipped layers are
// reported as warnings.
func loadConfig(payloadCwd string) (*config.Config, error) {
	root := config.ResolveProjectRoot(projectDir, payloadCwd)
	cfg, err := config.Load(root, config.Overrides{
		Mode:      mode,
		IdleMode:  idleMode,
		MaxChecks: maxChecks,
		RulesPath: rulesPath,
		LogPath:   logPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	for _, w := range cfg.Warnings {
		fmt.Fprintf(os.Stderr, "[skillguard] warning: %s\n", w)
	}
	return cfg, nil
}

// newEngine builds an engine that audits to cfg.LogPath. The returned func
// closes the audit log. An audit log that cannot be opened is a warning.
func newEngine(cfg *config.Config) (*enforce.Engine, func()) {
	var opts []enforce.Option
	closer := func() {}

	auditLogger, err := logger.New(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[skillguard] warning: audit log unavailable: %v\n", err)
	} else {
		opts = append(opts, enforce.WithAuditor(auditLogger))
		closer = func() { _ = auditLogger.Close() }
	}
	return enforce.New(cfg, opts...), closer
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
