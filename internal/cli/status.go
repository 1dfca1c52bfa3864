package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gzhole/skillguard/internal/config"
	"github.com/gzhole/skillguard/internal/rules"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show skillguard status: hooks, rules, sessions, audit log",
	Long: `Check whether skillguard is active for the project: which Claude Code
hooks are installed, where the rules, session state, and audit log live, and
which mode is in effect.

  skillguard status`,
	Args: cobra.NoArgs,
	RunE: statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w, "  skillguard Status")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	binPath, err := os.Executable()
	if err != nil {
		binPath = "unknown"
	}
	fmt.Fprintf(w, "  Binary:    %s (%s)\n", binPath, Version)
	fmt.Fprintf(w, "  Project:   %s\n", cfg.ProjectRoot)
	if cfg.Disabled {
		fmt.Fprintf(w, "  Mode:      disabled (%s is set)\n", config.EnvDisable)
	} else {
		fmt.Fprintf(w, "  Mode:      %s, idle checks: %s (max %d)\n", cfg.Mode, cfg.IdleMode, cfg.MaxChecks)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Claude Code Hooks ─────────────────────────────────")
	checkClaudeHooks(w, claudeSettingsPath(cfg.ProjectRoot))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Skill Rules ───────────────────────────────────────")
	checkRulesFile(w, cfg.RulesPath)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Session State ─────────────────────────────────────")
	checkStateDir(w, cfg.StateDir)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "─── Audit Log ─────────────────────────────────────────")
	checkAuditLog(w, cfg.LogPath)
	fmt.Fprintln(w)

	return nil
}

func checkClaudeHooks(w io.Writer, settingsPath string) {
	if _, err := os.Stat(settingsPath); err != nil {
		fmt.Fprintf(w, "  ⬚  not configured (run: skillguard setup)\n")
		return
	}
	installed := installedClaudeHooks(settingsPath)
	if len(installed) == 0 {
		fmt.Fprintf(w, "  ⬚  %s exists but has no skillguard hook\n", settingsPath)
		return
	}
	icon := "✅"
	if len(installed) < len(claudeHooks) {
		icon = "⚠ "
	}
	fmt.Fprintf(w, "  %s %d/%d hook(s): %s\n", icon, len(installed), len(claudeHooks), strings.Join(installed, ", "))
}

func checkRulesFile(w io.Writer, path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  ⬚  %s (not found, no rules apply)\n", path)
		return
	}
	rs, err := rules.LoadStrict(path)
	if err != nil {
		fmt.Fprintf(w, "  ⚠  %s (%v)\n", path, err)
		return
	}
	fmt.Fprintf(w, "  ✅ %s (%d skills)\n", path, rs.Len())
	if issues := rules.Validate(rs); len(issues) > 0 {
		fmt.Fprintf(w, "  ⚠  %d issue(s), run: skillguard rules --validate\n", len(issues))
	}
}

func checkStateDir(w io.Writer, dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(matches) == 0 {
		fmt.Fprintf(w, "  ⬚  %s (no sessions yet)\n", dir)
		return
	}
	fmt.Fprintf(w, "  ✅ %s (%d session(s))\n", dir, len(matches))
}

func checkAuditLog(w io.Writer, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(w, "  ⬚  %s (not yet created, will start on first event)\n", path)
		return
	}

	sizeKB := info.Size() / 1024
	if sizeKB == 0 {
		fmt.Fprintf(w, "  ✅ %s (<1 KB)\n", path)
	} else {
		fmt.Fprintf(w, "  ✅ %s (%d KB)\n", path, sizeKB)
	}
}
