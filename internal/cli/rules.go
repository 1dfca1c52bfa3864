package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/gzhole/skillguard/internal/rules"
	"github.com/spf13/cobra"
)

var rulesValidate bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the project's skill rules",
	Long: `List every skill rule with its enforcement level, priority, and triggers.

  skillguard rules              # list rules
  skillguard rules --validate   # report authoring mistakes; exit 1 if any`,
	Args: cobra.NoArgs,
	RunE: rulesCommand,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesValidate, "validate", false, "Report invalid levels, patterns, and rules without triggers")
	rootCmd.AddCommand(rulesCmd)
}

func rulesCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	rs, err := rules.LoadStrict(cfg.RulesPath)
	if err != nil {
		if rulesValidate {
			return fmt.Errorf("rules file %s: %w", cfg.RulesPath, err)
		}
		fmt.Fprintf(w, "No usable rules at %s (%v)\n", cfg.RulesPath, err)
		return nil
	}

	printRules(w, cfg.RulesPath, rs)

	if !rulesValidate {
		return nil
	}
	issues := rules.Validate(rs)
	if len(issues) == 0 {
		fmt.Fprintln(w, "\n✅ No issues found")
		return nil
	}
	fmt.Fprintf(w, "\n%d issue(s):\n", len(issues))
	for _, issue := range issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	return &ExitError{Code: 1, Message: fmt.Sprintf("%d rule issue(s) found", len(issues))}
}

func printRules(w io.Writer, path string, rs *rules.SkillRules) {
	fmt.Fprintf(w, "Rules: %s (version %s, %d skills)\n", path, rs.Version, rs.Len())
	for _, name := range rs.Names() {
		rule := rs.Skills[name]
		fmt.Fprintf(w, "\n  %s  [%s, %s]\n", name, rule.Level(), rule.PriorityLevel())
		if rule.Description != "" {
			fmt.Fprintf(w, "    %s\n", rule.Description)
		}
		if pt := rule.PromptTriggers; pt != nil {
			if len(pt.Keywords) > 0 {
				fmt.Fprintf(w, "    keywords: %s\n", strings.Join(pt.Keywords, ", "))
			}
			if len(pt.IntentPatterns) > 0 {
				fmt.Fprintf(w, "    intents:  %s\n", strings.Join(pt.IntentPatterns, " | "))
			}
		}
		if ft := rule.FileTriggers; ft != nil {
			if len(ft.PathPatterns) > 0 {
				fmt.Fprintf(w, "    paths:    %s\n", strings.Join(ft.PathPatterns, ", "))
			} else {
				fmt.Fprintln(w, "    paths:    (all)")
			}
			if len(ft.PathExclusions) > 0 {
				fmt.Fprintf(w, "    exclude:  %s\n", strings.Join(ft.PathExclusions, ", "))
			}
			if len(ft.ContentPatterns) > 0 {
				fmt.Fprintf(w, "    content:  %s\n", strings.Join(ft.ContentPatterns, " | "))
			}
		}
		if sc := rule.SkipConditions; sc != nil {
			var skips []string
			if sc.SessionSkillUsed {
				skips = append(skips, "session skill used")
			}
			if sc.EnvOverride != "" {
				skips = append(skips, "$"+sc.EnvOverride)
			}
			for _, m := range sc.FileMarkers {
				skips = append(skips, fmt.Sprintf("marker %q", m))
			}
			if len(skips) > 0 {
				fmt.Fprintf(w, "    skip if:  %s\n", strings.Join(skips, ", "))
			}
		}
	}
}
