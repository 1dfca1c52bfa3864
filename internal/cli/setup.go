package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const hookCommandPrefix = "skillguard hook"

// editToolMatcher limits PreToolUse and PostToolUse to the file-editing tools.
const editToolMatcher = "Edit|MultiEdit|Write|NotebookEdit"

var setupDisable bool

// claudeHook is one hook installed into .claude/settings.json.
type claudeHook struct {
	Event   string
	Matcher string
	Kind    string
	Timeout int
}

var claudeHooks = []claudeHook{
	{Event: "UserPromptSubmit", Kind: "prompt-submit"},
	{Event: "PreToolUse", Matcher: editToolMatcher, Kind: "tool-before"},
	{Event: "PostToolUse", Kind: "tool-after"},
	{Event: "Stop", Kind: "session-idle", Timeout: 600},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Install skillguard hooks into the project's Claude Code settings",
	Long: `Add skillguard to <project>/.claude/settings.json so that Claude Code
sends prompt, tool, and stop events to 'skillguard hook'.

  skillguard setup             # install hooks
  skillguard setup --disable   # remove hooks

Existing settings and other hooks are preserved.`,
	Args: cobra.NoArgs,
	RunE: setupCommand,
}

func init() {
	setupCmd.Flags().BoolVar(&setupDisable, "disable", false, "Remove skillguard hooks")
	rootCmd.AddCommand(setupCmd)
}

func setupCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}
	settingsPath := claudeSettingsPath(cfg.ProjectRoot)
	w := cmd.OutOrStdout()

	if setupDisable {
		if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
			fmt.Fprintln(w, "ℹ  No .claude/settings.json found, nothing to disable.")
			return nil
		}
		removed, err := removeClaudeHooks(settingsPath)
		if err != nil {
			return err
		}
		if removed == 0 {
			fmt.Fprintln(w, "ℹ  skillguard hooks not found, nothing to disable.")
			return nil
		}
		fmt.Fprintf(w, "✅ Removed %d skillguard hook(s) from %s\n", removed, settingsPath)
		fmt.Fprintln(w, "Re-enable anytime with: skillguard setup")
		return nil
	}

	added, err := installClaudeHooks(settingsPath)
	if err != nil {
		return err
	}
	if added == 0 {
		fmt.Fprintf(w, "✅ skillguard hooks already configured: %s\n", settingsPath)
	} else {
		fmt.Fprintf(w, "✅ Installed %d skillguard hook(s): %s\n", added, settingsPath)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "How it works:")
	fmt.Fprintln(w, "  1. UserPromptSubmit: matching skills are suggested to the assistant")
	fmt.Fprintln(w, "  2. PreToolUse: edits touching block-level skills are checked")
	fmt.Fprintln(w, "  3. PostToolUse: edited files and applied skills are recorded")
	fmt.Fprintln(w, "  4. Stop: lint, type-check, test, and build checks are planned")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rules: %s\n", cfg.RulesPath)
	fmt.Fprintf(w, "Mode:  %s (set SKILLGUARD_ENFORCEMENT=enforce to block)\n", cfg.Mode)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "To disable: skillguard setup --disable")
	return nil
}

func claudeSettingsPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".claude", "settings.json")
}

// installClaudeHooks adds any missing skillguard hook and returns how many
// were added.
func installClaudeHooks(settingsPath string) (int, error) {
	settings, err := readClaudeSettings(settingsPath)
	if err != nil {
		return 0, err
	}

	hooks := getOrCreateMap(settings, "hooks")
	added := 0
	for _, h := range claudeHooks {
		entries := getOrCreateSlice(hooks, h.Event)
		present := false
		for _, entry := range entries {
			if isSkillguardHookEntry(entry) {
				present = true
				break
			}
		}
		if present {
			continue
		}
		hooks[h.Event] = append(entries, h.entry())
		added++
	}
	if added == 0 {
		return 0, nil
	}

	settings["hooks"] = hooks
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", filepath.Dir(settingsPath), err)
	}
	if err := writeClaudeSettings(settingsPath, settings); err != nil {
		return 0, err
	}
	return added, nil
}

// removeClaudeHooks deletes every skillguard hook entry and returns how many
// were removed. Events left without entries are dropped.
func removeClaudeHooks(settingsPath string) (int, error) {
	settings, err := readClaudeSettings(settingsPath)
	if err != nil {
		return 0, err
	}

	hooks, ok := settings["hooks"].(map[string]interface{})
	if !ok {
		return 0, nil
	}

	removed := 0
	for event, v := range hooks {
		entries, ok := v.([]interface{})
		if !ok {
			continue
		}
		filtered := entries[:0]
		for _, entry := range entries {
			if isSkillguardHookEntry(entry) {
				removed++
				continue
			}
			filtered = append(filtered, entry)
		}
		if len(filtered) == 0 {
			delete(hooks, event)
		} else {
			hooks[event] = filtered
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if len(hooks) == 0 {
		delete(settings, "hooks")
	}
	if err := writeClaudeSettings(settingsPath, settings); err != nil {
		return 0, err
	}
	return removed, nil
}

// installedClaudeHooks lists the settings events that carry a skillguard hook.
func installedClaudeHooks(settingsPath string) []string {
	settings, err := readClaudeSettings(settingsPath)
	if err != nil {
		return nil
	}
	hooks, ok := settings["hooks"].(map[string]interface{})
	if !ok {
		return nil
	}
	var events []string
	for _, h := range claudeHooks {
		entries, _ := hooks[h.Event].([]interface{})
		for _, entry := range entries {
			if isSkillguardHookEntry(entry) {
				events = append(events, h.Event)
				break
			}
		}
	}
	return events
}

func (h claudeHook) entry() map[string]interface{} {
	cmd := map[string]interface{}{
		"type":    "command",
		"command": hookCommandPrefix + " " + h.Kind,
	}
	if h.Timeout > 0 {
		cmd["timeout"] = h.Timeout
	}
	entry := map[string]interface{}{
		"hooks": []interface{}{cmd},
	}
	if h.Matcher != "" {
		entry["matcher"] = h.Matcher
	}
	return entry
}

// isSkillguardHookEntry returns true if the hook entry runs skillguard.
func isSkillguardHookEntry(entry interface{}) bool {
	m, ok := entry.(map[string]interface{})
	if !ok {
		return false
	}
	subHooks, _ := m["hooks"].([]interface{})
	for _, h := range subHooks {
		if hm, ok := h.(map[string]interface{}); ok {
			if cmd, _ := hm["command"].(string); strings.HasPrefix(cmd, hookCommandPrefix) {
				return true
			}
		}
	}
	return false
}

func readClaudeSettings(path string) (map[string]interface{}, error) {
	settings := make(map[string]interface{})
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	return settings, nil
}

func writeClaudeSettings(path string, settings map[string]interface{}) error {
	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func getOrCreateMap(parent map[string]interface{}, key string) map[string]interface{} {
	if v, ok := parent[key].(map[string]interface{}); ok {
		return v
	}
	m := make(map[string]interface{})
	parent[key] = m
	return m
}

func getOrCreateSlice(parent map[string]interface{}, key string) []interface{} {
	if v, ok := parent[key].([]interface{}); ok {
		return v
	}
	return nil
}
