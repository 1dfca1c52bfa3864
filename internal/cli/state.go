package cli

import (
	"encoding/json"
	"fmt"

	"github.com/gzhole/skillguard/internal/event"
	"github.com/gzhole/skillguard/internal/session"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var stateFormat string

var stateCmd = &cobra.Command{
	Use:   "state <session-id>",
	Short: "Print the persisted state of a session",
	Long: `Print a session's edited files, applied skills, violations, and payload
samples.

  skillguard state 3f2a...              # JSON
  skillguard state 3f2a... -o yaml      # YAML`,
	Args: cobra.ExactArgs(1),
	RunE: stateCommand,
}

func init() {
	stateCmd.Flags().StringVarP(&stateFormat, "output", "o", "json", "Output format: json or yaml")
	rootCmd.AddCommand(stateCmd)
}

func stateCommand(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	if err := event.ValidateSessionID(sessionID); err != nil {
		return fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	st := session.NewStore(cfg.StateDir).Read(sessionID)

	var data []byte
	switch stateFormat {
	case "yaml", "yml":
		data, err = yaml.Marshal(st)
	case "json":
		data, err = json.MarshalIndent(st, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown output format %q", stateFormat)
	}
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(data)
	return err
}
