package main

import (
	"fmt"

	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the persisted status of every pipeline phase",
	Long: `Print each phase's status, progress, and any recorded error from the
state database. Unlike 'organizer run', this does not hold the pipeline's
in-memory run state, so it reports only what the last run persisted —
useful for checking on a run from a second terminal or after it exits.`,
	RunE: runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("db")

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	phases, err := db.GetAllPhases()
	if err != nil {
		return fmt.Errorf("failed to get phases: %w", err)
	}

	if len(phases) == 0 {
		util.WarnLog("No phase state recorded yet. Run 'organizer run' first.")
		return nil
	}

	util.InfoLog("=== Pipeline State ===")
	for _, p := range phases {
		line := fmt.Sprintf("%d. %-15s %-14s progress=%.0f%%", p.PhaseNum, p.Name, p.Status, p.Progress*100)
		if p.Error != "" {
			line += fmt.Sprintf(" error=%q", p.Error)
		}
		switch p.Status {
		case "completed":
			util.SuccessLog("%s", line)
		case "failed":
			util.ErrorLog("%s", line)
		case "awaiting_user":
			util.WarnLog("%s", line)
		default:
			util.InfoLog("%s", line)
		}
	}

	return nil
}
