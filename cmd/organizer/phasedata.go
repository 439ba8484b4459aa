package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/franz/sample-organizer/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var phaseDataCmd = &cobra.Command{
	Use:   "phase-data <phase-name>",
	Short: "Print a completed phase's persisted output as JSON",
	Long: `Print the output a phase recorded the last time it ran, read back from
the state database. Phase names are case-insensitive: preparation,
discovery, classification, matrix, organization, validation.`,
	Args: cobra.ExactArgs(1),
	RunE: runPhaseData,
}

func init() {
	rootCmd.AddCommand(phaseDataCmd)
}

func runPhaseData(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("db")
	want := strings.ToLower(args[0])

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	phases, err := db.GetAllPhases()
	if err != nil {
		return fmt.Errorf("failed to get phases: %w", err)
	}

	for _, p := range phases {
		if strings.ToLower(p.Name) != want {
			continue
		}
		if p.OutputJSON == "" {
			return fmt.Errorf("phase %s has no recorded output yet", p.Name)
		}
		var pretty interface{}
		if err := json.Unmarshal([]byte(p.OutputJSON), &pretty); err != nil {
			fmt.Println(p.OutputJSON)
			return nil
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	return fmt.Errorf("unknown phase %q", args[0])
}
