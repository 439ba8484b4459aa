package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/sample-organizer/internal/snapshot"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request a running 'organizer run' to stop at the next checkpoint",
	Long: `Because 'organizer run' drives the pipeline within a single process, a
'stop' issued from another terminal cannot reach its in-memory Controller
directly. Instead this command drops a sentinel file under the source
tree's state directory; the running process checks for it before starting
each phase and halts there, leaving all state already persisted intact.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	source := viper.GetString("source")
	if source == "" {
		return fmt.Errorf("source directory is required (use --source/-s or set in config)")
	}

	dir := filepath.Join(source, snapshot.StateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	stopFile := filepath.Join(dir, "stop-requested")
	if err := os.WriteFile(stopFile, []byte("stop\n"), 0644); err != nil {
		return fmt.Errorf("failed to write stop sentinel: %w", err)
	}

	util.SuccessLog("Stop requested. The run will halt before its next phase.")
	return nil
}
