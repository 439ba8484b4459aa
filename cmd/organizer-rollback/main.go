// Command organizer-rollback undoes a reorganization by reading the
// original structure snapshot the pipeline captured before it touched
// anything and moving entries back to the locations recorded there. It is
// a separate binary, not an organizer subcommand, because it must work
// even when the state database the pipeline relies on is itself suspect.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/snapshot"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "organizer-rollback <path>",
	Short: "Restore a sample library's original structure from its recorded snapshot",
	Long: `organizer-rollback reverses an 'organizer run' non-destructively. It
requires structure-originale.json under <path>/.audio-organizer, the
snapshot the pipeline wrote of the tree before reorganizing it, and moves
whatever now sits at <path> back to the locations that snapshot recorded,
creating any missing directories and preserving each entry's mtime.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	source := filepath.Clean(args[0])

	info, err := os.Stat(source)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", source)
	}

	snapPath := snapshot.StatePath(source, snapshot.OriginalSnapshotFile)
	if _, err := os.Stat(snapPath); err != nil {
		return fmt.Errorf("no original snapshot at %s: run an organizer pass first", snapPath)
	}

	original, err := snapshot.Load(snapPath)
	if err != nil {
		return fmt.Errorf("failed to load original snapshot: %w", err)
	}

	current := make(map[string]string)
	if err := indexCurrentTree(source, current); err != nil {
		return fmt.Errorf("failed to walk current tree: %w", err)
	}

	restored, unchanged, failed := 0, 0, 0
	for _, entry := range original.Children {
		moved, err := restoreEntry(entry, current)
		switch {
		case err != nil:
			util.ErrorLog("%s: %v", entry.Name, err)
			failed++
		case moved:
			restored++
		default:
			unchanged++
		}
	}

	if failed > 0 {
		return fmt.Errorf("rollback finished with %d failed entries, %d restored, %d already in place", failed, restored, unchanged)
	}
	util.SuccessLog("Rollback complete: %d entries restored, %d already in place", restored, unchanged)
	return nil
}

// indexCurrentTree records the current on-disk location of every top-level
// name found anywhere under source, skipping the state directory. A
// reorganized tree may have nested an entry under a new category folder, so
// restoreEntry needs to find it by name rather than assuming it is still at
// the top level.
func indexCurrentTree(source string, index map[string]string) error {
	return filepath.WalkDir(source, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == source {
			return nil
		}
		if d.IsDir() && d.Name() == snapshot.StateDirName {
			return filepath.SkipDir
		}
		if _, exists := index[d.Name()]; !exists {
			index[d.Name()] = path
		}
		return nil
	})
}

// restoreEntry moves entry back to its recorded path if it isn't already
// there, creating missing parent directories and preserving the recorded
// mtime. If the entry can't be found anywhere in the current tree, a
// placeholder is created at the recorded path so the directory listing
// still matches the snapshot, per the documented rollback edge case for
// snapshots that carry no reconstructible content.
func restoreEntry(entry *model.Node, current map[string]string) (bool, error) {
	if _, err := os.Stat(entry.Path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(entry.Path), 0755); err != nil {
		return false, fmt.Errorf("cannot create parent directory: %w", err)
	}

	if at, ok := current[entry.Name]; ok {
		if err := os.Rename(at, entry.Path); err != nil {
			return false, fmt.Errorf("cannot move %s -> %s: %w", at, entry.Path, err)
		}
		return true, preserveMTime(entry)
	}

	if err := createPlaceholder(entry); err != nil {
		return false, err
	}
	return true, preserveMTime(entry)
}

// createPlaceholder recreates an entry the current tree no longer contains.
// Directories are recreated empty; files are recreated as empty
// placeholders, since the snapshot records metadata, not content.
func createPlaceholder(entry *model.Node) error {
	if entry.IsDir {
		return os.MkdirAll(entry.Path, 0755)
	}
	f, err := os.Create(entry.Path)
	if err != nil {
		return fmt.Errorf("cannot create placeholder for %s: %w", entry.Path, err)
	}
	return f.Close()
}

func preserveMTime(entry *model.Node) error {
	if entry.MTime.IsZero() {
		return nil
	}
	return os.Chtimes(entry.Path, entry.MTime, entry.MTime)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
