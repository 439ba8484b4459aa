package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure the organizer can operate correctly.

This command checks:
- SQLite version compatibility
- Database accessibility and integrity
- File permissions (read source, write destination)
- Disk space availability

Use this command to troubleshoot issues before running organizer operations.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().String("src", "", "Source directory to check (optional)")
	doctorCmd.Flags().String("dest", "", "Destination directory to check (optional)")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Organizer Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	results = append(results, checkSQLite())

	dbPath := viper.GetString("db")
	results = append(results, checkDatabase(dbPath))

	srcPath, _ := cmd.Flags().GetString("src")
	if srcPath == "" {
		srcPath = viper.GetString("source")
	}
	if srcPath != "" {
		results = append(results, checkSourceDirectory(srcPath))
	}

	destPath, _ := cmd.Flags().GetString("dest")
	if destPath == "" {
		destPath = viper.GetString("dest")
	}
	if destPath != "" {
		results = append(results, checkDestinationDirectory(destPath))
	}

	if srcPath != "" {
		results = append(results, checkDiskSpace(srcPath, "source"))
	}
	if destPath != "" && destPath != srcPath {
		results = append(results, checkDiskSpace(destPath, "destination"))
	}

	if srcPath != "" || destPath != "" {
		results = append(results, checkNetworkStorage(srcPath, destPath))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running organizer.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed! System is ready for organizer operations.")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	packs, _ := db.GetAllPacks()
	size := humanize.Bytes(uint64(info.Size()))

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %d packs)", dbPath, size, len(packs)),
	}
}

// checkSourceDirectory verifies source directory is readable
func checkSourceDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    "Source directory",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	return checkResult{
		name:    "Source directory",
		message: fmt.Sprintf("%s (%d entries)", path, len(entries)),
	}
}

// checkDestinationDirectory verifies destination directory is writable
func checkDestinationDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Destination directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Destination directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Destination directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Destination directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".organizer_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Destination directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Destination directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkNetworkStorage reports whether source/destination sit on a
// network filesystem and, if so, the settings the executor will
// auto-tune to for it.
func checkNetworkStorage(srcPath, destPath string) checkResult {
	cfg, err := util.AutoTuneForPath(srcPath, destPath, nil, 4)
	if err != nil {
		return checkResult{
			name:    "Network storage",
			warning: true,
			message: fmt.Sprintf("cannot probe filesystem: %v", err),
		}
	}
	if !cfg.IsNASMode {
		return checkResult{
			name:    "Network storage",
			message: "local filesystem, no tuning applied",
		}
	}
	return checkResult{
		name:    "Network storage",
		warning: true,
		message: util.FormatNASSettings(cfg),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))

	availGB := float64(availBytes) / (1024 * 1024 * 1024)
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	warning := false
	warningMsg := ""
	if availGB < 10 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 90 {
		warning = true
		warningMsg = " (>90% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%.1f GB available%s", availGB, warningMsg),
	}
}
