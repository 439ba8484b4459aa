package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/sample-organizer/internal/report"
	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report from the state database",
	Long: `Generate a comprehensive summary report in Markdown format.

The report includes:
- Pack detection statistics
- Duplicate and fusion group results
- Planned and executed operations
- Phase history
- Top errors and detailed duplicate group information

The report is saved to artifacts/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")

	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Database: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	eventLogPath, _ := cmd.Flags().GetString("event-log")

	util.InfoLog("Analyzing data...")
	summaryReport, err := report.GenerateSummaryReport(db, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	summaryReport.DatabasePath = dbPath
	summaryReport.SourcePath = viper.GetString("source")
	summaryReport.DestinationPath = viper.GetString("dest")

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join("artifacts", "reports", timestamp)
	}

	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summaryReport, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Report saved to: %s", outputPath)
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Packs detected: %d", summaryReport.PacksDetected)
	if summaryReport.DuplicateGroups > 0 {
		util.InfoLog("  Duplicate groups: %d (%s wasted)", summaryReport.DuplicateGroups, humanize.Bytes(uint64(summaryReport.WastedBytes)))
	}
	if summaryReport.FusionGroups > 0 {
		util.InfoLog("  Fusion groups: %d (%d packs merged)", summaryReport.FusionGroups, summaryReport.FusedPacks)
	}
	if summaryReport.OperationsPlanned > 0 {
		util.InfoLog("  Operations: %d planned, %d done", summaryReport.OperationsPlanned, summaryReport.OperationsDone)
		if summaryReport.OperationsFailed > 0 {
			util.WarnLog("  Operations failed: %d", summaryReport.OperationsFailed)
		}
	}

	return nil
}
