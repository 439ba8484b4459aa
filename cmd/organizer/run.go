package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/sample-organizer/internal/pipeline"
	"github.com/franz/sample-organizer/internal/plan"
	"github.com/franz/sample-organizer/internal/report"
	"github.com/franz/sample-organizer/internal/snapshot"
	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/structure"
	"github.com/franz/sample-organizer/internal/taxonomy"
	"github.com/franz/sample-organizer/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full organization pipeline end to end",
	Long: `Drive the organizer through all six phases in one process: preparation,
discovery, classification, matrix, organization, and validation.

At each checkpoint the pipeline pauses and this command either prompts you
for a decision or, with --auto-approve, accepts the recommended choice and
continues. Progress and decisions are recorded in the state database so
'organizer state', 'organizer phase-data', and 'organizer report' can
inspect a run afterward.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("auto-approve", false, "accept every checkpoint's recommended choice without prompting")
	runCmd.Flags().Duration("max-organize-duration", pipeline.DefaultMaxOrganizationDuration, "time budget for phase 4 before forcing a rollback")
	runCmd.Flags().String("nas-mode", "auto", "network filesystem tuning: auto, on, or off")
}

// parseNASMode turns the --nas-mode flag into the tri-state override
// pipeline.Config.NASMode expects: nil means auto-detect.
func parseNASMode(value string) (*bool, error) {
	switch strings.ToLower(value) {
	case "auto", "":
		return nil, nil
	case "on", "true":
		v := true
		return &v, nil
	case "off", "false":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid --nas-mode %q: want auto, on, or off", value)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	source := viper.GetString("source")
	dest := viper.GetString("dest")
	if source == "" {
		return fmt.Errorf("source directory is required (use --source/-s or set in config)")
	}
	if dest == "" {
		return fmt.Errorf("destination directory is required (use --dest/-d or set in config)")
	}

	dbPath := viper.GetString("db")
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	maxOrganizeDuration, _ := cmd.Flags().GetDuration("max-organize-duration")
	nasModeFlag, _ := cmd.Flags().GetString("nas-mode")
	nasMode, err := parseNASMode(nasModeFlag)
	if err != nil {
		return err
	}

	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	util.InfoLog("Opening database: %s", dbPath)
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logLevel := report.LevelInfo
	if quiet {
		logLevel = report.LevelWarning
	} else if verbose {
		logLevel = report.LevelDebug
	}
	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	labelCache := taxonomy.NewLabelCache(db.DB())
	if err := labelCache.EnsureSchema(); err != nil {
		util.WarnLog("Failed to initialize label cache: %v", err)
		labelCache = nil
	}
	registry := taxonomy.Load(labelCache)

	stopFile := filepath.Join(source, snapshot.StateDirName, "stop-requested")
	os.Remove(stopFile)

	ctrl := pipeline.New(pipeline.Config{
		SourcePath:              source,
		DestPath:                dest,
		Store:                   db,
		Logger:                  logger,
		Registry:                registry,
		MaxOrganizationDuration: maxOrganizeDuration,
		Emit:                    emitPipelineEvent,
		NASMode:                 nasMode,
	})

	util.InfoLog("=== Preparing run ===")
	if _, err := ctrl.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	for phase := pipeline.PhasePreparation; phase <= pipeline.PhaseValidation; phase++ {
		if _, err := os.Stat(stopFile); err == nil {
			util.WarnLog("Stop requested, halting before phase %s", phase)
			ctrl.Stop()
		}

		util.InfoLog("")
		util.InfoLog("=== Phase %d: %s ===", int(phase), phase)

		result, err := ctrl.ExecutePhase(ctx, phase, nil)
		if err != nil {
			return fmt.Errorf("phase %s failed: %w", phase, err)
		}

		if result.Outcome == pipeline.OutcomeAwaitingUser {
			choice := resolveCheckpoint(reader, result.Pending, autoApprove)
			result, err = ctrl.ContinuePhase(ctx, phase, choice, result.Pending)
			if err != nil {
				return fmt.Errorf("phase %s failed to resume: %w", phase, err)
			}
		}

		switch result.Outcome {
		case pipeline.OutcomeFailed:
			return fmt.Errorf("phase %s failed: %w", phase, result.Err)
		case pipeline.OutcomeCompleted:
			describePhaseOutput(phase, result.Output)
			if result.Err != nil {
				util.WarnLog("phase %s completed with warnings: %v", phase, result.Err)
			}
		}
	}

	util.InfoLog("")
	util.SuccessLog("Run complete!")

	summary, err := report.GenerateSummaryReport(db, logger.Path())
	if err != nil {
		util.WarnLog("failed to generate summary report: %v", err)
		return nil
	}
	summary.DatabasePath = dbPath
	summary.SourcePath = source
	summary.DestinationPath = dest

	outDir := filepath.Join("artifacts", "reports", time.Now().Format("20060102-150405"))
	outPath := filepath.Join(outDir, "summary.md")
	if err := report.WriteMarkdownReport(summary, outPath); err != nil {
		util.WarnLog("failed to write summary report: %v", err)
		return nil
	}
	util.InfoLog("Summary report: %s", outPath)

	return nil
}

func emitPipelineEvent(e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventPhaseProgress:
		util.InfoLog("  [%s] %.0f%% %s", e.Phase, e.Progress*100, e.Message)
	case pipeline.EventPhaseError:
		util.ErrorLog("  [%s] error: %v", e.Phase, e.Err)
	}
}

// resolveCheckpoint returns the user choice to pass to ContinuePhase for a
// suspended phase, prompting interactively unless autoApprove accepts the
// pipeline's own recommendation.
func resolveCheckpoint(reader *bufio.Reader, pending *pipeline.PendingState, autoApprove bool) string {
	if pending == nil {
		return ""
	}

	switch pending.Step {
	case "confirm-unwrap":
		ops, _ := pending.Data.([]plan.Operation)
		util.InfoLog("%d wrapper pack(s) can be unwrapped:", len(ops))
		for _, op := range ops {
			util.InfoLog("  %s -> %s", op.SourcePath, op.TargetPath)
		}
		if autoApprove {
			return "approve"
		}
		return promptYesNo(reader, "Unwrap these wrapper packs?", "approve", "skip")

	case "review-duplicates":
		out, _ := pending.Data.(*pipeline.DiscoveryOutput)
		if out != nil {
			util.InfoLog("%d pack(s) detected, %d duplicate group(s) found:", len(out.Packs), len(out.DuplicateGroups))
			for _, g := range out.DuplicateGroups {
				util.InfoLog("  %s (%s, %d files, %s wasted)", g.Signature, g.Strategy, len(g.Files), humanize.Bytes(uint64(g.WastedBytes())))
			}
		}
		if autoApprove {
			return "continue"
		}
		promptContinue(reader, "Review the duplicate groups above, then press Enter to continue")
		return "continue"

	case "review-quarantine":
		out, _ := pending.Data.(*pipeline.ClassificationOutput)
		if out != nil {
			util.InfoLog("%d pack(s) classified, %d quarantined for low confidence (< %.1f):", len(out.Enriched), len(out.Quarantined), pipeline.QuarantineThreshold)
			for _, q := range out.Quarantined {
				util.InfoLog("  %s (confidence %.2f)", q.Name, q.Confidence)
			}
		}
		if autoApprove {
			return "continue"
		}
		promptContinue(reader, "Review the quarantined packs above, then press Enter to continue")
		return "continue"

	case "choose-structure":
		proposals, _ := pending.Data.([]structure.Proposal)
		var recommended string
		util.InfoLog("Choose a destination folder structure:")
		for _, p := range proposals {
			marker := " "
			if p.Recommended {
				marker = "*"
				recommended = p.ID
			}
			util.InfoLog("  [%s] %-6s %s", marker, p.ID, p.Name)
		}
		if autoApprove {
			return recommended
		}
		fmt.Printf("Structure ID (blank = recommended %q): ", recommended)
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return recommended
		}
		return line

	default:
		return ""
	}
}

func promptYesNo(reader *bufio.Reader, question, yesChoice, noChoice string) string {
	fmt.Printf("%s [y/N]: ", question)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "y" || line == "yes" {
		return yesChoice
	}
	return noChoice
}

func promptContinue(reader *bufio.Reader, message string) {
	fmt.Printf("%s: ", message)
	reader.ReadString('\n')
}

func describePhaseOutput(phase pipeline.Phase, output interface{}) {
	switch phase {
	case pipeline.PhasePreparation:
		if out, ok := output.(*pipeline.PreparationOutput); ok {
			util.SuccessLog("Preparation complete: %d wrapper pack(s) unwrapped", out.Unwrapped)
		}
	case pipeline.PhaseDiscovery:
		if out, ok := output.(*pipeline.DiscoveryOutput); ok {
			util.SuccessLog("Discovery complete: %d pack(s), %d duplicate group(s)", len(out.Packs), len(out.DuplicateGroups))
		}
	case pipeline.PhaseClassification:
		if out, ok := output.(*pipeline.ClassificationOutput); ok {
			util.SuccessLog("Classification complete: %d pack(s) classified, %d quarantined", len(out.Enriched), len(out.Quarantined))
		}
	case pipeline.PhaseMatrix:
		if out, ok := output.(*pipeline.MatrixOutput); ok {
			util.SuccessLog("Matrix complete: structure %q selected, %d fusion group(s)", out.Selected.Name, len(out.FusionGroups))
		}
	case pipeline.PhaseOrganization:
		if out, ok := output.(*pipeline.OrganizationOutput); ok {
			util.SuccessLog("Organization complete: %s", out.Result.String())
		}
	case pipeline.PhaseValidation:
		if out, ok := output.(*pipeline.ValidationOutput); ok {
			if out.Report.Passed {
				util.SuccessLog("Validation passed (score %.2f)", out.Report.Score)
			} else {
				util.WarnLog("Validation did not pass (score %.2f)", out.Report.Score)
				for _, f := range out.Report.Findings {
					util.WarnLog("  [%s/%s] %s", f.Suite, f.Severity, f.Message)
				}
			}
		}
	}
}

