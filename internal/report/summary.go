package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/store"
)

// SummaryReport represents a complete end-of-run summary.
type SummaryReport struct {
	GeneratedAt time.Time
	Duration    time.Duration

	// Detection statistics
	PacksDetected  int
	PacksByType    []TypeCount
	WrapperPacks   int
	BundlePacks    int

	// Duplicate statistics
	DuplicateGroups int
	WastedBytes     int64

	// Fusion statistics
	FusionGroups int
	FusedPacks   int

	// Planning / execution statistics
	OperationsPlanned  int
	OperationsByType   []TypeCount
	OperationsDone     int
	OperationsFailed   int
	OperationsPending  int

	// Phase history
	Phases []PhaseSummary

	// Details
	TopErrors     []ErrorSummary
	DuplicateSets []DuplicateSet

	// Metadata
	SourcePath      string
	DestinationPath string
	Mode            string
	DatabasePath    string
	EventLogPath    string
}

// TypeCount pairs a category label with its count, used for both pack-type
// and operation-type breakdowns.
type TypeCount struct {
	Label string
	Count int
}

// PhaseSummary is the report-facing view of a pipeline phase record.
type PhaseSummary struct {
	PhaseNum int
	Name     string
	Status   string
	Progress float64
	Error    string
}

// ErrorSummary represents an error with its count.
type ErrorSummary struct {
	Error string
	Count int
}

// DuplicateSet represents one duplicate group with its member files.
type DuplicateSet struct {
	Signature   string
	Strategy    string
	WastedBytes int64
	Files       []DuplicateFile
}

// DuplicateFile represents a single file within a duplicate group.
type DuplicateFile struct {
	Path      string
	SizeBytes int64
}

// GenerateSummaryReport builds a SummaryReport from the pipeline's persisted
// state. It is safe to call at any point after phase 1 (Discovery) — earlier
// phases simply yield zero-valued sections.
func GenerateSummaryReport(db *store.Store, eventLogPath string) (*SummaryReport, error) {
	r := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		TopErrors:    make([]ErrorSummary, 0),
		DuplicateSets: make([]DuplicateSet, 0),
	}

	packs, err := db.GetAllPacks()
	if err != nil {
		return nil, fmt.Errorf("failed to load packs: %w", err)
	}
	r.PacksDetected = len(packs)
	byType := make(map[string]int)
	for _, p := range packs {
		byType[p.PackType]++
		if p.ShouldExtract {
			r.WrapperPacks++
		}
		if p.PackType == string(model.BundleContainer) {
			r.BundlePacks++
		}
	}
	r.PacksByType = sortedTypeCounts(byType)

	r.DuplicateSets = gatherDuplicateSets(db, 20)
	groups, err := db.GetAllDuplicateGroups()
	if err != nil {
		return nil, fmt.Errorf("failed to load duplicate groups: %w", err)
	}
	r.DuplicateGroups = len(groups)
	for _, g := range groups {
		r.WastedBytes += g.WastedBytes
	}

	fusionGroups, err := db.GetAllFusionGroups()
	if err != nil {
		return nil, fmt.Errorf("failed to load fusion groups: %w", err)
	}
	r.FusionGroups = len(fusionGroups)
	for _, g := range fusionGroups {
		members, err := db.GetFusionGroupMembers(g.ID)
		if err != nil {
			continue
		}
		r.FusedPacks += len(members)
	}

	ops, err := db.GetOperationsByPlan()
	if err != nil {
		return nil, fmt.Errorf("failed to load operations: %w", err)
	}
	r.OperationsPlanned = len(ops)
	opsByType := make(map[string]int)
	for _, op := range ops {
		opsByType[op.OpType]++
		switch op.Status {
		case "done":
			r.OperationsDone++
		case "failed":
			r.OperationsFailed++
		default:
			r.OperationsPending++
		}
	}
	r.OperationsByType = sortedTypeCounts(opsByType)

	phases, err := db.GetAllPhases()
	if err != nil {
		return nil, fmt.Errorf("failed to load phases: %w", err)
	}
	for _, p := range phases {
		r.Phases = append(r.Phases, PhaseSummary{
			PhaseNum: p.PhaseNum,
			Name:     p.Name,
			Status:   p.Status,
			Progress: p.Progress,
			Error:    p.Error,
		})
	}

	r.TopErrors = gatherTopErrors(ops, 10)

	return r, nil
}

func sortedTypeCounts(m map[string]int) []TypeCount {
	out := make([]TypeCount, 0, len(m))
	for k, v := range m {
		out = append(out, TypeCount{Label: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// gatherDuplicateSets retrieves duplicate groups with their member files,
// largest waste first.
func gatherDuplicateSets(db *store.Store, limit int) []DuplicateSet {
	groups, err := db.GetAllDuplicateGroups()
	if err != nil {
		return nil
	}

	sets := make([]DuplicateSet, 0, len(groups))
	for _, g := range groups {
		files, err := db.GetDuplicateGroupFiles(g.Signature)
		if err != nil {
			continue
		}
		set := DuplicateSet{
			Signature:   g.Signature,
			Strategy:    g.Strategy,
			WastedBytes: g.WastedBytes,
		}
		for _, f := range files {
			set.Files = append(set.Files, DuplicateFile{Path: f.FilePath, SizeBytes: f.SizeBytes})
		}
		sets = append(sets, set)
	}

	if len(sets) > limit {
		sets = sets[:limit]
	}
	return sets
}

// gatherTopErrors retrieves the most common operation errors.
func gatherTopErrors(ops []*store.OperationRow, limit int) []ErrorSummary {
	counts := make(map[string]int)
	for _, op := range ops {
		if op.Error != "" {
			counts[op.Error]++
		}
	}

	errs := make([]ErrorSummary, 0, len(counts))
	for e, c := range counts {
		errs = append(errs, ErrorSummary{Error: e, Count: c})
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Count > errs[j].Count })

	if len(errs) > limit {
		errs = errs[:limit]
	}
	return errs
}

// WriteMarkdownReport writes the summary report as Markdown.
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Sample Pack Organizer - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## 📊 Detection\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Packs Detected | %d |\n", report.PacksDetected))
	md.WriteString(fmt.Sprintf("| Wrapper Packs (needing unwrap) | %d |\n", report.WrapperPacks))
	md.WriteString(fmt.Sprintf("| Explicit Bundles | %d |\n", report.BundlePacks))
	md.WriteString("\n")

	if len(report.PacksByType) > 0 {
		md.WriteString("| Pack Type | Count |\n")
		md.WriteString("|-----------|-------|\n")
		for _, tc := range report.PacksByType {
			md.WriteString(fmt.Sprintf("| %s | %d |\n", tc.Label, tc.Count))
		}
		md.WriteString("\n")
	}

	if report.DuplicateGroups > 0 {
		md.WriteString("## 🔁 Duplicates\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Duplicate Groups | %d |\n", report.DuplicateGroups))
		md.WriteString(fmt.Sprintf("| Wasted Space | %s |\n", humanize.Bytes(uint64(report.WastedBytes))))
		md.WriteString("\n")
	}

	if report.FusionGroups > 0 {
		md.WriteString("## 🔗 Fusion\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Fusion Groups | %d |\n", report.FusionGroups))
		md.WriteString(fmt.Sprintf("| Packs Merged | %d |\n", report.FusedPacks))
		md.WriteString("\n")
	}

	if report.OperationsPlanned > 0 {
		md.WriteString("## 📋 Plan & Execution\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Operations Planned | %d |\n", report.OperationsPlanned))
		md.WriteString(fmt.Sprintf("| Completed | %d |\n", report.OperationsDone))
		if report.OperationsFailed > 0 {
			md.WriteString(fmt.Sprintf("| Failed | %d |\n", report.OperationsFailed))
		}
		if report.OperationsPending > 0 {
			md.WriteString(fmt.Sprintf("| Pending | %d |\n", report.OperationsPending))
		}
		if report.DestinationPath != "" {
			md.WriteString(fmt.Sprintf("| Destination | `%s` |\n", report.DestinationPath))
		}
		if report.Mode != "" {
			md.WriteString(fmt.Sprintf("| Mode | %s |\n", report.Mode))
		}
		md.WriteString("\n")

		if len(report.OperationsByType) > 0 {
			md.WriteString("| Operation | Count |\n")
			md.WriteString("|-----------|-------|\n")
			for _, tc := range report.OperationsByType {
				md.WriteString(fmt.Sprintf("| %s | %d |\n", tc.Label, tc.Count))
			}
			md.WriteString("\n")
		}
	}

	if len(report.Phases) > 0 {
		md.WriteString("## 🧭 Phases\n\n")
		md.WriteString("| # | Phase | Status | Progress |\n")
		md.WriteString("|---|-------|--------|----------|\n")
		for _, p := range report.Phases {
			md.WriteString(fmt.Sprintf("| %d | %s | %s | %.0f%% |\n", p.PhaseNum, p.Name, p.Status, p.Progress*100))
		}
		md.WriteString("\n")
	}

	if len(report.DuplicateSets) > 0 {
		md.WriteString("## 🔍 Duplicate Groups (Top 20)\n\n")
		md.WriteString("*Showing groups with the most wasted space*\n\n")

		for i, set := range report.DuplicateSets {
			md.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, set.Signature))
			md.WriteString(fmt.Sprintf("**Strategy:** %s | **Wasted:** %s | **Members:** %d\n\n",
				set.Strategy, humanize.Bytes(uint64(set.WastedBytes)), len(set.Files)))

			for _, f := range set.Files {
				md.WriteString(fmt.Sprintf("- `%s` (%s)\n", truncatePath(f.Path, 80), humanize.Bytes(uint64(f.SizeBytes))))
			}
			md.WriteString("\n")
		}
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## ⚠️ Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, err.Error))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by the sample pack organizer.*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// truncatePath truncates a file path to a maximum length, keeping the start
// and end.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
