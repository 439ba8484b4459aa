package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/sample-organizer/internal/store"
)

func setupTestData(t *testing.T, db *store.Store) {
	t.Helper()

	pack1 := &store.PackRow{PackUUID: "pack-1", Name: "Trap Essentials", SourcePath: "/src/Trap Essentials", PackType: "leaf", Confidence: 0.9}
	if err := db.InsertPack(pack1); err != nil {
		t.Fatalf("InsertPack: %v", err)
	}
	pack2 := &store.PackRow{PackUUID: "pack-2", Name: "Trap Essentials (Wrapped)", SourcePath: "/src/wrapper", PackType: "wrapper", Confidence: 0.8, ShouldExtract: true}
	if err := db.InsertPack(pack2); err != nil {
		t.Fatalf("InsertPack: %v", err)
	}
	pack3 := &store.PackRow{PackUUID: "pack-3", Name: "Full Bundle", SourcePath: "/src/bundle", PackType: "BundleContainer", Confidence: 0.95}
	if err := db.InsertPack(pack3); err != nil {
		t.Fatalf("InsertPack: %v", err)
	}

	if err := db.InsertDuplicateGroup("sig-1", "ContentHash", 2048); err != nil {
		t.Fatalf("InsertDuplicateGroup: %v", err)
	}
	if err := db.InsertDuplicateFile(&store.DuplicateFileRow{Signature: "sig-1", FilePath: "/src/kick.wav", SizeBytes: 1024}); err != nil {
		t.Fatalf("InsertDuplicateFile: %v", err)
	}
	if err := db.InsertDuplicateFile(&store.DuplicateFileRow{Signature: "sig-1", FilePath: "/src/kick_copy.wav", SizeBytes: 1024}); err != nil {
		t.Fatalf("InsertDuplicateFile: %v", err)
	}

	group := &store.FusionGroupRow{GroupUUID: "fusion-1", CanonicalName: "Trap Essentials", MergeStrategy: "VolumeSeries", Priority: 10}
	if err := db.InsertFusionGroup(group); err != nil {
		t.Fatalf("InsertFusionGroup: %v", err)
	}
	if err := db.AddFusionGroupMember(group.ID, pack1.ID); err != nil {
		t.Fatalf("AddFusionGroupMember: %v", err)
	}

	ops := []*store.OperationRow{
		{OpType: "unwrap", SourcePath: "/src/wrapper/inner", TargetPath: "/src/wrapper", Priority: 0, Status: "done"},
		{OpType: "move", SourcePath: "/src/Trap Essentials", TargetPath: "/dest/Drums/Trap Essentials", Priority: 1, Status: "done"},
		{OpType: "move", SourcePath: "/src/bundle", TargetPath: "/dest/Bundles/Full Bundle", Priority: 2, Status: "failed", Error: "permission denied"},
	}
	for _, op := range ops {
		if err := db.InsertOperation(op); err != nil {
			t.Fatalf("InsertOperation: %v", err)
		}
	}

	phases := []*store.PhaseRow{
		{PhaseNum: 1, Name: "discovery", Status: "completed", Progress: 1},
		{PhaseNum: 2, Name: "classification", Status: "completed", Progress: 1},
	}
	for _, p := range phases {
		if err := db.UpsertPhase(p); err != nil {
			t.Fatalf("UpsertPhase: %v", err)
		}
	}
}

func TestGenerateSummaryReport(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	setupTestData(t, db)

	report, err := GenerateSummaryReport(db, "test-events.jsonl")
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if report.PacksDetected != 3 {
		t.Errorf("PacksDetected = %d, want 3", report.PacksDetected)
	}
	if report.WrapperPacks != 1 {
		t.Errorf("WrapperPacks = %d, want 1", report.WrapperPacks)
	}
	if report.BundlePacks != 1 {
		t.Errorf("BundlePacks = %d, want 1", report.BundlePacks)
	}
	if report.DuplicateGroups != 1 {
		t.Errorf("DuplicateGroups = %d, want 1", report.DuplicateGroups)
	}
	if report.WastedBytes != 2048 {
		t.Errorf("WastedBytes = %d, want 2048", report.WastedBytes)
	}
	if report.FusionGroups != 1 {
		t.Errorf("FusionGroups = %d, want 1", report.FusionGroups)
	}
	if report.FusedPacks != 1 {
		t.Errorf("FusedPacks = %d, want 1", report.FusedPacks)
	}
	if report.OperationsPlanned != 3 {
		t.Errorf("OperationsPlanned = %d, want 3", report.OperationsPlanned)
	}
	if report.OperationsDone != 2 {
		t.Errorf("OperationsDone = %d, want 2", report.OperationsDone)
	}
	if report.OperationsFailed != 1 {
		t.Errorf("OperationsFailed = %d, want 1", report.OperationsFailed)
	}
	if len(report.Phases) != 2 {
		t.Errorf("len(Phases) = %d, want 2", len(report.Phases))
	}
	if len(report.TopErrors) != 1 {
		t.Errorf("len(TopErrors) = %d, want 1", len(report.TopErrors))
	}
	if len(report.DuplicateSets) != 1 {
		t.Errorf("len(DuplicateSets) = %d, want 1", len(report.DuplicateSets))
	}
	if report.EventLogPath != "test-events.jsonl" {
		t.Errorf("EventLogPath = %q, want %q", report.EventLogPath, "test-events.jsonl")
	}
	if report.GeneratedAt.IsZero() {
		t.Error("expected GeneratedAt to be set")
	}
}

func TestGenerateSummaryReport_Empty(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "empty.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	report, err := GenerateSummaryReport(db, "")
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if report.PacksDetected != 0 {
		t.Errorf("PacksDetected = %d, want 0", report.PacksDetected)
	}
	if report.DuplicateGroups != 0 {
		t.Errorf("DuplicateGroups = %d, want 0", report.DuplicateGroups)
	}
	if report.OperationsPlanned != 0 {
		t.Errorf("OperationsPlanned = %d, want 0", report.OperationsPlanned)
	}
}

func TestWriteMarkdownReport(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "reports", "summary.md")

	report := &SummaryReport{
		GeneratedAt:       time.Now(),
		PacksDetected:     100,
		WrapperPacks:      10,
		BundlePacks:       5,
		PacksByType:       []TypeCount{{Label: "leaf", Count: 85}, {Label: "wrapper", Count: 10}, {Label: "bundle", Count: 5}},
		DuplicateGroups:   20,
		WastedBytes:       1024 * 1024 * 50,
		FusionGroups:      3,
		FusedPacks:        8,
		OperationsPlanned: 95,
		OperationsByType:  []TypeCount{{Label: "move", Count: 80}, {Label: "unwrap", Count: 10}, {Label: "fuse", Count: 5}},
		OperationsDone:    90,
		OperationsFailed:  2,
		OperationsPending: 3,
		Phases:            []PhaseSummary{{PhaseNum: 1, Name: "discovery", Status: "completed", Progress: 1}},
		TopErrors:         []ErrorSummary{{Error: "permission denied", Count: 2}},
		DuplicateSets:     []DuplicateSet{{Signature: "sig-1", Strategy: "ContentHash", WastedBytes: 2048, Files: []DuplicateFile{{Path: "/src/kick.wav", SizeBytes: 1024}}}},
		SourcePath:        "/src",
		DestinationPath:   "/dest",
		Mode:              "move",
		DatabasePath:      "/tmp/organizer-state.db",
		EventLogPath:      "artifacts/events.jsonl",
	}

	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("Failed to read generated report: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"Sample Pack Organizer",
		"Packs Detected | 100",
		"Duplicate Groups | 20",
		"Fusion Groups | 3",
		"Operations Planned | 95",
		"permission denied",
		"/tmp/organizer-state.db",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("report missing expected content: %q", want)
		}
	}
}

func TestWriteMarkdownReport_MinimalReport(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "summary.md")

	report := &SummaryReport{GeneratedAt: time.Now()}

	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	if _, err := os.Stat(outputPath); err != nil {
		t.Fatalf("expected report file to exist: %v", err)
	}
}

func TestTruncatePath(t *testing.T) {
	short := "/a/b/c.wav"
	if got := truncatePath(short, 80); got != short {
		t.Errorf("truncatePath(short) = %q, want unchanged", got)
	}

	long := "/" + strings.Repeat("a", 100) + "/file.wav"
	got := truncatePath(long, 40)
	if len(got) > 45 {
		t.Errorf("truncatePath did not shorten long path: len=%d", len(got))
	}
	if !strings.Contains(got, "...") {
		t.Errorf("truncatePath(long) = %q, want ellipsis", got)
	}
}
