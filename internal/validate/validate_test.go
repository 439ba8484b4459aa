package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/sample-organizer/internal/plan"
)

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	mustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestValidatePassesCleanTree(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "Trap", "Essentials")
	mustWriteFile(t, filepath.Join(target, "kick.wav"), "data")

	report := Validate(Input{
		TargetRoot:   root,
		PreFileCount: 1,
		Operations: []plan.Operation{
			{Type: plan.OpMove, TargetPath: target, Status: "done"},
		},
	})

	if !report.Passed {
		t.Errorf("expected a clean tree to pass, findings: %+v", report.Findings)
	}
	if report.Score < 0.8 {
		t.Errorf("Score = %f, want >= 0.8", report.Score)
	}
}

func TestValidateFailsOnMissingTarget(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "Trap", "Ghost")

	report := Validate(Input{
		TargetRoot: root,
		Operations: []plan.Operation{
			{Type: plan.OpMove, TargetPath: missing, Status: "done"},
		},
	})

	if report.Passed {
		t.Error("expected validation to fail when a target is missing")
	}
}

func TestValidateFlagsEmptyFolders(t *testing.T) {
	root := t.TempDir()
	mustMkdirAll(t, filepath.Join(root, "Trap", "Empty"))
	mustWriteFile(t, filepath.Join(root, "Trap", "Full", "kick.wav"), "data")

	report := Validate(Input{TargetRoot: root, PreFileCount: 1})

	found := false
	for _, f := range report.Findings {
		if f.Suite == SuiteStructure && f.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning finding for the empty folder")
	}
}

func TestValidateFusionBelowThresholdWarns(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "Trap Essentials")
	mustWriteFile(t, filepath.Join(target, "kick.wav"), "data")

	report := Validate(Input{
		TargetRoot: root,
		Operations: []plan.Operation{
			{Type: plan.OpFuse, TargetPath: target, Status: "failed"},
			{Type: plan.OpFuse, TargetPath: target, Status: "failed"},
			{Type: plan.OpFuse, TargetPath: target, Status: "done"},
		},
	})

	found := false
	for _, f := range report.Findings {
		if f.Suite == SuiteFusion {
			found = true
		}
	}
	if !found {
		t.Error("expected a fusion suite finding when success rate is below 80%")
	}
}

func TestValidateDuplicateGroupsRemainingWarnsNotFails(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "kick.wav"), "data")

	report := Validate(Input{
		TargetRoot:               root,
		PreFileCount:             1,
		DuplicateGroupsRemaining: 3,
	})

	foundWarning := false
	for _, f := range report.Findings {
		if f.Suite == SuiteDuplicates {
			if f.Severity == SeverityCritical {
				t.Error("leftover duplicates must be warn-level, not critical")
			}
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Error("expected a duplicate scan finding")
	}
}
