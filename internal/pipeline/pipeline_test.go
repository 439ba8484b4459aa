package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/sample-organizer/internal/store"
	"github.com/franz/sample-organizer/internal/taxonomy"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestController(t *testing.T) (*Controller, string, string) {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")

	mustWriteFile(t, filepath.Join(src, "Trap Essentials", "kick.wav"), "data")

	db, err := store.Open(filepath.Join(root, "organizer.sqlite"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := New(Config{
		SourcePath: src,
		DestPath:   dst,
		Store:      db,
		Registry:   taxonomy.Load(nil),
	})
	return c, src, dst
}

func TestInitializeProducesSnapshot(t *testing.T) {
	c, _, _ := newTestController(t)

	result, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if result.Root == nil {
		t.Fatal("expected a non-nil snapshot root")
	}

	phase, status, _ := c.GetState()
	if phase != PhasePreparation {
		t.Errorf("phase = %v, want PhasePreparation", phase)
	}
	if status != StatusPending {
		t.Errorf("status = %v, want StatusPending", status)
	}
}

func TestPreparationWithNoWrapperPacksCompletesImmediately(t *testing.T) {
	c, _, _ := newTestController(t)
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	result, err := c.ExecutePhase(context.Background(), PhasePreparation, nil)
	if err != nil {
		t.Fatalf("ExecutePhase() error = %v", err)
	}
	if result.Outcome != OutcomeCompleted {
		t.Fatalf("Outcome = %v, want Completed (no wrapper packs present)", result.Outcome)
	}

	phase, status, _ := c.GetState()
	if phase != PhaseDiscovery {
		t.Errorf("phase = %v, want PhaseDiscovery", phase)
	}
	if status != StatusCompleted {
		t.Errorf("status = %v, want StatusCompleted", status)
	}
}

func TestDiscoverySuspendsForUserReview(t *testing.T) {
	c, _, _ := newTestController(t)
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if _, err := c.ExecutePhase(context.Background(), PhasePreparation, nil); err != nil {
		t.Fatalf("preparation error = %v", err)
	}

	result, err := c.ExecutePhase(context.Background(), PhaseDiscovery, nil)
	if err != nil {
		t.Fatalf("ExecutePhase() error = %v", err)
	}
	if result.Outcome != OutcomeAwaitingUser {
		t.Fatalf("Outcome = %v, want AwaitingUser", result.Outcome)
	}
	if result.Pending == nil || result.Pending.Step != "review-duplicates" {
		t.Fatalf("expected a review-duplicates pending state, got %+v", result.Pending)
	}

	resumed, err := c.ContinuePhase(context.Background(), PhaseDiscovery, "approve", result.Pending)
	if err != nil {
		t.Fatalf("ContinuePhase() error = %v", err)
	}
	if resumed.Outcome != OutcomeCompleted {
		t.Fatalf("Outcome = %v, want Completed after resume", resumed.Outcome)
	}

	out := resumed.Output.(*DiscoveryOutput)
	if len(out.Packs) == 0 {
		t.Error("expected at least one detected pack")
	}
}

func TestStopPreventsFurtherPhases(t *testing.T) {
	c, _, _ := newTestController(t)
	if _, err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	c.Stop()

	result, err := c.ExecutePhase(context.Background(), PhasePreparation, nil)
	if err != nil {
		t.Fatalf("ExecutePhase() error = %v", err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %v, want Failed after Stop()", result.Outcome)
	}
}
