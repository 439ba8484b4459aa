package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/sample-organizer/internal/model"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildAggregatesCounts(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Kicks", "kick1.wav"), 100)
	writeFile(t, filepath.Join(root, "Kicks", "kick2.wav"), 200)
	writeFile(t, filepath.Join(root, "Presets", "lead.fxp"), 50)
	writeFile(t, filepath.Join(root, "readme.txt"), 10)

	b := NewBuilder(Config{SourcePath: root})
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Root.AudioCount != 2 {
		t.Errorf("AudioCount = %d, want 2", result.Root.AudioCount)
	}
	if result.Root.PresetCount != 1 {
		t.Errorf("PresetCount = %d, want 1", result.Root.PresetCount)
	}
	if result.Root.OtherCount != 1 {
		t.Errorf("OtherCount = %d, want 1", result.Root.OtherCount)
	}
	if result.Root.TotalSize != 360 {
		t.Errorf("TotalSize = %d, want 360", result.Root.TotalSize)
	}
}

func TestBuildRespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	deepPath := filepath.Join(root, "a", "b", "c", "d", "e", "f")
	writeFile(t, filepath.Join(deepPath, "deep.wav"), 10)

	b := NewBuilder(Config{SourcePath: root, MaxDepth: 2})
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := deepestDepth(result.Root); got > 2 {
		t.Errorf("walk recursed past MaxDepth: deepest node at depth %d", got)
	}
}

func deepestDepth(n *model.Node) int {
	max := n.Depth
	for _, c := range n.Children {
		if c.IsDir {
			if d := deepestDepth(c); d > max {
				max = d
			}
		}
	}
	return max
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.wav"), 5)

	b := NewBuilder(Config{SourcePath: root})
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	out := filepath.Join(t.TempDir(), "snap.json")
	if err := Save(result.Root, out); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(out)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AudioCount != result.Root.AudioCount {
		t.Errorf("round-tripped AudioCount = %d, want %d", loaded.AudioCount, result.Root.AudioCount)
	}
}

func TestBuildPopulatesMTime(t *testing.T) {
	root := t.TempDir()
	filePath := filepath.Join(root, "Kicks", "kick1.wav")
	writeFile(t, filePath, 10)

	wantMTime := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(filePath, wantMTime, wantMTime); err != nil {
		t.Fatal(err)
	}

	b := NewBuilder(Config{SourcePath: root})
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Root.MTime.IsZero() {
		t.Error("root node MTime not populated")
	}

	var file *model.Node
	for _, dir := range result.Root.Children {
		for _, c := range dir.Children {
			if c.Name == "kick1.wav" {
				file = c
			}
		}
	}
	if file == nil {
		t.Fatal("kick1.wav not found in snapshot tree")
	}
	if !file.MTime.Equal(wantMTime) {
		t.Errorf("file MTime = %v, want %v", file.MTime, wantMTime)
	}
}

// TestBuildConcurrentWalkManyEntries exercises walkConcurrent (triggered
// once a directory holds more than 32 entries) so the mutex guarding errs
// and symlinkSeen is actually run under concurrent writers, not just the
// serial path.
func TestBuildConcurrentWalkManyEntries(t *testing.T) {
	root := t.TempDir()
	const dirCount = 40
	for i := 0; i < dirCount; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("Pack%02d", i), "sample.wav"), 10)
	}

	b := NewBuilder(Config{SourcePath: root})
	result, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.Root.AudioCount != dirCount {
		t.Errorf("AudioCount = %d, want %d", result.Root.AudioCount, dirCount)
	}
	if len(result.Root.Children) != dirCount {
		t.Errorf("got %d top-level children, want %d", len(result.Root.Children), dirCount)
	}
}
