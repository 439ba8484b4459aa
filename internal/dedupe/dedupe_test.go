package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/sample-organizer/internal/model"
)

func TestIndexGroupsBySignature(t *testing.T) {
	root := &model.Node{
		IsDir: true,
		Children: []*model.Node{
			{Path: "/a/kick.wav", TotalSize: 1024},
			{Path: "/b/kick.wav", TotalSize: 1024},
			{Path: "/c/snare.wav", TotalSize: 2048},
		},
	}

	ix := New(Config{})
	groups, err := ix.Index(root)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Index() returned %d groups, want 1", len(groups))
	}
	if len(groups[0].Files) != 2 {
		t.Errorf("group has %d files, want 2", len(groups[0].Files))
	}
	if groups[0].WastedBytes() != 1024 {
		t.Errorf("WastedBytes() = %d, want 1024", groups[0].WastedBytes())
	}
}

func TestIndexWithContentHash(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "different_name.wav")
	if err := os.WriteFile(a, []byte("same content"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same content"), 0644); err != nil {
		t.Fatal(err)
	}

	root := &model.Node{
		IsDir: true,
		Children: []*model.Node{
			{Path: a, TotalSize: 12},
			{Path: b, TotalSize: 12},
		},
	}

	ix := New(Config{UseContentHash: true})
	groups, err := ix.Index(root)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("Index() returned %d groups, want 1 (same content, different names)", len(groups))
	}
}

func TestResolveAutoRemoveKeepsNewest(t *testing.T) {
	g := Group{
		Files: []FileEntry{
			{Path: "/a", ModTime: 100},
			{Path: "/b", ModTime: 200},
		},
	}
	keep, remove := Resolve(g, AutoRemove)
	if len(keep) != 1 || keep[0].Path != "/b" {
		t.Errorf("Resolve(AutoRemove) kept = %+v, want /b", keep)
	}
	if len(remove) != 1 || remove[0].Path != "/a" {
		t.Errorf("Resolve(AutoRemove) removed = %+v, want /a", remove)
	}
}

func TestResolveKeepAll(t *testing.T) {
	g := Group{Files: []FileEntry{{Path: "/a"}, {Path: "/b"}}}
	keep, remove := Resolve(g, KeepAll)
	if len(keep) != 2 || len(remove) != 0 {
		t.Errorf("Resolve(KeepAll) kept=%d removed=%d, want 2/0", len(keep), len(remove))
	}
}
