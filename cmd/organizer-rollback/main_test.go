package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/snapshot"
)

func TestRestoreEntryMovesRelocatedEntry(t *testing.T) {
	source := t.TempDir()
	mtime := time.Now().Add(-24 * time.Hour).Truncate(time.Second)

	// Simulate a reorganized tree: "Kicks" now lives nested under "Drums".
	nestedPath := filepath.Join(source, "Drums", "Kicks")
	if err := os.MkdirAll(nestedPath, 0755); err != nil {
		t.Fatal(err)
	}

	entry := &model.Node{
		Name:  "Kicks",
		Path:  filepath.Join(source, "Kicks"),
		IsDir: true,
		MTime: mtime,
	}

	current := map[string]string{"Kicks": nestedPath}
	moved, err := restoreEntry(entry, current)
	if err != nil {
		t.Fatalf("restoreEntry() error = %v", err)
	}
	if !moved {
		t.Error("restoreEntry() reported no move, want moved=true")
	}

	info, err := os.Stat(entry.Path)
	if err != nil {
		t.Fatalf("entry not restored to %s: %v", entry.Path, err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("restored mtime = %v, want %v", info.ModTime(), mtime)
	}
	if _, err := os.Stat(nestedPath); !os.IsNotExist(err) {
		t.Error("old location still exists after restore")
	}
}

func TestRestoreEntryLeavesInPlaceEntryAlone(t *testing.T) {
	source := t.TempDir()
	path := filepath.Join(source, "Snares")
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}

	entry := &model.Node{Name: "Snares", Path: path, IsDir: true}
	moved, err := restoreEntry(entry, map[string]string{})
	if err != nil {
		t.Fatalf("restoreEntry() error = %v", err)
	}
	if moved {
		t.Error("restoreEntry() moved an entry already at its recorded path")
	}
}

func TestRestoreEntryCreatesPlaceholderWhenMissing(t *testing.T) {
	source := t.TempDir()
	entry := &model.Node{
		Name:  "Vocals",
		Path:  filepath.Join(source, "Vocals"),
		IsDir: false,
	}

	moved, err := restoreEntry(entry, map[string]string{})
	if err != nil {
		t.Fatalf("restoreEntry() error = %v", err)
	}
	if !moved {
		t.Error("restoreEntry() did not report the placeholder as restored")
	}
	if _, err := os.Stat(entry.Path); err != nil {
		t.Errorf("placeholder not created: %v", err)
	}
}

func TestIndexCurrentTreeSkipsStateDir(t *testing.T) {
	source := t.TempDir()
	if err := os.MkdirAll(filepath.Join(source, snapshot.StateDirName, "structure-originale.json"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(source, "Leads"), 0755); err != nil {
		t.Fatal(err)
	}

	index := make(map[string]string)
	if err := indexCurrentTree(source, index); err != nil {
		t.Fatalf("indexCurrentTree() error = %v", err)
	}

	if _, ok := index[snapshot.StateDirName]; ok {
		t.Error("indexCurrentTree() indexed the state directory")
	}
	if _, ok := index["Leads"]; !ok {
		t.Error("indexCurrentTree() did not index Leads")
	}
}
