package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	if err := s.CheckIntegrity(); err != nil {
		t.Fatalf("CheckIntegrity() error = %v", err)
	}
}

func TestInsertAndGetPack(t *testing.T) {
	s := openTestStore(t)

	p := &PackRow{
		PackUUID:    "uuid-1",
		Name:        "Hardstyle Kicks Vol 2",
		SourcePath:  "/samples/Hardstyle Kicks Vol 2",
		PackType:    "CommercialPack",
		Confidence:  0.82,
		AudioCount:  120,
		PresetCount: 0,
		TotalSize:   1024 * 1024 * 50,
		NeedsReorg:  true,
	}
	if err := s.InsertPack(p); err != nil {
		t.Fatalf("InsertPack() error = %v", err)
	}
	if p.ID == 0 {
		t.Fatal("InsertPack() did not assign an ID")
	}

	got, err := s.GetPackByID(p.ID)
	if err != nil {
		t.Fatalf("GetPackByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetPackByID() returned nil")
	}
	if got.Name != p.Name || got.PackType != p.PackType {
		t.Fatalf("GetPackByID() = %+v, want matching name/type of %+v", got, p)
	}
}

func TestGetPacksByType(t *testing.T) {
	s := openTestStore(t)

	for i, pt := range []string{"CommercialPack", "BundleContainer", "CommercialPack"} {
		p := &PackRow{
			PackUUID:   "uuid-" + string(rune('a'+i)),
			Name:       "pack",
			SourcePath: "/samples/pack" + string(rune('a'+i)),
			PackType:   pt,
		}
		if err := s.InsertPack(p); err != nil {
			t.Fatalf("InsertPack() error = %v", err)
		}
	}

	packs, err := s.GetPacksByType("CommercialPack")
	if err != nil {
		t.Fatalf("GetPacksByType() error = %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("GetPacksByType() returned %d packs, want 2", len(packs))
	}
}

func TestDuplicateGroupRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertDuplicateGroup("sig1", "AutoRemove", 2048); err != nil {
		t.Fatalf("InsertDuplicateGroup() error = %v", err)
	}
	if err := s.InsertDuplicateFile(&DuplicateFileRow{Signature: "sig1", FilePath: "/a/kick.wav", SizeBytes: 1024}); err != nil {
		t.Fatalf("InsertDuplicateFile() error = %v", err)
	}
	if err := s.InsertDuplicateFile(&DuplicateFileRow{Signature: "sig1", FilePath: "/b/kick.wav", SizeBytes: 1024}); err != nil {
		t.Fatalf("InsertDuplicateFile() error = %v", err)
	}

	files, err := s.GetDuplicateGroupFiles("sig1")
	if err != nil {
		t.Fatalf("GetDuplicateGroupFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("GetDuplicateGroupFiles() returned %d files, want 2", len(files))
	}

	count, err := s.CountDuplicateGroups()
	if err != nil {
		t.Fatalf("CountDuplicateGroups() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("CountDuplicateGroups() = %d, want 1", count)
	}
}

func TestOperationsOrderedByPriority(t *testing.T) {
	s := openTestStore(t)

	ops := []*OperationRow{
		{OpType: "move", SourcePath: "/a", TargetPath: "/dest/a", Priority: 4, Status: "pending"},
		{OpType: "unwrap", SourcePath: "/b", TargetPath: "/dest/b", Priority: 1, Status: "pending"},
		{OpType: "fuse", SourcePath: "/c", TargetPath: "/dest/c", Priority: 3, Status: "pending"},
	}
	for _, op := range ops {
		if err := s.InsertOperation(op); err != nil {
			t.Fatalf("InsertOperation() error = %v", err)
		}
	}

	got, err := s.GetOperationsByPlan()
	if err != nil {
		t.Fatalf("GetOperationsByPlan() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetOperationsByPlan() returned %d ops, want 3", len(got))
	}
	if got[0].OpType != "unwrap" || got[1].OpType != "fuse" || got[2].OpType != "move" {
		t.Fatalf("GetOperationsByPlan() not ordered by priority: %+v", got)
	}
}

func TestPhaseUpsert(t *testing.T) {
	s := openTestStore(t)

	p := &PhaseRow{PhaseNum: 0, Name: "Preparation", Status: "Running", Progress: 0.5}
	if err := s.UpsertPhase(p); err != nil {
		t.Fatalf("UpsertPhase() error = %v", err)
	}

	p.Status = "Completed"
	p.Progress = 1.0
	if err := s.UpsertPhase(p); err != nil {
		t.Fatalf("UpsertPhase() second call error = %v", err)
	}

	got, err := s.GetPhase(0)
	if err != nil {
		t.Fatalf("GetPhase() error = %v", err)
	}
	if got == nil || got.Status != "Completed" {
		t.Fatalf("GetPhase() = %+v, want status Completed", got)
	}
}
