package detect

import (
	"testing"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/taxonomy"
)

func audioNode(name string, count int, size int64) *model.Node {
	return &model.Node{Name: name, Path: "/src/" + name, IsDir: true, AudioCount: count, TotalSize: size}
}

func TestDetectFlatCommercialPack(t *testing.T) {
	reg := taxonomy.Load(nil)
	d := New(reg)

	root := &model.Node{
		Name:       "Vendor - Kicks Vol.2",
		Path:       "/src/Vendor - Kicks Vol.2",
		IsDir:      true,
		AudioCount: 45,
		TotalSize:  120 * 1024 * 1024,
	}
	for i := 0; i < 45; i++ {
		root.Children = append(root.Children, &model.Node{Name: "kick.wav", AudioCount: 1})
	}

	packs := d.Detect(root)
	if len(packs) != 1 {
		t.Fatalf("Detect() returned %d packs, want 1", len(packs))
	}
	if packs[0].PackType != model.CommercialPack {
		t.Errorf("PackType = %s, want CommercialPack", packs[0].PackType)
	}
}

func TestDetectWrapperFolder(t *testing.T) {
	reg := taxonomy.Load(nil)
	d := New(reg)

	inner := audioNode("My Pack", 40, 60*1024*1024)
	for i := 0; i < 40; i++ {
		inner.Children = append(inner.Children, &model.Node{Name: "s.wav", AudioCount: 1})
	}
	outer := &model.Node{
		Name:     "My_Pack",
		Path:     "/src/My_Pack",
		IsDir:    true,
		Children: []*model.Node{inner},
	}
	outer.AudioCount = inner.AudioCount
	outer.TotalSize = inner.TotalSize

	packs := d.Detect(outer)
	if len(packs) != 1 {
		t.Fatalf("Detect() returned %d packs, want 1", len(packs))
	}
	if packs[0].PackType != model.WrapperFolder {
		t.Errorf("PackType = %s, want WrapperFolder", packs[0].PackType)
	}
}

func TestDetectRejectsEmptyDirectory(t *testing.T) {
	reg := taxonomy.Load(nil)
	d := New(reg)

	empty := &model.Node{Name: "Random Folder", Path: "/src/Random Folder", IsDir: true}
	packs := d.Detect(empty)
	if len(packs) != 0 {
		t.Errorf("Detect() on an empty directory returned %d packs, want 0", len(packs))
	}
}

func TestDetectExplicitBundle(t *testing.T) {
	reg := taxonomy.Load(nil)
	d := New(reg)

	makeSubPack := func(name string) *model.Node {
		n := audioNode(name, 20, 25*1024*1024)
		for i := 0; i < 20; i++ {
			n.Children = append(n.Children, &model.Node{Name: "s.wav", AudioCount: 1})
		}
		return n
	}

	bundle := &model.Node{
		Name:  "Ultimate Hardstyle Bundle",
		Path:  "/src/Ultimate Hardstyle Bundle",
		IsDir: true,
		Children: []*model.Node{
			makeSubPack("Kicks Pack"),
			makeSubPack("Leads Pack"),
			makeSubPack("Vocals Pack"),
		},
	}
	for _, c := range bundle.Children {
		bundle.AudioCount += c.AudioCount
		bundle.TotalSize += c.TotalSize
	}

	packs := d.Detect(bundle)
	if len(packs) != 1 {
		t.Fatalf("Detect() returned %d packs, want 1", len(packs))
	}
	if packs[0].PackType != model.BundleContainer {
		t.Errorf("PackType = %s, want BundleContainer", packs[0].PackType)
	}
	if len(packs[0].SubPacks) != 3 {
		t.Errorf("SubPacks count = %d, want 3", len(packs[0].SubPacks))
	}
	if packs[0].ShouldRecurseInside {
		t.Error("ShouldRecurseInside = true, want false once sub-packs are emitted")
	}
}

func TestResolveConflictsKeepsParentOverDescendant(t *testing.T) {
	parent := &DetectedPack{SourcePath: "/src/parent", Confidence: 0.5}
	child := &DetectedPack{SourcePath: "/src/parent/child", Confidence: 0.9}

	kept := resolveConflicts([]*DetectedPack{child, parent})
	if len(kept) != 1 {
		t.Fatalf("resolveConflicts() kept %d packs, want 1", len(kept))
	}
	if kept[0].SourcePath != "/src/parent" {
		t.Errorf("resolveConflicts() kept %s, want the parent", kept[0].SourcePath)
	}
}
