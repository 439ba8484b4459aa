package classify

import (
	"os"
	"testing"

	"github.com/franz/sample-organizer/internal/detect"
	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/taxonomy"
)

// writeMinimalWav writes just enough of a RIFF/WAVE header for os.Open to
// succeed; dhowden/tag is expected to report "no tag found" for it, which
// Enrich must swallow rather than propagate.
func writeMinimalWav(path string) error {
	header := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00")
	return os.WriteFile(path, header, 0644)
}

func TestClassifyTagsGenreAndCategory(t *testing.T) {
	reg := taxonomy.Load(nil)
	c := New(reg)

	packs := []*detect.DetectedPack{
		{Name: "Cymatics - Hardstyle Kicks Vol.2", PresetCount: 0},
	}
	enriched := c.Classify(packs)
	if len(enriched) != 1 {
		t.Fatalf("Classify() returned %d packs, want 1", len(enriched))
	}
	if enriched[0].Genre != "Hardstyle" {
		t.Errorf("Genre = %q, want Hardstyle", enriched[0].Genre)
	}
	found := false
	for _, tag := range enriched[0].Tags {
		if tag == "Kicks" {
			found = true
		}
	}
	if !found {
		t.Errorf("Tags = %v, want Kicks included", enriched[0].Tags)
	}
}

func TestClassifyRecursesIntoSubPacks(t *testing.T) {
	reg := taxonomy.Load(nil)
	c := New(reg)

	bundle := &detect.DetectedPack{
		Name: "Ultimate Bundle",
		SubPacks: []*detect.DetectedPack{
			{Name: "Trap Leads"},
			{Name: "Trap Bass"},
		},
	}
	enriched := c.Classify([]*detect.DetectedPack{bundle})
	if len(enriched) != 3 {
		t.Fatalf("Classify() returned %d entries, want 3 (bundle + 2 sub-packs)", len(enriched))
	}
}

func TestEnrichIndexesFilesByCategory(t *testing.T) {
	reg := taxonomy.Load(nil)
	c := New(reg)

	node := &model.Node{
		Name:  "Pack",
		Path:  "/src/Pack",
		IsDir: true,
		Children: []*model.Node{
			{Name: "kick_01.wav", Path: "/src/Pack/kick_01.wav", TotalSize: 100},
			{Name: "snare_01.wav", Path: "/src/Pack/snare_01.wav", TotalSize: 200},
		},
	}
	e := &EnrichedPack{DetectedPack: &detect.DetectedPack{Name: "Pack"}}
	c.Enrich(e, node)

	if len(e.Formats) != 1 || e.Formats[0] != "wav" {
		t.Errorf("Formats = %v, want [wav]", e.Formats)
	}
	if e.AverageSize != 150 {
		t.Errorf("AverageSize = %d, want 150", e.AverageSize)
	}
	if len(e.FilesByTag["Kicks"]) != 1 {
		t.Errorf("FilesByTag[Kicks] = %v, want 1 entry", e.FilesByTag["Kicks"])
	}
}

func TestEnrichSamplesEmbeddedTagsWithoutCrashing(t *testing.T) {
	reg := taxonomy.Load(nil)
	c := New(reg)

	dir := t.TempDir()
	path := dir + "/kick_untagged.wav"
	if err := writeMinimalWav(path); err != nil {
		t.Fatal(err)
	}

	node := &model.Node{
		Name:  "Pack",
		Path:  dir,
		IsDir: true,
		Children: []*model.Node{
			{Name: "kick_untagged.wav", Path: path, TotalSize: 44},
		},
	}
	e := &EnrichedPack{DetectedPack: &detect.DetectedPack{Name: "Pack"}}
	c.Enrich(e, node)

	if len(e.Formats) != 1 || e.Formats[0] != "wav" {
		t.Errorf("Formats = %v, want [wav] even when the file carries no tag", e.Formats)
	}
}

func TestParseSeriesStripsVolumeSuffix(t *testing.T) {
	got := ParseSeries("Trap Essentials Vol. 3")
	if !got.IsSeries || got.SeriesName != "Trap Essentials" || got.Number != 3 {
		t.Errorf("ParseSeries() = %+v, want {Trap Essentials 3 true}", got)
	}
}

func TestParseSeriesNonSeries(t *testing.T) {
	got := ParseSeries("Standalone Pack")
	if got.IsSeries {
		t.Errorf("ParseSeries() IsSeries = true, want false")
	}
}
