package structure

import (
	"testing"

	"github.com/franz/sample-organizer/internal/classify"
	"github.com/franz/sample-organizer/internal/detect"
)

func enriched(name, genre, label string, tags ...string) *classify.EnrichedPack {
	return &classify.EnrichedPack{
		DetectedPack: &detect.DetectedPack{Name: name},
		Genre:        genre,
		Label:        label,
		Tags:         tags,
	}
}

func TestProposeReturnsMultipleCandidates(t *testing.T) {
	packs := []*classify.EnrichedPack{
		enriched("Cymatics - Hardstyle Kicks", "Hardstyle", "Cymatics", "Kicks"),
		enriched("Splice - Trap Leads", "Trap", "Splice", "Leads"),
		enriched("Unlabeled Pack", "", "", "Bass"),
	}

	proposals := Propose(packs)
	if len(proposals) < 2 {
		t.Fatalf("Propose() returned %d candidates, want at least 2", len(proposals))
	}

	recommended := 0
	for _, p := range proposals {
		if p.Recommended {
			recommended++
		}
	}
	if recommended != 1 {
		t.Errorf("Propose() marked %d proposals as recommended, want exactly 1", recommended)
	}
}

func TestProposeSortsByScoreDescending(t *testing.T) {
	packs := []*classify.EnrichedPack{
		enriched("A", "Hardstyle", "Cymatics", "Kicks"),
		enriched("B", "Trap", "Splice", "Leads"),
	}
	proposals := Propose(packs)
	for i := 1; i < len(proposals); i++ {
		if proposals[i].Score > proposals[i-1].Score {
			t.Errorf("proposals not sorted descending by score: %v then %v", proposals[i-1].Score, proposals[i].Score)
		}
	}
}

func TestFlatByVendorBucketsUnlabeled(t *testing.T) {
	packs := []*classify.EnrichedPack{
		enriched("A", "", "", "Kicks"),
		enriched("B", "", "", "Leads"),
	}
	p := flatByVendor(packs)
	if p.EstimatedFolders != 1+len(packs) {
		t.Errorf("EstimatedFolders = %d, want %d (1 Unknown Vendor bucket + packs)", p.EstimatedFolders, 1+len(packs))
	}
}
