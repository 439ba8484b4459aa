// Package structure implements C6: the structure proposer. Given
// classified packs it generates 2-4 candidate target hierarchies, each
// scored on balance, coverage, and depth penalty, with one marked as
// recommended.
package structure

import (
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/franz/sample-organizer/internal/classify"
)

// Axis is one level of a candidate hierarchy, e.g. "Family", "Type", "Style".
type Axis string

const (
	AxisFamily Axis = "Family" // genre family, e.g. Hardstyle
	AxisType   Axis = "Type"   // content category, e.g. Kicks
	AxisStyle  Axis = "Style"  // pack-level grouping, e.g. vendor series
	AxisVendor Axis = "Vendor" // commercial label
	AxisFlat   Axis = "Flat"   // no grouping, packs land directly at root
)

// Proposal is one candidate target hierarchy.
type Proposal struct {
	ID               string
	Name             string
	Hierarchy        []Axis
	EstimatedFolders int
	MaxDepth         int
	Advantages       []string
	Considerations   []string
	Score            float64
	Recommended      bool
}

// Propose builds 2-4 candidate hierarchies from a set of enriched packs
// and scores them, marking exactly one as recommended (the highest
// scorer; ties keep the first built, for determinism).
func Propose(packs []*classify.EnrichedPack) []Proposal {
	proposals := []Proposal{
		familyTypeStyle(packs),
		genrePack(packs),
		flatByVendor(packs),
	}
	if len(uniqueLabels(packs)) == 0 {
		// Vendor-based proposals are meaningless with no known labels;
		// swap in a plain type-based proposal instead.
		proposals[2] = typeOnly(packs)
	}

	for i := range proposals {
		proposals[i].Score = score(proposals[i], len(packs))
	}

	best := 0
	for i := range proposals {
		if proposals[i].Score > proposals[best].Score {
			best = i
		}
	}
	proposals[best].Recommended = true

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Score > proposals[j].Score
	})
	return proposals
}

func familyTypeStyle(packs []*classify.EnrichedPack) Proposal {
	families := make(map[string]bool)
	types := make(map[string]bool)
	for _, p := range packs {
		families[orUnclassified(p.Genre)] = true
		for _, t := range p.Tags {
			types[t] = true
		}
		if len(p.Tags) == 0 {
			types["Unclassified"] = true
		}
	}
	folders := len(families) * len(types)
	return Proposal{
		ID:               "family-type-style",
		Name:             "Family / Type / Style",
		Hierarchy:        []Axis{AxisFamily, AxisType, AxisStyle},
		EstimatedFolders: folders + len(packs),
		MaxDepth:         4,
		Advantages:       []string{"groups by musical style first, easiest for production workflows", "scales well with large libraries"},
		Considerations:   []string{"packs with no detected genre land in an Unclassified bucket"},
	}
}

func genrePack(packs []*classify.EnrichedPack) Proposal {
	genres := make(map[string]bool)
	for _, p := range packs {
		genres[orUnclassified(p.Genre)] = true
	}
	return Proposal{
		ID:               "genre-pack",
		Name:             "Genre / Pack",
		Hierarchy:        []Axis{AxisFamily, AxisStyle},
		EstimatedFolders: len(genres) + len(packs),
		MaxDepth:         2,
		Advantages:       []string{"shallow, simple to browse", "minimal restructuring from source layout"},
		Considerations:   []string{"large genre buckets can end up with dozens of sibling packs"},
	}
}

func flatByVendor(packs []*classify.EnrichedPack) Proposal {
	vendors := make(map[string]bool)
	for _, p := range packs {
		if p.Label != "" {
			vendors[p.Label] = true
		} else {
			vendors["Unknown Vendor"] = true
		}
	}
	return Proposal{
		ID:               "flat-by-vendor",
		Name:             "Flat by Vendor",
		Hierarchy:        []Axis{AxisVendor},
		EstimatedFolders: len(vendors) + len(packs),
		MaxDepth:         2,
		Advantages:       []string{"preserves commercial-label provenance", "shallow and fast to navigate"},
		Considerations:   []string{"unlabeled packs fall into a single Unknown Vendor bucket, which can get crowded"},
	}
}

func typeOnly(packs []*classify.EnrichedPack) Proposal {
	types := make(map[string]bool)
	for _, p := range packs {
		if len(p.Tags) == 0 {
			types["Unclassified"] = true
			continue
		}
		for _, t := range p.Tags {
			types[t] = true
		}
	}
	return Proposal{
		ID:               "type-only",
		Name:             "Flat by Type",
		Hierarchy:        []Axis{AxisType},
		EstimatedFolders: len(types) + len(packs),
		MaxDepth:         2,
		Advantages:       []string{"no label data required", "good fallback when few commercial labels are known"},
		Considerations:   []string{"loses genre context entirely"},
	}
}

// score rewards balance (folders roughly proportional to pack count, not
// wildly over- or under-segmented), coverage (low depth penalty), and
// shallower hierarchies.
func score(p Proposal, packCount int) float64 {
	if packCount == 0 {
		return 0
	}
	balance := 1.0 - absRatio(float64(p.EstimatedFolders), float64(packCount))
	if balance < 0 {
		balance = 0
	}
	depthPenalty := float64(p.MaxDepth) * 0.1
	coverage := 1.0
	if len(p.Advantages) == 0 {
		coverage = 0.5
	}
	return balance*0.5 + coverage*0.3 - depthPenalty
}

func absRatio(a, b float64) float64 {
	if b == 0 {
		return 1
	}
	r := a/b - 1
	if r < 0 {
		r = -r
	}
	return r
}

func orUnclassified(s string) string {
	if s == "" {
		return "Unclassified"
	}
	return s
}

func uniqueLabels(packs []*classify.EnrichedPack) []string {
	seen := make(map[string]bool)
	for _, p := range packs {
		if p.Label != "" {
			seen[p.Label] = true
		}
	}
	keys := maps.Keys(seen)
	slices.Sort(keys)
	return keys
}
