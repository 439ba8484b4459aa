// Package detect implements C3: the pack detector. It operates on
// snapshot nodes only and never touches the filesystem, applying rules
// P1-P4 in priority order to classify each directory.
package detect

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/taxonomy"
)

// State is a directory's position in the detector's per-node state
// machine: Unvisited -> Scored -> {Accepted, Rejected}.
type State string

const (
	StateUnvisited State = "Unvisited"
	StateScored    State = "Scored"
	StateAccepted  State = "Accepted"
	StateRejected  State = "Rejected"
)

// DetectedPack is the detector's output for one accepted directory.
type DetectedPack struct {
	ID                  string
	Name                string
	SourcePath          string
	PackType            model.PackType
	Confidence          float64
	Reasoning           []string
	AudioCount          int
	PresetCount         int
	OtherCount          int
	TotalSize           int64
	NeedsReorganization bool
	ShouldExtract       bool
	ShouldRecurseInside bool
	SubPacks            []*DetectedPack
	state               State
}

// minCategoryMatchesByDepth and scoreThresholdByDepth give the minimum
// taxonomy-category-match count and score threshold that rise with depth,
// preventing over-segmentation of deep hierarchies.
var minCategoryMatchesByDepth = []int{2, 2, 3, 4, 5}
var scoreThresholdByDepth = []float64{50, 50, 70, 85, 95}

const (
	rootScoreThreshold = 45
	subPackThreshold   = 35
)

var namePatternRe = regexp.MustCompile(`(?i)^(.+?)\s*-\s*(.+)$`)
var volumeRe = regexp.MustCompile(`(?i)\b(vol\.?|volume|part|pt\.?)\s*\d+\b`)
var editionRe = regexp.MustCompile(`(?i)\b(deluxe|expansion|anniversary|special|limited|complete)\s*(edition|series)?\b`)

var commercialKeywords = []string{
	"pack", "sample", "kit", "bundle", "suite", "essentials", "ultimate",
	"collection", "construction kit",
}

// Detector applies rules P1-P4 against a snapshot tree.
type Detector struct {
	taxonomy *taxonomy.Registry
}

// New constructs a Detector bound to a taxonomy registry.
func New(reg *taxonomy.Registry) *Detector {
	return &Detector{taxonomy: reg}
}

// Detect classifies the entire snapshot tree rooted at node and returns
// the deduplicated, conflict-resolved set of accepted packs.
func (d *Detector) Detect(node *model.Node) []*DetectedPack {
	var all []*DetectedPack
	d.detectRecursive(node, 0, &all)
	return resolveConflicts(all)
}

func (d *Detector) detectRecursive(node *model.Node, depth int, out *[]*DetectedPack) {
	if node == nil || !node.IsDir {
		return
	}

	if pack := d.classify(node, depth); pack != nil {
		*out = append(*out, pack)
		if !pack.ShouldRecurseInside {
			return
		}
	}

	for _, child := range node.Subdirs() {
		d.detectRecursive(child, depth+1, out)
	}
}

// classify evaluates rules P1-P4 against node and returns an accepted pack,
// or nil if it is rejected.
func (d *Detector) classify(node *model.Node, depth int) *DetectedPack {
	// Rule P1: wrapper detection.
	if wrapper := d.tryWrapper(node, depth); wrapper != nil {
		return wrapper
	}

	subPacks := d.qualifyingSubPacks(node, depth)

	// Rule P2: explicit bundle.
	if d.taxonomy.MatchesBundleHint(node.Name) && len(subPacks) >= 3 {
		return d.makeBundle(node, depth, subPacks, "matched bundle-hint keyword with >=3 qualifying sub-packs")
	}

	// Rule P3: scored evaluation.
	score, reasoning := d.score(node, depth)
	threshold := rootScoreThreshold
	if depth > 0 {
		threshold = subPackThreshold
	}
	if depth < len(scoreThresholdByDepth) && scoreThresholdByDepth[depth] > float64(threshold) {
		threshold = int(scoreThresholdByDepth[depth])
	}

	categoryMatches := countCategoryMatches(d.taxonomy, node)
	minMatches := 0
	if depth < len(minCategoryMatchesByDepth) {
		minMatches = minCategoryMatchesByDepth[depth]
	}

	if !d.passesContentGate(node, depth) {
		return nil
	}
	if depth >= 2 && categoryMatches < minMatches {
		return nil
	}
	if score < float64(threshold) {
		return nil
	}

	pack := &DetectedPack{
		ID:          uuid.NewString(),
		Name:        node.Name,
		SourcePath:  node.Path,
		PackType:    model.CommercialPack,
		Confidence:  score / 100,
		Reasoning:   reasoning,
		AudioCount:  node.AudioCount,
		PresetCount: node.PresetCount,
		OtherCount:  node.OtherCount,
		TotalSize:   node.TotalSize,
		state:       StateAccepted,
	}

	// Rule P4: bundle-versus-pack arbitration.
	if len(subPacks) >= 2 {
		return d.makeBundle(node, depth, subPacks, "commercial-named directory contains >=2 qualifying sub-packs")
	}

	return pack
}

func (d *Detector) tryWrapper(node *model.Node, depth int) *DetectedPack {
	subdirs := node.Subdirs()
	if len(subdirs) != 1 {
		return nil
	}
	inner := subdirs[0]
	if normalizeName(inner.Name) != normalizeName(node.Name) {
		return nil
	}

	innerPack := d.classify(inner, depth+1)
	reasoning := []string{"exactly one subdirectory whose normalized name equals the parent's"}
	packType := model.WrapperFolder
	var innerType model.PackType = model.Unknown
	if innerPack != nil {
		innerType = innerPack.PackType
		reasoning = append(reasoning, "inner pack re-classified as "+string(innerType))
	}

	return &DetectedPack{
		ID:                  uuid.NewString(),
		Name:                node.Name,
		SourcePath:          node.Path,
		PackType:            packType,
		Confidence:          0.9,
		Reasoning:           reasoning,
		AudioCount:          node.AudioCount,
		PresetCount:         node.PresetCount,
		OtherCount:          node.OtherCount,
		TotalSize:           node.TotalSize,
		ShouldExtract:       true,
		NeedsReorganization: true,
		SubPacks:            packSlice(innerPack),
		state:               StateAccepted,
	}
}

func packSlice(p *DetectedPack) []*DetectedPack {
	if p == nil {
		return nil
	}
	return []*DetectedPack{p}
}

// qualifyingSubPacks scores each direct subdirectory against the sub-pack
// threshold, without recursing further (bundle detection only needs to
// know whether children independently qualify, not their own sub-trees).
func (d *Detector) qualifyingSubPacks(node *model.Node, depth int) []*model.Node {
	var out []*model.Node
	for _, sub := range node.Subdirs() {
		if !d.passesContentGate(sub, depth+1) {
			continue
		}
		score, _ := d.score(sub, depth+1)
		if score >= subPackThreshold {
			out = append(out, sub)
		}
	}
	return out
}

func (d *Detector) makeBundle(node *model.Node, depth int, subPacks []*model.Node, reason string) *DetectedPack {
	bundle := &DetectedPack{
		ID:                  uuid.NewString(),
		Name:                node.Name,
		SourcePath:          node.Path,
		PackType:            model.BundleContainer,
		Confidence:          0.85,
		Reasoning:           []string{reason},
		AudioCount:          node.AudioCount,
		PresetCount:         node.PresetCount,
		OtherCount:          node.OtherCount,
		TotalSize:           node.TotalSize,
		ShouldRecurseInside: true,
		state:               StateAccepted,
	}
	for _, sub := range subPacks {
		child := d.classify(sub, depth+1)
		if child == nil {
			child = &DetectedPack{
				ID:         uuid.NewString(),
				Name:       sub.Name,
				SourcePath: sub.Path,
				PackType:   model.CommercialPack,
				Confidence: 0.6,
				Reasoning:  []string{"qualified as sub-pack under bundle " + node.Name},
			}
		}
		bundle.SubPacks = append(bundle.SubPacks, child)
	}
	// Children have now been emitted as independent packs in SubPacks, so
	// nothing downstream should recurse into this directory again.
	bundle.ShouldRecurseInside = false
	return bundle
}

// score computes the weighted P3 score (max 100) and the human-readable
// reasoning vector behind it.
func (d *Detector) score(node *model.Node, depth int) (float64, []string) {
	var score float64
	var reasoning []string

	// Name pattern (40): "Artist - Title" (+30), volume/part (+up to 12),
	// edition/series word (+18), folded into this dimension per the
	// edition/series-weighting decision recorded in DESIGN.md.
	namePts := 0.0
	if namePatternRe.MatchString(node.Name) {
		namePts += 30
		reasoning = append(reasoning, `name matches "Artist - Title" pattern`)
	}
	if volumeRe.MatchString(node.Name) {
		namePts += 12
		reasoning = append(reasoning, "name includes a volume/part number")
	}
	if editionRe.MatchString(node.Name) {
		bonus := 18.0
		if namePts+bonus > 40 {
			bonus = 40 - namePts
		}
		if bonus > 0 {
			namePts += bonus
			reasoning = append(reasoning, "name includes an edition/series word")
		}
	}
	if namePts > 40 {
		namePts = 40
	}
	score += namePts

	// Commercial keywords (25).
	normalized := strings.ToLower(node.Name)
	for _, kw := range commercialKeywords {
		if strings.Contains(normalized, kw) {
			score += 25
			reasoning = append(reasoning, "name contains commercial keyword: "+kw)
			break
		}
	}

	// Structure (20): >=2 subfolders matching taxonomy categories.
	matches := countCategoryMatches(d.taxonomy, node)
	if matches >= 2 {
		score += 20
		reasoning = append(reasoning, "structure: >=2 subfolders match taxonomy categories")
	}

	// Label (15).
	if label, ok := d.taxonomy.MatchesLabel(node.Name); ok {
		score += 15
		reasoning = append(reasoning, "name matches known label: "+label)
	}

	// Direct content (15): direct audio files at depth 0.
	if depth == 0 && directAudioCount(node) > 0 {
		score += 15
		reasoning = append(reasoning, "has direct audio files at depth 0")
	}

	// Size (10): context-specific threshold.
	sizeThreshold := int64(50 * 1024 * 1024)
	if depth > 0 {
		sizeThreshold = 20 * 1024 * 1024
	}
	if node.TotalSize >= sizeThreshold {
		score += 10
		reasoning = append(reasoning, "total size meets the size threshold")
	}

	return score, reasoning
}

// passesContentGate implements the content validation gate: a candidate
// must clear an audio-count, size, or ratio threshold, or match a
// special-pack heuristic (MIDI-only, templates-only, presets-only).
func (d *Detector) passesContentGate(node *model.Node, depth int) bool {
	audioThreshold := 30
	sizeThreshold := int64(50 * 1024 * 1024)
	if depth > 0 {
		audioThreshold = 15
		sizeThreshold = 20 * 1024 * 1024
	}

	if node.AudioCount >= audioThreshold {
		return true
	}
	if node.TotalSize >= sizeThreshold {
		return true
	}
	total := node.TotalFileCount()
	if total > 0 && float64(node.AudioCount)/float64(total) >= 0.30 {
		return true
	}
	if isSpecialPack(node) {
		return node.AudioCount+node.PresetCount+node.OtherCount >= 5
	}
	return false
}

// isSpecialPack recognizes presets-only / MIDI-only / templates-only
// directories, which pass the content gate via a lower threshold.
func isSpecialPack(node *model.Node) bool {
	if node.AudioCount == 0 && node.PresetCount > 0 {
		return true
	}
	name := strings.ToLower(node.Name)
	return strings.Contains(name, "midi") || strings.Contains(name, "template") || strings.Contains(name, "preset")
}

func directAudioCount(node *model.Node) int {
	count := 0
	for _, c := range node.Children {
		if !c.IsDir && c.AudioCount > 0 {
			count++
		}
	}
	return count
}

func countCategoryMatches(reg *taxonomy.Registry, node *model.Node) int {
	count := 0
	for _, sub := range node.Subdirs() {
		if _, ok := reg.CategoryFor(sub.Name); ok {
			count++
		}
	}
	return count
}

func normalizeName(name string) string {
	replacer := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToLower(replacer.Replace(name))
}

// resolveConflicts sorts accepted packs by decreasing score and, for every
// parent/child path pair, keeps the parent and discards the descendant.
// Emission is deduplicated by canonical path.
func resolveConflicts(packs []*DetectedPack) []*DetectedPack {
	sort.SliceStable(packs, func(i, j int) bool {
		return packs[i].Confidence > packs[j].Confidence
	})

	seen := make(map[string]bool)
	var kept []*DetectedPack
	for _, p := range packs {
		if seen[p.SourcePath] {
			continue
		}
		isDescendant := false
		for _, other := range packs {
			if strings.HasPrefix(p.SourcePath, other.SourcePath+"/") {
				isDescendant = true
				break
			}
		}
		if isDescendant {
			continue
		}
		seen[p.SourcePath] = true
		kept = append(kept, p)
	}
	return kept
}
