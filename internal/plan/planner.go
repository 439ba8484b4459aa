// Package plan implements C8: the reorganization planner. It converts a
// chosen structure proposal, resolved fusion groups, and detected packs
// into an ordered list of filesystem operations the executor can apply.
package plan

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/franz/sample-organizer/internal/classify"
	"github.com/franz/sample-organizer/internal/fusion"
	"github.com/franz/sample-organizer/internal/structure"
)

// OpType is the kind of filesystem change an Operation represents.
type OpType string

const (
	OpUnwrap OpType = "unwrap"
	OpClean  OpType = "clean"
	OpFuse   OpType = "fuse"
	OpMove   OpType = "move"
)

// priorityFor preserves causal order: a wrapper must be unwrapped before
// its inner pack is renamed, which must happen before fusion, which must
// happen before the final move.
var priorityFor = map[OpType]int{
	OpUnwrap: 1,
	OpClean:  2,
	OpFuse:   3,
	OpMove:   4,
}

// Operation is one planned filesystem change.
type Operation struct {
	Type       OpType
	SourcePath string
	TargetPath string
	Priority   int
	Rationale  string
	Status     string // set by the executor: "done" or "failed"; empty until applied
}

// Planner builds operation plans against a fixed destination root.
type Planner struct {
	destRoot string
}

// New constructs a Planner targeting destRoot.
func New(destRoot string) *Planner {
	return &Planner{destRoot: destRoot}
}

// Plan builds the full ordered operation list: unwrap, then clean, then
// fuse, then move. resolvedFusion must already be filtered down to the
// groups the caller (pipeline, after any user decision) chose to merge.
func (p *Planner) Plan(packs []*classify.EnrichedPack, proposal structure.Proposal, resolvedFusion []fusion.Group) ([]Operation, error) {
	var ops []Operation

	fused := make(map[string]bool) // source paths already consumed by a fuse op
	ops = append(ops, unwrapOps(packs)...)
	ops = append(ops, cleanOps(packs)...)

	fuseOperations := fuseOps(resolvedFusion, p.destRoot)
	ops = append(ops, fuseOperations...)
	for _, op := range fuseOperations {
		fused[op.SourcePath] = true
	}

	moveOperations, err := p.moveOps(packs, proposal, fused)
	if err != nil {
		return nil, err
	}
	ops = append(ops, moveOperations...)

	if err := Validate(ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func unwrapOps(packs []*classify.EnrichedPack) []Operation {
	var ops []Operation
	for _, p := range packs {
		if !p.ShouldExtract || len(p.SubPacks) != 1 {
			continue
		}
		inner := p.SubPacks[0]
		ops = append(ops, Operation{
			Type:       OpUnwrap,
			SourcePath: inner.SourcePath,
			TargetPath: p.SourcePath,
			Priority:   priorityFor[OpUnwrap],
			Rationale:  fmt.Sprintf("replace wrapper %q with its inner pack %q", p.Name, inner.Name),
		})
	}
	return ops
}

var (
	formatMarkerRe = regexp.MustCompile(`(?i)\s*[-_(\[]?\s*(WAV|MP3|FLAC|24BIT|16BIT)\s*[)\]]?\s*$`)
	trailingNumRe  = regexp.MustCompile(`[-_]\d+$`)
)

// CleanPackName strips common messy-library artifacts from a pack name:
// format markers and stray "_1"/"_2" copy suffixes, then collapses
// whitespace. Grounded on the same regex-table cleanup idiom used for
// album names, narrowed to the markers sample packs actually carry.
func CleanPackName(name string) string {
	cleaned := formatMarkerRe.ReplaceAllString(name, "")
	cleaned = trailingNumRe.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.Trim(cleaned, " -_")
	if cleaned == "" {
		return name
	}
	return cleaned
}

func cleanOps(packs []*classify.EnrichedPack) []Operation {
	var ops []Operation
	for _, p := range packs {
		cleaned := CleanPackName(p.Name)
		if cleaned == p.Name {
			continue
		}
		target := filepath.Join(filepath.Dir(p.SourcePath), cleaned)
		ops = append(ops, Operation{
			Type:       OpClean,
			SourcePath: p.SourcePath,
			TargetPath: target,
			Priority:   priorityFor[OpClean],
			Rationale:  fmt.Sprintf("normalize name %q to %q", p.Name, cleaned),
		})
	}
	return ops
}

func fuseOps(groups []fusion.Group, destRoot string) []Operation {
	var ops []Operation
	for _, g := range groups {
		target := filepath.Join(destRoot, SanitizePathComponent(g.CanonicalName))
		for _, src := range g.Sources {
			ops = append(ops, Operation{
				Type:       OpFuse,
				SourcePath: src.SourcePath,
				TargetPath: target,
				Priority:   priorityFor[OpFuse],
				Rationale:  fmt.Sprintf("fuse near-duplicate pack %q into canonical %q", src.Name, g.CanonicalName),
			})
		}
	}
	return ops
}

// moveOps assigns each pack (not already consumed by a fuse operation) a
// target path under destRoot following the proposal's axis order,
// suffixing on collision.
func (p *Planner) moveOps(packs []*classify.EnrichedPack, proposal structure.Proposal, fused map[string]bool) ([]Operation, error) {
	used := make(map[string]int)
	var ops []Operation
	for _, pack := range packs {
		if fused[pack.SourcePath] {
			continue
		}
		target := p.targetFor(pack, proposal)
		target = dedupePath(target, used)
		ops = append(ops, Operation{
			Type:       OpMove,
			SourcePath: pack.SourcePath,
			TargetPath: target,
			Priority:   priorityFor[OpMove],
			Rationale:  fmt.Sprintf("relocate %q to %s hierarchy target", pack.Name, proposal.Name),
		})
	}
	return ops, nil
}

func (p *Planner) targetFor(pack *classify.EnrichedPack, proposal structure.Proposal) string {
	var components []string
	for _, axis := range proposal.Hierarchy {
		components = append(components, axisValue(pack, axis))
	}
	components = append(components, SanitizePathComponent(CleanPackName(pack.Name)))
	return filepath.Join(append([]string{p.destRoot}, components...)...)
}

func axisValue(pack *classify.EnrichedPack, axis structure.Axis) string {
	switch axis {
	case structure.AxisFamily:
		if pack.Genre != "" {
			return SanitizePathComponent(pack.Genre)
		}
		return "Unclassified"
	case structure.AxisType:
		if len(pack.Tags) > 0 {
			return SanitizePathComponent(pack.Tags[0])
		}
		return "Unclassified"
	case structure.AxisVendor:
		if pack.Label != "" {
			return SanitizePathComponent(pack.Label)
		}
		return "Unknown Vendor"
	case structure.AxisStyle:
		return SanitizePathComponent(CleanPackName(pack.Name))
	default:
		return ""
	}
}

func dedupePath(target string, used map[string]int) string {
	count, exists := used[target]
	used[target] = count + 1
	if !exists {
		return target
	}
	return fmt.Sprintf("%s_%d", target, count)
}

// SanitizePathComponent removes filesystem-illegal characters and
// collapses whitespace/underscore runs, grounded on the teacher's
// SanitizePathComponent but narrowed to this domain's path components
// (pack/category/vendor names rather than artist/album names).
func SanitizePathComponent(s string) string {
	if s == "" {
		return "Unknown"
	}
	illegal := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, ch := range illegal {
		s = strings.ReplaceAll(s, ch, "_")
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " _-")
	if s == "" {
		return "Unknown"
	}
	return s
}

// Validate checks the plan invariants: operations are priority-ordered,
// and no two operations write to the same target unless they are all
// fuse operations (which legitimately converge on one canonical target).
func Validate(ops []Operation) error {
	for i := 1; i < len(ops); i++ {
		if ops[i].Priority < ops[i-1].Priority {
			return fmt.Errorf("plan: operation %d (%s) has lower priority than preceding operation (%s)", i, ops[i].Type, ops[i-1].Type)
		}
	}

	targets := make(map[string]OpType)
	for _, op := range ops {
		prev, seen := targets[op.TargetPath]
		if !seen {
			targets[op.TargetPath] = op.Type
			continue
		}
		if op.Type != OpFuse || prev != OpFuse {
			return fmt.Errorf("plan: target %q is written by more than one non-fuse operation", op.TargetPath)
		}
	}
	return nil
}
