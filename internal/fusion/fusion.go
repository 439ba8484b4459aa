// Package fusion implements C7: the fusion matcher. It groups detected
// packs whose normalized names (lowercased, accent-stripped,
// vendor-prefix-removed) share a common canonical form, so near-duplicate
// folders like "Cymatics - Trap Essentials" and "Trap Essentials (Cymatics)"
// fuse into one target instead of staying as separate directories.
package fusion

import (
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/franz/sample-organizer/internal/detect"
)

// MergeStrategy describes how confidently a fusion group should be
// auto-merged versus deferred to the user.
type MergeStrategy string

const (
	AutoMerge    MergeStrategy = "auto"
	UserDecision MergeStrategy = "user-decision"
)

// Group is a set of packs that normalize to the same canonical name.
type Group struct {
	ID            string
	CanonicalName string
	Sources       []*detect.DetectedPack
	MergeStrategy MergeStrategy
	Priority      int
}

var versionSuffixRe = regexp.MustCompile(`(?i)\s*\(?(v\d+(\.\d+)?|vol\.?\s*\d+|part\s*\d+)\)?\s*$`)
var vendorPrefixRe = regexp.MustCompile(`(?i)^\s*[\w .&'-]+\s*[-:]\s*`)
var parenSuffixRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// Match groups packs by normalized canonical name. Each pack belongs to at
// most one group - packs without a matching sibling are simply omitted
// from the result.
func Match(packs []*detect.DetectedPack) []Group {
	buckets := make(map[string][]*detect.DetectedPack)
	for _, p := range packs {
		key := Normalize(p.Name)
		buckets[key] = append(buckets[key], p)
	}

	var groups []Group
	for canonical, members := range buckets {
		if len(members) < 2 {
			continue
		}
		sortDeterministic(members)

		strategy := UserDecision
		if allHighConfidence(members) {
			strategy = AutoMerge
		}

		groups = append(groups, Group{
			ID:            uuid.NewString(),
			CanonicalName: canonical,
			Sources:       members,
			MergeStrategy: strategy,
			Priority:      len(members),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CanonicalName < groups[j].CanonicalName
	})
	return groups
}

// Normalize reduces a pack name to its canonical matching form: NFC
// normalized, lowercased, accent-stripped, vendor-prefix and version
// suffix removed.
func Normalize(name string) string {
	n := norm.NFC.String(name)
	n = stripAccents(n)
	n = strings.ToLower(n)
	n = versionSuffixRe.ReplaceAllString(n, "")
	n = parenSuffixRe.ReplaceAllString(n, "")
	n = vendorPrefixRe.ReplaceAllString(n, "")
	n = strings.Join(strings.Fields(n), " ")
	return strings.TrimSpace(n)
}

func stripAccents(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r >= 0x300 && r <= 0x36f { // combining diacritical marks
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func allHighConfidence(members []*detect.DetectedPack) bool {
	for _, m := range members {
		if m.Confidence < 0.7 {
			return false
		}
	}
	return true
}

// sortDeterministic orders members by the longest common path prefix each
// shares with any other member (descending) and then by earliest path
// lexicographically, so the order does not depend on the input order.
func sortDeterministic(members []*detect.DetectedPack) {
	if len(members) == 0 {
		return
	}
	best := make(map[*detect.DetectedPack]int, len(members))
	for i, a := range members {
		for j, b := range members {
			if n := commonPrefixLen(a.SourcePath, b.SourcePath); i != j && n > best[a] {
				best[a] = n
			}
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		pi := best[members[i]]
		pj := best[members[j]]
		if pi != pj {
			return pi > pj
		}
		return members[i].SourcePath < members[j].SourcePath
	})
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
