// Package classify implements C5: the classifier. It extracts lexical
// tags from detected pack names using the taxonomy registry - no audio
// analysis, no ffprobe invocation, no BPM/key detection.
package classify

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dhowden/tag"

	"github.com/franz/sample-organizer/internal/detect"
	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/taxonomy"
)

// tagSampleLimit bounds how many audio files per pack get an embedded-tag
// read during Enrich - sampling a handful is enough to pick up a genre
// or title hint without a full per-file pass.
const tagSampleLimit = 5

// EnrichedPack is a detected pack plus its derived lexical metadata. The
// file list, when populated by Classifier.Enrich, is always a subset of
// the snapshot rooted at the pack's source path.
type EnrichedPack struct {
	*detect.DetectedPack
	Genre       string
	Label       string // known commercial label, if matched
	Tags        []string // matched taxonomy categories, e.g. "Kicks", "Bass"
	Formats     []string // distinct lowercase extensions observed
	HasLoops    bool
	HasOneShots bool
	HasPresets  bool
	AverageSize int64
	FilesByTag  map[string][]string // category -> file paths
}

// Classifier derives EnrichedPack records from detected packs.
type Classifier struct {
	reg *taxonomy.Registry
}

// New constructs a Classifier bound to a taxonomy registry.
func New(reg *taxonomy.Registry) *Classifier {
	return &Classifier{reg: reg}
}

// Classify produces one EnrichedPack per detected pack (and recursively
// for sub-packs of a bundle), tagging each with genre and category
// keywords found in its name.
func (c *Classifier) Classify(packs []*detect.DetectedPack) []*EnrichedPack {
	var out []*EnrichedPack
	for _, p := range packs {
		out = append(out, c.classifyOne(p))
		for _, sub := range p.SubPacks {
			out = append(out, c.classifyOne(sub))
		}
	}
	return out
}

func (c *Classifier) classifyOne(p *detect.DetectedPack) *EnrichedPack {
	e := &EnrichedPack{DetectedPack: p}

	if genre, ok := c.reg.GenreFor(p.Name); ok {
		e.Genre = genre
	}
	if label, ok := c.reg.MatchesLabel(p.Name); ok {
		e.Label = label
	}

	seen := make(map[string]bool)
	for _, cat := range c.reg.Categories() {
		if c.reg.IsCategory(p.Name, cat.Name) && !seen[cat.Name] {
			e.Tags = append(e.Tags, cat.Name)
			seen[cat.Name] = true
		}
	}

	lower := strings.ToLower(p.Name)
	e.HasLoops = strings.Contains(lower, "loop")
	e.HasOneShots = strings.Contains(lower, "one shot") || strings.Contains(lower, "one-shot") || strings.Contains(lower, "oneshot")
	e.HasPresets = e.PresetCount > 0 || strings.Contains(lower, "preset")

	return e
}

// Enrich walks the pack's snapshot subtree, recording distinct formats,
// average file size, and a per-category file index. It is separate from
// Classify because it requires the snapshot node, not just the detected
// pack summary.
func (c *Classifier) Enrich(e *EnrichedPack, node *model.Node) {
	formats := make(map[string]bool)
	filesByTag := make(map[string][]string)
	var totalSize int64
	var fileCount int
	var tagSamples int

	var walk func(n *model.Node)
	walk = func(n *model.Node) {
		if n == nil {
			return
		}
		if !n.IsDir {
			ext := filepath.Ext(n.Path)
			lowerExt := strings.ToLower(strings.TrimPrefix(ext, "."))
			if lowerExt != "" {
				formats[lowerExt] = true
			}
			totalSize += n.TotalSize
			fileCount++
			if cat, ok := c.reg.CategoryFor(n.Name); ok {
				filesByTag[cat] = append(filesByTag[cat], n.Path)
			}
			if tagSamples < tagSampleLimit && model.ClassifyExtension(ext) == model.KindAudio {
				tagSamples++
				c.applyEmbeddedTagHints(e, n.Path)
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)

	for ext := range formats {
		e.Formats = append(e.Formats, ext)
	}
	e.FilesByTag = filesByTag
	if fileCount > 0 {
		e.AverageSize = totalSize / int64(fileCount)
	}
}

// applyEmbeddedTagHints best-effort reads a file's embedded metadata tag
// (ID3/RIFF/etc. via dhowden/tag) for a Title or Genre field and folds it
// in as an extra lexical hint - no audio decoding, placeholder-tag level
// only. Most sample files carry no tags at all; errors are swallowed.
func (c *Classifier) applyEmbeddedTagHints(e *EnrichedPack, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil || m == nil {
		return
	}

	if e.Genre == "" {
		if genre, ok := c.reg.GenreFor(m.Genre()); ok {
			e.Genre = genre
		}
	}
	if title := m.Title(); title != "" {
		if cat, ok := c.reg.CategoryFor(title); ok {
			found := false
			for _, t := range e.Tags {
				if t == cat {
					found = true
					break
				}
			}
			if !found {
				e.Tags = append(e.Tags, cat)
			}
		}
	}
}

var (
	volumeRe = regexp.MustCompile(`(?i)\bvol(?:ume)?\.?\s*(\d+)\b`)
	partRe   = regexp.MustCompile(`(?i)\bpart\s*(\d+)\b`)
)

// ParsedSeries reports whether name carries a volume or part number, used
// to group series entries together during structure proposal.
type ParsedSeries struct {
	SeriesName string
	Number     int
	IsSeries   bool
}

// ParseSeries strips a trailing "Vol.N" / "Part N" suffix from name,
// returning the bare series name and the sequence number.
func ParseSeries(name string) ParsedSeries {
	if m := volumeRe.FindStringSubmatchIndex(name); m != nil {
		return ParsedSeries{
			SeriesName: strings.TrimSpace(name[:m[0]]),
			Number:     atoiSafe(name[m[2]:m[3]]),
			IsSeries:   true,
		}
	}
	if m := partRe.FindStringSubmatchIndex(name); m != nil {
		return ParsedSeries{
			SeriesName: strings.TrimSpace(name[:m[0]]),
			Number:     atoiSafe(name[m[2]:m[3]]),
			IsSeries:   true,
		}
	}
	return ParsedSeries{SeriesName: name}
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
