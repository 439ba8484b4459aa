// Package taxonomy implements C2: the process-wide, immutable-after-init
// keyword catalogue the pack detector, classifier, and fusion matcher all
// consult — sample-pack categories, bundle-hint keywords, known label
// tokens, and ignore patterns.
package taxonomy

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category is a named bucket of sample content (e.g. "Kicks", "Presets").
type Category struct {
	Name     string
	Keywords []string
}

// defaultCategories mirrors the component design's keyword catalogue.
var defaultCategories = []Category{
	{Name: "Kicks", Keywords: []string{"kick", "kicks", "bd", "bassdrum"}},
	{Name: "Snares", Keywords: []string{"snare", "snares", "clap", "claps"}},
	{Name: "Leads", Keywords: []string{"lead", "leads", "synth lead"}},
	{Name: "Bass", Keywords: []string{"bass", "sub", "808"}},
	{Name: "Vocals", Keywords: []string{"vocal", "vocals", "vox", "acapella"}},
	{Name: "Loops", Keywords: []string{"loop", "loops"}},
	{Name: "OneShots", Keywords: []string{"one shot", "one-shot", "oneshots", "hits"}},
	{Name: "Presets", Keywords: []string{"preset", "presets", "patch", "patches"}},
	{Name: "Percussion", Keywords: []string{"perc", "percussion", "hats", "hi-hat", "hihat", "cymbal"}},
	{Name: "FX", Keywords: []string{"fx", "sfx", "riser", "impact", "transition"}},
	{Name: "Melodic", Keywords: []string{"melody", "melodic", "chord", "chords", "arp"}},
	{Name: "Drums", Keywords: []string{"drum", "drums", "drumloop"}},
}

// genreKeywords feeds the classifier's lexical genre tagging (C5) - a
// separate axis from category (what the samples are) describing what
// musical style they belong to.
var genreKeywords = []Category{
	{Name: "Hardstyle", Keywords: []string{"hardstyle"}},
	{Name: "Rawstyle", Keywords: []string{"rawstyle", "raw style"}},
	{Name: "Hardcore", Keywords: []string{"hardcore", "uptempo", "frenchcore"}},
	{Name: "Techno", Keywords: []string{"techno"}},
	{Name: "House", Keywords: []string{"house", "tech house", "deep house"}},
	{Name: "Trap", Keywords: []string{"trap"}},
	{Name: "Dubstep", Keywords: []string{"dubstep", "riddim"}},
	{Name: "DrumAndBass", Keywords: []string{"drum and bass", "drum n bass", "dnb", "jungle"}},
	{Name: "Trance", Keywords: []string{"trance", "psytrance"}},
	{Name: "LoFi", Keywords: []string{"lofi", "lo fi", "chillhop"}},
	{Name: "PopEDM", Keywords: []string{"future bass", "pop", "edm"}},
}

// bundleHintKeywords mark names likely to be a bundle container rather
// than a single pack, feeding Rule P2 (explicit bundle) and P4
// (bundle-vs-pack arbitration).
var bundleHintKeywords = []string{
	"bundle", "collection", "suite", "complete", "mega pack", "mega_pack",
	"megapack", "ultimate", "all in one", "everything", "vol 1-", "anthology",
}

// knownLabels seeds the offline label registry cache (LabelCache) at
// startup; MatchesLabel falls back to this slice if the cache has not
// been preloaded.
var knownLabels = []string{
	"Cymatics", "Splice", "Black Octopus Sound", "Vengeance Sound",
	"Sample Magic", "Function Loops", "Prime Loops", "Loopmasters",
	"W.A. Production", "Ghost Syndicate", "Singomakers", "Producer Loops",
	"Mainroom Warehouse", "Capsun ProAudio", "Ultrasonic Samples",
}

// ignorePatterns are filename/dirname glob patterns the snapshot and
// detector both skip: OS metadata, version control, and editor artifacts.
var ignorePatterns = []string{
	".DS_Store", "Thumbs.db", ".git", ".svn", "__MACOSX", "*.tmp", "~*",
}

// Registry is the resolved, immutable-after-init taxonomy. Construct it
// once per process via Load and share it read-only across pipeline
// phases.
type Registry struct {
	categories  []Category
	bundleHints []string
	ignore      []string
	labels      *LabelCache
}

// Load returns a Registry built from the hardcoded defaults above. It
// reads no override file from disk; resolveSearchPaths lists candidate
// directories but Load does not call it.
func Load(labels *LabelCache) *Registry {
	return &Registry{
		categories:  defaultCategories,
		bundleHints: bundleHintKeywords,
		ignore:      ignorePatterns,
		labels:      labels,
	}
}

// resolveSearchPaths returns the directories consulted, in priority
// order, when looking for an on-disk taxonomy override.
func resolveSearchPaths() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dir := cwd
		for i := 0; i < 6; i++ {
			paths = append(paths, dir)
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return paths
}

// IsCategory reports whether name contains a keyword for the given
// category (case-insensitive, substring match).
func (r *Registry) IsCategory(name, category string) bool {
	normalized := normalizeForMatch(name)
	for _, c := range r.categories {
		if !strings.EqualFold(c.Name, category) {
			continue
		}
		for _, kw := range c.Keywords {
			if strings.Contains(normalized, kw) {
				return true
			}
		}
	}
	return false
}

// CategoryFor returns the first category whose keywords match name, or
// ("", false) if none match.
func (r *Registry) CategoryFor(name string) (string, bool) {
	normalized := normalizeForMatch(name)
	for _, c := range r.categories {
		for _, kw := range c.Keywords {
			if strings.Contains(normalized, kw) {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Categories returns the full category catalogue for iteration.
func (r *Registry) Categories() []Category {
	return r.categories
}

// GenreFor returns the first genre whose keywords match name, or
// ("", false) if none match. Genre is a separate lexical axis from
// category: it describes musical style rather than content type.
func (r *Registry) GenreFor(name string) (string, bool) {
	normalized := normalizeForMatch(name)
	for _, g := range genreKeywords {
		for _, kw := range g.Keywords {
			if strings.Contains(normalized, kw) {
				return g.Name, true
			}
		}
	}
	return "", false
}

// MatchesBundleHint reports whether name contains a bundle-hint keyword.
func (r *Registry) MatchesBundleHint(name string) bool {
	normalized := normalizeForMatch(name)
	for _, kw := range r.bundleHints {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// MatchesLabel reports whether name corresponds to a known commercial
// sample label, consulting the offline label cache first and the static
// fallback list second.
func (r *Registry) MatchesLabel(name string) (string, bool) {
	if r.labels != nil {
		if canonical, ok := r.labels.MatchesLabel(name); ok {
			return canonical, true
		}
	}
	normalized := normalizeForMatch(name)
	for _, label := range knownLabels {
		if strings.Contains(normalized, normalizeForMatch(label)) {
			return label, true
		}
	}
	return "", false
}

// KnownLabels returns the static label list, used to seed LabelCache.
func KnownLabels() []string {
	out := make([]string, len(knownLabels))
	copy(out, knownLabels)
	return out
}

// ShouldIgnore reports whether base (a file or directory name) matches an
// ignore pattern.
func (r *Registry) ShouldIgnore(base string) bool {
	for _, pat := range r.ignore {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return false
}

// normalizeForMatch lowercases and NFC-normalizes a name for keyword
// matching, collapsing separators so "Black-Octopus_Sound" and
// "Black Octopus Sound" compare equal.
func normalizeForMatch(name string) string {
	normalized := norm.NFC.String(strings.ToLower(name))
	replacer := strings.NewReplacer("_", " ", "-", " ", ".", " ")
	return replacer.Replace(normalized)
}

// scanLines is a small helper retained for a future on-disk taxonomy
// override format (see Load's doc comment); unused today but grounded on
// the bufio.Scanner idiom the rest of the pack uses for line-oriented
// config parsing.
func scanLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
