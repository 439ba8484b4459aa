// Package dedupe implements C4: the duplicate indexer. It groups files by
// signature - (lowercased filename, size, mtime) by default, or a content
// SHA1 in opt-in strong mode - and exposes resolution strategies the caller
// can apply to a group.
package dedupe

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/util"
)

// Strategy is how a duplicate group should be resolved.
type Strategy string

const (
	AutoRemove  Strategy = "AutoRemove" // keep newest, remove the rest
	KeepAll     Strategy = "KeepAll"
	ManualReview Strategy = "ManualReview"
)

// FileEntry is one file under consideration for duplicate indexing.
type FileEntry struct {
	Path    string
	Size    int64
	ModTime int64
}

// Group is a set of files sharing a signature.
type Group struct {
	Signature string
	Files     []FileEntry
	Strategy  Strategy
}

// WastedBytes returns the space reclaimable by removing every file in the
// group but one: (count-1) * sizePerFile, matching the invariant that all
// files in a signature group share the same size.
func (g Group) WastedBytes() int64 {
	if len(g.Files) < 2 {
		return 0
	}
	return int64(len(g.Files)-1) * g.Files[0].Size
}

// Config controls how the indexer computes signatures.
type Config struct {
	UseContentHash bool // opt-in content hashing instead of (name, size, mtime)
}

// Indexer groups files into duplicate sets.
type Indexer struct {
	cfg Config
}

// New constructs an Indexer.
func New(cfg Config) *Indexer {
	return &Indexer{cfg: cfg}
}

// Index walks the snapshot tree's file leaves and groups them by
// signature. Only groups with two or more members are returned, and every
// file belongs to exactly one group (or none).
func (ix *Indexer) Index(root *model.Node) ([]Group, error) {
	buckets := make(map[string][]FileEntry)
	ix.collect(root, buckets)

	var groups []Group
	for sig, files := range buckets {
		if len(files) < 2 {
			continue
		}
		groups = append(groups, Group{
			Signature: sig,
			Files:     files,
			Strategy:  ManualReview,
		})
	}
	return groups, nil
}

func (ix *Indexer) collect(node *model.Node, buckets map[string][]FileEntry) {
	if node == nil {
		return
	}
	for _, c := range node.Children {
		if c.IsDir {
			ix.collect(c, buckets)
			continue
		}
		sig, err := ix.signature(c)
		if err != nil {
			continue
		}
		buckets[sig] = append(buckets[sig], FileEntry{Path: c.Path, Size: c.TotalSize, ModTime: c.MTime.Unix()})
	}
}

func (ix *Indexer) signature(file *model.Node) (string, error) {
	if ix.cfg.UseContentHash {
		return util.GenerateContentHash(file.Path)
	}
	name := strings.ToLower(filepath.Base(file.Path))
	key := util.GenerateSimpleFileKey(file.TotalSize, file.MTime.Unix())
	return fmt.Sprintf("%s:%s", name, key), nil
}

// Resolve applies a strategy to a group and returns the files to keep and
// the files to remove. AutoRemove keeps the file with the most recent
// ModTime; KeepAll and ManualReview keep every file (ManualReview defers
// the decision to the caller/user).
func Resolve(g Group, strategy Strategy) (keep []FileEntry, remove []FileEntry) {
	switch strategy {
	case AutoRemove:
		if len(g.Files) == 0 {
			return nil, nil
		}
		newest := g.Files[0]
		for _, f := range g.Files[1:] {
			if f.ModTime > newest.ModTime {
				newest = f
			}
		}
		for _, f := range g.Files {
			if f.Path == newest.Path {
				keep = append(keep, f)
			} else {
				remove = append(remove, f)
			}
		}
		return keep, remove
	default: // KeepAll, ManualReview
		return g.Files, nil
	}
}
