// Package snapshot implements C1: a lightweight, precomputed index of a
// directory tree with aggregated audio/preset/other file counts and sizes.
// The snapshot is built once per phase boundary and shared read-only by the
// rest of the pipeline instead of being recomputed from disk repeatedly.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc"

	"github.com/franz/sample-organizer/internal/model"
	"github.com/franz/sample-organizer/internal/util"
)

// DefaultMaxDepth bounds how deep the snapshot walk recurses below the
// source root, matching the component design's 4-5 default.
const DefaultMaxDepth = 5

// StateDirName is the hidden directory the organizer keeps its persisted
// state in, relative to the collection's source root.
const StateDirName = ".audio-organizer"

// Config controls how a snapshot is built.
type Config struct {
	SourcePath      string
	MaxDepth        int
	ExcludePatterns []string
	ShowProgress    bool
}

// Result is the outcome of a snapshot build.
type Result struct {
	Root      *model.Node
	DirCount  int
	FileCount int
	Errors    []error
}

// Builder walks a directory tree and produces a Node snapshot.
type Builder struct {
	cfg         Config
	visited     atomic.Int64
	mu          sync.Mutex // guards errs and symlinkSeen across concurrent walk() goroutines
	errs        []error
	symlinkSeen map[string]bool
}

// NewBuilder constructs a Builder, applying defaults for unset config fields.
func NewBuilder(cfg Config) *Builder {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Builder{cfg: cfg, symlinkSeen: make(map[string]bool)}
}

// Build recursively walks the configured source path and returns the
// aggregated snapshot tree. Unreadable subdirectories are recorded as
// errors and skipped rather than aborting the whole walk; symlink cycles
// are detected via the realpath of each visited directory and pruned.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	info, err := os.Stat(b.cfg.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("cannot stat source path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path is not a directory: %s", b.cfg.SourcePath)
	}

	var bar *progressbar.ProgressBar
	if b.cfg.ShowProgress && isatty.IsTerminal(os.Stdout.Fd()) {
		bar = progressbar.Default(-1, "indexing directories")
		defer bar.Finish()
	}

	root := b.walk(ctx, b.cfg.SourcePath, 0, bar)

	b.mu.Lock()
	errs := b.errs
	b.mu.Unlock()

	return &Result{
		Root:      root,
		DirCount:  countDirs(root),
		FileCount: root.TotalFileCount(),
		Errors:    errs,
	}, nil
}

// recordErr appends to the shared error slice under lock; walk() runs
// concurrently once a directory has more than 32 entries (see
// walkConcurrent), so every append must go through here.
func (b *Builder) recordErr(err error) {
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

func (b *Builder) walk(ctx context.Context, path string, depth int, bar *progressbar.ProgressBar) *model.Node {
	node := &model.Node{
		Path:  path,
		Name:  filepath.Base(path),
		Depth: depth,
		IsDir: true,
	}
	if info, err := os.Stat(path); err == nil {
		node.MTime = info.ModTime()
	}

	if real, err := filepath.EvalSymlinks(path); err == nil {
		b.mu.Lock()
		seen := b.symlinkSeen[real]
		if !seen {
			b.symlinkSeen[real] = true
		}
		b.mu.Unlock()
		if seen {
			b.recordErr(fmt.Errorf("symlink cycle detected at %s", path))
			return node
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		b.recordErr(fmt.Errorf("cannot read directory %s: %w", path, err))
		return node
	}

	if b.shouldExclude(path) {
		return node
	}

	b.visited.Add(1)
	if bar != nil {
		bar.Add(1)
	}

	if depth >= b.cfg.MaxDepth {
		// Still count files at the boundary so totals remain accurate,
		// but stop recursing into further subdirectories.
		for _, e := range entries {
			if !e.IsDir() {
				b.addFile(node, filepath.Join(path, e.Name()), e)
			}
		}
		return node
	}

	if len(entries) > 32 {
		b.walkConcurrent(ctx, path, depth, entries, node, bar)
	} else {
		for _, e := range entries {
			full := filepath.Join(path, e.Name())
			if e.IsDir() {
				child := b.walk(ctx, full, depth+1, bar)
				node.Children = append(node.Children, child)
			} else {
				b.addFile(node, full, e)
			}
		}
	}

	b.aggregate(node)
	return node
}

func (b *Builder) walkConcurrent(ctx context.Context, path string, depth int, entries []os.DirEntry, node *model.Node, bar *progressbar.ProgressBar) {
	var wg conc.WaitGroup
	children := make([]*model.Node, len(entries))

	for i, e := range entries {
		i, e := i, e
		full := filepath.Join(path, e.Name())
		if !e.IsDir() {
			b.addFile(node, full, e)
			continue
		}
		wg.Go(func() {
			children[i] = b.walk(ctx, full, depth+1, bar)
		})
	}
	wg.Wait()

	for _, c := range children {
		if c != nil {
			node.Children = append(node.Children, c)
		}
	}
}

func (b *Builder) addFile(node *model.Node, full string, e os.DirEntry) {
	info, err := e.Info()
	var size int64
	var mtime time.Time
	if err == nil {
		size = info.Size()
		mtime = info.ModTime()
	}
	child := &model.Node{
		Path:      full,
		Name:      e.Name(),
		Depth:     node.Depth + 1,
		IsDir:     false,
		MTime:     mtime,
		TotalSize: size,
	}
	switch model.ClassifyExtension(filepath.Ext(e.Name())) {
	case model.KindAudio:
		child.AudioCount = 1
	case model.KindPreset:
		child.PresetCount = 1
	default:
		child.OtherCount = 1
	}
	node.Children = append(node.Children, child)
}

// aggregate sums counts/sizes from direct children into node. It is never
// invoked more than once per node, and only after every child has already
// been aggregated, preserving the invariant that a node's totals are the
// sum of its children and are never recomputed later during detection.
func (b *Builder) aggregate(node *model.Node) {
	for _, c := range node.Children {
		node.AudioCount += c.AudioCount
		node.PresetCount += c.PresetCount
		node.OtherCount += c.OtherCount
		node.TotalSize += c.TotalSize
	}
}

func (b *Builder) shouldExclude(path string) bool {
	base := filepath.Base(path)
	for _, pat := range b.cfg.ExcludePatterns {
		if ok, _ := filepath.Match(pat, base); ok {
			return true
		}
	}
	return base == StateDirName
}

func countDirs(n *model.Node) int {
	if n == nil {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		if c.IsDir {
			count += countDirs(c)
		}
	}
	return count
}

// StatePath returns the path to a named file inside the source's
// .audio-organizer state directory.
func StatePath(source, filename string) string {
	return filepath.Join(source, StateDirName, filename)
}

// EnsureStateDir creates the .audio-organizer directory under source if it
// does not already exist.
func EnsureStateDir(source string) (string, error) {
	dir := filepath.Join(source, StateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: cannot create state directory: %v", util.ErrPermission, err)
	}
	return dir, nil
}

// Save serializes a snapshot node tree to JSON at the given path.
func Save(node *model.Node, path string) error {
	data, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load deserializes a snapshot node tree from JSON at the given path.
func Load(path string) (*model.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read snapshot: %v", util.ErrNotFound, err)
	}
	var node model.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &node, nil
}

const (
	// OriginalSnapshotFile is the pre-reorganization structure snapshot.
	OriginalSnapshotFile = "structure-originale.json"
	// ReorganizedSnapshotFile is the post-reorganization structure snapshot.
	ReorganizedSnapshotFile = "structure-reorganized.json"
	// ProposedSnapshotFile is the planner's proposed structure snapshot.
	ProposedSnapshotFile = "structure-proposee.json"
)
