// Package model holds the data types shared across the organizer's
// pipeline components: the snapshot tree, pack taxonomy, and extension
// classification. Keeping these in one place avoids import cycles between
// internal/snapshot, internal/detect, internal/dedupe, and internal/pipeline.
package model

import (
	"strings"
	"time"
)

// AudioExtensions is the set of file extensions counted as audio content.
var AudioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".aiff": true, ".aif": true,
	".ogg": true, ".m4a": true,
}

// PresetExtensions is the set of file extensions counted as synth/sampler
// preset content.
var PresetExtensions = map[string]bool{
	".fxp": true, ".fxb": true, ".h2p": true, ".nksf": true, ".nksfx": true,
	".adg": true, ".adv": true, ".als": true, ".flp": true, ".logic": true,
	".vital": true, ".nmsv": true, ".serum": true, ".serumpack": true,
	".serumpreset": true, ".spf": true, ".ksd": true,
}

// FileKind classifies a file by its role in a sample pack.
type FileKind int

const (
	// KindOther is any file that is neither audio nor a preset.
	KindOther FileKind = iota
	KindAudio
	KindPreset
)

// ClassifyExtension returns the FileKind for a file extension (including
// the leading dot, e.g. ".wav"). Matching is case-insensitive.
func ClassifyExtension(ext string) FileKind {
	ext = strings.ToLower(ext)
	if AudioExtensions[ext] {
		return KindAudio
	}
	if PresetExtensions[ext] {
		return KindPreset
	}
	return KindOther
}

// PackType is the classification a pack detector assigns to a directory.
type PackType string

const (
	CommercialPack     PackType = "CommercialPack"
	BundleContainer    PackType = "BundleContainer"
	WrapperFolder      PackType = "WrapperFolder"
	OrganizationFolder PackType = "OrganizationFolder"
	PersonalCollection PackType = "PersonalCollection"
	Unknown            PackType = "Unknown"
)

// Node is a single file or directory in a snapshot tree. Each node records
// its own full path as a string and holds no pointer back to its parent, so
// the tree can round-trip through JSON as a plain tree and be shared
// read-only across pipeline phases.
type Node struct {
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Depth       int       `json:"depth"`
	IsDir       bool      `json:"isDir"`
	MTime       time.Time `json:"mtime"`
	Children    []*Node   `json:"children,omitempty"`
	AudioCount  int       `json:"audioFileCount"`
	PresetCount int       `json:"presetFileCount"`
	OtherCount  int       `json:"otherFileCount"`
	TotalSize   int64     `json:"totalSize"`
}

// SubdirNames returns the names of this node's direct directory children.
func (n *Node) SubdirNames() []string {
	var names []string
	for _, c := range n.Children {
		if c.IsDir {
			names = append(names, c.Name)
		}
	}
	return names
}

// Subdirs returns this node's direct directory children.
func (n *Node) Subdirs() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.IsDir {
			out = append(out, c)
		}
	}
	return out
}

// TotalFileCount is the sum of audio, preset, and other files under this
// node, aggregated bottom-up at snapshot build time.
func (n *Node) TotalFileCount() int {
	return n.AudioCount + n.PresetCount + n.OtherCount
}
