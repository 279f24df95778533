package component

import (
	"path"
	"sort"
	"sync"
)

// ArtifactOutput is the immutable record of a successful build: the
// artifact-root directory plus the produced file paths relative to it.
type ArtifactOutput struct {
	// Root is the absolute artifact-root directory.
	Root string
	// Files are the produced paths relative to Root, sorted and unique.
	Files []string
}

// OutputBuilder accumulates produced files during a build and freezes them
// into an ArtifactOutput. Sub-builders group files under a nested relative
// root; Build flattens them into the parent's file list.
type OutputBuilder struct {
	root    string
	subRoot string

	mu    sync.Mutex
	files []string
	subs  []*OutputBuilder
}

// NewOutputBuilder creates a builder rooted at the given artifact root.
func NewOutputBuilder(root string) *OutputBuilder {
	return &OutputBuilder{root: root}
}

// Root returns the artifact-root directory files are produced under.
func (b *OutputBuilder) Root() string {
	return b.root
}

// AddFile records one produced file path, relative to the builder's root.
func (b *OutputBuilder) AddFile(rel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files = append(b.files, path.Clean(rel))
}

// Sub returns a nested builder whose files land under the given relative
// root when the parent is built.
func (b *OutputBuilder) Sub(rel string) *OutputBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := &OutputBuilder{root: b.root, subRoot: path.Join(b.subRoot, rel)}
	b.subs = append(b.subs, sub)
	return sub
}

// Build flattens the accumulated files, including every sub-builder's,
// into an immutable ArtifactOutput.
func (b *OutputBuilder) Build() *ArtifactOutput {
	seen := make(map[string]struct{})
	var files []string
	b.collect(seen, &files)
	sort.Strings(files)
	return &ArtifactOutput{Root: b.root, Files: files}
}

func (b *OutputBuilder) collect(seen map[string]struct{}, files *[]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range b.files {
		full := path.Join(b.subRoot, f)
		if _, dup := seen[full]; dup {
			continue
		}
		seen[full] = struct{}{}
		*files = append(*files, full)
	}
	for _, sub := range b.subs {
		sub.collect(seen, files)
	}
}
