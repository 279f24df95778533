// Package fingerprint computes the deterministic content identity of an
// artifact's build inputs.
//
// The digest folds in the project and artifact name, the content hash of
// every source file, the fingerprint-relevant build-config fields, and the
// fingerprints of every resolved dependency. Files, config fields, and
// dependency fingerprints are each sorted before hashing, so enumeration
// and declaration order never affect the result.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/anvil-build/anvil/internal/component"
)

// FileHash pairs a source file path with its content hash.
type FileHash struct {
	// Path is the file's path. Hashing uses the slash form, so the digest
	// is identical across operating systems.
	Path string
	// Hash is the hex-encoded BLAKE3 hash of the file's content.
	Hash string
}

// HashFile computes the hex-encoded BLAKE3 content hash of one file.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashString computes the hex-encoded BLAKE3 hash of a string. Used for
// synthetic fingerprints such as external package references.
func HashString(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Artifact computes the final artifact fingerprint. config may be nil for
// artifacts without build configuration.
func Artifact(project, artifact string, config component.Config, files []FileHash, depFingerprints []string) string {
	h := blake3.New()
	writeField(h, "project", project)
	writeField(h, "artifact", artifact)

	sortedFiles := slices.Clone(files)
	slices.SortFunc(sortedFiles, func(a, b FileHash) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		default:
			return 0
		}
	})
	for _, f := range sortedFiles {
		writeField(h, "file", filepath.ToSlash(f.Path))
		writeField(h, "hash", f.Hash)
	}

	if config != nil {
		// FingerprintFields is already sorted by field name.
		for _, f := range component.FingerprintFields(config) {
			writeField(h, "config:"+f.Name, f.Value)
		}
	}

	sortedDeps := slices.Clone(depFingerprints)
	slices.Sort(sortedDeps)
	for _, dep := range sortedDeps {
		writeField(h, "dep", dep)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-delimited key/value pair so that no pair of
// distinct inputs can collide through concatenation.
func writeField(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%d:%s=%d:%s;", len(key), key, len(value), value)
}
