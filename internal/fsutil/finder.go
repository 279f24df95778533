// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, p)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// FindFilesMatching recursively collects files under root whose slash-form
// path relative to root matches any of the given patterns. Patterns use
// path.Match syntax per segment, with `**` matching any number of leading
// directories (so `**/*.c` matches `a/b/c.c` and `c.c`). The result is
// sorted so enumeration order is deterministic.
func FindFilesMatching(root string, patterns []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, pattern := range patterns {
			ok, err := matchPattern(pattern, rel)
			if err != nil {
				return err
			}
			if ok {
				files = append(files, p)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matchPattern matches a slash-form relative path against a pattern with
// `**` directory-wildcard support.
func matchPattern(pattern, rel string) (bool, error) {
	if pattern == "**" {
		return true, nil
	}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		// `**/x` matches `x` at any depth, including depth zero.
		if ok, err := path.Match(rest, path.Base(rel)); err != nil || ok {
			return ok, err
		}
		return path.Match(rest, rel)
	}
	return path.Match(pattern, rel)
}
