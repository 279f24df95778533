// Package cachefile holds the persistence primitives shared by the artifact
// cache and the file hash store: CBOR encoding of an index snapshot and
// atomic replacement of the on-disk file.
package cachefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// IOError reports a failure to read or write a persisted cache file.
// Callers are expected to log it and continue with a cold cache; it is
// never fatal to a build.
type IOError struct {
	Path string
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Load decodes the CBOR file at path into v. A missing file is reported via
// the returned bool with a nil error, so callers can start cold without
// treating absence as a failure. A corrupt file yields an IOError.
func Load(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &IOError{Path: path, Op: "read", Err: err}
	}
	if err := cbor.Unmarshal(data, v); err != nil {
		return false, &IOError{Path: path, Op: "decode", Err: err}
	}
	return true, nil
}

// Save encodes v as CBOR and atomically replaces the file at path. The
// write goes to a temp file in the same directory followed by a rename, so
// a crash mid-write leaves the previous index intact.
func Save(path string, v any) error {
	data, err := cbor.Marshal(v)
	if err != nil {
		return &IOError{Path: path, Op: "encode", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &IOError{Path: path, Op: "mkdir", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return &IOError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return &IOError{Path: path, Op: "write", Err: err}
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return &IOError{Path: path, Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &IOError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
