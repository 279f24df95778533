package manager

import (
	"context"

	"github.com/anvil-build/anvil/internal/component"
	"github.com/anvil-build/anvil/internal/ctxlog"
	"github.com/anvil-build/anvil/internal/fingerprint"
)

// hashSources enumerates and content-hashes every file of the artifact's
// source sets, recording the hashes in the file hash store. The second
// result is the set of normalized paths whose hashes differ from the
// store's previous records; it names the rebuild reason on a cache miss.
func (m *Manager) hashSources(ctx context.Context, artifact *component.CreatedArtifact) ([]fingerprint.FileHash, []string, error) {
	logger := ctxlog.FromContext(ctx)

	var files []fingerprint.FileHash
	hashesByPath := make(map[string]string)
	for _, set := range artifact.SourceSets {
		paths, err := set.Files()
		if err != nil {
			return nil, nil, &component.ConfigurationError{
				Subject: "source set " + set.Name,
				Reason:  err.Error(),
			}
		}
		for _, path := range paths {
			hash, err := fingerprint.HashFile(path)
			if err != nil {
				return nil, nil, err
			}
			key := m.hashes.Normalize(path)
			files = append(files, fingerprint.FileHash{Path: key, Hash: hash})
			hashesByPath[path] = hash
		}
	}

	changed := m.hashes.HasChangedAny(hashesByPath)
	if len(changed) > 0 {
		logger.Debug("Source files changed since last build.", "artifact", artifact.Name, "changed", len(changed))
	}
	for path, hash := range hashesByPath {
		m.hashes.AddOrUpdate(path, hash)
	}
	return files, changed, nil
}
