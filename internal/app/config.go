package app

import "errors"

// Config holds everything an App instance needs to run. CLI flags populate
// it; fields left at their zero value fall back to the workspace's
// anvil.yaml settings and then to built-in defaults.
type Config struct {
	// WorkspacePath is the workspace root scanned for declaration files.
	WorkspacePath string
	// Target is the run request: `<project>/<artifact>[:<job>]` or a bare
	// job URI.
	Target string
	// ShowLastProject, when set, prints the project's most recent cached
	// output instead of building.
	ShowLastProject string

	CacheDir        string
	Workers         int
	InvalidateCache bool

	LogFormat string
	LogLevel  string

	RemoteURL   string
	RemoteToken string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkspacePath == "" {
		return nil, errors.New("WorkspacePath is a required configuration field and cannot be empty")
	}
	if cfg.Target == "" && cfg.ShowLastProject == "" {
		return nil, errors.New("a build target is required")
	}
	return &cfg, nil
}
