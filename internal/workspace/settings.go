package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the name of the optional tool-settings file at the
// workspace root.
const SettingsFile = "anvil.yaml"

// RemoteSettings addresses the optional remote cache sink.
type RemoteSettings struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Settings are the tool-level knobs read from anvil.yaml. CLI flags
// override every field.
type Settings struct {
	CacheDir  string         `yaml:"cache_dir"`
	Workers   int            `yaml:"workers"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
	Remote    RemoteSettings `yaml:"remote"`
}

// LoadSettings reads the settings file under root. A missing file yields
// zero-valued settings; a malformed file is an error.
func LoadSettings(root string) (*Settings, error) {
	path := filepath.Join(root, SettingsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}
