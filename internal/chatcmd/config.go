// Package chatcmd implements the gochat terminal chat command.
package chatcmd

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk configuration, by default at
// ~/.config/gochat.yaml. Command-line flags override file values.
type FileConfig struct {
	// Token is sent as a bearer token.
	Token string `yaml:"token"`
	// APIKey is sent as an api-key header (Azure).
	APIKey string `yaml:"api_key"`

	APIURL     string `yaml:"api_url"`
	APIVersion string `yaml:"api_version"`
	Flavor     string `yaml:"flavor"`
	Model      string `yaml:"model"`

	SystemMessage   string `yaml:"system_message"`
	ReasoningEffort string `yaml:"reasoning_effort"`
	ReasoningBudget int64  `yaml:"reasoning_budget"`
	Verbosity       string `yaml:"verbosity"`

	MinHistoryTokens  int `yaml:"min_history_tokens"`
	MaxHistoryTokens  int `yaml:"max_history_tokens"`
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// HistoryDB enables transcript recording into an SQLite file.
	HistoryDB string `yaml:"history_db"`

	Debug bool `yaml:"debug"`
}

// DefaultConfigPath returns ~/.config/gochat.yaml, falling back to a
// relative path when the home directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "gochat.yaml"
	}
	return filepath.Join(home, ".config", "gochat.yaml")
}

// LoadFileConfig reads the YAML config at path. A missing file is not
// an error when the path is the default location; explicit paths must
// exist.
func LoadFileConfig(path string, explicit bool) (FileConfig, error) {
	var config FileConfig

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && !explicit:
		// No config file is fine; flags and environment still apply.
	case err != nil:
		return config, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, &config); err != nil {
			return config, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if config.Token == "" && config.APIKey == "" {
		config.Token = os.Getenv("OPENAI_API_KEY")
	}

	return config, nil
}
