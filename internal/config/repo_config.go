package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var (
	ErrRepoConfigNotFound = errors.New("repo config file not found")
	ErrRepoConfigParsing  = errors.New("repo config parsing failed")
)

// RepoOverrides is an optional, repository-supplied override of a handful
// of scan/analysis knobs, loaded from a `.docwarden.yml` file at the root of
// the cloned workspace. Fields left zero keep the process-wide default.
type RepoOverrides struct {
	IgnoredNames []string `yaml:"ignored_names"`
	MaxFiles     int      `yaml:"max_files"`
	AnalyzerMax  int      `yaml:"analyzer_max_files"`
}

// LoadRepoOverrides loads and parses the `.docwarden.yml` file from a
// workspace path, if present. A missing file is not an error condition for
// callers that treat process defaults as sufficient.
func LoadRepoOverrides(workspacePath string) (*RepoOverrides, error) {
	configPath := filepath.Join(workspacePath, ".docwarden.yml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &RepoOverrides{}, ErrRepoConfigNotFound
		}
		return nil, fmt.Errorf("failed to read .docwarden.yml: %w", err)
	}

	overrides := &RepoOverrides{}
	if err := yaml.Unmarshal(data, overrides); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoConfigParsing, err)
	}
	return overrides, nil
}

// Apply merges non-zero RepoOverrides fields into a copy of a ScannerConfig
// and AnalyzerConfig, returning the effective values for a single run
// without mutating the process-wide Config.
func (o *RepoOverrides) Apply(scanner ScannerConfig, analyzer AnalyzerConfig) (ScannerConfig, AnalyzerConfig) {
	if o == nil {
		return scanner, analyzer
	}
	if len(o.IgnoredNames) > 0 {
		scanner.IgnoredNames = append(append([]string{}, scanner.IgnoredNames...), o.IgnoredNames...)
	}
	if o.MaxFiles > 0 {
		scanner.MaxFiles = o.MaxFiles
	}
	if o.AnalyzerMax > 0 {
		analyzer.MaxFiles = o.AnalyzerMax
	}
	return scanner, analyzer
}
