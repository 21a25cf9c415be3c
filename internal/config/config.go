// Package config holds small, shared constants and the optional project
// settings file, grounded in the teacher's internal/config/constants.go: a
// plain package of shared constants plus a couple of flags consulted by
// other packages, not a general-purpose configuration framework.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceFileExtensions are the extensions the CLI and any directory walk
// recognize as source files.
var SourceFileExtensions = []string{".semant", ".sm"}

// HasSourceExt reports whether path ends with a recognized source extension.
func HasSourceExt(path string) bool {
	for _, ext := range SourceFileExtensions {
		if len(path) >= len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}
	return false
}

// Reserved fact names (spec §6 "Fact namespace used by downstream
// consumers"). Collected here so report and solver code refers to one
// shared set of string constants instead of scattering literals.
const (
	FactSpan            = "span"
	FactSource          = "source"
	FactComments        = "comments"
	FactHidden          = "hidden"
	FactUntyped         = "untyped"
	FactType            = "type"
	FactIncompleteType  = "incompleteType"
	FactUnknownType     = "unknownType"
	FactResolvedTrait   = "resolvedTrait"
	FactUnresolvedTrait = "unresolvedTrait"
	FactInstance        = "instance"
	FactSubstitutions   = "substitutions"
	FactConstraints     = "constraints"
)

// ConfigFileName is the project settings file the driver looks for; the CLI
// loads it relative to the current working directory, not next to the file
// being analyzed.
const ConfigFileName = ".semant.yaml"

// QueryPreset names a reusable set of node filters for the CLI's --query
// flag, since the full diagnostic-template engine (markdown+YAML pattern
// matcher) is out of scope but the CLI still needs named, reusable filters.
type QueryPreset struct {
	// FactNames restricts displayed nodes to ones carrying any of these
	// fact names (e.g. ["unresolvedTrait", "unresolvedName"]).
	FactNames []string `yaml:"facts"`
}

// Settings is the shape of an optional `.semant.yaml` project file.
type Settings struct {
	Queries map[string]QueryPreset `yaml:"queries"`
}

// Load reads and parses path. A missing file is not an error: it returns
// an empty Settings, since the presets feature is optional.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if s.Queries == nil {
		s.Queries = make(map[string]QueryPreset)
	}
	return &s, nil
}

// Preset looks up a named query, reporting false if none was declared.
func (s *Settings) Preset(name string) (QueryPreset, bool) {
	if s == nil {
		return QueryPreset{}, false
	}
	p, ok := s.Queries[name]
	return p, ok
}
