// Package catalog maps the source-technology labels shown to users onto the
// tokens the analyzer and transpiler steps each expect. The two steps use
// different naming schemes for the same technology, so every entry carries
// one token per step.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSources []byte

// ErrUnknownLabel is returned when a label is not in the catalog
var ErrUnknownLabel = errors.New("unknown source technology")

// Source describes one supported source technology
type Source struct {
	// Label is the user-facing name
	Label string `yaml:"label"`

	// AnalyzerToken is the source_tech value the analyze step expects
	AnalyzerToken string `yaml:"analyzer"`

	// TranspilerToken is the dialect value the transpile step expects
	TranspilerToken string `yaml:"transpiler"`
}

// Catalog holds the supported source technologies keyed by label
type Catalog struct {
	sources map[string]Source
}

type catalogFile struct {
	Sources []Source `yaml:"sources"`
}

// Load returns the catalog from path, or the embedded default when path is
// empty.
func Load(path string) (*Catalog, error) {
	data := defaultSources
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file: %w", err)
		}
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, errors.New("catalog defines no sources")
	}

	sources := make(map[string]Source, len(file.Sources))
	for _, s := range file.Sources {
		if s.Label == "" || s.AnalyzerToken == "" || s.TranspilerToken == "" {
			return nil, fmt.Errorf("catalog entry %q is incomplete", s.Label)
		}
		sources[s.Label] = s
	}

	return &Catalog{sources: sources}, nil
}

// Labels returns the user-facing names in sorted order
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.sources))
	for label := range c.sources {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// AnalyzerToken resolves a label to the analyze step's token
func (c *Catalog) AnalyzerToken(label string) (string, error) {
	s, ok := c.sources[label]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	return s.AnalyzerToken, nil
}

// TranspilerToken resolves a label to the transpile step's dialect token
func (c *Catalog) TranspilerToken(label string) (string, error) {
	s, ok := c.sources[label]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	return s.TranspilerToken, nil
}
