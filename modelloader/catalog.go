// Package modelloader manages the at-most-one local transcription model:
// a static YAML catalog of known models plus a loader that downloads,
// loads, and idle-unloads a whisper.cpp model under a single lock.
package modelloader

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Family distinguishes the two local model architectures the catalog can
// describe: whisper-style encoder-decoder and parakeet-style TDT.
type Family string

const (
	FamilyWhisper  Family = "whisper"
	FamilyParakeet Family = "parakeet"
)

// ModelEntry describes one downloadable local model.
type ModelEntry struct {
	Name        string `yaml:"name"`
	Family      Family `yaml:"family"`
	Label       string `yaml:"label"`
	SizeMB      int    `yaml:"sizeMb"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	FileName    string `yaml:"fileName"`
}

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the parsed, static set of models the loader can fetch.
type Catalog struct {
	Models []ModelEntry `yaml:"models"`
}

// LoadCatalog parses the embedded catalog fixture. It never fails at
// runtime barring a corrupt build; callers may still check err defensively.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("modelloader: parse catalog: %w", err)
	}
	return &c, nil
}

// Find returns the entry with the given name, or ok=false.
func (c *Catalog) Find(name string) (ModelEntry, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelEntry{}, false
}
