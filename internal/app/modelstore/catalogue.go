package modelstore

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// File is one downloadable artifact of a model
type File struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	SHA256 string `yaml:"sha256,omitempty"`
}

// Entry describes a known model. Files may be empty when the engine library
// downloads its own weights into the cache directory.
type Entry struct {
	Name  string `yaml:"name"`
	Files []File `yaml:"files,omitempty"`
}

var whisperNames = []string{
	"tiny", "tiny.en", "base", "base.en", "small", "small.en", "medium", "medium.en",
	"large-v1", "large-v2", "large-v3", "large", "turbo", "large-v3-turbo",
}

var ctranslateNames = []string{"distil-large-v2", "distil-large-v3", "distil-medium.en", "distil-small.en"}

// Catalogue lists the model names each engine accepts
type Catalogue struct {
	models map[model.EngineKind]map[string]Entry
}

// DefaultCatalogue returns the Whisper model names every engine understands
func DefaultCatalogue() *Catalogue {
	c := &Catalogue{models: make(map[model.EngineKind]map[string]Entry)}
	for _, kind := range model.EngineKinds {
		for _, name := range whisperNames {
			c.Add(kind, Entry{Name: name})
		}
	}
	for _, name := range ctranslateNames {
		c.Add(model.EngineFasterWhisper, Entry{Name: name})
		c.Add(model.EngineWhisperX, Entry{Name: name})
	}
	return c
}

// Add registers or replaces an entry
func (c *Catalogue) Add(engine model.EngineKind, e Entry) {
	if c.models[engine] == nil {
		c.models[engine] = make(map[string]Entry)
	}
	c.models[engine][e.Name] = e
}

// Lookup returns the entry for engine and name
func (c *Catalogue) Lookup(engine model.EngineKind, name string) (Entry, bool) {
	e, ok := c.models[engine][name]
	return e, ok
}

// Has reports whether name is a known model for engine
func (c *Catalogue) Has(engine model.EngineKind, name string) bool {
	_, ok := c.Lookup(engine, name)
	return ok
}

// Names returns the sorted model names for engine
func (c *Catalogue) Names(engine model.EngineKind) []string {
	names := make([]string, 0, len(c.models[engine]))
	for name := range c.models[engine] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type catalogueFile struct {
	Engines map[string][]Entry `yaml:"engines"`
}

// LoadCatalogue merges the entries of a YAML catalogue file into the defaults:
//
//	engines:
//	  faster_whisper:
//	    - name: my-finetune
//	      files:
//	        - {name: model.bin, url: https://example.com/model.bin, sha256: ...}
func LoadCatalogue(path string) (*Catalogue, error) {
	c := DefaultCatalogue()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalogue")
	}
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, "parse catalogue %s", path)
	}
	for engine, entries := range file.Engines {
		kind, err := model.ParseEngineKind(engine)
		if err != nil {
			return nil, errors.Wrapf(err, "catalogue %s", path)
		}
		for _, e := range entries {
			if e.Name == "" {
				return nil, errors.Newf("catalogue %s: %s entry without a name", path, engine)
			}
			c.Add(kind, e)
		}
	}
	return c, nil
}
