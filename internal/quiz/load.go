package quiz

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// bankFile is the on-disk layout of a question bank.
type bankFile struct {
	Traits    []string   `yaml:"traits"`
	Questions []Question `yaml:"questions"`
}

// LoadYAML reads and validates a question bank from YAML.
func LoadYAML(r io.Reader) (*MemoryBank, error) {
	var f bankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode question bank: %w", err)
	}
	for _, q := range f.Questions {
		if q.Category != "" && !q.Category.Valid() {
			return nil, fmt.Errorf("%w: question %q has unknown category %q", ErrInvalidBank, q.ID, q.Category)
		}
	}
	return NewBank(f.Questions, f.Traits...)
}

// LoadFile reads a question bank from a YAML file.
func LoadFile(path string) (*MemoryBank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}
