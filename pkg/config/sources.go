package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anshumax/semantiqa-sub001/pkg/models"
)

// SourceSeed is one declarative source definition from the seed file.
type SourceSeed struct {
	Name   string              `yaml:"name"`
	Kind   string              `yaml:"kind"`
	Config models.SourceConfig `yaml:"config"`
}

type sourcesFile struct {
	Sources []SourceSeed `yaml:"sources"`
}

// LoadSources parses a sources seed file. Environment references like
// ${PGPASSWORD} inside the file are expanded before parsing so secrets stay
// out of the file itself.
func LoadSources(path string) ([]SourceSeed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	expanded := os.ExpandEnv(string(raw))

	var parsed sourcesFile
	if err := yaml.Unmarshal([]byte(expanded), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	for i, seed := range parsed.Sources {
		if seed.Name == "" {
			return nil, fmt.Errorf("sources[%d]: name is required", i)
		}
		if !models.IsValidSourceKind(seed.Kind) {
			return nil, fmt.Errorf("sources[%d] %q: unknown kind %q", i, seed.Name, seed.Kind)
		}
	}

	return parsed.Sources, nil
}
