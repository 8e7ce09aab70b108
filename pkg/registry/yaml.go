package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gangwayhq/gangway/pkg/flow"
)

// fileSchema is the YAML envelope for a registry definition file.
type fileSchema struct {
	Steps []flow.Step `yaml:"steps"`
}

// LoadYAML parses a registry definition from YAML bytes.
func LoadYAML(data []byte) (*Registry, error) {
	var def fileSchema
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse registry definition: %w", err)
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("registry definition contains no steps")
	}
	return New(def.Steps)
}

// LoadYAMLFile reads and parses a registry definition file.
func LoadYAMLFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return LoadYAML(data)
}
