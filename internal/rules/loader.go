package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed formatting.yml
var builtinFormatting []byte

//go:embed dependencies.yml
var builtinDependencies []byte

// Load reads and parses a rule document from a YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule file: %w", err)
	}
	return Parse(data)
}

// Parse parses a rule document from raw YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rule YAML: %w", err)
	}
	return &doc, nil
}

// BuiltinFormatting returns the embedded formatting rule document.
func BuiltinFormatting() (*Document, error) {
	return Parse(builtinFormatting)
}

// BuiltinDependencies returns the embedded dependency rule document.
func BuiltinDependencies() (*Document, error) {
	return Parse(builtinDependencies)
}
