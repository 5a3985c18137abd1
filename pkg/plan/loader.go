package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads, parses, and validates a plan from the given file path.
//
// The file format is determined by extension: .yaml/.yml for YAML,
// .json for JSON. If the extension is unrecognized, YAML is attempted
// first, then JSON. Defaults are applied after validation.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied reading plan: %s", path)
		}
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a plan from raw bytes. The path
// parameter is used for error messages and format detection.
func LoadFromBytes(data []byte, path string) (*Plan, error) {
	if len(data) == 0 {
		return nil, errors.New("plan file is empty")
	}

	p, err := parsePlan(data, path)
	if err != nil {
		return nil, err
	}

	if err := Validate(p); err != nil {
		return nil, err
	}

	p.ApplyDefaults()
	return p, nil
}

// LoadFromReader reads and validates a plan from an io.Reader.
func LoadFromReader(r io.Reader, path string) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return LoadFromBytes(data, path)
}

func parsePlan(data []byte, path string) (*Plan, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		return parseJSON(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		p, yamlErr := parseYAML(data)
		if yamlErr == nil {
			return p, nil
		}
		p, jsonErr := parseJSON(data)
		if jsonErr == nil {
			return p, nil
		}
		return nil, fmt.Errorf("failed to parse plan (tried YAML and JSON): %w", yamlErr)
	}
}

func parseJSON(data []byte) (*Plan, error) {
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON in plan: %w", err)
	}
	return &p, nil
}

func parseYAML(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid YAML in plan: %w", err)
	}
	return &p, nil
}
