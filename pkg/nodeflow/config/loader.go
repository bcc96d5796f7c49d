package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type decodeFunc func(data []byte, v any) error

var decoders = map[string]decodeFunc{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".json": json.Unmarshal,
}

// FromFile reads a params file. The format follows the extension: .yaml,
// .yml or .json.
func FromFile(path string) (Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return Config{}, fmt.Errorf("params file %s: unsupported extension %q", path, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("params file: %w", err)
	}
	cfg, err := decodeMapping(decode, data)
	if err != nil {
		return Config{}, fmt.Errorf("params file %s: %w", path, err)
	}
	return cfg, nil
}

// FromYAML decodes a YAML mapping.
func FromYAML(data []byte) (Config, error) {
	return decodeMapping(yaml.Unmarshal, data)
}

// FromJSON decodes a JSON object.
func FromJSON(data []byte) (Config, error) {
	return decodeMapping(json.Unmarshal, data)
}

func decodeMapping(decode decodeFunc, data []byte) (Config, error) {
	var m map[string]any
	if err := decode(data, &m); err != nil {
		return Config{}, fmt.Errorf("decode params: %w", err)
	}
	return New(m), nil
}
