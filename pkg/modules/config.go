package modules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OpenCHAMI/patchbay/internal/format"
	"gopkg.in/yaml.v3"
)

// DefaultConfig is used when no module configuration is given.
const DefaultConfig = `{"PWR1": "", "PWR2": ""}`

var ErrInvalidConfig = errors.New("invalid module configuration")

// Binding assigns a module type (by model, or ID in the pairs variant) to
// a module bay name. An empty module leaves the bay alone.
type Binding struct {
	Bay    string `json:"bay" yaml:"bay"`
	Module string `json:"module" yaml:"module"`
}

// Config is an ordered bay -> module mapping. Order follows the input.
type Config []Binding

// Lookup() returns the module configured for a bay.
func (c Config) Lookup(bay string) (string, bool) {
	for _, b := range c {
		if b.Bay == bay {
			return b.Module, true
		}
	}
	return "", false
}

// Configured() is the number of bindings naming a module.
func (c Config) Configured() int {
	n := 0
	for _, b := range c {
		if b.Module != "" {
			n++
		}
	}
	return n
}

func (c *Config) set(bay string, module string) {
	for i := range *c {
		if (*c)[i].Bay == bay {
			(*c)[i].Module = module
			return
		}
	}
	*c = append(*c, Binding{Bay: bay, Module: module})
}

// ParseConfig() reads a module configuration. A value starting with '@'
// names a file, read as YAML when its extension says so and as JSON
// otherwise. Anything else is inline JSON. File read errors are returned
// as is; malformed content wraps ErrInvalidConfig.
func ParseConfig(raw string) (Config, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultConfig
	}
	if !strings.HasPrefix(raw, "@") {
		return parseJSON([]byte(raw))
	}

	path := strings.TrimPrefix(raw, "@")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module configuration: %w", err)
	}
	if format.DataFormatFromFileExt(path, format.FORMAT_JSON) == format.FORMAT_YAML {
		return parseYAML(b)
	}
	return parseJSON(b)
}

// parseJSON() walks the object token by token so key order is kept.
func parseJSON(b []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidConfig)
	}

	config := Config{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		bay, _ := tok.(string)
		var module any
		if err := dec.Decode(&module); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		value, err := moduleValue(bay, module)
		if err != nil {
			return nil, err
		}
		config.set(bay, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidConfig)
	}
	return config, nil
}

func parseYAML(b []byte) (Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if len(doc.Content) == 0 {
		return Config{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping", ErrInvalidConfig)
	}

	config := Config{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: module for bay '%s' must be a string", ErrInvalidConfig, key.Value)
		}
		module := val.Value
		if val.Tag == "!!null" {
			module = ""
		}
		config.set(key.Value, strings.TrimSpace(module))
	}
	return config, nil
}

func moduleValue(bay string, v any) (string, error) {
	switch m := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(m), nil
	}
	return "", fmt.Errorf("%w: module for bay '%s' must be a string", ErrInvalidConfig, bay)
}

// ParsePair() splits a "BAY=MODULE" argument.
func ParsePair(arg string) (Binding, error) {
	bay, module, ok := strings.Cut(arg, "=")
	bay, module = strings.TrimSpace(bay), strings.TrimSpace(module)
	if !ok || bay == "" || module == "" {
		return Binding{}, fmt.Errorf("invalid bay pair '%s' (expected BAY=MODULE)", arg)
	}
	return Binding{Bay: bay, Module: module}, nil
}
