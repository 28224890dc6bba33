package format

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataFormat selects how reports and listings are written. It implements
// pflag.Value so it can be used directly as a flag.
type DataFormat string

const (
	FORMAT_TEXT DataFormat = "text"
	FORMAT_JSON DataFormat = "json"
	FORMAT_YAML DataFormat = "yaml"
)

var Formats = []DataFormat{FORMAT_TEXT, FORMAT_JSON, FORMAT_YAML}

func (df DataFormat) String() string {
	return string(df)
}

func (df *DataFormat) Set(v string) error {
	switch DataFormat(strings.ToLower(v)) {
	case FORMAT_TEXT, FORMAT_JSON, FORMAT_YAML:
		*df = DataFormat(strings.ToLower(v))
		return nil
	default:
		return fmt.Errorf("must be one of %v", Formats)
	}
}

func (df DataFormat) Type() string {
	return "DataFormat"
}

// Marshal() encodes data as outFormat. Text output is produced by each
// report's own writer, so FORMAT_TEXT is rejected here.
func Marshal(data any, outFormat DataFormat) ([]byte, error) {
	switch outFormat {
	case FORMAT_JSON:
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data into JSON: %w", err)
		}
		return b, nil
	case FORMAT_YAML:
		b, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data into YAML: %w", err)
		}
		return b, nil
	case FORMAT_TEXT:
		return nil, fmt.Errorf("text format cannot be marshaled generically")
	default:
		return nil, fmt.Errorf("unknown data format: %s", outFormat)
	}
}

// Unmarshal() decodes data formatted as inFormat into v.
func Unmarshal(data []byte, v any, inFormat DataFormat) error {
	switch inFormat {
	case FORMAT_JSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal data from JSON: %w", err)
		}
	case FORMAT_YAML:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal data from YAML: %w", err)
		}
	default:
		return fmt.Errorf("cannot unmarshal data format: %s", inFormat)
	}
	return nil
}

// DataFormatFromFileExt() picks JSON or YAML from a file extension,
// falling back to defaultFmt.
func DataFormatFromFileExt(path string, defaultFmt DataFormat) DataFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FORMAT_JSON
	case ".yaml", ".yml":
		return FORMAT_YAML
	}
	return defaultFmt
}
