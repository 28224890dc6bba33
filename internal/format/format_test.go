package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestDataFormatSet(t *testing.T) {
	var df DataFormat
	if err := df.Set("YAML"); err != nil {
		t.Fatalf("failed to set format: %v", err)
	}
	if df != FORMAT_YAML {
		t.Errorf("expected yaml, got %s", df)
	}
	if err := df.Set("xml"); err == nil {
		t.Errorf("expected an error for an unknown format")
	}
}

func TestDataFormatFromFileExt(t *testing.T) {
	tests := map[string]DataFormat{
		"modules.json": FORMAT_JSON,
		"modules.YML":  FORMAT_YAML,
		"modules.yaml": FORMAT_YAML,
		"modules":      FORMAT_TEXT,
	}
	for path, want := range tests {
		if got := DataFormatFromFileExt(path, FORMAT_TEXT); got != want {
			t.Errorf("%s: expected %s, got %s", path, want, got)
		}
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := map[string]int{"created": 2}
	for _, f := range []DataFormat{FORMAT_JSON, FORMAT_YAML} {
		b, err := Marshal(in, f)
		if err != nil {
			t.Fatalf("%s: failed to marshal: %v", f, err)
		}
		out := map[string]int{}
		if err := Unmarshal(b, &out, f); err != nil {
			t.Fatalf("%s: failed to unmarshal: %v", f, err)
		}
		if out["created"] != 2 {
			t.Errorf("%s: expected 2, got %d", f, out["created"])
		}
	}
	if _, err := Marshal(in, FORMAT_TEXT); err == nil {
		t.Errorf("expected text marshaling to fail")
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, "Device", "Bay").WithPrefix("  ")
	if err := table.Flush(); err != nil || buf.Len() != 0 {
		t.Fatalf("expected an empty table to print nothing")
	}
	table.Row("sw-leaf-01", "PWR1")
	if err := table.Flush(); err != nil {
		t.Fatalf("failed to flush table: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "  Device      Bay" || lines[1] != "  ------      ---" {
		t.Errorf("unexpected header: %q", lines[:2])
	}
}
