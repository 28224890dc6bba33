package journal

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var icons = map[string]string{
	"DEBUG":   "🔍",
	"INFO":    "ℹ️",
	"WARNING": "⚠️",
	"ERROR":   "❌",
	"SUCCESS": "✅",
	"FAILURE": "❌",
}

func Icon(label string) string {
	if icon, ok := icons[label]; ok {
		return icon
	}
	return "•"
}

// WriteDetailed() renders entries as blocks: a heading with icon,
// timestamp, level and device, the message, then the details.
func WriteDetailed(w io.Writer, entries []Entry) {
	for _, e := range entries {
		device := e.Device
		if device == "" {
			device = "N/A"
		}
		fmt.Fprintf(w, "%s [%s] [%s] %s\n", Icon(e.Label), e.Time.Format(TimeFormat), e.Label, device)
		fmt.Fprintf(w, "   %s\n", e.Message)
		writeDetails(w, e.Details, "     ")
		fmt.Fprintln(w)
	}
}

// WriteLines() renders one line per entry, "[LEVEL] message", followed
// by any details.
func WriteLines(w io.Writer, entries []Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "[%s] %s\n", e.Label, e.Message)
		writeDetails(w, e.Details, "    ")
	}
}

func writeDetails(w io.Writer, details Details, indent string) {
	keys := maps.Keys(details)
	slices.Sort(keys)
	for _, k := range keys {
		switch v := details[k].(type) {
		case Change:
			fmt.Fprintf(w, "%s%s:\n", indent, k)
			fmt.Fprintf(w, "%s  old: %s\n", indent, Value(v.Old))
			fmt.Fprintf(w, "%s  new: %s\n", indent, Value(v.New))
		case *Change:
			fmt.Fprintf(w, "%s%s:\n", indent, k)
			fmt.Fprintf(w, "%s  old: %s\n", indent, Value(v.Old))
			fmt.Fprintf(w, "%s  new: %s\n", indent, Value(v.New))
		default:
			fmt.Fprintf(w, "%s%s: %s\n", indent, k, Value(v))
		}
	}
}

// Value() formats a detail value; nil and empty strings show as "None".
func Value(v any) string {
	switch s := v.(type) {
	case nil:
		return "None"
	case string:
		if s == "" {
			return "None"
		}
		return s
	case *string:
		if s == nil || *s == "" {
			return "None"
		}
		return *s
	case bool:
		if s {
			return "True"
		}
		return "False"
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
