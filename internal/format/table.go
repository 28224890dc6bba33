package format

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table writes column-aligned rows. The header and a dash divider are
// written with the first row, so a table with no rows prints nothing.
type Table struct {
	w       *tabwriter.Writer
	headers []string
	prefix  string
	written bool
}

func NewTable(out io.Writer, headers ...string) *Table {
	return &Table{
		w:       tabwriter.NewWriter(out, 0, 0, 2, ' ', 0),
		headers: headers,
	}
}

// WithPrefix() indents every line of the table.
func (t *Table) WithPrefix(prefix string) *Table {
	t.prefix = prefix
	return t
}

func (t *Table) Row(values ...string) {
	t.ensureHeaders()
	fmt.Fprintln(t.w, t.prefix+strings.Join(values, "\t"))
}

func (t *Table) Flush() error {
	if !t.written {
		return nil
	}
	return t.w.Flush()
}

func (t *Table) ensureHeaders() {
	if t.written {
		return
	}
	t.written = true
	fmt.Fprintln(t.w, t.prefix+strings.Join(t.headers, "\t"))
	dividers := make([]string, len(t.headers))
	for i, h := range t.headers {
		dividers[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(t.w, t.prefix+strings.Join(dividers, "\t"))
}
