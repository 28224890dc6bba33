package components

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/sirupsen/logrus"
)

type ClassStats struct {
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Deleted int `json:"deleted" yaml:"deleted"`
}

func (c *ClassStats) add(o ClassStats) {
	c.Created += o.Created
	c.Updated += o.Updated
	c.Deleted += o.Deleted
}

func (c ClassStats) total() int {
	return c.Created + c.Updated + c.Deleted
}

type Stats struct {
	DevicesProcessed int        `json:"devices_processed" yaml:"devices_processed"`
	Interfaces       ClassStats `json:"interfaces" yaml:"interfaces"`
	RearPorts        ClassStats `json:"rear_ports" yaml:"rear_ports"`
	FrontPorts       ClassStats `json:"front_ports" yaml:"front_ports"`
	Errors           int        `json:"errors" yaml:"errors"`
}

func (s *Stats) add(o Stats) {
	s.DevicesProcessed += o.DevicesProcessed
	s.Interfaces.add(o.Interfaces)
	s.RearPorts.add(o.RearPorts)
	s.FrontPorts.add(o.FrontPorts)
	s.Errors += o.Errors
}

// Changes() is the number of components created, updated or deleted
// (or that would be, in a dry run).
func (s Stats) Changes() int {
	return s.Interfaces.total() + s.RearPorts.total() + s.FrontPorts.total()
}

type Report struct {
	Mode   Mode            `json:"mode" yaml:"mode"`
	Commit bool            `json:"commit" yaml:"commit"`
	Stats  Stats           `json:"stats" yaml:"stats"`
	OK     bool            `json:"ok" yaml:"ok"`
	Result string          `json:"result" yaml:"result"`
	Log    []journal.Entry `json:"log" yaml:"log"`

	finished bool
	journal  *journal.Journal
}

func (r *Report) finish() {
	r.finished = true
	r.OK = r.Stats.Errors == 0
	verb := "Synchronized"
	if !r.Commit {
		verb = "Dry run: checked"
	}
	r.Result = fmt.Sprintf("%s %d device(s): %d component change(s), %d error(s)",
		verb, r.Stats.DevicesProcessed, r.Stats.Changes(), r.Stats.Errors)
}

func (r *Report) seal() {
	r.Log = r.journal.Entries()
}

func (r *Report) Success() bool {
	return r.OK
}

func (r *Report) Summary() string {
	return r.Result
}

// WriteText() renders the synchronization report with the journal
// entries at or above level.
func (r *Report) WriteText(w io.Writer, level logrus.Level) error {
	if !r.finished {
		journal.WriteLines(w, journal.FilterEntries(r.Log, level))
		_, err := fmt.Fprintln(w, r.Result)
		return err
	}

	rule := strings.Repeat("=", 80)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "DEVICE COMPONENT SYNCHRONIZATION REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	if r.Commit {
		fmt.Fprintln(w, "✓ CHANGES APPLIED TO DATABASE")
	} else {
		fmt.Fprintln(w, "⚠️  DRY RUN MODE - No changes were committed to database")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STATISTICS:")
	fmt.Fprintf(w, "  %-25s%d\n", "Devices Processed:", r.Stats.DevicesProcessed)
	fmt.Fprintln(w)
	for _, c := range []struct {
		name  string
		stats ClassStats
	}{
		{"Interfaces", r.Stats.Interfaces},
		{"Rear Ports", r.Stats.RearPorts},
		{"Front Ports", r.Stats.FrontPorts},
	} {
		fmt.Fprintf(w, "  %s:\n", c.name)
		fmt.Fprintf(w, "    %-23s%d\n", "Created:", c.stats.Created)
		fmt.Fprintf(w, "    %-23s%d\n", "Updated:", c.stats.Updated)
		fmt.Fprintf(w, "    %-23s%d\n", "Deleted:", c.stats.Deleted)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  %-25s%d\n", "Errors:", r.Stats.Errors)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "DETAILED LOG (Level: %s and above):\n", journal.LevelName(level))
	fmt.Fprintln(w)
	journal.WriteDetailed(w, journal.FilterEntries(r.Log, level))

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "END OF REPORT")
	_, err := fmt.Fprintln(w, rule)
	return err
}
