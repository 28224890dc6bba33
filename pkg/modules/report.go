package modules

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenCHAMI/patchbay/internal/format"
	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/sirupsen/logrus"
)

type Variant string

const (
	VariantMapping Variant = "mapping"
	VariantPairs   Variant = "pairs"
)

type Status string

const (
	StatusCreated  Status = "Created"
	StatusPlanned  Status = "Planned"
	StatusWarning  Status = "Warning"
	StatusOccupied Status = "Already Occupied"
	StatusSkipped  Status = "Skipped"
	StatusError    Status = "Error"
)

// Statuses is the order of the detailed breakdown.
var Statuses = []Status{StatusCreated, StatusPlanned, StatusWarning, StatusOccupied, StatusSkipped, StatusError}

var statusIcons = map[Status]string{
	StatusCreated:  "✓",
	StatusPlanned:  "◇",
	StatusWarning:  "⚠",
	StatusOccupied: "●",
	StatusSkipped:  "○",
	StatusError:    "✗",
}

// Result is what happened to one module bay.
type Result struct {
	Device   string `json:"device" yaml:"device"`
	Bay      string `json:"bay" yaml:"bay"`
	Position string `json:"position" yaml:"position"`
	Status   Status `json:"status" yaml:"status"`
	Module   string `json:"module" yaml:"module"`
	Warning  string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

type Report struct {
	Variant    Variant         `json:"variant" yaml:"variant"`
	DeviceType string          `json:"device_type" yaml:"device_type"`
	Devices    int             `json:"devices" yaml:"devices"`
	Commit     bool            `json:"commit" yaml:"commit"`
	Replicate  bool            `json:"replicate_components" yaml:"replicate_components"`
	Adopt      bool            `json:"adopt_components" yaml:"adopt_components"`
	Config     Config          `json:"config,omitempty" yaml:"config,omitempty"`
	Created    int             `json:"created" yaml:"created"`
	Planned    int             `json:"planned" yaml:"planned"`
	Skipped    int             `json:"skipped" yaml:"skipped"`
	Warnings   int             `json:"warnings" yaml:"warnings"`
	Errors     int             `json:"errors" yaml:"errors"`
	OK         bool            `json:"ok" yaml:"ok"`
	Result     string          `json:"result" yaml:"result"`
	Results    []Result        `json:"results" yaml:"results"`
	Log        []journal.Entry `json:"log" yaml:"log"`

	// finished is set once devices were processed; an early exit
	// renders only the journal and Result.
	finished bool
	journal  *journal.Journal
}

func newReport(variant Variant, dt netbox.DeviceType, devices []netbox.Device, opts Options, j *journal.Journal) *Report {
	return &Report{
		Variant:    variant,
		DeviceType: dt.FullName(),
		Devices:    len(devices),
		Commit:     opts.Commit,
		Replicate:  opts.Replicate,
		Adopt:      opts.Adopt,
		OK:         true,
		Results:    []Result{},
		journal:    j,
	}
}

func (r *Report) add(result Result) {
	switch result.Status {
	case StatusCreated:
		r.Created++
	case StatusPlanned:
		r.Planned++
	case StatusWarning:
		r.Warnings++
		r.Skipped++
	case StatusOccupied, StatusSkipped:
		r.Skipped++
	case StatusError:
		r.Errors++
	}
	r.Results = append(r.Results, result)
}

func (r *Report) fail(result string) *Report {
	r.OK = false
	r.Result = result
	return r
}

func (r *Report) finish() {
	r.finished = true
	r.OK = r.Errors == 0
	r.Result = r.finalLine()
}

func (r *Report) seal() {
	r.Log = r.journal.Entries()
}

func (r *Report) Success() bool {
	return r.OK
}

// Summary() is a one-line description of the run.
func (r *Report) Summary() string {
	return r.Result
}

func (r *Report) finalLine() string {
	parts := []string{fmt.Sprintf("%d created", r.Created)}
	if r.Planned > 0 {
		parts = append(parts, fmt.Sprintf("%d planned", r.Planned))
	}
	parts = append(parts, fmt.Sprintf("%d skipped", r.Skipped))
	if r.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", r.Warnings))
	}
	if r.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", r.Errors))
	}
	return "FINAL: " + strings.Join(parts, " | ")
}

func (r *Report) byStatus(status Status) []Result {
	results := []Result{}
	for _, res := range r.Results {
		if res.Status == status {
			results = append(results, res)
		}
	}
	return results
}

// WriteText() renders the journal at or above level and then the
// variant's summary.
func (r *Report) WriteText(w io.Writer, level logrus.Level) error {
	journal.WriteLines(w, journal.FilterEntries(r.Log, level))
	fmt.Fprintln(w)

	if !r.finished {
		_, err := fmt.Fprintln(w, r.Result)
		return err
	}
	if r.Variant == VariantPairs {
		return r.writePairs(w)
	}
	return r.writeMapping(w)
}

func (r *Report) writeMapping(w io.Writer) error {
	rule := strings.Repeat("=", 70)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INSTALLATION SUMMARY")
	fmt.Fprintln(w, rule)
	if !r.Commit {
		fmt.Fprintln(w, "DRY RUN - no modules were installed")
	}
	fmt.Fprintf(w, "Device Type: %s\n", r.DeviceType)
	fmt.Fprintf(w, "Devices Processed: %d\n", r.Devices)
	fmt.Fprintln(w, "\nResults:")
	fmt.Fprintf(w, "  ✓ Created: %d\n", r.Created)
	if r.Planned > 0 {
		fmt.Fprintf(w, "  ◇ Planned: %d\n", r.Planned)
	}
	fmt.Fprintf(w, "  ○ Skipped: %d\n", r.Skipped)
	if r.Warnings > 0 {
		fmt.Fprintf(w, "  ⚠ Warnings: %d\n", r.Warnings)
	}
	if r.Errors > 0 {
		fmt.Fprintf(w, "  ✗ Errors: %d\n", r.Errors)
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "DETAILED BREAKDOWN")
	fmt.Fprintln(w, rule)
	for _, status := range Statuses {
		results := r.byStatus(status)
		if len(results) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s %s (%d):\n", statusIcons[status], strings.ToUpper(string(status)), len(results))
		device := ""
		for i, res := range results {
			if i == 0 || res.Device != device {
				device = res.Device
				fmt.Fprintf(w, "  %s:\n", device)
			}
			line := fmt.Sprintf("    • %s (Pos %s): %s", res.Bay, res.Position, res.Module)
			if res.Warning != "" {
				line += " - " + res.Warning
			}
			fmt.Fprintln(w, line)
		}
	}

	if r.Warnings > 0 {
		fmt.Fprintln(w, "\n"+rule)
		fmt.Fprintln(w, "WARNINGS - ACTION REQUIRED")
		fmt.Fprintln(w, rule)
		fmt.Fprintln(w, "The following modules could not be installed due to duplicate components.")
		fmt.Fprintln(w, "To resolve:")
		fmt.Fprintln(w, "  1. Navigate to the device in NetBox")
		fmt.Fprintln(w, "  2. Find and rename/delete conflicting components")
		fmt.Fprintln(w, "  3. Re-run this command for affected devices")
		for _, res := range r.byStatus(StatusWarning) {
			fmt.Fprintf(w, "  • %s - %s: %s\n", res.Device, res.Bay, res.Warning)
		}
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "TABULAR REPORT")
	fmt.Fprintln(w, rule)
	table := format.NewTable(w, "Device", "Bay", "Pos", "Status", "Module")
	for _, res := range r.Results {
		table.Row(res.Device, res.Bay, res.Position, string(res.Status), res.Module)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, r.finalLine())
	_, err := fmt.Fprintln(w, rule)
	return err
}

func (r *Report) writePairs(w io.Writer) error {
	rule := strings.Repeat("=", 60)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "INSTALLATION COMPLETE")
	fmt.Fprintln(w, rule)
	if !r.Commit {
		fmt.Fprintln(w, "DRY RUN - no modules were installed")
		fmt.Fprintf(w, "Planned: %d\n", r.Planned)
	}
	fmt.Fprintf(w, "Created: %d\n", r.Created)
	fmt.Fprintf(w, "Skipped: %d\n", r.Skipped)
	if r.Warnings > 0 {
		fmt.Fprintf(w, "Warnings: %d (duplicate components)\n", r.Warnings)
	}
	if r.Errors > 0 {
		fmt.Fprintf(w, "Errors: %d\n", r.Errors)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Details:")
	for _, res := range r.Results {
		if res.Status == StatusCreated || res.Status == StatusPlanned {
			fmt.Fprintf(w, "%s | %s | %s\n", res.Device, res.Bay, res.Module)
		}
	}
	_, err := fmt.Fprintln(w, rule)
	return err
}
