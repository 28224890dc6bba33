package link

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/sirupsen/logrus"
)

// Cable is the outcome for one rear port pair.
type Cable struct {
	ID    int    `json:"id,omitempty" yaml:"id,omitempty"`
	Label string `json:"label" yaml:"label"`
	PortA string `json:"port_a" yaml:"port_a"`
	PortB string `json:"port_b" yaml:"port_b"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

type Report struct {
	DeviceA string          `json:"device_a" yaml:"device_a"`
	DeviceB string          `json:"device_b" yaml:"device_b"`
	Commit  bool            `json:"commit" yaml:"commit"`
	Ports   int             `json:"ports" yaml:"ports"`
	Planned int             `json:"planned" yaml:"planned"`
	Created int             `json:"created" yaml:"created"`
	Failed  int             `json:"failed" yaml:"failed"`
	OK      bool            `json:"ok" yaml:"ok"`
	Result  string          `json:"result" yaml:"result"`
	Cables  []Cable         `json:"cables,omitempty" yaml:"cables,omitempty"`
	Log     []journal.Entry `json:"log" yaml:"log"`

	journal *journal.Journal
}

func (r *Report) abort(msg string) *Report {
	r.journal.Failure("", msg)
	r.OK = false
	r.Result = msg
	return r
}

func (r *Report) seal() {
	r.Log = r.journal.Entries()
}

// Success() reports whether the run finished without errors.
func (r *Report) Success() bool {
	return r.OK
}

// Summary() is a one-line description of the run.
func (r *Report) Summary() string {
	return r.Result
}

// WriteText() renders the journal at or above level, followed by the
// summary block.
func (r *Report) WriteText(w io.Writer, level logrus.Level) error {
	journal.WriteLines(w, journal.FilterEntries(r.Log, level))

	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "SUMMARY:")
	if r.Commit {
		fmt.Fprintf(w, "  Total cables created: %d\n", r.Created)
		if r.Failed > 0 {
			fmt.Fprintf(w, "  Total cables failed:  %d\n", r.Failed)
		}
	} else {
		fmt.Fprintln(w, "  DRY RUN - no cables were created")
		fmt.Fprintf(w, "  Total cables planned: %d\n", r.Planned)
	}
	fmt.Fprintln(w, rule)
	_, err := fmt.Fprintln(w, r.Result)
	return err
}
