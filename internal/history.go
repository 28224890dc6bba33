package patchbay

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/OpenCHAMI/patchbay/internal/cache"
	"github.com/OpenCHAMI/patchbay/internal/cache/sqlite"
	"github.com/OpenCHAMI/patchbay/internal/format"
)

// ListRuns() returns up to limit recorded runs, newest first.
func ListRuns(ctx context.Context, cachePath string, limit int) ([]cache.Run, error) {
	runs, err := sqlite.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer runs.Close()
	return runs.List(ctx, limit)
}

// GetRun() finds a run by ID or unique ID prefix.
func GetRun(ctx context.Context, cachePath string, id string) (cache.Run, error) {
	runs, err := sqlite.Open(cachePath)
	if err != nil {
		return cache.Run{}, err
	}
	defer runs.Close()
	return runs.Get(ctx, id)
}

func RemoveRuns(ctx context.Context, cachePath string, ids ...string) error {
	runs, err := sqlite.Open(cachePath)
	if err != nil {
		return err
	}
	defer runs.Close()
	return runs.Delete(ctx, ids...)
}

// WriteRuns() lists runs as a table, or encodes them as JSON or YAML
// without their reports.
func WriteRuns(w io.Writer, runs []cache.Run, outFormat format.DataFormat) error {
	if outFormat != "" && outFormat != format.FORMAT_TEXT {
		brief := make([]cache.Run, len(runs))
		for i, run := range runs {
			run.Report = ""
			brief[i] = run
		}
		b, err := format.Marshal(brief, outFormat)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	table := format.NewTable(w, "ID", "STARTED", "COMMAND", "COMMIT", "STATUS", "SUMMARY")
	for _, run := range runs {
		status := "ok"
		if !run.OK {
			status = "failed"
		}
		table.Row(
			run.ShortID(),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Command,
			fmt.Sprint(run.Commit),
			status,
			strings.ReplaceAll(run.Summary, "\n", " "),
		)
	}
	return table.Flush()
}

// WriteRun() shows one run: its stored text report, or the whole record
// as JSON or YAML.
func WriteRun(w io.Writer, run cache.Run, outFormat format.DataFormat) error {
	if outFormat != "" && outFormat != format.FORMAT_TEXT {
		b, err := format.Marshal(run, outFormat)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	}
	fmt.Fprintf(w, "Run %s: %s against %s\n", run.ID, run.Command, run.NetBox)
	fmt.Fprintf(w, "Started %s, took %s\n\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Duration())
	_, err := io.WriteString(w, run.Report)
	return err
}
