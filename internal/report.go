package patchbay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/OpenCHAMI/patchbay/internal/cache"
	"github.com/OpenCHAMI/patchbay/internal/cache/sqlite"
	"github.com/OpenCHAMI/patchbay/internal/format"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
)

// Report is implemented by the reports of every workflow command.
type Report interface {
	Success() bool
	Summary() string
	WriteText(w io.Writer, level logrus.Level) error
}

// WriteReport() renders report as text at level, or encodes it whole as
// JSON or YAML.
func WriteReport(w io.Writer, report Report, outFormat format.DataFormat, level logrus.Level) error {
	if outFormat == "" || outFormat == format.FORMAT_TEXT {
		return report.WriteText(w, level)
	}
	b, err := format.Marshal(report, outFormat)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// RunInfo describes the invocation a report came from.
type RunInfo struct {
	Command   string
	NetBox    string
	Commit    bool
	StartedAt time.Time
}

// RecordRun() stores the finished run in the history database. The full
// text report, debug entries included, is kept so it can be shown later.
func RecordRun(ctx context.Context, cachePath string, info RunInfo, report Report) (cache.Run, error) {
	run := cache.NewRun(info.Command, info.NetBox, info.Commit)
	if !info.StartedAt.IsZero() {
		run.StartedAt = info.StartedAt.UTC()
	}
	run.FinishedAt = time.Now().UTC()
	run.OK = report.Success()
	run.Summary = report.Summary()

	var buf bytes.Buffer
	if err := report.WriteText(&buf, logrus.DebugLevel); err != nil {
		return run, fmt.Errorf("failed to render report: %w", err)
	}
	run.Report = buf.String()

	runs, err := sqlite.Open(cachePath)
	if err != nil {
		return run, err
	}
	defer runs.Close()
	if err := runs.Insert(ctx, run); err != nil {
		return run, err
	}
	log.Debug().Str("id", run.ID.String()).Str("command", run.Command).Msg("recorded run")
	return run, nil
}
