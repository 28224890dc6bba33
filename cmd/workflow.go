package cmd

import (
	"context"
	"fmt"
	"time"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/OpenCHAMI/patchbay/internal/format"
	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportFlags are shared by every workflow command.
type reportFlags struct {
	format    format.DataFormat
	level     string
	noHistory bool
}

func addReportFlags(cmd *cobra.Command, rf *reportFlags) {
	rf.format = format.FORMAT_TEXT
	cmd.Flags().VarP(&rf.format, "format", "F", fmt.Sprintf("Set the report format %v", format.Formats))
	cmd.Flags().StringVar(&rf.level, "report-level", "INFO", "Set the lowest journal level shown in text reports (DEBUG|INFO|WARNING|ERROR)")
	cmd.Flags().BoolVar(&rf.noHistory, "no-history", false, "Do not record the run in the history database")
}

// runWorkflow() connects to NetBox, runs the workflow and renders its
// report. The run is recorded in history unless disabled. A report that
// did not succeed makes the command fail after it was rendered.
func runWorkflow(cmd *cobra.Command, name string, rf reportFlags, commit bool, run func(ctx context.Context, nb *netbox.Client) (patchbay.Report, error)) error {
	level, err := journal.ParseLevel(rf.level)
	if err != nil {
		return err
	}
	nb, err := patchbay.NewNetBoxClient(clientParams())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	report, err := run(ctx, nb)
	if err != nil {
		return err
	}

	if err := patchbay.WriteReport(cmd.OutOrStdout(), report, rf.format, level); err != nil {
		return err
	}

	if !rf.noHistory {
		info := patchbay.RunInfo{Command: name, NetBox: nb.API().URI, Commit: commit, StartedAt: started}
		if rec, err := patchbay.RecordRun(ctx, viper.GetString("cache"), info, report); err != nil {
			log.Warn().Err(err).Msg("failed to record run in history")
		} else {
			log.Info().Str("id", rec.ShortID()).Msg("run recorded")
		}
	}

	if !report.Success() {
		return fmt.Errorf("%s: %s", name, report.Summary())
	}
	return nil
}
