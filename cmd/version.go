package cmd

import (
	"fmt"

	"github.com/OpenCHAMI/patchbay/internal/format"
	"github.com/OpenCHAMI/patchbay/internal/version"
	"github.com/spf13/cobra"
)

var versionFormat = format.FORMAT_TEXT

var versionCmd = &cobra.Command{
	Use:   "version",
	Args:  cobra.NoArgs,
	Short: "Show build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if versionFormat == format.FORMAT_TEXT {
			info.WriteText(cmd.OutOrStdout())
			return nil
		}
		b, err := format.Marshal(info, versionFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	versionCmd.Flags().VarP(&versionFormat, "format", "F", fmt.Sprintf("Set the output format %v", format.Formats))
	rootCmd.AddCommand(versionCmd)
}
