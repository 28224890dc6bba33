package cmd

import (
	"fmt"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/OpenCHAMI/patchbay/internal/format"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	historyLimit  int
	historyFormat = format.FORMAT_TEXT
)

var historyCmd = &cobra.Command{
	Use: "history",
	Example: `  // show the last runs
  patchbay history list

  // show the report of a run by ID prefix
  patchbay history show 3f2a9c1e`,
	Short: "Show the workflow runs recorded in the history database",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.NoArgs,
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := patchbay.ListRuns(cmd.Context(), viper.GetString("cache"), historyLimit)
		if err != nil {
			return err
		}
		return patchbay.WriteRuns(cmd.OutOrStdout(), runs, historyFormat)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Args:  cobra.ExactArgs(1),
	Short: "Show the report of a run, by ID or unique ID prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := patchbay.GetRun(cmd.Context(), viper.GetString("cache"), args[0])
		if err != nil {
			return err
		}
		return patchbay.WriteRun(cmd.OutOrStdout(), run, historyFormat)
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove ID...",
	Args:  cobra.MinimumNArgs(1),
	Short: "Remove runs by ID or unique ID prefix",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := patchbay.RemoveRuns(cmd.Context(), viper.GetString("cache"), args...); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", len(args))
		return nil
	},
}

func init() {
	historyCmd.PersistentFlags().VarP(&historyFormat, "format", "F", fmt.Sprintf("Set the output format %v", format.Formats))
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Set the number of runs listed (0 for all)")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRemoveCmd)
	rootCmd.AddCommand(historyCmd)
}
