package cmd

import (
	"context"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/OpenCHAMI/patchbay/pkg/components"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	syncParams patchbay.SyncParams
	syncReport reportFlags
)

var syncCmd = &cobra.Command{
	Use: "sync [DEVICE...]",
	Example: `  // check the interfaces of every device of one type
  patchbay sync --device-type dcs-7050sx3

  // add missing ports to two patch panels without touching anything else
  patchbay sync pp-r1-01 pp-r1-02 --interfaces=false --rear-ports --front-ports --mode replicate --commit

  // full detail, eight devices at a time
  patchbay sync --device-type dcs-7050sx3 --report-level DEBUG -j 8`,
	Short: "Synchronize device components with their device type templates",
	Long: "Compares the interfaces, rear ports and front ports of devices with the templates of their device type. " +
		"In adopt mode mismatched components are updated, missing ones created and orphans deleted. " +
		"In replicate mode only missing components are created. " +
		"Devices are given by ID or name; without any, all devices of --device-type (or all devices) are processed. " +
		"Nothing is written without --commit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		params := syncParams
		params.Devices = args
		params.Concurrency = viper.GetInt("concurrency")
		return runWorkflow(cmd, "sync", syncReport, params.Commit, func(ctx context.Context, nb *netbox.Client) (patchbay.Report, error) {
			report, err := patchbay.SyncComponents(ctx, nb, params)
			if err != nil {
				return nil, err
			}
			return report, nil
		})
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncParams.DeviceType, "device-type", "", "Process the devices of this device type (ID, model or slug)")
	syncCmd.Flags().BoolVar(&syncParams.Interfaces, "interfaces", true, "Synchronize interfaces")
	syncCmd.Flags().BoolVar(&syncParams.RearPorts, "rear-ports", false, "Synchronize rear ports")
	syncCmd.Flags().BoolVar(&syncParams.FrontPorts, "front-ports", false, "Synchronize front ports")
	syncCmd.Flags().StringVar(&syncParams.Mode, "mode", string(components.ModeAdopt), "Set the mode (replicate|adopt)")
	syncCmd.Flags().BoolVar(&syncParams.Commit, "commit", false, "Apply the changes instead of only planning them")
	addFlag("concurrency", syncCmd, "concurrency", "j", 1, "Set the number of devices processed at once")
	addReportFlags(syncCmd, &syncReport)

	rootCmd.AddCommand(syncCmd)
}
