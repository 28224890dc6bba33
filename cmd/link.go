package cmd

import (
	"context"
	"fmt"
	"strings"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/spf13/cobra"
)

var (
	linkParams patchbay.LinkParams
	linkReport reportFlags
)

var linkCmd = &cobra.Command{
	Use: "link DEVICE_A DEVICE_B",
	Example: `  // plan the cables between two patch panels
  patchbay link pp-r1-01 pp-r2-01

  // create them as 2m single-mode fiber, owned by a tenant
  patchbay link pp-r1-01 pp-r2-01 --cable-type smf --length 2 --length-unit m \
    --tenant-group datacenter --tenant ops --tag backbone --commit`,
	Short: "Cable the rear ports of two devices to each other",
	Long: "Pairs the rear ports of two devices, typically patch panels, in name order and creates one cable per pair. " +
		"Both devices must have the same number of rear ports and none of them may be cabled already. " +
		"Devices are given by ID or name. Nothing is written without --commit.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := linkParams
		params.DeviceA, params.DeviceB = args[0], args[1]
		return runWorkflow(cmd, "link", linkReport, params.Commit, func(ctx context.Context, nb *netbox.Client) (patchbay.Report, error) {
			report, err := patchbay.Link(ctx, nb, params)
			if err != nil {
				return nil, err
			}
			return report, nil
		})
	},
}

func init() {
	linkCmd.Flags().StringVar(&linkParams.CableType, "cable-type", "", fmt.Sprintf("Set the cable type (%s)", strings.Join(netbox.CableTypes, ", ")))
	linkCmd.Flags().Float64Var(&linkParams.Length, "length", 0, "Set the cable length")
	linkCmd.Flags().StringVar(&linkParams.LengthUnit, "length-unit", "", fmt.Sprintf("Set the cable length unit (%s)", strings.Join(netbox.CableLengthUnits, ", ")))
	linkCmd.Flags().StringVar(&linkParams.TenantGroup, "tenant-group", "", "Restrict the tenant lookup to a tenant group (ID, slug or name)")
	linkCmd.Flags().StringVar(&linkParams.Tenant, "tenant", "", "Set the cable tenant (ID, slug or name)")
	linkCmd.Flags().StringArrayVar(&linkParams.Tags, "tag", nil, "Add a tag to every cable (ID, slug or name; repeatable)")
	linkCmd.Flags().BoolVar(&linkParams.Commit, "commit", false, "Create the cables instead of only planning them")
	linkCmd.Flags().BoolVar(&linkParams.Open, "open", false, "Open device A's rear ports in the browser after a committed run")
	addReportFlags(linkCmd, &linkReport)

	rootCmd.AddCommand(linkCmd)
}
