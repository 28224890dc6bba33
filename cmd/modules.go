package cmd

import (
	"context"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/OpenCHAMI/patchbay/pkg/modules"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/spf13/cobra"
)

var (
	modulesParams patchbay.ModulesParams
	modulesReport reportFlags
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Install modules into the module bays of devices",
}

var modulesInstallCmd = &cobra.Command{
	Use: "install DEVICE...",
	Example: `  // install the default power supplies into PWR1 and PWR2
  patchbay modules install sw-r1-01 sw-r1-02 --device-type dcs-7050sx3 \
    --mapping '{"PWR1": "PWR-500AC-F", "PWR2": "PWR-500AC-F"}'

  // read the mapping from a file, planning only
  patchbay modules install sw-r1-01 --device-type dcs-7050sx3 --mapping @psu.yaml --commit=false`,
	Short: "Install modules from a bay to module type mapping",
	Long: "Installs modules into every device given, following a JSON object that maps module bay names to module type models. " +
		"'@file' reads the mapping from a JSON or YAML file. Bays that are not configured or already occupied are skipped. " +
		"Changes are committed unless --commit=false is given.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := modulesParams
		params.Devices = args
		return runWorkflow(cmd, "modules install", modulesReport, params.Commit, func(ctx context.Context, nb *netbox.Client) (patchbay.Report, error) {
			report, err := patchbay.InstallModules(ctx, nb, params)
			if err != nil {
				return nil, err
			}
			return report, nil
		})
	},
}

var modulesInstallPairsCmd = &cobra.Command{
	Use: "install-pairs DEVICE...",
	Example: `  // install two line cards, the second by module type ID
  patchbay modules install-pairs chassis-01 --device-type mx480 --bay "FPC 0=MPC7E-MRATE" --bay "FPC 1=42"`,
	Short: "Install modules from explicit bay/module pairs",
	Long: "Installs one module per --bay BAY=MODULE pair into every device given. The module is a module type model or ID. " +
		"Only the named bays are touched. Changes are committed unless --commit=false is given.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := modulesParams
		params.Devices = args
		return runWorkflow(cmd, "modules install-pairs", modulesReport, params.Commit, func(ctx context.Context, nb *netbox.Client) (patchbay.Report, error) {
			report, err := patchbay.InstallModulePairs(ctx, nb, params)
			if err != nil {
				return nil, err
			}
			return report, nil
		})
	},
}

func init() {
	modulesCmd.PersistentFlags().StringVar(&modulesParams.DeviceType, "device-type", "", "Set the device type of the devices (ID, model or slug)")
	modulesCmd.PersistentFlags().BoolVar(&modulesParams.Replicate, "replicate-components", true, "Create the components of each installed module")
	modulesCmd.PersistentFlags().BoolVar(&modulesParams.Adopt, "adopt-components", false, "Adopt existing components matching the module's components")
	modulesCmd.PersistentFlags().StringVar(&modulesParams.Description, "description", "", "Set the description of installed modules")
	modulesCmd.PersistentFlags().BoolVar(&modulesParams.Commit, "commit", true, "Create the modules; --commit=false only plans them")
	checkBindFlagError(modulesCmd.MarkPersistentFlagRequired("device-type"))

	modulesInstallCmd.Flags().StringVar(&modulesParams.Config, "mapping", modules.DefaultConfig, "Set the bay to module type mapping as JSON, or '@file' for a JSON/YAML file")
	modulesInstallPairsCmd.Flags().StringArrayVar(&modulesParams.Pairs, "bay", nil, "Install MODULE into BAY, given as BAY=MODULE (repeatable)")

	addReportFlags(modulesInstallCmd, &modulesReport)
	addReportFlags(modulesInstallPairsCmd, &modulesReport)

	modulesCmd.AddCommand(modulesInstallCmd, modulesInstallPairsCmd)
	rootCmd.AddCommand(modulesCmd)
}
