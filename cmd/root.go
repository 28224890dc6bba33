// The cmd package implements the interface for the patchbay CLI. The files
// contained in this package only handle CLI arguments and pass them to
// functions within patchbay's internal API.
//
// Each workflow subcommand has a corresponding internal file with the API
// routine that implements it:
//
//	cmd/link.go    --> internal/link.go ( patchbay.Link() )
//	cmd/modules.go --> internal/modules.go ( patchbay.InstallModules() )
//	cmd/sync.go    --> internal/sync.go ( patchbay.SyncComponents() )
//	cmd/login.go   --> internal/login.go ( patchbay.Login() )
//	cmd/history.go --> internal/history.go ( patchbay.ListRuns() )
//
// Commands return their errors instead of exiting so the same tree can be
// served by the daemon.
package cmd

import (
	"fmt"
	"os"
	"strings"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	logger "github.com/OpenCHAMI/patchbay/internal/log"
	"github.com/OpenCHAMI/patchbay/internal/util"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configPath string
	logLevel   = logger.INFO
)

// The `root` command doesn't do anything on its own except display a help
// message.
var rootCmd = &cobra.Command{
	Use:           "patchbay",
	Short:         "NetBox cabling, module and component automation",
	Long:          "Links patch panels rear to rear, installs modules into module bays and keeps device components in line with their device type templates, all through the NetBox REST API.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	patchbay.SetDefaults()
	cobra.OnInitialize(InitializeConfig)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Set the config file path (default $XDG_CONFIG_HOME/patchbay/config.yaml)")
	rootCmd.PersistentFlags().VarP(&logLevel, "log-level", "l", fmt.Sprintf("Set the diagnostic log level %v", logger.Levels))
	checkBindFlagError(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))

	addPersistentFlag("netbox.url", "url", "u", "", "Set the NetBox URL (env NETBOX_URL)")
	addPersistentFlag("netbox.token", "token", "", "", "Set the NetBox API token (env NETBOX_TOKEN)")
	addPersistentFlag("netbox.token-path", "token-path", "", viper.GetString("netbox.token-path"), "Set the path to load/save the NetBox token")
	addPersistentFlag("netbox.cacert", "cacert", "", "", "Set the path to a CA cert for NetBox (defaults to system CAs)")
	addPersistentFlag("netbox.insecure", "insecure", "k", false, "Skip TLS verification")
	addPersistentFlag("netbox.page-size", "page-size", "", viper.GetInt("netbox.page-size"), "Set the number of objects fetched per request")
	addPersistentFlag("timeout", "timeout", "t", viper.GetInt("timeout"), "Set the timeout for requests in seconds")
	addPersistentFlag("log-file", "log-file", "", "", "Append diagnostic logs to a file as JSON")
	addPersistentFlag("cache", "cache", "", viper.GetString("cache"), "Set the run history database path")
	addPersistentFlag("secrets.file", "secrets-file", "", viper.GetString("secrets.file"), "Set the encrypted token store path (needs MASTER_KEY)")
	checkBindFlagError(viper.BindEnv("netbox.url", "NETBOX_URL"))
	checkBindFlagError(viper.BindEnv("netbox.token", "NETBOX_TOKEN"))
}

func checkBindFlagError(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

// addFlag() defines a flag on cmd and binds it to the viper key, so the
// value can also come from the config file or the environment. The flag
// type follows value's type.
func addFlag(key string, cmd *cobra.Command, name string, shorthand string, value any, usage string) {
	defineFlag(cmd.Flags(), name, shorthand, value, usage)
	checkBindFlagError(viper.BindPFlag(key, cmd.Flags().Lookup(name)))
}

func addPersistentFlag(key string, name string, shorthand string, value any, usage string) {
	defineFlag(rootCmd.PersistentFlags(), name, shorthand, value, usage)
	checkBindFlagError(viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)))
}

func defineFlag(flags *pflag.FlagSet, name string, shorthand string, value any, usage string) {
	switch v := value.(type) {
	case string:
		flags.StringP(name, shorthand, v, usage)
	case bool:
		flags.BoolP(name, shorthand, v, usage)
	case int:
		flags.IntP(name, shorthand, v, usage)
	case []string:
		flags.StringSliceP(name, shorthand, v, usage)
	default:
		panic(fmt.Sprintf("unsupported flag type %T for --%s", value, name))
	}
}

// InitializeConfig() loads the config file once; the daemon picks up
// later changes by watching the file.
func InitializeConfig() {
	if viper.ConfigFileUsed() != "" {
		return
	}
	if err := patchbay.LoadConfig(configPath); err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}
}

func initLogging() error {
	level := logger.LogLevel(strings.ToLower(viper.GetString("log-level")))
	return logger.InitWithLogLevel(level, util.ExpandHome(viper.GetString("log-file")))
}

// clientParams() collects the NetBox connection settings from flags,
// environment and config.
func clientParams() patchbay.ClientParams {
	return patchbay.ClientParams{
		URL:         viper.GetString("netbox.url"),
		Token:       viper.GetString("netbox.token"),
		TokenPath:   viper.GetString("netbox.token-path"),
		SecretsFile: viper.GetString("secrets.file"),
		CACertPath:  viper.GetString("netbox.cacert"),
		Insecure:    viper.GetBool("netbox.insecure"),
		Timeout:     viper.GetInt("timeout"),
		PageSize:    viper.GetInt("netbox.page-size"),
	}
}
