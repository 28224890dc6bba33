package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/OpenCHAMI/patchbay/pkg/daemon"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// The `daemon` command launches a long-running server that exposes all other commands as HTTP endpoints.
var daemonCmd = &cobra.Command{
	Use: "daemon",
	Example: `  // basic launch
  patchbay daemon

  // require tokens signed by an identity provider
  patchbay daemon -e :8080 --jwks-url https://idp.example.com/.well-known/jwks.json

  // run a link through the daemon
  curl -X POST --data-binary $'pp-r1-01\npp-r2-01\n--commit\n' http://localhost:8080/patchbay/link`,
	Short: "Launch a long-running web server, e.g. for container use",
	Long: "Exposes all other commands as HTTP endpoints, so that patchbay can be controlled remotely by authorized users. " +
		"GET on a command path shows its help; POST runs it with one argument per line of the request body. " +
		"When a JWKS URL or JWT secret is configured, requests need a valid bearer token. " +
		"Changes to the config file are picked up while running.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server, err := daemon.NewServer(ctx, rootCmd, daemon.ConfigFromViper())
		if err != nil {
			return err
		}
		return server.Run(ctx, func() {
			if err := initLogging(); err != nil {
				log.Error().Err(err).Msg("failed to reinitialize logging")
			}
		})
	},
}

func init() {
	addFlag("daemon.endpoint", daemonCmd, "endpoint", "e", "localhost:8080", "Root endpoint for the daemon to listen on")
	addFlag("daemon.jwks-url", daemonCmd, "jwks-url", "", "", "Verify bearer tokens against the keys at this JWKS URL")
	addFlag("daemon.jwt-secret", daemonCmd, "jwt-secret", "", "", "Verify HS256 bearer tokens with this shared secret")
	addFlag("daemon.timeout", daemonCmd, "run-timeout", "", "10m", "Set the time limit of one command run")

	rootCmd.AddCommand(daemonCmd)
}
