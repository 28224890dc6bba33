package cmd

import (
	"fmt"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
	forceLogin    bool
	noBrowser     bool
)

var loginCmd = &cobra.Command{
	Use: "login",
	Example: `  // provision a token with a username, prompting for the password
  patchbay login --url netbox.example.com -U admin

  // create a token in the web UI and paste it
  patchbay login --url netbox.example.com`,
	Short: "Obtain a NetBox API token",
	Long: "Obtains a NetBox API token and saves it to the token path and, when MASTER_KEY is set, to the secrets store. " +
		"With a username the token is provisioned from the username and password. " +
		"Without one the token page is opened in the browser and the token is read from stdin. " +
		"An existing token that NetBox still accepts is kept unless --force is given.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := patchbay.Login(cmd.Context(), patchbay.LoginParams{
			Client:    clientParams(),
			Username:  loginUsername,
			Password:  loginPassword,
			Force:     forceLogin,
			NoBrowser: noBrowser,
			In:        cmd.InOrStdin(),
			Out:       cmd.OutOrStdout(),
		})
		if err != nil {
			return fmt.Errorf("failed to log in: %w", err)
		}
		if result.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "Existing token is valid (use '--force' to log in anyway)")
			return nil
		}
		for _, path := range result.Saved {
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", path)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "U", "", "Provision the token for this NetBox user")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "P", "", "Set the password (prompted for when omitted)")
	loginCmd.Flags().BoolVarP(&forceLogin, "force", "f", false, "Log in even with a valid token")
	loginCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the token page in the browser")
	rootCmd.AddCommand(loginCmd)
}
