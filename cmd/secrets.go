package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	patchbay "github.com/OpenCHAMI/patchbay/internal"
	"github.com/OpenCHAMI/patchbay/pkg/secrets"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var secretsCmd = &cobra.Command{
	Use: "secrets",
	Example: `  // generate new key and set environment variable
  export MASTER_KEY=$(patchbay secrets generatekey)

  // store the token for a NetBox instance in the default secrets store
  patchbay secrets store https://netbox.example.com 0123456789abcdef

  // read the token from stdin instead
  pass show netbox | patchbay secrets store https://netbox.example.com -

  // list stored instances from a specific secrets file
  patchbay secrets list --secrets-file tokens.json`,
	Short: "Manage stored NetBox API tokens",
	Long: "Manage NetBox API tokens kept encrypted at rest, one per NetBox instance. " +
		"This requires generating a key and setting the 'MASTER_KEY' environment variable for the secrets store.",
}

var secretsGenerateKeyCmd = &cobra.Command{
	Use:   "generatekey",
	Args:  cobra.NoArgs,
	Short: "Generates a new 32-byte master key (in hex).",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := secrets.GenerateMasterKey()
		if err != nil {
			return fmt.Errorf("failed to generate master key: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var secretsStoreCmd = &cobra.Command{
	Use:   "store NETBOX_URL [TOKEN|-]",
	Args:  cobra.RangeArgs(1, 2),
	Short: "Stores the token for a NetBox instance. '-' or no token reads it from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := ""
		if len(args) > 1 && args[1] != "-" {
			token = args[1]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("failed to read token: %w", err)
			}
			token = line
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return errors.New("no token given")
		}

		store, err := patchbay.OpenSecrets(viper.GetString("secrets.file"))
		if err != nil {
			return fmt.Errorf("failed to open secrets store: %w", err)
		}
		id := secrets.Key(args[0])
		if err := store.SetToken(id, token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}
		log.Info().Str("id", id).Str("path", store.Path()).Msg("token stored")
		return nil
	},
}

var secretsRetrieveCmd = &cobra.Command{
	Use:   "retrieve NETBOX_URL",
	Args:  cobra.ExactArgs(1),
	Short: "Prints the stored token of a NetBox instance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := patchbay.OpenSecrets(viper.GetString("secrets.file"))
		if err != nil {
			return fmt.Errorf("failed to open secrets store: %w", err)
		}
		token, err := store.Token(secrets.Key(args[0]))
		if err != nil {
			return fmt.Errorf("failed to retrieve token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.NoArgs,
	Short: "Lists the NetBox instances with a stored token.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := patchbay.OpenSecrets(viper.GetString("secrets.file"))
		if err != nil {
			return fmt.Errorf("failed to open secrets store: %w", err)
		}
		ids, err := store.IDs()
		if err != nil {
			return fmt.Errorf("failed to list secrets: %w", err)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var secretsRemoveCmd = &cobra.Command{
	Use:   "remove NETBOX_URL...",
	Args:  cobra.MinimumNArgs(1),
	Short: "Removes the stored tokens of NetBox instances.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := patchbay.OpenSecrets(viper.GetString("secrets.file"))
		if err != nil {
			return fmt.Errorf("failed to open secrets store: %w", err)
		}
		for _, arg := range args {
			if err := store.Remove(secrets.Key(arg)); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
		}
		return nil
	},
}

func init() {
	secretsCmd.AddCommand(secretsGenerateKeyCmd)
	secretsCmd.AddCommand(secretsStoreCmd)
	secretsCmd.AddCommand(secretsRetrieveCmd)
	secretsCmd.AddCommand(secretsListCmd)
	secretsCmd.AddCommand(secretsRemoveCmd)

	rootCmd.AddCommand(secretsCmd)
}
