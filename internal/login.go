package patchbay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OpenCHAMI/patchbay/internal/util"
	"github.com/OpenCHAMI/patchbay/pkg/secrets"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

type LoginParams struct {
	Client   ClientParams
	Username string
	// Password is prompted for when a username is given without one.
	Password string
	// Force skips checking an existing token.
	Force     bool
	NoBrowser bool
	In        io.Reader
	Out       io.Writer
}

type LoginResult struct {
	Token string
	// Skipped is set when an existing token was still accepted.
	Skipped bool
	// Saved lists where the new token was written.
	Saved []string
}

// Login() obtains a NetBox API token. With a username the token is
// provisioned from the username and password. Without one, the token page
// is opened in the browser and the user pastes a token. The new token is
// checked against NetBox and saved to the token file and, when MASTER_KEY
// is set, to the secrets store.
func Login(ctx context.Context, params LoginParams) (*LoginResult, error) {
	if params.In == nil {
		params.In = os.Stdin
	}
	if params.Out == nil {
		params.Out = os.Stdout
	}
	base, err := params.Client.BaseURL()
	if err != nil {
		return nil, err
	}

	if !params.Force {
		if token, err := params.Client.ResolveToken(); err == nil {
			nb, err := newClient(params.Client, token)
			if err != nil {
				return nil, err
			}
			err = nb.CheckToken(ctx)
			if err == nil {
				log.Info().Str("url", base).Msg("found a valid token...skipping login (use '--force' to log in anyway)")
				return &LoginResult{Token: token, Skipped: true}, nil
			}
			log.Warn().Err(err).Msg("existing token rejected...fetching a new one")
		}
	}

	anon, err := newClient(params.Client, "")
	if err != nil {
		return nil, err
	}

	var (
		token    string
		reader   = bufio.NewReader(params.In)
		terminal = params.In == io.Reader(os.Stdin) && term.IsTerminal(int(os.Stdin.Fd()))
	)
	if params.Username != "" {
		password := params.Password
		if password == "" {
			password, err = readSecret(reader, terminal, params.Out, fmt.Sprintf("Password for %s: ", params.Username))
			if err != nil {
				return nil, err
			}
		}
		token, err = anon.ProvisionToken(ctx, params.Username, password)
		if err != nil {
			return nil, err
		}
	} else {
		page := anon.TokensURL()
		fmt.Fprintf(params.Out, "Create an API token at %s\n", page)
		if !params.NoBrowser {
			if err := browser.OpenURL(page); err != nil {
				log.Warn().Err(err).Str("url", page).Msg("failed to open browser")
			}
		}
		token, err = readSecret(reader, terminal, params.Out, "Token: ")
		if err != nil {
			return nil, err
		}
	}
	if token == "" {
		return nil, errors.New("no token given")
	}

	nb, err := newClient(params.Client, token)
	if err != nil {
		return nil, err
	}
	if err := nb.CheckToken(ctx); err != nil {
		return nil, err
	}

	result := &LoginResult{Token: token}
	if params.Client.TokenPath != "" {
		if err := util.SaveAccessToken(params.Client.TokenPath, token); err != nil {
			return nil, err
		}
		result.Saved = append(result.Saved, util.ExpandHome(params.Client.TokenPath))
	}
	if store := openSecrets(params.Client.SecretsFile, true); store != nil {
		if err := store.SetToken(secrets.Key(base), token); err != nil {
			return nil, fmt.Errorf("failed to store token: %w", err)
		}
		result.Saved = append(result.Saved, util.ExpandHome(params.Client.SecretsFile))
	}
	return result, nil
}

// readSecret() prompts for a value without echo when stdin is a terminal,
// and reads a plain line otherwise.
func readSecret(reader *bufio.Reader, terminal bool, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if terminal {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
