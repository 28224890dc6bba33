package patchbay

import (
	"fmt"
	"os"
	"time"

	urlx "github.com/OpenCHAMI/patchbay/internal/url"
	"github.com/OpenCHAMI/patchbay/internal/util"
	"github.com/OpenCHAMI/patchbay/pkg/client"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/OpenCHAMI/patchbay/pkg/secrets"
	"github.com/rs/zerolog/log"
)

// ClientParams describe how to reach and authenticate with NetBox.
type ClientParams struct {
	URL         string
	Token       string
	TokenPath   string
	SecretsFile string
	CACertPath  string
	Insecure    bool
	// Timeout is in seconds; zero disables it.
	Timeout  int
	PageSize int
}

// BaseURL() is the sanitized NetBox URL.
func (p ClientParams) BaseURL() (string, error) {
	return urlx.Sanitize(p.URL)
}

// ResolveToken() finds the token to use: the explicit one, then the
// secrets store entry for the NetBox URL, then the token file.
func (p ClientParams) ResolveToken() (string, error) {
	base, err := p.BaseURL()
	if err != nil {
		return "", err
	}
	return util.LoadAccessToken(secrets.Key(base), p.TokenPath,
		secrets.NewStaticStore(p.Token),
		openSecrets(p.SecretsFile, false),
	)
}

// NewNetBoxClient() builds an authenticated client. The token must
// resolve; use newClient for requests that do not need one.
func NewNetBoxClient(params ClientParams) (*netbox.Client, error) {
	token, err := params.ResolveToken()
	if err != nil {
		return nil, err
	}
	return newClient(params, token)
}

func newClient(params ClientParams, token string) (*netbox.Client, error) {
	base, err := params.BaseURL()
	if err != nil {
		return nil, err
	}
	opts := []client.Option{
		client.WithInsecure(params.Insecure),
		client.WithTimeout(time.Duration(params.Timeout) * time.Second),
	}
	if params.CACertPath != "" {
		opts = append(opts, client.WithSecureTLS(util.ExpandHome(params.CACertPath)))
	}
	log.Debug().Str("url", base).Bool("insecure", params.Insecure).Int("page-size", params.PageSize).Msg("using NetBox")
	return netbox.NewClient(client.NewClient(base, token, opts...), params.PageSize), nil
}

// openSecrets() opens the secrets store when MASTER_KEY is set. Without
// create, a missing file yields nil rather than an error.
func openSecrets(path string, create bool) secrets.TokenStore {
	if path == "" || os.Getenv(secrets.MasterKeyEnv) == "" {
		return nil
	}
	path = util.ExpandHome(path)
	if _, exists := util.PathExists(path); !exists && !create {
		return nil
	}
	store, err := secrets.OpenStore(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to open secrets store")
		return nil
	}
	return store
}

// OpenSecrets() opens (creating if needed) the secrets store at path.
func OpenSecrets(path string) (*secrets.FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("no secrets file configured")
	}
	return secrets.OpenStore(util.ExpandHome(path))
}
