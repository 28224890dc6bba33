package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenCHAMI/patchbay/pkg/secrets"
	"github.com/rs/zerolog/log"
)

var ErrNoAccessToken = errors.New("no NetBox token found")

// LoadAccessToken() returns the first token found for the NetBox
// instance id: each store in turn, then the token file at path. A store
// may be nil.
func LoadAccessToken(id string, path string, stores ...secrets.TokenStore) (string, error) {
	for _, store := range stores {
		if store == nil {
			continue
		}
		token, err := store.Token(id)
		if err == nil && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
		if err != nil && !errors.Is(err, secrets.ErrNoToken) {
			log.Warn().Err(err).Str("id", id).Msg("failed to read token from store")
		}
	}

	if path != "" {
		b, err := os.ReadFile(ExpandHome(path))
		if err == nil && len(strings.TrimSpace(string(b))) > 0 {
			return strings.TrimSpace(string(b)), nil
		}
		if err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("failed to read token file")
		}
	}
	return "", fmt.Errorf("%w for %s: set NETBOX_TOKEN, run 'patchbay login' or 'patchbay secrets store'", ErrNoAccessToken, id)
}

// SaveAccessToken() writes the token file readable by its owner only.
func SaveAccessToken(path string, token string) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token to %s: %w", path, err)
	}
	return nil
}
