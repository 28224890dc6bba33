// Package secrets keeps NetBox API tokens encrypted at rest, one per
// NetBox instance. Entries are keyed by the normalized NetBox URL so the
// same file can hold tokens for several instances.
//
// The master key is read from MASTER_KEY (64 hex characters). Each token
// is encrypted with AES-GCM under a key derived from the master key and
// the entry's ID with HKDF.
package secrets

import (
	"errors"
	"net/url"
	"strings"
)

var ErrNoToken = errors.New("no token stored")

const MasterKeyEnv = "MASTER_KEY"

type TokenStore interface {
	Token(id string) (string, error)
	SetToken(id string, token string) error
	// IDs() lists stored entry IDs, sorted.
	IDs() ([]string, error)
	Remove(id string) error
}

// Key() normalizes a NetBox URL into a store ID: lower-case scheme and
// host, no trailing slash, no query or fragment. Anything that does not
// parse as an absolute URL is used as given, trimmed.
func Key(netboxURL string) string {
	raw := strings.TrimSpace(netboxURL)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}
