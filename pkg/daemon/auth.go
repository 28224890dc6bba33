package daemon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jwt"
	"github.com/rs/zerolog/log"
)

// Authenticator verifies bearer tokens. Tokens are checked against the
// keys published at a JWKS URL, or else an HS256 shared secret. With
// neither configured every request is let through.
type Authenticator struct {
	mu      sync.RWMutex
	jwksURL string
	keys    jwk.Set
	secret  []byte
}

func NewAuthenticator(ctx context.Context, jwksURL string, secret string) (*Authenticator, error) {
	a := &Authenticator{}
	if err := a.Configure(ctx, jwksURL, secret); err != nil {
		return nil, err
	}
	return a, nil
}

// Configure() replaces the verification keys. The JWKS is fetched
// immediately so a bad URL is reported up front.
func (a *Authenticator) Configure(ctx context.Context, jwksURL string, secret string) error {
	var keys jwk.Set
	if jwksURL != "" {
		set, err := jwk.Fetch(ctx, jwksURL)
		if err != nil {
			return fmt.Errorf("failed to fetch JWKS from %s: %w", jwksURL, err)
		}
		keys = set
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.jwksURL = jwksURL
	a.keys = keys
	a.secret = []byte(secret)
	return nil
}

func (a *Authenticator) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.keys != nil || len(a.secret) > 0
}

// Verify() parses and validates a compact JWT, including exp and nbf.
func (a *Authenticator) Verify(raw string) (jwt.Token, error) {
	a.mu.RLock()
	keys, secret := a.keys, a.secret
	a.mu.RUnlock()

	opts := []jwt.ParseOption{jwt.WithValidate(true)}
	switch {
	case keys != nil:
		opts = append(opts, jwt.WithKeySet(keys))
	case len(secret) > 0:
		opts = append(opts, jwt.WithVerify(jwa.HS256, secret))
	default:
		return nil, fmt.Errorf("no verification key configured")
	}
	token, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return token, nil
}

// Middleware() rejects requests without a valid "Authorization: Bearer"
// token when authentication is enabled.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		token, err := a.Verify(strings.TrimSpace(raw))
		if err != nil {
			log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejected daemon request")
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		log.Debug().Str("subject", token.Subject()).Str("path", r.URL.Path).Msg("authorized daemon request")
		next.ServeHTTP(w, r)
	})
}
