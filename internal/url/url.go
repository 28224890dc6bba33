package url

import (
	"fmt"
	"net/url"
	"strings"
)

// Sanitize() turns a NetBox address as a user types it into the base URL
// the client expects: a scheme (https when missing), no doubled or
// trailing slashes, and no trailing "/api".
func Sanitize(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", fmt.Errorf("no NetBox URL given")
	}
	if !strings.Contains(uri, "://") {
		uri = "https://" + uri
	}
	parsed, err := url.ParseRequestURI(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse URI: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme '%s' in %s", parsed.Scheme, uri)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %s", uri)
	}

	for strings.Contains(parsed.Path, "//") {
		parsed.Path = strings.ReplaceAll(parsed.Path, "//", "/")
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	parsed.Path = strings.TrimSuffix(parsed.Path, "/api")
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}
