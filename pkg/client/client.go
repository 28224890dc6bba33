package client

// See ref for API docs:
//	https://demo.netbox.dev/api/schema/swagger-ui/
//	https://netboxlabs.com/docs/netbox/en/stable/integrations/rest-api/
import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Option func(client *NetBoxClient)

// The 'NetBoxClient' struct is a wrapper around the default http.Client
// that provides an extended API to work with functional options. It knows
// the NetBox root URL and the API token to authenticate with.
type NetBoxClient struct {
	*http.Client
	URI      string
	Token    string
	insecure bool
	certPool *x509.CertPool
}

// NewClient() creates a new client
func NewClient(uri string, token string, opts ...Option) *NetBoxClient {
	client := &NetBoxClient{
		Client: &http.Client{},
		URI:    strings.TrimSuffix(uri, "/"),
		Token:  token,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			RootCAs:            client.certPool,
			InsecureSkipVerify: client.insecure,
		},
		Dial: (&net.Dialer{
			Timeout:   120 * time.Second,
			KeepAlive: 120 * time.Second,
		}).Dial,
		TLSHandshakeTimeout:   120 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
	}
	return client
}

func WithCertPool(certPool *x509.CertPool) Option {
	return func(client *NetBoxClient) {
		client.certPool = certPool
	}
}

func WithSecureTLS(certPath string) Option {
	cacert, err := os.ReadFile(certPath)
	if err != nil {
		log.Warn().Err(err).Str("path", certPath).Msg("failed to read CA cert; using system CAs")
		return func(client *NetBoxClient) {}
	}
	certPool := x509.NewCertPool()
	certPool.AppendCertsFromPEM(cacert)
	return WithCertPool(certPool)
}

func WithInsecure(insecure bool) Option {
	return func(client *NetBoxClient) {
		client.insecure = insecure
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(client *NetBoxClient) {
		client.Timeout = timeout
	}
}

func (c *NetBoxClient) Name() string {
	return "netbox"
}

// RootEndpoint() returns the full URL of an API endpoint. Endpoints that
// are already absolute (e.g. the 'next' link of a paginated response) are
// returned unchanged.
func (c *NetBoxClient) RootEndpoint(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return fmt.Sprintf("%s/api%s", c.URI, endpoint)
}

// WebEndpoint() returns the URL of a page in the NetBox web UI.
func (c *NetBoxClient) WebEndpoint(path string) string {
	return fmt.Sprintf("%s%s", c.URI, path)
}

func (c *NetBoxClient) GetInternalClient() *http.Client {
	return c.Client
}

// Do() sends a request with a JSON payload (if any) to the endpoint and
// returns the raw response body. Non-2xx responses are returned as an
// *APIError.
func (c *NetBoxClient) Do(ctx context.Context, method string, endpoint string, query url.Values, data any) (HTTPBody, error) {
	var (
		body HTTPBody
		err  error
	)
	if data != nil {
		body, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data for request: %w", err)
		}
	}

	uri := c.RootEndpoint(endpoint)
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}

	headers := HTTPHeader{}
	headers.Authorization(c.Token)
	headers.ContentType("application/json")
	headers.Accept("application/json")

	res, b, err := MakeRequest(ctx, c.Client, uri, method, body, headers)
	if err != nil {
		return nil, err
	}
	statusOk := res.StatusCode >= 200 && res.StatusCode < 300
	if !statusOk {
		return nil, &APIError{
			StatusCode: res.StatusCode,
			Method:     method,
			URL:        uri,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	log.Trace().Str("method", method).Str("url", uri).Str("status", res.Status).Msg("netbox request")
	return b, nil
}

// Get() performs a GET and decodes the JSON response into v.
func (c *NetBoxClient) Get(ctx context.Context, endpoint string, query url.Values, v any) error {
	b, err := c.Do(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return decode(b, v)
}

// Post() creates an object and decodes the created representation into v.
func (c *NetBoxClient) Post(ctx context.Context, endpoint string, data any, v any) error {
	if data == nil {
		return fmt.Errorf("failed to POST to %s: no data found", endpoint)
	}
	b, err := c.Do(ctx, http.MethodPost, endpoint, nil, data)
	if err != nil {
		return err
	}
	return decode(b, v)
}

// Patch() partially updates an object and decodes the result into v.
func (c *NetBoxClient) Patch(ctx context.Context, endpoint string, data any, v any) error {
	if data == nil {
		return fmt.Errorf("failed to PATCH %s: no data found", endpoint)
	}
	b, err := c.Do(ctx, http.MethodPatch, endpoint, nil, data)
	if err != nil {
		return err
	}
	return decode(b, v)
}

// Delete() removes an object.
func (c *NetBoxClient) Delete(ctx context.Context, endpoint string) error {
	_, err := c.Do(ctx, http.MethodDelete, endpoint, nil, nil)
	return err
}

func decode(b HTTPBody, v any) error {
	if v == nil || len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
