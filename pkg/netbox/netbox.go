package netbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/OpenCHAMI/patchbay/pkg/client"
)

const DefaultPageSize = 250

var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("matches more than one object")
)

// Client is a typed wrapper around the NetBox REST API covering the
// DCIM, tenancy and extras endpoints patchbay needs.
type Client struct {
	api      *client.NetBoxClient
	PageSize int
}

func NewClient(api *client.NetBoxClient, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{api: api, PageSize: pageSize}
}

// API() exposes the underlying HTTP client.
func (c *Client) API() *client.NetBoxClient {
	return c.api
}

type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// list() fetches every page of a list endpoint by following 'next'.
func list[T any](ctx context.Context, c *Client, endpoint string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", strconv.Itoa(c.PageSize))

	results := []T{}
	next := endpoint
	for next != "" {
		var p page[T]
		if err := c.api.Get(ctx, next, query, &p); err != nil {
			return nil, err
		}
		results = append(results, p.Results...)
		if p.Next == nil {
			break
		}
		// the next link already carries the query string
		next, query = *p.Next, nil
	}
	return results, nil
}

func get[T any](ctx context.Context, c *Client, kind string, endpoint string, id int) (*T, error) {
	var v T
	err := c.api.Get(ctx, fmt.Sprintf("%s%d/", endpoint, id), nil, &v)
	if client.IsNotFound(err) {
		return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// one() narrows a lookup result to exactly one object.
func one[T any](kind string, ref string, items []T) (*T, error) {
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("%s '%s': %w", kind, ref, ErrNotFound)
	case 1:
		return &items[0], nil
	}
	return nil, fmt.Errorf("%s '%s' %w (%d)", kind, ref, ErrAmbiguous, len(items))
}

// resolve() looks an object up by numeric ID, or else by each of the
// given filter fields in turn (e.g. name, then slug).
func resolve[T any](ctx context.Context, c *Client, kind string, endpoint string, ref string, base url.Values, fields ...string) (*T, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%s: empty reference", kind)
	}
	if id, err := strconv.Atoi(ref); err == nil && id > 0 {
		return get[T](ctx, c, kind, endpoint, id)
	}
	return lookup[T](ctx, c, kind, endpoint, ref, base, fields...)
}

// lookup() is resolve() without the numeric ID shortcut, for fields such
// as module type models that may themselves be numbers.
func lookup[T any](ctx context.Context, c *Client, kind string, endpoint string, ref string, base url.Values, fields ...string) (*T, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%s: empty reference", kind)
	}
	for _, field := range fields {
		query := url.Values{}
		for k, v := range base {
			query[k] = v
		}
		query.Set(field, ref)
		items, err := list[T](ctx, c, endpoint, query)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s '%s': %w", kind, ref, err)
		}
		if len(items) > 0 {
			return one(kind, ref, items)
		}
	}
	return nil, fmt.Errorf("%s '%s': %w", kind, ref, ErrNotFound)
}

func idQuery(key string, id int) url.Values {
	return url.Values{key: []string{strconv.Itoa(id)}}
}

func created[T any](ctx context.Context, c *Client, endpoint string, data any) (*T, error) {
	var v T
	if err := c.api.Post(ctx, endpoint, data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func patched[T any](ctx context.Context, c *Client, endpoint string, id int, data any) (*T, error) {
	var v T
	if err := c.api.Patch(ctx, fmt.Sprintf("%s%d/", endpoint, id), data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) remove(ctx context.Context, endpoint string, id int) error {
	return c.api.Delete(ctx, fmt.Sprintf("%s%d/", endpoint, id))
}

// CheckToken() verifies the configured token is accepted by NetBox.
func (c *Client) CheckToken(ctx context.Context) error {
	if err := c.api.Get(ctx, "/users/config/", nil, nil); err != nil {
		return fmt.Errorf("token rejected by %s: %w", c.api.URI, err)
	}
	return nil
}

// ProvisionToken() exchanges a username and password for a new API token.
func (c *Client) ProvisionToken(ctx context.Context, username string, password string) (string, error) {
	var res struct {
		Key   string `json:"key"`
		Token string `json:"token"`
	}
	data := map[string]string{"username": username, "password": password}
	if err := c.api.Post(ctx, "/users/tokens/provision/", data, &res); err != nil {
		return "", fmt.Errorf("failed to provision token: %w", err)
	}
	switch {
	case res.Token != "":
		return res.Token, nil
	case res.Key != "":
		return res.Key, nil
	}
	return "", fmt.Errorf("failed to provision token: response carried no token")
}
