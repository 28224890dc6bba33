package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// HTTP aliases for readibility
type HTTPHeader map[string]string
type HTTPBody []byte

// Authorization() sets the NetBox authorization header. Legacy (v1) keys
// use the "Token" scheme while v2 tokens, which are prefixed with "nbt_",
// are sent as bearer tokens.
func (h HTTPHeader) Authorization(token string) HTTPHeader {
	token = strings.TrimSpace(token)
	if token == "" {
		return h
	}
	if strings.HasPrefix(token, "nbt_") {
		h["Authorization"] = fmt.Sprintf("Bearer %s", token)
	} else {
		h["Authorization"] = fmt.Sprintf("Token %s", token)
	}
	return h
}

func (h HTTPHeader) ContentType(contentType string) HTTPHeader {
	h["Content-Type"] = contentType
	return h
}

func (h HTTPHeader) Accept(contentType string) HTTPHeader {
	h["Accept"] = contentType
	return h
}

// MakeRequest() is a wrapper function that condenses simple HTTP
// requests done to a single call. It expects an optional HTTP client,
// URL, HTTP method, request body, and request headers. This function
// is useful when making many requests where only these few arguments
// are changing.
//
// Returns a HTTP response object, response body as byte array, and any
// error that may have occurred with making the request.
func MakeRequest(ctx context.Context, client *http.Client, url string, httpMethod string, body HTTPBody, header HTTPHeader) (*http.Response, HTTPBody, error) {
	// use defaults if no client provided
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(ctx, httpMethod, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create new HTTP request: %w", err)
	}
	req.Header.Add("User-Agent", "patchbay")
	for k, v := range header {
		req.Header.Add(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if err := res.Body.Close(); err != nil {
		log.Warn().Err(err).Msg("could not close response resource")
	}
	return res, b, nil
}
