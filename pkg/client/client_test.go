package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestAuthorizationHeader(t *testing.T) {
	tests := map[string]string{
		"0123456789abcdef": "Token 0123456789abcdef",
		" nbt_abc.def ":    "Bearer nbt_abc.def",
		"":                 "",
		"   ":              "",
		"nbt":              "Token nbt",
		"nbt_":             "Bearer nbt_",
	}
	for token, want := range tests {
		h := HTTPHeader{}
		h.Authorization(token)
		if got := h["Authorization"]; got != want {
			t.Errorf("%q: expected %q, got %q", token, want, got)
		}
	}
}

func TestEndpoints(t *testing.T) {
	c := NewClient("https://netbox.example.com/", "token")
	if got := c.RootEndpoint("/dcim/cables/"); got != "https://netbox.example.com/api/dcim/cables/" {
		t.Errorf("unexpected API endpoint: %s", got)
	}
	next := "https://netbox.example.com/api/dcim/devices/?limit=50&offset=50"
	if got := c.RootEndpoint(next); got != next {
		t.Errorf("expected absolute URL to be kept, got %s", got)
	}
	if got := c.WebEndpoint("/dcim/devices/1/"); got != "https://netbox.example.com/dcim/devices/1/" {
		t.Errorf("unexpected web endpoint: %s", got)
	}
}

func TestDoSendsJSONAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/dcim/cables/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("unexpected authorization: %s", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type: %s", got)
		}
		if got := r.Header.Get("User-Agent"); got != "patchbay" {
			t.Errorf("unexpected user agent: %s", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body["label"] != "A-B" {
			t.Errorf("unexpected body: %v", body)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 7, "label": "A-B"}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	var res struct {
		ID    int    `json:"id"`
		Label string `json:"label"`
	}
	if err := c.Post(context.Background(), "/dcim/cables/", map[string]string{"label": "A-B"}, &res); err != nil {
		t.Fatalf("failed to post: %v", err)
	}
	if res.ID != 7 {
		t.Errorf("expected id 7, got %d", res.ID)
	}
}

func TestGetEncodesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("device_id"); got != "12" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"count": 0, "results": []}`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	if err := c.Get(context.Background(), "/dcim/rear-ports/", url.Values{"device_id": []string{"12"}}, nil); err != nil {
		t.Fatalf("failed to get: %v", err)
	}
}

func TestDoReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/dcim/devices/404/":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail": "Not found."}`)
		case "/api/dcim/modules/":
			b, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"replicate_components": ["unknown"], "echo": %q}`, string(b))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "duplicate key value violates unique constraint\n")
		}
	}))
	defer server.Close()
	c := NewClient(server.URL, "secret")
	ctx := context.Background()

	err := c.Get(ctx, "/dcim/devices/404/", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected a 404 APIError, got %v", err)
	}
	if !IsNotFound(err) || IsConflict(err) {
		t.Errorf("expected only IsNotFound to match %v", err)
	}

	err = c.Post(ctx, "/dcim/modules/", map[string]bool{"replicate_components": true}, nil)
	if !Mentions(err, "replicate_components") || Mentions(err, "adopt_components") {
		t.Errorf("expected the error to mention replicate_components only: %v", err)
	}

	err = c.Post(ctx, "/dcim/interfaces/", map[string]string{"name": "eth0"}, nil)
	if !IsConflict(err) {
		t.Errorf("expected a conflict, got %v", err)
	}
	if !errors.As(err, &apiErr) || apiErr.Body != "duplicate key value violates unique constraint" {
		t.Errorf("expected a trimmed body, got %q", apiErr.Body)
	}
}

func TestWriteWithoutData(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "")
	if err := c.Post(context.Background(), "/dcim/cables/", nil, nil); err == nil {
		t.Errorf("expected POST without data to fail")
	}
	if err := c.Patch(context.Background(), "/dcim/cables/1/", nil, nil); err == nil {
		t.Errorf("expected PATCH without data to fail")
	}
}

func TestIsConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&APIError{StatusCode: http.StatusConflict}, true},
		{&APIError{StatusCode: http.StatusBadRequest, Body: `{"name": ["Interface with this Device and Name already exists."]}`}, true},
		{&APIError{StatusCode: http.StatusBadRequest, Body: `{"name": ["This field is required."]}`}, false},
		{fmt.Errorf("wrapped: %w", &APIError{StatusCode: 500, Body: "Must Be Unique"}), true},
		{errors.New("duplicate key"), false},
	}
	for i, test := range tests {
		if got := IsConflict(test.err); got != test.want {
			t.Errorf("%d: expected %t, got %t for %v", i, test.want, got, test.err)
		}
	}
}
