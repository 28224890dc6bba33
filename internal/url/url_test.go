package url

import "testing"

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"https://netbox.example.com/":        "https://netbox.example.com",
		"netbox.example.com":                 "https://netbox.example.com",
		"http://10.0.0.5:8000//netbox//api/": "http://10.0.0.5:8000/netbox",
		" https://netbox.example.com/api ":   "https://netbox.example.com",
	}
	for in, want := range tests {
		got, err := Sanitize(in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}

	for _, bad := range []string{"", "ftp://netbox.example.com", "https://"} {
		if _, err := Sanitize(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}
