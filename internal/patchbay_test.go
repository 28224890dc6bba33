package patchbay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenCHAMI/patchbay/internal/cache"
	"github.com/OpenCHAMI/patchbay/internal/format"
	"github.com/OpenCHAMI/patchbay/pkg/secrets"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type testReport struct {
	OK     bool   `json:"ok" yaml:"ok"`
	Result string `json:"result" yaml:"result"`
}

func (r *testReport) Success() bool   { return r.OK }
func (r *testReport) Summary() string { return r.Result }
func (r *testReport) WriteText(w io.Writer, level logrus.Level) error {
	if level >= logrus.DebugLevel {
		fmt.Fprintln(w, "debug line")
	}
	_, err := fmt.Fprintln(w, r.Result)
	return err
}

func TestWriteReport(t *testing.T) {
	report := &testReport{OK: true, Result: "Created 4 cables"}

	var buf bytes.Buffer
	if err := WriteReport(&buf, report, format.FORMAT_TEXT, logrus.InfoLevel); err != nil {
		t.Fatalf("failed to write text report: %v", err)
	}
	if buf.String() != "Created 4 cables\n" {
		t.Errorf("unexpected text report: %q", buf.String())
	}

	buf.Reset()
	if err := WriteReport(&buf, report, format.FORMAT_JSON, logrus.InfoLevel); err != nil {
		t.Fatalf("failed to write JSON report: %v", err)
	}
	var decoded testReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || decoded != *report {
		t.Errorf("unexpected JSON report %q (%v)", buf.String(), err)
	}

	buf.Reset()
	if err := WriteReport(&buf, report, format.FORMAT_YAML, logrus.InfoLevel); err != nil {
		t.Fatalf("failed to write YAML report: %v", err)
	}
	if !strings.Contains(buf.String(), "result: Created 4 cables") {
		t.Errorf("unexpected YAML report: %q", buf.String())
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	started := time.Now().Add(-time.Minute)

	first, err := RecordRun(ctx, path, RunInfo{Command: "link", NetBox: "https://netbox.example.com", StartedAt: started},
		&testReport{OK: true, Result: "Dry run: 4 cables planned"})
	if err != nil {
		t.Fatalf("failed to record run: %v", err)
	}
	if first.Report != "debug line\nDry run: 4 cables planned\n" {
		t.Errorf("expected the debug report to be kept, got %q", first.Report)
	}
	second, err := RecordRun(ctx, path, RunInfo{Command: "sync", NetBox: "https://netbox.example.com", Commit: true},
		&testReport{OK: false, Result: "Synchronized 2 device(s): 3 component change(s), 1 error(s)"})
	if err != nil {
		t.Fatalf("failed to record run: %v", err)
	}

	runs, err := ListRuns(ctx, path, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	var buf bytes.Buffer
	if err := WriteRuns(&buf, runs, format.FORMAT_TEXT); err != nil {
		t.Fatalf("failed to write runs: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"COMMAND", second.ShortID(), "failed", "Dry run: 4 cables planned"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in run list:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteRuns(&buf, runs, format.FORMAT_JSON); err != nil {
		t.Fatalf("failed to write runs: %v", err)
	}
	if strings.Contains(buf.String(), "debug line") {
		t.Errorf("expected reports to be left out of the JSON listing")
	}

	run, err := GetRun(ctx, path, first.ShortID())
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	buf.Reset()
	if err := WriteRun(&buf, run, format.FORMAT_TEXT); err != nil {
		t.Fatalf("failed to write run: %v", err)
	}
	if !strings.HasSuffix(buf.String(), first.Report) || !strings.Contains(buf.String(), "link against https://netbox.example.com") {
		t.Errorf("unexpected run output: %q", buf.String())
	}

	if err := RemoveRuns(ctx, path, first.ID.String()); err != nil {
		t.Fatalf("failed to remove run: %v", err)
	}
	if _, err := GetRun(ctx, path, first.ID.String()); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected the run to be gone, got %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "patchbay.yaml")
	config := "netbox:\n  url: netbox.example.com\n  page-size: 50\ndaemon:\n  endpoint: localhost:9000\n"
	if err := os.WriteFile(path, []byte(config), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("NETBOX_TOKEN", "from-env")

	SetDefaults()
	if err := LoadConfig(path); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if got := viper.GetString("netbox.url"); got != "netbox.example.com" {
		t.Errorf("unexpected url: %s", got)
	}
	if got := viper.GetInt("netbox.page-size"); got != 50 {
		t.Errorf("unexpected page size: %d", got)
	}
	if got := viper.GetString("netbox.token"); got != "from-env" {
		t.Errorf("expected the environment to override, got %s", got)
	}
	if got := viper.GetInt("timeout"); got != 30 {
		t.Errorf("expected the default timeout, got %d", got)
	}

	viper.Reset()
	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected an explicit missing config to fail")
	}
}

func TestResolveToken(t *testing.T) {
	dir := t.TempDir()
	key, err := secrets.GenerateMasterKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	t.Setenv(secrets.MasterKeyEnv, key)

	store, err := secrets.NewFileStore(key, filepath.Join(dir, "secrets.json"), true)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.SetToken("https://netbox.example.com", "from-store"); err != nil {
		t.Fatalf("failed to store token: %v", err)
	}

	params := ClientParams{URL: "NetBox.example.com/", SecretsFile: store.Path(), TokenPath: filepath.Join(dir, "token")}
	if token, err := params.ResolveToken(); err != nil || token != "from-store" {
		t.Errorf("expected the stored token, got %q (%v)", token, err)
	}

	params.Token = "from-flag"
	if token, _ := params.ResolveToken(); token != "from-flag" {
		t.Errorf("expected the explicit token first, got %q", token)
	}

	params = ClientParams{URL: "https://other.example.com", SecretsFile: store.Path()}
	if _, err := NewNetBoxClient(params); err == nil {
		t.Errorf("expected a missing token to fail")
	}
}

func newLoginServer(t *testing.T, valid string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users/config/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+valid {
			http.Error(w, `{"detail": "Invalid token"}`, http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, "{}")
	})
	mux.HandleFunc("/api/users/tokens/provision/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds["username"] != "admin" || creds["password"] != "hunter2" {
			http.Error(w, `{"detail": "Invalid credentials"}`, http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"id": 1, "key": %q}`, valid)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestLoginProvisionsToken(t *testing.T) {
	server := newLoginServer(t, "0123456789abcdef")
	dir := t.TempDir()
	var out bytes.Buffer
	params := LoginParams{
		Client:   ClientParams{URL: server.URL, TokenPath: filepath.Join(dir, "token")},
		Username: "admin",
		In:       strings.NewReader("hunter2\n"),
		Out:      &out,
	}

	result, err := Login(context.Background(), params)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Skipped || result.Token != "0123456789abcdef" || len(result.Saved) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if !strings.Contains(out.String(), "Password for admin: ") {
		t.Errorf("expected a password prompt, got %q", out.String())
	}
	b, err := os.ReadFile(filepath.Join(dir, "token"))
	if err != nil || strings.TrimSpace(string(b)) != "0123456789abcdef" {
		t.Errorf("expected the token file to be written, got %q (%v)", b, err)
	}

	// a second login finds the saved token still valid
	params.In = strings.NewReader("")
	result, err = Login(context.Background(), params)
	if err != nil || !result.Skipped {
		t.Errorf("expected login to be skipped, got %+v (%v)", result, err)
	}
}

func TestLoginPastedToken(t *testing.T) {
	server := newLoginServer(t, "pasted-token")
	var out bytes.Buffer
	params := LoginParams{
		Client:    ClientParams{URL: server.URL},
		Force:     true,
		NoBrowser: true,
		In:        strings.NewReader("  pasted-token  \n"),
		Out:       &out,
	}
	result, err := Login(context.Background(), params)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Token != "pasted-token" || len(result.Saved) != 0 {
		t.Errorf("unexpected result: %+v", result)
	}
	if !strings.Contains(out.String(), server.URL+"/user/api-tokens/") {
		t.Errorf("expected the token page to be shown, got %q", out.String())
	}

	params.In = strings.NewReader("wrong-token\n")
	if _, err := Login(context.Background(), params); err == nil {
		t.Errorf("expected a rejected token to fail")
	}
}
