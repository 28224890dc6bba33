package journal

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
)

func TestJournalRecordsEntriesInOrder(t *testing.T) {
	j := New()
	j.Debug("sw1", "comparing")
	j.Info("sw1", "syncing interfaces")
	j.Warning("sw1", "no rear port templates found")
	j.Error("sw1", "failed to create interface: eth0", Details{"error": "boom"})
	j.Success("", "created cable")
	j.Failure("", "sw1 has no rear ports")

	entries := j.Entries()
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	labels := []string{"DEBUG", "INFO", "WARNING", "ERROR", "SUCCESS", "FAILURE"}
	for i, label := range labels {
		if entries[i].Label != label {
			t.Errorf("entry %d: expected label %s, got %s", i, label, entries[i].Label)
		}
	}
	if entries[3].Details["error"] != "boom" {
		t.Errorf("expected error detail to be kept, got %v", entries[3].Details)
	}
	if entries[0].Device != "sw1" {
		t.Errorf("expected device sw1, got '%s'", entries[0].Device)
	}
}

func TestEntriesAreMirroredToLog(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	t.Cleanup(func() { log.Logger = saved })

	New().Warning("sw1", "no rear port templates found")

	line := strings.TrimSpace(buf.String())
	if strings.Count(line, `"level":`) != 1 {
		t.Errorf("expected a single level key, got %s", line)
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		t.Fatalf("failed to decode log line %q: %v", line, err)
	}
	if fields["level"] != "debug" || fields["journal_level"] != "WARNING" || fields["device"] != "sw1" {
		t.Errorf("unexpected log fields: %v", fields)
	}
}

func TestFilterKeepsMoreSevereEntries(t *testing.T) {
	j := New()
	j.Debug("d", "debug")
	j.Info("d", "info")
	j.Success("d", "success")
	j.Warning("d", "warning")
	j.Error("d", "error")

	tests := []struct {
		level string
		want  int
	}{
		{"DEBUG", 5},
		{"INFO", 4},
		{"WARNING", 2},
		{"error", 1},
	}
	for _, tt := range tests {
		level, err := ParseLevel(tt.level)
		if err != nil {
			t.Fatalf("failed to parse level %s: %v", tt.level, err)
		}
		if got := len(j.Filter(level)); got != tt.want {
			t.Errorf("level %s: expected %d entries, got %d", tt.level, tt.want, got)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Errorf("expected an error for an unknown level")
	}
}

func TestAppendKeepsTimestamps(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	j := New()
	j.Append(Entry{Time: stamp, Level: logrus.InfoLevel, Label: "INFO", Device: "pp1", Message: "merged"})
	j.Info("pp2", "own")

	entries := j.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Time.Equal(stamp) || entries[0].Device != "pp1" {
		t.Errorf("expected appended entry first, got %+v", entries[0])
	}
	if j.Count(logrus.InfoLevel) != 2 {
		t.Errorf("expected 2 info entries, got %d", j.Count(logrus.InfoLevel))
	}
}

func TestWriteDetailed(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	entries := []Entry{
		{
			Time:    stamp,
			Level:   logrus.InfoLevel,
			Label:   "INFO",
			Device:  "sw1",
			Message: "Updated interface: eth0",
			Details: Details{
				"type":      Change{Old: "1000base-t", New: "10gbase-t"},
				"mgmt_only": Change{Old: false, New: true},
			},
		},
		{Time: stamp, Level: logrus.InfoLevel, Label: "INFO", Message: "started"},
	}

	var buf bytes.Buffer
	WriteDetailed(&buf, entries)
	out := buf.String()

	want := []string{
		"ℹ️ [2024-05-01 12:30:00] [INFO] sw1\n   Updated interface: eth0\n",
		"     mgmt_only:\n       old: False\n       new: True\n     type:\n       old: 1000base-t\n       new: 10gbase-t\n",
		"[INFO] N/A\n   started\n",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("expected output to contain %q, got:\n%s", w, out)
		}
	}
}

func TestValue(t *testing.T) {
	tests := map[string]any{
		"None":  nil,
		"True":  true,
		"42":    42,
		"front": "front",
	}
	for want, v := range tests {
		if got := Value(v); got != want {
			t.Errorf("Value(%v): expected %s, got %s", v, want, got)
		}
	}
	if got := Value(""); got != "None" {
		t.Errorf("expected empty string to render as None, got %s", got)
	}
}
