package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenCHAMI/patchbay/internal/cache"
	"github.com/google/uuid"
)

func newRun(t *testing.T, id string, command string, started time.Time) cache.Run {
	t.Helper()
	run := cache.NewRun(command, "https://netbox.example.com", false)
	run.ID = uuid.MustParse(id)
	run.StartedAt = started
	run.FinishedAt = started.Add(2 * time.Second)
	run.OK = true
	run.Summary = command + " done"
	run.Report = "report for " + command
	return run
}

func TestRunCache(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "patchbay.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer c.Close()

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	runs := []cache.Run{
		newRun(t, "aaaa1111-0000-4000-8000-000000000001", "link", base),
		newRun(t, "aaaa2222-0000-4000-8000-000000000002", "modules install", base.Add(time.Minute)),
		newRun(t, "bbbb3333-0000-4000-8000-000000000003", "sync", base.Add(2*time.Minute)),
	}
	if err := c.Insert(ctx, runs...); err != nil {
		t.Fatalf("failed to insert runs: %v", err)
	}

	list, err := c.List(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(list) != 3 || list[0].Command != "sync" || list[2].Command != "link" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list, _ = c.List(ctx, 1); len(list) != 1 {
		t.Errorf("expected the limit to apply, got %d runs", len(list))
	}

	run, err := c.Get(ctx, "bbbb")
	if err != nil {
		t.Fatalf("failed to get run by prefix: %v", err)
	}
	if run.ID != runs[2].ID || run.Report != "report for sync" || !run.OK || run.Duration() != 2*time.Second {
		t.Errorf("unexpected run: %+v", run)
	}

	if _, err := c.Get(ctx, "aaaa"); !errors.Is(err, cache.ErrAmbiguous) {
		t.Errorf("expected an ambiguous prefix, got %v", err)
	}
	if _, err := c.Get(ctx, "cccc"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := c.Get(ctx, "%"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected wildcards to be literal, got %v", err)
	}

	if err := c.Delete(ctx, "aaaa1", runs[2].ID.String()); err != nil {
		t.Fatalf("failed to delete runs: %v", err)
	}
	list, _ = c.List(ctx, 0)
	if len(list) != 1 || list[0].ID != runs[1].ID {
		t.Errorf("unexpected runs after delete: %+v", list)
	}
	if err := c.Delete(ctx, "ffff"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected deleting an unknown run to fail, got %v", err)
	}
}

func TestInsertReplaces(t *testing.T) {
	ctx := context.Background()
	c, err := Open(filepath.Join(t.TempDir(), "patchbay.db"))
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	defer c.Close()

	run := newRun(t, "aaaa1111-0000-4000-8000-000000000001", "link", time.Now().UTC())
	if err := c.Insert(ctx, run); err != nil {
		t.Fatalf("failed to insert run: %v", err)
	}
	run.OK = false
	run.Summary = "failed"
	if err := c.Insert(ctx, run); err != nil {
		t.Fatalf("failed to replace run: %v", err)
	}
	got, err := c.Get(ctx, run.ID.String())
	if err != nil || got.OK || got.Summary != "failed" {
		t.Errorf("expected the replaced run, got %+v (%v)", got, err)
	}
}
