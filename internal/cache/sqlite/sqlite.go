package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenCHAMI/patchbay/internal/cache"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const TABLE_NAME = "patchbay_runs"

var schema = fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id 		TEXT PRIMARY KEY,
	command 	TEXT NOT NULL,
	netbox 		TEXT NOT NULL,
	commit_changes 	BOOLEAN NOT NULL,
	ok 		BOOLEAN NOT NULL,
	summary 	TEXT,
	report 		TEXT,
	started_at 	TIMESTAMP NOT NULL,
	finished_at 	TIMESTAMP
);
CREATE INDEX IF NOT EXISTS %s_started_at ON %s (started_at);
`, TABLE_NAME, TABLE_NAME, TABLE_NAME)

// RunCache stores runs in a sqlite database.
type RunCache struct {
	db *sqlx.DB
}

var _ cache.Cache[cache.Run] = (*RunCache)(nil)

// Open() opens the database at path, creating the file and table when
// missing.
func Open(path string) (*RunCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create %s: %w", TABLE_NAME, err)
	}
	return &RunCache{db: db}, nil
}

func (c *RunCache) Insert(ctx context.Context, runs ...cache.Run) error {
	if len(runs) == 0 {
		return nil
	}
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	query := fmt.Sprintf(`INSERT OR REPLACE INTO %s
		(id, command, netbox, commit_changes, ok, summary, report, started_at, finished_at)
		VALUES (:id, :command, :netbox, :commit_changes, :ok, :summary, :report, :started_at, :finished_at);`, TABLE_NAME)
	for _, run := range runs {
		if _, err := tx.NamedExecContext(ctx, query, &run); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *RunCache) Get(ctx context.Context, id string) (cache.Run, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return cache.Run{}, fmt.Errorf("empty run id")
	}
	runs := []cache.Run{}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE id LIKE ? ESCAPE '\' LIMIT 2;`, TABLE_NAME)
	if err := c.db.SelectContext(ctx, &runs, query, escapeLike(id)+"%"); err != nil {
		return cache.Run{}, fmt.Errorf("failed to look up run %s: %w", id, err)
	}
	switch len(runs) {
	case 0:
		return cache.Run{}, fmt.Errorf("%s: %w", id, cache.ErrNotFound)
	case 1:
		return runs[0], nil
	}
	return cache.Run{}, fmt.Errorf("%s: %w", id, cache.ErrAmbiguous)
}

func (c *RunCache) List(ctx context.Context, limit int) ([]cache.Run, error) {
	runs := []cache.Run{}
	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY started_at DESC`, TABLE_NAME)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	if err := c.db.SelectContext(ctx, &runs, query+";", args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Delete() removes runs by full ID or unique prefix. Every ID must match.
func (c *RunCache) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		run, err := c.Get(ctx, id)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, TABLE_NAME)
		if _, err := c.db.ExecContext(ctx, query, run.ID.String()); err != nil {
			return fmt.Errorf("failed to delete run %s: %w", run.ID, err)
		}
	}
	return nil
}

func (c *RunCache) Close() error {
	return c.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
