// Package cache records finished patchbay runs so they can be listed and
// their reports shown again later.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

type Cache[T any] interface {
	Insert(ctx context.Context, data ...T) error
	// Get() accepts a full ID or a unique prefix of one.
	Get(ctx context.Context, id string) (T, error)
	// List() returns the newest entries first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]T, error)
	Delete(ctx context.Context, ids ...string) error
	Close() error
}

// Run is one invocation of a workflow command.
type Run struct {
	ID         uuid.UUID `db:"id" json:"id" yaml:"id"`
	Command    string    `db:"command" json:"command" yaml:"command"`
	NetBox     string    `db:"netbox" json:"netbox" yaml:"netbox"`
	Commit     bool      `db:"commit_changes" json:"commit" yaml:"commit"`
	OK         bool      `db:"ok" json:"ok" yaml:"ok"`
	Summary    string    `db:"summary" json:"summary" yaml:"summary"`
	Report     string    `db:"report" json:"report" yaml:"report"`
	StartedAt  time.Time `db:"started_at" json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at" yaml:"finished_at"`
}

// NewRun() starts a run record with a fresh random ID.
func NewRun(command string, netbox string, commit bool) Run {
	return Run{
		ID:        uuid.New(),
		Command:   command,
		NetBox:    netbox,
		Commit:    commit,
		StartedAt: time.Now().UTC(),
	}
}

func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ShortID() is the first block of the UUID, enough to select a run.
func (r Run) ShortID() string {
	return r.ID.String()[:8]
}
