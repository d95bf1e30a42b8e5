// Package store persists named layouts so a map that looks right can be
// kept and reopened later.
//
// Two backends implement [Store]: store/sqlite for a single machine and
// store/mongo for servers sharing one database. Both key layouts by a
// random UUID and index them by the hash of the graph they were computed
// from, so every saved variant of one graph can be listed together.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
)

// ErrNotFound is wrapped by every lookup of an unknown layout ID.
var ErrNotFound = errs.New(errs.ErrCodeLayoutNotFound, "layout not found")

// SavedLayout is a layout stored under a name.
type SavedLayout struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	GraphHash string       `json:"graph_hash"`
	Layout    graph.Layout `json:"layout"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store persists saved layouts. Implementations are safe for concurrent use.
type Store interface {
	// Save assigns an ID and creation time when unset, then inserts or
	// replaces the layout.
	Save(ctx context.Context, l *SavedLayout) error
	Get(ctx context.Context, id string) (*SavedLayout, error)
	// List returns layouts newest first. An empty graphHash lists all.
	List(ctx context.Context, graphHash string) ([]SavedLayout, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Prepare fills defaults on l and validates it. Backends call it at the
// start of Save.
func Prepare(l *SavedLayout, now time.Time) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	} else if err := ValidateID(l.ID); err != nil {
		return err
	}
	if l.GraphHash == "" {
		l.GraphHash = l.Layout.GraphHash
	}
	if l.Name == "" {
		l.Name = l.ID
	}
	if err := errs.ValidateLayoutName(l.Name); err != nil {
		return err
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now.UTC()
	}
	return l.Layout.Validate()
}

// ValidateID rejects IDs that are not UUIDs.
func ValidateID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid layout id %q", id)
	}
	return nil
}

// NotFound returns ErrNotFound annotated with id.
func NotFound(id string) error {
	return errs.Wrap(errs.ErrCodeLayoutNotFound, ErrNotFound, "layout %s", id)
}
