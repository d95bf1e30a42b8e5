// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/store"
)

// Memory opens a private in-memory database.
const Memory = ":memory:"

// Store implements store.Store using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New opens (creating if needed) the database at path and applies the schema.
func New(path string) (*Store, error) {
	dsn := path
	if path != Memory {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "open database")
	}
	if path == Memory {
		// every connection to :memory: sees its own database
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "migrate database")
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS layouts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		graph_hash TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		node_count INTEGER NOT NULL,
		data JSON NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_layouts_graph ON layouts(graph_hash, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts or replaces a layout.
func (s *Store) Save(ctx context.Context, l *store.SavedLayout) error {
	if err := store.Prepare(l, s.now()); err != nil {
		return err
	}
	data, err := json.Marshal(l.Layout)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO layouts (id, name, graph_hash, algorithm, node_count, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			graph_hash = excluded.graph_hash,
			algorithm = excluded.algorithm,
			node_count = excluded.node_count,
			data = excluded.data
	`, l.ID, l.Name, l.GraphHash, l.Layout.Algorithm, len(l.Layout.Nodes), string(data), l.CreatedAt.UnixNano())
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "save layout %s", l.ID)
	}
	return nil
}

// Get returns the layout with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*store.SavedLayout, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, graph_hash, data, created_at FROM layouts WHERE id = ?`, id)
	l, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "get layout %s", id)
	}
	return l, nil
}

// List returns layouts newest first, optionally filtered by graph hash.
func (s *Store) List(ctx context.Context, graphHash string) ([]store.SavedLayout, error) {
	query := `SELECT id, name, graph_hash, data, created_at FROM layouts`
	var args []any
	if graphHash != "" {
		query += ` WHERE graph_hash = ?`
		args = append(args, graphHash)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "list layouts")
	}
	defer rows.Close()

	var out []store.SavedLayout
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeStorage, err, "list layouts")
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeStorage, err, "list layouts")
	}
	return out, nil
}

// Delete removes a layout. Deleting an unknown ID is an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := store.ValidateID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE id = ?`, id)
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "delete layout %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.ErrCodeStorage, err, "delete layout %s", id)
	}
	if n == 0 {
		return store.NotFound(id)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*store.SavedLayout, error) {
	var (
		l       store.SavedLayout
		data    string
		created int64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.GraphHash, &data, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &l.Layout); err != nil {
		return nil, fmt.Errorf("decode layout %s: %w", l.ID, err)
	}
	l.CreatedAt = time.Unix(0, created).UTC()
	return &l, nil
}
