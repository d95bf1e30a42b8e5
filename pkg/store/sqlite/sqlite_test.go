package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Memory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testLayout(hash string, seed uint64) graph.Layout {
	return graph.Layout{
		Algorithm: graph.AlgorithmForce,
		Width:     1200,
		Height:    800,
		Seed:      seed,
		GraphHash: hash,
		Nodes: []graph.PositionedNode{
			{ID: "api", Label: "API", Group: "web", X: 100, Y: 200, Width: 140, Height: 70},
			{ID: "db", X: 500, Y: 300, Width: 140, Height: 70, Meta: map[string]any{"engine": "postgres"}},
		},
		Edges: []graph.Edge{{From: "api", To: "db"}},
	}
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := &store.SavedLayout{Name: "prod", Layout: testLayout("h1", 1<<63+7)}
	if err := s.Save(ctx, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("Save did not assign an id")
	}

	got, err := s.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "prod" || got.GraphHash != "h1" {
		t.Errorf("got name=%q hash=%q", got.Name, got.GraphHash)
	}
	if got.Layout.Seed != 1<<63+7 {
		t.Errorf("Seed = %d, want %d", got.Layout.Seed, uint64(1<<63+7))
	}
	if len(got.Layout.Nodes) != 2 || got.Layout.Nodes[1].Meta["engine"] != "postgres" {
		t.Errorf("nodes = %+v", got.Layout.Nodes)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestSaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l := &store.SavedLayout{Name: "v1", Layout: testLayout("h", 1)}
	if err := s.Save(ctx, l); err != nil {
		t.Fatal(err)
	}
	l.Name = "v2"
	if err := s.Save(ctx, l); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Name != "v2" {
		t.Errorf("List = %+v, want one layout named v2", all)
	}
}

func TestListOrderAndFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, hash := range []string{"a", "b", "a"} {
		l := &store.SavedLayout{
			Name:      hash,
			Layout:    testLayout(hash, uint64(i+1)),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.Save(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		hash  string
		seeds []uint64
	}{
		{"", []uint64{3, 2, 1}},
		{"a", []uint64{3, 1}},
		{"b", []uint64{2}},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run("hash="+tt.hash, func(t *testing.T) {
			got, err := s.List(ctx, tt.hash)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.seeds) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.seeds))
			}
			for i, l := range got {
				if l.Layout.Seed != tt.seeds[i] {
					t.Errorf("[%d] seed = %d, want %d", i, l.Layout.Seed, tt.seeds[i])
				}
			}
		})
	}
}

func TestGetDeleteMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := "6f1c2b9e-3d1a-4c55-9a8e-2f7b4a1d0c11"

	if _, err := s.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(ctx, "not-a-uuid"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Get(bad id) err = %v, want INVALID_INPUT", err)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	l := &store.SavedLayout{Layout: testLayout("h", 1)}
	if err := s.Save(ctx, l); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, l.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, l.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouts.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	l := &store.SavedLayout{Name: "kept", Layout: testLayout("h", 9)}
	if err := s.Save(ctx, l); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Get(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "kept" {
		t.Errorf("Name = %q", got.Name)
	}
}
