package pipeline

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sysmap/pkg/cache"
	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/layout"
	"github.com/matzehuels/sysmap/pkg/observability"
)

// memCache is an in-memory Cache that counts writes.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	ttls []time.Duration
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	c.ttls = append(c.ttls, ttl)
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func ring(n int) graph.Graph {
	var g graph.Graph
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}[:n]
	for _, id := range ids {
		g.Nodes = append(g.Nodes, graph.Node{ID: id})
	}
	for i := range ids {
		g.Edges = append(g.Edges, graph.Edge{From: ids[i], To: ids[(i+1)%n]})
	}
	return g
}

func quietRunner(c cache.Cache) *Runner {
	var buf bytes.Buffer
	return NewRunner(c, nil, log.New(&buf))
}

func TestExecuteForce(t *testing.T) {
	r := quietRunner(nil)
	g := ring(6)

	res, err := r.Execute(context.Background(), g, Options{Seed: 11})
	if err != nil {
		t.Fatal(err)
	}
	if res.GraphHash != g.Hash() {
		t.Error("GraphHash mismatch")
	}
	if res.Stats.NodeCount != 6 || res.Stats.EdgeCount != 6 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if res.Stats.CrossingsAfter > res.Stats.CrossingsBefore {
		t.Errorf("refinement increased crossings: %d -> %d", res.Stats.CrossingsBefore, res.Stats.CrossingsAfter)
	}
	if res.Stats.Seed != 11 || res.Layout.Seed != 11 {
		t.Errorf("seed = %d / %d, want 11", res.Stats.Seed, res.Layout.Seed)
	}
	data, ok := res.Artifacts["json"]
	if !ok {
		t.Fatalf("artifacts = %v, want json", res.Artifacts)
	}
	back, err := graph.UnmarshalLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Nodes) != 6 {
		t.Errorf("json artifact has %d nodes", len(back.Nodes))
	}
	for _, n := range res.Layout.Nodes {
		if n.X < 0 || n.X > DefaultWidth || n.Y < 0 || n.Y > DefaultHeight {
			t.Errorf("node %s outside canvas: %g,%g", n.ID, n.X, n.Y)
		}
	}
}

func TestComputeLayoutCaching(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := quietRunner(c)
	g := ring(5)

	first, hit, err := r.ComputeLayout(ctx, g, Options{Seed: 42})
	if err != nil || hit {
		t.Fatalf("first run: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.ComputeLayout(ctx, g, Options{Seed: 42})
	if err != nil || !hit {
		t.Fatalf("second run: hit=%v err=%v", hit, err)
	}
	for i := range first.Nodes {
		if first.Nodes[i].X != second.Nodes[i].X || first.Nodes[i].Y != second.Nodes[i].Y {
			t.Fatalf("cached node %d differs", i)
		}
	}

	if _, hit, _ := r.ComputeLayout(ctx, g, Options{Seed: 42, Refresh: true}); hit {
		t.Error("Refresh must bypass the cache")
	}
	if _, hit, _ := r.ComputeLayout(ctx, g, Options{Seed: 43}); hit {
		t.Error("a different seed must miss")
	}
}

func TestComputeLayoutUnseededNotCached(t *testing.T) {
	c := newMemCache()
	r := quietRunner(c)

	for range 2 {
		if _, hit, err := r.ComputeLayout(context.Background(), ring(4), Options{}); err != nil || hit {
			t.Fatalf("hit=%v err=%v", hit, err)
		}
	}
	if c.sets != 0 {
		t.Errorf("unseeded layouts written to cache %d times", c.sets)
	}
}

func TestComputeLayoutCircular(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := quietRunner(c)

	l, hit, err := r.ComputeLayout(ctx, ring(4), Options{Algorithm: "circular", Width: 800, Height: 800})
	if err != nil || hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if l.Algorithm != "circular" || l.Crossings != 0 {
		t.Errorf("layout = %s with %d crossings", l.Algorithm, l.Crossings)
	}
	if n := l.Nodes[0]; n.X != 680 || n.Y != 400 {
		t.Errorf("first node at %g,%g, want 680,400", n.X, n.Y)
	}
	if _, hit, _ := r.ComputeLayout(ctx, ring(4), Options{Algorithm: "circular", Width: 800, Height: 800}); !hit {
		t.Error("circular layouts are deterministic and should be cached")
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	r := quietRunner(nil)
	ctx := context.Background()

	_, _, err := r.ComputeLayout(ctx, ring(5), Options{MaxNodes: 3})
	if !errs.Is(err, errs.ErrCodeGraphTooLarge) {
		t.Errorf("err = %v, want GRAPH_TOO_LARGE", err)
	}

	_, _, err = r.ComputeLayout(ctx, ring(3), Options{Algorithm: "spring"})
	if !errs.Is(err, errs.ErrCodeInvalidAlgorithm) {
		t.Errorf("err = %v, want INVALID_ALGORITHM", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := r.ComputeLayout(cancelled, ring(3), Options{}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestComputeLayoutDanglingEdges(t *testing.T) {
	g := ring(3)
	g.Edges = append(g.Edges, graph.Edge{From: "a", To: "ghost"})

	var buf bytes.Buffer
	r := NewRunner(nil, nil, log.New(&buf))
	l, _, err := r.ComputeLayout(context.Background(), g, Options{Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Nodes) != 3 {
		t.Errorf("nodes = %d, want 3", len(l.Nodes))
	}
	if !bytes.Contains(buf.Bytes(), []byte("unknown endpoints")) {
		t.Errorf("expected a warning about dangling edges, log: %s", buf.String())
	}
}

func TestRenderCachesArtifacts(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := quietRunner(c)
	l, _, err := r.ComputeLayout(ctx, ring(3), Options{Algorithm: "circular"})
	if err != nil {
		t.Fatal(err)
	}

	opts := Options{Formats: []string{"dot", "json"}}
	arts, hit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	if !bytes.HasPrefix(arts["dot"], []byte("digraph")) {
		t.Errorf("dot artifact = %.40s", arts["dot"])
	}
	_, hit, err = r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil || !hit {
		t.Errorf("second render: hit=%v err=%v", hit, err)
	}

	if _, err := r.Render(ctx, l, Options{Formats: []string{"pdf"}}); !errs.Is(err, errs.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

type recordingHooks struct {
	observability.NoopLayoutHooks
	mu     sync.Mutex
	events []observability.LayoutEvent
}

func (h *recordingHooks) OnLayoutComplete(_ context.Context, ev observability.LayoutEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func TestLayoutHooks(t *testing.T) {
	h := &recordingHooks{}
	observability.SetLayoutHooks(h)
	t.Cleanup(observability.Reset)

	r := quietRunner(newMemCache())
	ctx := context.Background()
	for range 2 {
		if _, _, err := r.ComputeLayout(ctx, ring(4), Options{Seed: 5}); err != nil {
			t.Fatal(err)
		}
	}

	if len(h.events) != 2 {
		t.Fatalf("events = %d, want 2", len(h.events))
	}
	if h.events[0].CacheHit || !h.events[1].CacheHit {
		t.Errorf("cache hits = %v, %v; want false, true", h.events[0].CacheHit, h.events[1].CacheHit)
	}
	if h.events[0].Nodes != 4 || h.events[0].Algorithm != "force" {
		t.Errorf("event = %+v", h.events[0])
	}
}

func TestGenerateLayoutMatchesEngine(t *testing.T) {
	g := ring(6)
	opts := Options{Seed: 99}
	if err := opts.ValidateForLayout(); err != nil {
		t.Fatal(err)
	}
	l, stats, err := GenerateLayout(g, opts)
	if err != nil {
		t.Fatal(err)
	}
	direct := layout.ForceDirected(g.LayoutNodes(), g.LayoutEdges(), layout.WithSeed(99))
	for i := range direct {
		if direct[i].X != l.Nodes[i].X || direct[i].Y != l.Nodes[i].Y {
			t.Fatalf("node %d: pipeline %g,%g engine %g,%g", i, l.Nodes[i].X, l.Nodes[i].Y, direct[i].X, direct[i].Y)
		}
	}
	if stats.CrossingsAfter != l.Crossings {
		t.Errorf("stats crossings %d != layout crossings %d", stats.CrossingsAfter, l.Crossings)
	}
}

func TestRunnerTTL(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want []time.Duration
	}{
		{"defaults", 0, []time.Duration{cache.TTLLayout, cache.TTLArtifact}},
		{"override", time.Hour, []time.Duration{time.Hour, time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMemCache()
			r := quietRunner(c)
			r.TTL = tt.ttl

			opts := Options{Algorithm: graph.AlgorithmCircular, Formats: []string{"dot"}}
			if _, err := r.Execute(context.Background(), ring(4), opts); err != nil {
				t.Fatal(err)
			}
			if len(c.ttls) != len(tt.want) {
				t.Fatalf("ttls = %v, want %v", c.ttls, tt.want)
			}
			for i := range tt.want {
				if c.ttls[i] != tt.want[i] {
					t.Errorf("ttls[%d] = %v, want %v", i, c.ttls[i], tt.want[i])
				}
			}
		})
	}
}
