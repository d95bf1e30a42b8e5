package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sysmap/pkg/cache"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/layout"
	"github.com/matzehuels/sysmap/pkg/observability"
	"github.com/matzehuels/sysmap/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner holds no per-run state. Multiple goroutines can share one
// Runner with different options; every run works on its own copy of the
// graph inside the engine.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides cache.TTLLayout and cache.TTLArtifact when non-zero.
	TTL time.Duration
}

// NewRunner creates a runner. A nil keyer uses the default keyer, a nil
// cache disables caching and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs layout and render.
func (r *Runner) Execute(ctx context.Context, g graph.Graph, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{
		Graph:     g,
		GraphHash: g.Hash(),
	}
	result.Stats.NodeCount = len(g.Nodes)
	result.Stats.EdgeCount = len(g.Edges)

	// Stage 1: Layout
	layoutStart := time.Now()
	l, engine, hit, err := r.computeLayout(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.CacheInfo.LayoutHit = hit
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.SkippedEdges = engine.SkippedEdges
	result.Stats.CrossingsBefore = engine.CrossingsBefore
	result.Stats.CrossingsAfter = l.Crossings
	result.Stats.RefineMoves = engine.RefineMoves
	result.Stats.Seed = l.Seed

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = renderHit
	result.Stats.RenderTime = time.Since(renderStart)

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ComputeLayout lays out g, consulting the cache when the options are
// reproducible. The bool reports a cache hit.
func (r *Runner) ComputeLayout(ctx context.Context, g graph.Graph, opts Options) (graph.Layout, bool, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return graph.Layout{}, false, err
	}
	r.applyLogger(&opts)
	l, _, hit, err := r.computeLayout(ctx, g, opts)
	return l, hit, err
}

func (r *Runner) computeLayout(ctx context.Context, g graph.Graph, opts Options) (graph.Layout, layout.Stats, bool, error) {
	if err := ctx.Err(); err != nil {
		return graph.Layout{}, layout.Stats{}, false, err
	}
	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, opts.Algorithm, len(g.Nodes))
	start := time.Now()

	if dangling := g.DanglingEdges(); len(dangling) > 0 {
		opts.Logger.Warn("ignoring edges with unknown endpoints",
			"count", len(dangling),
			"first", dangling[0].From+" -> "+dangling[0].To)
	}

	var key string
	if opts.Cacheable() {
		key = r.Keyer.LayoutKey(g.Hash(), opts.LayoutKeyOpts())
		if l, ok := r.cachedLayout(ctx, key, opts); ok {
			hooks.OnLayoutComplete(ctx, observability.LayoutEvent{
				Algorithm:      opts.Algorithm,
				Nodes:          len(g.Nodes),
				Edges:          len(g.Edges),
				CrossingsAfter: l.Crossings,
				Duration:       time.Since(start),
				CacheHit:       true,
			})
			opts.Logger.Debug("layout cache hit", "algorithm", opts.Algorithm, "nodes", len(l.Nodes))
			return l, layout.Stats{Nodes: len(l.Nodes), CrossingsAfter: l.Crossings, Seed: l.Seed, Scale: l.Scale}, true, nil
		}
	}

	l, stats, err := GenerateLayout(g, opts)
	ev := observability.LayoutEvent{
		Algorithm:       opts.Algorithm,
		Nodes:           len(g.Nodes),
		Edges:           len(g.Edges),
		CrossingsBefore: stats.CrossingsBefore,
		CrossingsAfter:  stats.CrossingsAfter,
		Duration:        time.Since(start),
		Err:             err,
	}
	hooks.OnLayoutComplete(ctx, ev)
	if err != nil {
		return graph.Layout{}, layout.Stats{}, false, err
	}

	opts.Logger.Info("computed layout",
		"algorithm", opts.Algorithm,
		"nodes", stats.Nodes,
		"springs", stats.Springs,
		"crossings_before", stats.CrossingsBefore,
		"crossings_after", stats.CrossingsAfter,
		"seed", stats.Seed,
		"duration", ev.Duration)

	if key != "" {
		r.storeLayout(ctx, key, l, opts)
	}
	return l, stats, false, nil
}

func (r *Runner) cachedLayout(ctx context.Context, key string, opts Options) (graph.Layout, bool) {
	if opts.Refresh {
		return graph.Layout{}, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		opts.Logger.Warn("layout cache read failed", "error", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "layout")
		return graph.Layout{}, false
	}
	l, err := graph.UnmarshalLayout(data)
	if err != nil {
		// Corrupt entry: recompute and overwrite.
		observability.Cache().OnCacheMiss(ctx, "layout")
		return graph.Layout{}, false
	}
	observability.Cache().OnCacheHit(ctx, "layout")
	return l, true
}

func (r *Runner) storeLayout(ctx context.Context, key string, l graph.Layout, opts Options) {
	data, err := graph.MarshalLayout(l)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLLayout)); err != nil {
		opts.Logger.Warn("layout cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "layout", len(data))
}

// RenderWithCacheInfo renders the requested formats and reports whether
// every artifact came from the cache. JSON is never cached since it is
// the layout itself.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	hooks := observability.Layout()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	layoutData, err := graph.MarshalLayout(l)
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	cached := 0
	for _, format := range opts.Formats {
		if format == render.FormatJSON {
			artifacts[format] = layoutData
			continue
		}
		if !opts.Refresh {
			key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, "artifact")
				artifacts[format] = data
				cached++
				continue
			}
			observability.Cache().OnCacheMiss(ctx, "artifact")
		}
		missing = append(missing, format)
	}

	if len(missing) == 0 {
		hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
		return artifacts, cached > 0, nil
	}

	sub := opts
	sub.Formats = missing
	rendered, err := RenderFromLayout(ctx, l, sub)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLArtifact)); err == nil {
			observability.Cache().OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// Render is RenderWithCacheInfo without the cache hit info.
func (r *Runner) Render(ctx context.Context, l graph.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// applyLogger prefers the runner's logger over the discard default.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil || opts.Logger == discard {
		opts.Logger = r.Logger
	}
}
