// Package pipeline runs sysmap's graph → layout → artifacts pipeline.
//
// The CLI and the HTTP server both go through a [Runner], so validation,
// defaults, caching and logging behave the same on every entry point.
//
// # Stages
//
//  1. Layout: place the graph's nodes with the force-directed or circular
//     engine from pkg/layout
//  2. Render: turn the layout into JSON, DOT, SVG or PNG
//
// Each stage can run alone:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	l, hit, err := runner.ComputeLayout(ctx, g, opts)
//	artifacts, err := runner.Render(ctx, l, opts)
//
// or together with [Runner.Execute].
//
// # Caching
//
// Layouts are cached only when they are reproducible: circular layouts
// always, force layouts only when the caller fixed a seed. An unseeded
// force layout is different on every run and is never cached.
package pipeline

import (
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sysmap/pkg/cache"
	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/layout"
	"github.com/matzehuels/sysmap/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultAlgorithm is the default layout algorithm.
	DefaultAlgorithm = graph.AlgorithmForce

	// DefaultMaxNodes caps graph size. The force simulation is quadratic
	// in the node count per iteration.
	DefaultMaxNodes = 2000

	// DefaultWidth is the default canvas width.
	DefaultWidth = layout.DefaultWidth

	// DefaultHeight is the default canvas height.
	DefaultHeight = layout.DefaultHeight
)

// discard is the logger of options nobody configured.
var discard = log.NewWithOptions(io.Discard, log.Options{})

// DefaultFormats is used when no output format is requested.
var DefaultFormats = []string{render.FormatJSON}

// ValidAlgorithms is the set of supported layout algorithms.
var ValidAlgorithms = map[string]bool{
	graph.AlgorithmForce:    true,
	graph.AlgorithmCircular: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run. Zero engine
// coefficients take the engine defaults. This struct is the JSON body of
// API requests.
type Options struct {
	// Layout options
	Algorithm    string  `json:"algorithm,omitempty" toml:"algorithm"`
	Width        float64 `json:"width,omitempty" toml:"width"`
	Height       float64 `json:"height,omitempty" toml:"height"`
	Iterations   int     `json:"iterations,omitempty" toml:"iterations"`
	Temperature  float64 `json:"temperature,omitempty" toml:"temperature"`
	Cooling      float64 `json:"cooling,omitempty" toml:"cooling"`
	Repulsion    float64 `json:"repulsion,omitempty" toml:"repulsion"`
	Attraction   float64 `json:"attraction,omitempty" toml:"attraction"`
	Gravity      float64 `json:"gravity,omitempty" toml:"gravity"`
	RefinePasses int     `json:"refine_passes,omitempty" toml:"refine_passes"`
	Seed         uint64  `json:"seed,omitempty" toml:"seed"`
	MaxNodes     int     `json:"max_nodes,omitempty" toml:"max_nodes"`

	// Render options
	Formats    []string `json:"formats,omitempty" toml:"formats"`
	Detailed   bool     `json:"detailed,omitempty" toml:"detailed"`
	EdgeLabels bool     `json:"edge_labels,omitempty" toml:"edge_labels"`

	// Refresh bypasses cache reads. Results are still written.
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Graph     graph.Graph
	GraphHash string
	Layout    graph.Layout
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics. Engine counters are zero
// when the layout came from the cache.
type Stats struct {
	NodeCount       int
	EdgeCount       int
	SkippedEdges    int
	CrossingsBefore int
	CrossingsAfter  int
	RefineMoves     int
	Seed            uint64
	LayoutTime      time.Duration
	RenderTime      time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateAlgorithm checks that an algorithm name is supported.
func ValidateAlgorithm(algorithm string) error {
	if !ValidAlgorithms[algorithm] {
		return errs.New(errs.ErrCodeInvalidAlgorithm, "invalid algorithm: %q (must be one of: force, circular)", algorithm)
	}
	return nil
}

// ValidateFormat checks that an output format is supported.
func ValidateFormat(format string) error {
	if !slices.Contains(render.Formats, format) {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(render.Formats, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// SetLayoutDefaults fills the algorithm, canvas, node cap and logger.
// Engine coefficients stay zero and are defaulted by the engine.
func (o *Options) SetLayoutDefaults() {
	if o.Algorithm == "" {
		o.Algorithm = DefaultAlgorithm
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = discard
	}
}

// ValidateForLayout sets layout defaults and rejects out-of-range values.
func (o *Options) ValidateForLayout() error {
	o.SetLayoutDefaults()
	if err := ValidateAlgorithm(o.Algorithm); err != nil {
		return err
	}
	for _, v := range []float64{o.Width, o.Height, o.Temperature, o.Cooling, o.Repulsion, o.Attraction, o.Gravity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.New(errs.ErrCodeInvalidInput, "layout options must be finite numbers")
		}
	}
	if o.Width < 0 || o.Height < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "canvas size must be positive, got %gx%g", o.Width, o.Height)
	}
	if o.Iterations < 0 || o.RefinePasses < 0 || o.MaxNodes < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "iterations, refine passes and max nodes must not be negative")
	}
	if o.Cooling < 0 || o.Cooling >= 1 {
		return errs.New(errs.ErrCodeInvalidInput, "cooling must be in (0, 1), got %g", o.Cooling)
	}
	if o.Temperature < 0 || o.Repulsion < 0 || o.Attraction < 0 || o.Gravity < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "force coefficients must not be negative")
	}
	return nil
}

// SetRenderDefaults fills the output formats and logger.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = slices.Clone(DefaultFormats)
	}
	if o.Logger == nil {
		o.Logger = discard
	}
}

// ValidateForRender sets render defaults and checks the formats.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// ValidateAndSetDefaults prepares options for a full run.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

// Cacheable reports whether the layout these options produce is
// reproducible.
func (o *Options) Cacheable() bool {
	return o.Algorithm == graph.AlgorithmCircular || o.Seed != 0
}

// EngineOptions converts to force engine options.
func (o *Options) EngineOptions() layout.Options {
	return layout.Options{
		Width:              o.Width,
		Height:             o.Height,
		Iterations:         o.Iterations,
		Temperature:        o.Temperature,
		CoolingFactor:      o.Cooling,
		RepulsionStrength:  o.Repulsion,
		AttractionStrength: o.Attraction,
		CenterGravity:      o.Gravity,
		RefinePasses:       o.RefinePasses,
		Seed:               o.Seed,
	}
}

// RenderOptions converts to render options.
func (o *Options) RenderOptions() render.Options {
	return render.Options{Detailed: o.Detailed, EdgeLabels: o.EdgeLabels}
}

// LayoutKeyOpts returns cache key options for layout computation.
// Circular layouts ignore the force coefficients, so they are left out.
func (o *Options) LayoutKeyOpts() cache.LayoutKeyOpts {
	k := cache.LayoutKeyOpts{
		Algorithm: o.Algorithm,
		Width:     o.Width,
		Height:    o.Height,
	}
	if o.Algorithm == graph.AlgorithmCircular {
		return k
	}
	k.Iterations = o.Iterations
	k.Temperature = o.Temperature
	k.Cooling = o.Cooling
	k.Repulsion = o.Repulsion
	k.Attraction = o.Attraction
	k.Gravity = o.Gravity
	k.RefinePasses = o.RefinePasses
	k.Seed = o.Seed
	return k
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:     format,
		Detailed:   o.Detailed,
		EdgeLabels: o.EdgeLabels,
	}
}
