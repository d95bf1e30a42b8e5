package layout

// Defaults for [Options]. They are part of the public contract: a zero
// Options value behaves exactly as if every field were set to these.
const (
	DefaultWidth              = 1200.0
	DefaultHeight             = 800.0
	DefaultIterations         = 1000
	DefaultTemperature        = 500.0
	DefaultCoolingFactor      = 0.98
	DefaultRepulsionStrength  = 100000.0
	DefaultAttractionStrength = 0.0005
	DefaultCenterGravity      = 0.005
	DefaultRefinePasses       = 100
)

// Fixed geometry.
const (
	NodeWidth  = 140.0 // box width assigned to every output node
	NodeHeight = 70.0  // box height assigned to every output node

	// Margin is the border kept free during placement and simulation.
	Margin = 80.0
	// ViewportPadding is the border kept free by normalization.
	ViewportPadding = 120.0
	// MaxScale caps how far normalization may magnify a sparse drawing.
	MaxScale = 1.2

	// CircleRadiusFactor sizes the circular layout relative to min(width, height).
	CircleRadiusFactor = 0.35
)

// Options configures a force-directed run. Fields left at zero (or negative)
// take the matching Default* constant, so callers only set what they change.
//
// CoolingFactor values outside (0, 1) are replaced by the default: a factor of
// 1 or more would never anneal.
type Options struct {
	Width              float64
	Height             float64
	Iterations         int
	Temperature        float64
	CoolingFactor      float64
	RepulsionStrength  float64
	AttractionStrength float64
	CenterGravity      float64
	RefinePasses       int

	// Seed makes placement reproducible. Zero draws a random seed per call.
	Seed uint64
}

// Option mutates Options. See [NewOptions].
type Option func(*Options)

// NewOptions applies opts over a zero Options and fills every unset field
// with its default.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o.withDefaults()
}

// WithSize sets the canvas (and target viewport) dimensions.
func WithSize(width, height float64) Option {
	return func(o *Options) { o.Width, o.Height = width, height }
}

// WithIterations sets the number of simulation steps.
func WithIterations(n int) Option { return func(o *Options) { o.Iterations = n } }

// WithTemperature sets the initial maximum step per iteration.
func WithTemperature(t float64) Option { return func(o *Options) { o.Temperature = t } }

// WithCooling sets the per-iteration temperature multiplier.
func WithCooling(f float64) Option { return func(o *Options) { o.CoolingFactor = f } }

// WithRepulsion sets the pairwise repulsion coefficient.
func WithRepulsion(k float64) Option { return func(o *Options) { o.RepulsionStrength = k } }

// WithAttraction sets the edge spring coefficient.
func WithAttraction(k float64) Option { return func(o *Options) { o.AttractionStrength = k } }

// WithGravity sets the centre-gravity coefficient.
func WithGravity(k float64) Option { return func(o *Options) { o.CenterGravity = k } }

// WithRefinePasses caps the crossing refiner's outer passes.
func WithRefinePasses(n int) Option { return func(o *Options) { o.RefinePasses = n } }

// WithSeed fixes the placement RNG seed.
func WithSeed(seed uint64) Option { return func(o *Options) { o.Seed = seed } }

// withDefaults returns a copy of o with unset fields defaulted.
func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}
	if o.Temperature <= 0 {
		o.Temperature = DefaultTemperature
	}
	if o.CoolingFactor <= 0 || o.CoolingFactor >= 1 {
		o.CoolingFactor = DefaultCoolingFactor
	}
	if o.RepulsionStrength <= 0 {
		o.RepulsionStrength = DefaultRepulsionStrength
	}
	if o.AttractionStrength <= 0 {
		o.AttractionStrength = DefaultAttractionStrength
	}
	if o.CenterGravity <= 0 {
		o.CenterGravity = DefaultCenterGravity
	}
	if o.RefinePasses <= 0 {
		o.RefinePasses = DefaultRefinePasses
	}
	return o
}
