// Package cache stores computed layouts and rendered artifacts so that
// repeated runs over an unchanged graph skip the simulation.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for servers sharing one cache, and [NullCache] when caching is off.
// Keys come from a [Keyer]; [ScopedKeyer] namespaces them.
//
// Only reproducible results belong in the cache. The pipeline stores a
// layout only when its seed was fixed by the caller.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A zero ttl means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Keyer derives cache keys.
type Keyer interface {
	LayoutKey(graphHash string, opts LayoutKeyOpts) string
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts lists every input besides the graph that changes a layout.
type LayoutKeyOpts struct {
	Algorithm    string  `json:"algorithm"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Iterations   int     `json:"iterations,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	Cooling      float64 `json:"cooling,omitempty"`
	Repulsion    float64 `json:"repulsion,omitempty"`
	Attraction   float64 `json:"attraction,omitempty"`
	Gravity      float64 `json:"gravity,omitempty"`
	RefinePasses int     `json:"refine_passes,omitempty"`
	Seed         uint64  `json:"seed,omitempty"`
}

// ArtifactKeyOpts lists the render inputs besides the layout.
type ArtifactKeyOpts struct {
	Format     string `json:"format"`
	Detailed   bool   `json:"detailed,omitempty"`
	EdgeLabels bool   `json:"edge_labels,omitempty"`
}

// DefaultKeyer produces "layout:<sha256>" and "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey hashes the graph hash together with the layout options.
func (DefaultKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", graphHash, opts)
}

// ArtifactKey hashes the layout hash together with the render options.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
