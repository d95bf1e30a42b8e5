// Package config loads sysmap's optional TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/sysmap/config.toml (or
// ~/.config/sysmap/config.toml) unless --config names another path. Every
// key is optional; missing keys keep the defaults from [Default]. Command
// line flags override file values.
//
//	[layout]
//	algorithm = "force"
//	iterations = 500
//	seed = 42
//
//	[render]
//	formats = ["json", "svg"]
//
//	[cache]
//	backend = "redis"
//	ttl = "24h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[store]
//	backend = "sqlite"
//
//	[server]
//	addr = ":8080"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/pipeline"
)

// AppName names the XDG subdirectories.
const AppName = "sysmap"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

// DefaultServerAddr is the listen address of `sysmap serve`.
const DefaultServerAddr = ":8080"

// =============================================================================
// Types
// =============================================================================

// Config is the decoded configuration file.
type Config struct {
	Layout LayoutConfig `toml:"layout"`
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// LayoutConfig mirrors the layout half of pipeline.Options.
type LayoutConfig struct {
	Algorithm    string  `toml:"algorithm"`
	Width        float64 `toml:"width"`
	Height       float64 `toml:"height"`
	Iterations   int     `toml:"iterations"`
	Temperature  float64 `toml:"temperature"`
	Cooling      float64 `toml:"cooling"`
	Repulsion    float64 `toml:"repulsion"`
	Attraction   float64 `toml:"attraction"`
	Gravity      float64 `toml:"gravity"`
	RefinePasses int     `toml:"refine_passes"`
	Seed         uint64  `toml:"seed"`
	MaxNodes     int     `toml:"max_nodes"`
}

// RenderConfig mirrors the render half of pipeline.Options.
type RenderConfig struct {
	Formats    []string `toml:"formats"`
	Detailed   bool     `toml:"detailed"`
	EdgeLabels bool     `toml:"edge_labels"`
}

// CacheConfig selects and configures the layout cache.
type CacheConfig struct {
	Backend string      `toml:"backend"`
	Dir     string      `toml:"dir"`
	TTL     Duration    `toml:"ttl"`
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig configures the redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// StoreConfig selects and configures the saved-layout store.
type StoreConfig struct {
	Backend string      `toml:"backend"`
	Path    string      `toml:"path"` // sqlite database file
	Mongo   MongoConfig `toml:"mongo"`
}

// MongoConfig configures the mongo store backend.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerConfig configures `sysmap serve`.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// Duration is a time.Duration written as a string ("90s", "24h").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Layout: LayoutConfig{
			Algorithm: pipeline.DefaultAlgorithm,
			Width:     pipeline.DefaultWidth,
			Height:    pipeline.DefaultHeight,
			MaxNodes:  pipeline.DefaultMaxNodes,
		},
		Render: RenderConfig{Formats: []string{"json"}},
		Cache:  CacheConfig{Backend: CacheFile},
		Store:  StoreConfig{Backend: StoreSQLite},
		Server: ServerConfig{
			Addr:            DefaultServerAddr,
			ShutdownTimeout: Duration{10 * time.Second},
		},
	}
}

// Load reads the configuration at path on top of [Default]. An empty path
// reads the default location, where a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if explicit {
				return cfg, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
			}
			return Default(), nil
		}
		return cfg, errs.Wrap(errs.ErrCodeInvalidFormat, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errs.New(errs.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks backend names and the layout options.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return errs.New(errs.ErrCodeInvalidInput, "cache.redis.addr is required for the redis backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis or none)", c.Cache.Backend)
	}

	switch c.Store.Backend {
	case StoreSQLite:
	case StoreMongo:
		if c.Store.Mongo.URI == "" {
			return errs.New(errs.ErrCodeInvalidInput, "store.mongo.uri is required for the mongo backend")
		}
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown store backend %q (want sqlite or mongo)", c.Store.Backend)
	}

	opts := c.PipelineOptions()
	if err := opts.ValidateForLayout(); err != nil {
		return err
	}
	return opts.ValidateForRender()
}

// PipelineOptions converts the [layout] and [render] sections.
func (c Config) PipelineOptions() pipeline.Options {
	l := c.Layout
	return pipeline.Options{
		Algorithm:    l.Algorithm,
		Width:        l.Width,
		Height:       l.Height,
		Iterations:   l.Iterations,
		Temperature:  l.Temperature,
		Cooling:      l.Cooling,
		Repulsion:    l.Repulsion,
		Attraction:   l.Attraction,
		Gravity:      l.Gravity,
		RefinePasses: l.RefinePasses,
		Seed:         l.Seed,
		MaxNodes:     l.MaxNodes,
		Formats:      append([]string(nil), c.Render.Formats...),
		Detailed:     c.Render.Detailed,
		EdgeLabels:   c.Render.EdgeLabels,
	}
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns $XDG_CONFIG_HOME/sysmap/config.toml.
func DefaultPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the file cache directory ($XDG_CACHE_HOME/sysmap).
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// DataDir returns the directory of the sqlite store ($XDG_DATA_HOME/sysmap).
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// CacheDir returns the configured cache directory or the XDG default.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return CacheDir()
}

// StorePath returns the configured sqlite path or the XDG default.
func (c Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "layouts.db"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}
