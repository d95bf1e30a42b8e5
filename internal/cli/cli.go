package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sysmap/internal/config"
	"github.com/matzehuels/sysmap/pkg/buildinfo"
	"github.com/matzehuels/sysmap/pkg/cache"
	"github.com/matzehuels/sysmap/pkg/pipeline"
	"github.com/matzehuels/sysmap/pkg/store"
	"github.com/matzehuels/sysmap/pkg/store/mongo"
	"github.com/matzehuels/sysmap/pkg/store/sqlite"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Sysmap lays out system maps as readable diagrams",
		Long: `Sysmap turns a graph of services, hosts or components into a readable
diagram. Connected nodes are pulled together, unrelated ones pushed apart,
and edge crossings are untangled before the map is rendered.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/sysmap/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and attaches the logger to the
// command's context.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, nil, c.Logger)
	r.TTL = c.cfg.Cache.TTL.Duration
	return r, nil
}

// newCache builds the configured cache. An unreachable redis degrades to
// no caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		rc := c.cfg.Cache.Redis
		cc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
		})
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "addr", rc.Addr, "error", err)
			return cache.NewNullCache(), nil
		}
		return cc, nil
	default:
		dir, err := c.cfg.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// newStore opens the configured saved-layout store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	switch c.cfg.Store.Backend {
	case config.StoreMongo:
		m := c.cfg.Store.Mongo
		return mongo.New(ctx, mongo.Options{URI: m.URI, Database: m.Database, Collection: m.Collection})
	default:
		path, err := c.cfg.StorePath()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		c.Logger.Debug("opening layout store", "path", path)
		return sqlite.New(path)
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// optionFlags binds the layout and render flags shared by several commands.
type optionFlags struct {
	opts    pipeline.Options
	formats string
}

// addLayoutFlags registers the layout flags with pipeline defaults.
func (f *optionFlags) addLayoutFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.opts.Algorithm, "algorithm", "a", pipeline.DefaultAlgorithm, "layout algorithm: force, circular")
	fl.Float64Var(&f.opts.Width, "width", pipeline.DefaultWidth, "canvas width")
	fl.Float64Var(&f.opts.Height, "height", pipeline.DefaultHeight, "canvas height")
	fl.IntVar(&f.opts.Iterations, "iterations", 0, "force simulation iterations (0: engine default)")
	fl.Float64Var(&f.opts.Temperature, "temperature", 0, "initial displacement cap (0: engine default)")
	fl.Float64Var(&f.opts.Cooling, "cooling", 0, "per-iteration cooling factor in (0,1) (0: engine default)")
	fl.Float64Var(&f.opts.Repulsion, "repulsion", 0, "node repulsion strength (0: engine default)")
	fl.Float64Var(&f.opts.Attraction, "attraction", 0, "edge attraction strength (0: engine default)")
	fl.Float64Var(&f.opts.Gravity, "gravity", 0, "pull towards the canvas centre (0: engine default)")
	fl.IntVar(&f.opts.RefinePasses, "refine-passes", 0, "crossing refinement passes (0: engine default)")
	fl.Uint64Var(&f.opts.Seed, "seed", 0, "random seed (0: random, layouts are only cached when seeded)")
	fl.IntVar(&f.opts.MaxNodes, "max-nodes", pipeline.DefaultMaxNodes, "refuse graphs with more nodes")
	fl.BoolVar(&f.opts.Refresh, "refresh", false, "ignore cached results")
}

// addRenderFlags registers the render flags.
func (f *optionFlags) addRenderFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.formats, "format", "f", "", "output formats, comma-separated: json, dot, svg, png")
	fl.BoolVar(&f.opts.Detailed, "detailed", false, "show node metadata in rendered boxes")
	fl.BoolVar(&f.opts.EdgeLabels, "edge-labels", false, "draw edge labels")
}

// resolve starts from the config file and applies the flags the user set.
func (c *CLI) resolve(cmd *cobra.Command, f *optionFlags) pipeline.Options {
	opts := c.cfg.PipelineOptions()
	changed := cmd.Flags().Changed

	if changed("algorithm") {
		opts.Algorithm = f.opts.Algorithm
	}
	if changed("width") {
		opts.Width = f.opts.Width
	}
	if changed("height") {
		opts.Height = f.opts.Height
	}
	if changed("iterations") {
		opts.Iterations = f.opts.Iterations
	}
	if changed("temperature") {
		opts.Temperature = f.opts.Temperature
	}
	if changed("cooling") {
		opts.Cooling = f.opts.Cooling
	}
	if changed("repulsion") {
		opts.Repulsion = f.opts.Repulsion
	}
	if changed("attraction") {
		opts.Attraction = f.opts.Attraction
	}
	if changed("gravity") {
		opts.Gravity = f.opts.Gravity
	}
	if changed("refine-passes") {
		opts.RefinePasses = f.opts.RefinePasses
	}
	if changed("seed") {
		opts.Seed = f.opts.Seed
	}
	if changed("max-nodes") {
		opts.MaxNodes = f.opts.MaxNodes
	}
	if changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if changed("detailed") {
		opts.Detailed = f.opts.Detailed
	}
	if changed("edge-labels") {
		opts.EdgeLabels = f.opts.EdgeLabels
	}
	opts.Refresh = f.opts.Refresh
	opts.Logger = c.Logger
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputBase strips the extension (and a .layout suffix) from input.
func outputBase(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return strings.TrimSuffix(base, ".layout")
}
