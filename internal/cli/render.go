package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/pipeline"
	"github.com/matzehuels/sysmap/pkg/render"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		flags   optionFlags
	)

	cmd := &cobra.Command{
		Use:   "render [graph|layout.json]",
		Short: "Render a graph or a computed layout",
		Long: `Render a graph or a computed layout to one or more formats.

Given a layout.json (from 'layout' or 'store get') the positions are
rendered as they are. Given a graph document it is laid out first, using
the layout flags.

Formats: json (the layout itself), dot, svg, png. Output files are named
<output>.<format>; the default output base is the input without extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.resolve(cmd, &flags)
			if !cmd.Flags().Changed("format") && slices.Equal(opts.Formats, pipeline.DefaultFormats) {
				opts.Formats = []string{render.FormatSVG}
			}
			return c.runRender(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: input without extension)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.addLayoutFlags(cmd)
	flags.addRenderFlags(cmd)

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	g, l, err := loadInput(input)
	if err != nil {
		return err
	}
	if err := pipeline.ValidateFormats(opts.Formats); err != nil {
		return err
	}

	base := output
	if base == "" {
		base = outputBase(input)
	} else if !filepath.IsAbs(base) {
		if err := errs.ValidatePath(base); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Rendering "+strings.Join(opts.Formats, ", ")+"...")
	spinner.Start()

	var (
		artifacts map[string][]byte
		cached    bool
	)
	if l != nil {
		artifacts, cached, err = runner.RenderWithCacheInfo(ctx, *l, opts)
	} else {
		spinner.SetMessage(fmt.Sprintf("Computing %s layout of %d nodes...", opts.Algorithm, len(g.Nodes)))
		var res *pipeline.Result
		res, err = runner.Execute(ctx, *g, opts)
		if err == nil {
			artifacts, cached = res.Artifacts, res.CacheInfo.RenderHit
		}
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(base, opts.Formats, artifacts)
	if err != nil {
		return err
	}
	prog.done("Rendered " + strings.Join(opts.Formats, ", "))

	printSuccess("Render complete")
	for _, p := range paths {
		printFile(p)
	}
	if cached {
		printDetail("all artifacts served from cache")
	}
	return nil
}

// loadInput reads either a layout document or a graph document.
func loadInput(path string) (*graph.Graph, *graph.Layout, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "file not found: %s", path)
			}
			return nil, nil, err
		}
		if graph.IsLayoutDocument(data) {
			l, err := graph.UnmarshalLayout(data)
			if err != nil {
				return nil, nil, fmt.Errorf("load layout %s: %w", path, err)
			}
			return nil, &l, nil
		}
	}
	g, err := graph.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load graph %s: %w", path, err)
	}
	return &g, nil, nil
}

// writeArtifacts writes one file per format and returns the paths in
// format order.
func writeArtifacts(base string, formats []string, artifacts map[string][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	paths := make([]string, 0, len(formats))
	for _, format := range formats {
		path := base + "." + format
		if format == render.FormatJSON {
			path = base + ".layout.json"
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
