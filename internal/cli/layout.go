package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/pipeline"
	"github.com/matzehuels/sysmap/pkg/render"
)

// layoutCommand creates the layout command for computing node positions.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		flags   optionFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [graph]",
		Short: "Compute a layout from a graph document",
		Long: `Compute a layout from a graph document (JSON, YAML or TOML).

The output is a layout.json holding every node's position on the canvas. It
can be rendered with 'render', saved with 'store save' or explored with
'preview'.

Force layouts are random unless --seed is set. Seeded and circular layouts
are reproducible and cached locally.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.resolve(cmd, &flags)
			opts.Formats = []string{render.FormatJSON}
			return c.runLayout(cmd.Context(), args[0], opts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.addLayoutFlags(cmd)

	return cmd
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts pipeline.Options, output string, noCache bool) error {
	g, err := graph.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}
	if dangling := g.DanglingEdges(); len(dangling) > 0 {
		printWarning("%d edges reference unknown nodes and are ignored", len(dangling))
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Computing %s layout of %d nodes...", opts.Algorithm, len(g.Nodes)))
	spinner.Start()

	res, err := runner.Execute(ctx, g, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = outputBase(input) + ".layout.json"
	}
	if err := graph.WriteLayoutFile(res.Layout, outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	if res.CacheInfo.LayoutHit {
		printStats(res.Stats, true)
	} else {
		printStatsTable(res.Stats)
	}
	printNewline()
	printNextStep("Render", appName+" render "+outputPath+" -f svg")

	return nil
}
