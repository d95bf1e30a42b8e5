package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/render"
	"github.com/matzehuels/sysmap/pkg/store"
)

// storeCommand creates the saved-layout management command.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save, list, fetch and delete named layouts",
		Long: `Manage named layouts in the configured store (sqlite by default,
MongoDB with [store] backend = "mongo").`,
	}

	cmd.AddCommand(c.storeSaveCommand())
	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeGetCommand())
	cmd.AddCommand(c.storeDeleteCommand())

	return cmd
}

func (c *CLI) storeSaveCommand() *cobra.Command {
	var (
		name    string
		noCache bool
		flags   optionFlags
	)

	cmd := &cobra.Command{
		Use:   "save [graph|layout.json]",
		Short: "Save a layout under a name",
		Long: `Save a layout under a name. A layout.json is saved as is; a graph document
is laid out first with the layout flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, l, err := loadInput(args[0])
			if err != nil {
				return err
			}

			if l == nil {
				runner, err := c.newRunner(ctx, noCache)
				if err != nil {
					return fmt.Errorf("initialize runner: %w", err)
				}
				defer runner.Close()

				spinner := newSpinnerWithContext(ctx, "Computing layout...")
				spinner.Start()
				computed, _, err := runner.ComputeLayout(ctx, *g, c.resolve(cmd, &flags))
				spinner.Stop()
				if err != nil {
					return err
				}
				l = &computed
			}

			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			saved := &store.SavedLayout{Name: name, Layout: *l}
			if err := st.Save(ctx, saved); err != nil {
				return err
			}

			printSuccess("Saved layout %s", StyleValue.Render(saved.Name))
			printKeyValue("id", saved.ID)
			printKeyValue("graph", saved.GraphHash)
			printNewline()
			printNextStep("Render", appName+" store get "+saved.ID+" -f svg")
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "layout name (default: the generated id)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.addLayoutFlags(cmd)

	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	var graphRef string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved layouts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hash, err := graphHashFilter(graphRef)
			if err != nil {
				return err
			}

			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			layouts, err := st.List(ctx, hash)
			if err != nil {
				return err
			}
			if len(layouts) == 0 {
				printInfo("No saved layouts")
				return nil
			}
			printLayoutTable(layouts)
			return nil
		},
	}

	cmd.Flags().StringVarP(&graphRef, "graph", "g", "", "only layouts of this graph (a graph file or its hash)")
	return cmd
}

func (c *CLI) storeGetCommand() *cobra.Command {
	var (
		output string
		flags  optionFlags
	)

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch a saved layout and write it to files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			saved, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}

			opts := c.resolve(cmd, &flags)
			if !cmd.Flags().Changed("format") {
				opts.Formats = []string{render.FormatJSON}
			}
			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			artifacts, err := runner.Render(ctx, saved.Layout, opts)
			if err != nil {
				return err
			}
			base := output
			if base == "" {
				base = saved.Name
			}
			paths, err := writeArtifacts(base, opts.Formats, artifacts)
			if err != nil {
				return err
			}

			printSuccess("Fetched layout %s", StyleValue.Render(saved.Name))
			printKeyValue("algorithm", saved.Layout.Algorithm)
			printKeyValue("nodes", strconv.Itoa(len(saved.Layout.Nodes)))
			printKeyValue("crossings", strconv.Itoa(saved.Layout.Crossings))
			printKeyValue("created", saved.CreatedAt.Local().Format(time.DateTime))
			for _, p := range paths {
				printFile(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output base path (default: the layout name)")
	flags.addRenderFlags(cmd)
	return cmd
}

func (c *CLI) storeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a saved layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted layout %s", args[0])
			return nil
		},
	}
}

// graphHashFilter accepts a graph file or a raw hash.
func graphHashFilter(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if _, err := graph.FormatFromPath(ref); err == nil {
		g, err := graph.ReadFile(ref)
		if err != nil {
			return "", err
		}
		return g.Hash(), nil
	}
	return ref, nil
}
