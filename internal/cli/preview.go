package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/pipeline"
	"github.com/matzehuels/sysmap/pkg/render"
)

// previewCommand creates the interactive preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		noCache bool
		flags   optionFlags
	)

	cmd := &cobra.Command{
		Use:   "preview [graph]",
		Short: "Explore layouts of a graph in the terminal",
		Long: `Draw a graph's layout in the terminal and try seeds and algorithms until
the map looks right, then write it to <input>.layout.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := graph.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("load graph %s: %w", args[0], err)
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			opts := c.resolve(cmd, &flags)
			opts.Formats = []string{render.FormatJSON}
			if opts.Seed == 0 {
				opts.Seed = rand.Uint64()
			}
			// Log lines would tear the alt screen.
			opts.Logger = c.Logger.WithPrefix("preview")
			opts.Logger.SetOutput(io.Discard)

			m := newPreviewModel(ctx, g, opts, runner, outputBase(args[0])+".layout.json")
			final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			if pm, ok := final.(previewModel); ok && pm.saved != "" {
				printSuccess("Layout saved")
				printFile(pm.saved)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	flags.addLayoutFlags(cmd)
	return cmd
}

// =============================================================================
// Model
// =============================================================================

type previewKeys struct {
	Reseed    key.Binding
	Algorithm key.Binding
	Refine    key.Binding
	Save      key.Binding
	Quit      key.Binding
}

var defaultPreviewKeys = previewKeys{
	Reseed:    key.NewBinding(key.WithKeys("r", " "), key.WithHelp("r", "new seed")),
	Algorithm: key.NewBinding(key.WithKeys("a", "tab"), key.WithHelp("a", "force/circular")),
	Refine:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more refinement")),
	Save:      key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "save")),
	Quit:      key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// computer is the part of the pipeline runner the preview needs.
type computer interface {
	Execute(ctx context.Context, g graph.Graph, opts pipeline.Options) (*pipeline.Result, error)
}

type previewModel struct {
	ctx     context.Context
	g       graph.Graph
	opts    pipeline.Options
	runner  computer
	output  string
	keys    previewKeys
	spinner spinner.Model

	busy   bool
	result *pipeline.Result
	err    error
	saved  string

	width, height int
}

type layoutDoneMsg struct {
	result *pipeline.Result
	err    error
}

type savedMsg struct {
	path string
	err  error
}

func newPreviewModel(ctx context.Context, g graph.Graph, opts pipeline.Options, r computer, output string) previewModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleIconSpinner
	return previewModel{
		ctx:     ctx,
		g:       g,
		opts:    opts,
		runner:  r,
		output:  output,
		keys:    defaultPreviewKeys,
		spinner: s,
		busy:    true,
		width:   100,
		height:  32,
	}
}

func (m previewModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.compute())
}

// compute runs the layout off the UI goroutine.
func (m previewModel) compute() tea.Cmd {
	ctx, g, opts, r := m.ctx, m.g, m.opts, m.runner
	return func() tea.Msg {
		res, err := r.Execute(ctx, g, opts)
		return layoutDoneMsg{result: res, err: err}
	}
}

func (m previewModel) save() tea.Cmd {
	l, path := m.result.Layout, m.output
	return func() tea.Msg {
		return savedMsg{path: path, err: graph.WriteLayoutFile(l, path)}
	}
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case m.busy:
			return m, nil
		case key.Matches(msg, m.keys.Reseed):
			m.opts.Seed = rand.Uint64()
			return m.rerun()
		case key.Matches(msg, m.keys.Algorithm):
			if m.opts.Algorithm == graph.AlgorithmCircular {
				m.opts.Algorithm = graph.AlgorithmForce
			} else {
				m.opts.Algorithm = graph.AlgorithmCircular
			}
			return m.rerun()
		case key.Matches(msg, m.keys.Refine):
			if m.opts.RefinePasses == 0 {
				m.opts.RefinePasses = 2
			}
			m.opts.RefinePasses *= 2
			return m.rerun()
		case key.Matches(msg, m.keys.Save):
			if m.result != nil {
				return m, m.save()
			}
		}

	case layoutDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.result
		}

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.saved = msg.path
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m previewModel) rerun() (tea.Model, tea.Cmd) {
	m.busy = true
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.compute())
}

var (
	previewFrame = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
	previewError = lipgloss.NewStyle().Foreground(colorRed)
)

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("sysmap preview"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s · seed %d · %d nodes", m.opts.Algorithm, m.opts.Seed, len(m.g.Nodes))))
	if m.busy {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n")

	// header, footer and frame border
	cols, rows := max(m.width-2, 10), max(m.height-5, 5)
	switch {
	case m.err != nil:
		b.WriteString(previewError.Render(m.err.Error()))
	case m.result != nil:
		b.WriteString(previewFrame.Render(render.ToASCII(m.result.Layout, cols, rows)))
	default:
		b.WriteString(previewFrame.Render(strings.Repeat(strings.Repeat(" ", cols)+"\n", rows-1) + strings.Repeat(" ", cols)))
	}
	b.WriteString("\n")

	if m.result != nil {
		s := m.result.Stats
		b.WriteString(StyleDim.Render(fmt.Sprintf("crossings %d %s %d · refine moves %d  ",
			s.CrossingsBefore, iconArrow, s.CrossingsAfter, s.RefineMoves)))
	}
	b.WriteString(StyleDim.Render(m.help()))
	return b.String()
}

func (m previewModel) help() string {
	bindings := []key.Binding{m.keys.Reseed, m.keys.Algorithm, m.keys.Refine, m.keys.Save, m.keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " · ")
}
