package cli

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/render"
	"github.com/matzehuels/disgraph/pkg/seek"
	"github.com/matzehuels/disgraph/pkg/view"
)

// viewCommand creates the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		gf      graphFlags
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "view [binary]",
		Short: "Browse a graph interactively in the terminal",
		Long: `Browse a graph interactively in the terminal.

Blocks are drawn on the terminal grid. Follow branches with t, f and g,
step through blocks with tab, search with /, and click an instruction to
select it. Double-click follows the instruction's first cross-reference.
Copy the highlighted token with y.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(cmd.Context(), targetArg(args), gf, logFile)
		},
	}

	addGraphFlags(cmd, &gf)
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs here while the viewer owns the terminal")

	return cmd
}

func (c *CLI) runView(ctx context.Context, target string, gf graphFlags, logFile string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := gf.options(cfg)
	if err != nil {
		return err
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	b, err := builder.ByName(opts.Kind)
	if err != nil {
		return err
	}

	// The alternate screen belongs to bubbletea from here on.
	var logOut io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	c.Logger.SetOutput(logOut)
	defer c.Logger.SetOutput(os.Stderr)

	runner, err := c.newRunner(ctx, target)
	if err != nil {
		return err
	}
	defer runner.Close()

	theme, _ := render.ThemeByName(opts.Theme)
	var m *viewModel
	vopts := []view.Option{
		view.WithLogger(c.Logger),
		view.WithLayout(opts.LayoutConfig()),
		view.WithTheme(theme),
		view.WithMetrics(content.FixedMetrics{Char: cellW, Line: cellH}, opts.FontSize),
		view.WithContent(opts.Columns, cellH),
		view.WithMinCharHeight(cellH),
		view.WithScaleLimits(1.0/16, 8),
		view.WithCommand(opts.Command),
		view.WithDiagnostics(func(msg string) {
			if m != nil {
				m.notify(msg)
			}
		}),
	}
	if cfg.View.Sync {
		vopts = append(vopts, view.WithCursor(seek.NewCursor(opts.Address)))
	} else {
		vopts = append(vopts, view.WithAddress(opts.Address))
	}
	v, err := view.New(b, runner, vopts...)
	if err != nil {
		return err
	}
	defer v.Close()

	m = newViewModel(ctx, v, systemClipboard{}, cfg.View.Zoom)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// targetArg returns the optional binary argument.
func targetArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
