package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/buildinfo"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// RootCommand creates the root cobra command with all subcommands registered.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "disgraph draws control-flow and call graphs of binaries",
		Long: `disgraph lays out control-flow graphs, call graphs, generic graphs and
linked lists recovered by a binary analysis engine, and exports them as
images, graph files or an interactive terminal view.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				c.SetLogLevel(LogDebug)
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVar(&c.configPath, "config", "", "config file (default: "+appName+"/config.toml in the user config dir)")
	pf.StringVar(&c.snapshot, "snapshot", "", "read analysis results from a JSON or YAML snapshot instead of running rizin")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the layout cache")

	root.AddCommand(c.exportCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.formatsCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// addGraphFlags registers the flags that select and shape a graph.
func addGraphFlags(cmd *cobra.Command, f *graphFlags) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "graph kind: cfg (default), callgraph, callgraph-global, generic, list")
	cmd.Flags().StringVarP(&f.address, "address", "a", "", "address to show (decimal or 0x-prefixed hex)")
	cmd.Flags().StringVar(&f.command, "command", "", "engine command producing a generic graph")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "layout strategy (overrides config)")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "layout orientation: vertical, horizontal")
	cmd.Flags().StringVar(&f.theme, "theme", "", "colour theme: light, dark")
	cmd.Flags().IntVar(&f.columns, "columns", 0, "crop block text to this many columns")

	complete := func(flag string, values func() []string) {
		_ = cmd.RegisterFlagCompletionFunc(flag, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values(), cobra.ShellCompDirectiveNoFileComp
		})
	}
	complete("kind", func() []string { return names(builder.Kinds) })
	complete("strategy", func() []string { return names(layout.Strategies()) })
	complete("orientation", func() []string { return []string{layout.Vertical.String(), layout.Horizontal.String()} })
	complete("theme", render.ThemeNames)
}

func names[T ~string](vs []T) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
