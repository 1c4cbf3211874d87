package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/pipeline"
)

// exportFlags holds the flags of the export command.
type exportFlags struct {
	output  string
	formats string
	scale   float64
	yes     bool
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		gf graphFlags
		ef exportFlags
	)

	cmd := &cobra.Command{
		Use:   "export [binary]",
		Short: "Export a graph as images or graph files",
		Long: `Export a graph as images or graph files.

With one format, -o names the output file and its extension picks the
format when -f is not given. With several formats, -o is the base name and
each file gets the format's extension.

Raster images larger than the configured limit ask for confirmation on a
terminal; pass --yes to skip the question.`,
		Example: `  disgraph export ./a.out -a 0x401000 -o main.png
  disgraph export ./a.out -a 4198400 -f svg,json,gml
  disgraph export --snapshot run.json -k callgraph-global -f dot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), targetArg(args), gf, ef)
		},
	}

	addGraphFlags(cmd, &gf)
	cmd.Flags().StringVarP(&ef.output, "output", "o", "", "output file, or base name for several formats")
	cmd.Flags().StringVarP(&ef.formats, "format", "f", "", "export format(s), comma-separated (see 'disgraph formats')")
	cmd.Flags().Float64Var(&ef.scale, "scale", 0, "image scale factor (overrides config)")
	cmd.Flags().BoolVarP(&ef.yes, "yes", "y", false, "export large images without asking")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, target string, gf graphFlags, ef exportFlags) error {
	prog := newProgress(c.Logger)
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := gf.options(cfg)
	if err != nil {
		return err
	}
	opts.Formats = exportFormats(ef, cfg.Export.Formats)
	if ef.scale > 0 {
		opts.Scale = ef.scale
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	c.assumeYes = ef.yes

	runner, err := c.newRunner(ctx, target)
	if err != nil {
		return err
	}
	defer runner.Close()

	var spin *Spinner
	if isTerminal(os.Stderr) {
		spin = newSpinner(ctx, os.Stderr, fmt.Sprintf("Loading %s...", opts.Kind))
		spin.Start()
	}
	result, err := runner.Load(ctx, opts)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}
	if result.Snapshot.Empty() {
		return errors.New(errors.ErrCodeEmptyGraph, "%s", emptyMessage(result))
	}

	// Rendering stays sequential so a size confirmation never competes
	// with another prompt for the terminal.
	artifacts, cached, err := runner.Render(ctx, result, opts)
	if err != nil {
		return err
	}

	paths := outputPaths(ef.output, defaultBase(opts), opts.Formats)
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range opts.Formats {
		path, data := paths[f], artifacts[f]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return export.WriteFile(path, data)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printSuccess(c.Out, "Exported %s", result.Snapshot.Title)
	written := make([]string, 0, len(paths))
	for _, p := range paths {
		written = append(written, p)
	}
	slices.Sort(written)
	for _, p := range written {
		printFile(c.Out, p)
	}
	printStats(c.Out, result.Stats.Blocks, result.Stats.Edges, cached)
	prog.done("exported graph", "files", len(written), "cached", cached)
	return nil
}

// exportFormats picks the formats: the flag, else the output file's
// extension, else the configured defaults.
func exportFormats(ef exportFlags, fallback []string) []string {
	if fs := parseFormats(ef.formats, nil); len(fs) > 0 {
		return fs
	}
	if ef.output != "" {
		if f, err := export.FormatForPath(ef.output); err == nil {
			return []string{string(f)}
		}
	}
	return slices.Clone(fallback)
}

// defaultBase names output files after the graph kind and address, for
// example "cfg-0x401000".
func defaultBase(opts pipeline.Options) string {
	if opts.Address == 0 {
		return opts.Kind
	}
	return fmt.Sprintf("%s-%#x", opts.Kind, opts.Address)
}

// outputPaths maps each format to its file. A single format writes to
// output as given; several formats share output (minus its extension) as
// base name. Graphviz renderings get a ".gv" infix so they don't collide
// with the native images.
func outputPaths(output, base string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	if output != "" {
		base = strings.TrimSuffix(output, filepath.Ext(output))
	}
	for _, f := range formats {
		info, _ := export.Info(export.Format(f))
		ext := info.Ext
		if info.Graphviz {
			ext = ".gv" + ext
		}
		paths[f] = base + ext
	}
	return paths
}

func emptyMessage(result *pipeline.Result) string {
	if result.Snapshot != nil && result.Snapshot.Message != "" {
		return result.Snapshot.Message
	}
	return "nothing to export"
}
