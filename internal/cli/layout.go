package cli

import (
	"bytes"
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/disgraph/pkg/errors"
	"github.com/matzehuels/disgraph/pkg/export"
)

// layoutCommand prints a laid-out graph as a JSON document.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		gf     graphFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout [binary]",
		Short: "Print the laid-out graph as JSON",
		Long: `Print the laid-out graph as JSON.

The document lists every block with its text, position and size, and every
edge with its kind and routed points. It is the same document as
'export -f json' and is written to stdout unless -o is given.

Layouts are cached, so running this again with the same input and layout
settings is fast.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), targetArg(args), gf, output)
		},
	}

	addGraphFlags(cmd, &gf)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, target string, gf graphFlags, output string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts, err := gf.options(cfg)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, target)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Load(ctx, opts)
	if err != nil {
		return err
	}
	if result.Snapshot.Empty() {
		return errors.New(errors.ErrCodeEmptyGraph, "%s", emptyMessage(result))
	}

	var buf bytes.Buffer
	req := export.Request{Format: export.JSON, Command: opts.Command, Address: opts.Address}
	if err := runner.Exporter.Encode(ctx, &buf, result.Scene(), req); err != nil {
		return err
	}
	if output == "" {
		_, err := c.Out.Write(buf.Bytes())
		return err
	}
	if err := export.WriteFile(output, buf.Bytes()); err != nil {
		return err
	}
	c.Logger.Info("wrote layout", "path", output, "blocks", result.Stats.Blocks, "edges", result.Stats.Edges)
	return nil
}
