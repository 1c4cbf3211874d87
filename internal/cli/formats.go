package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/disgraph/pkg/builder"
	"github.com/matzehuels/disgraph/pkg/export"
	"github.com/matzehuels/disgraph/pkg/layout"
	"github.com/matzehuels/disgraph/pkg/render"
)

// formatsCommand lists what this build can produce.
func (c *CLI) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List export formats, layout strategies, graph kinds and themes",
		Long: `List export formats, layout strategies, graph kinds and themes.

Graphviz formats and the graphviz strategy only appear when the embedded
Graphviz runtime works on this machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printFormats(c.Out, export.New().Formats())
			return nil
		},
	}
}

func printFormats(w io.Writer, formats []export.FormatInfo) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, 0, len(formats))
	for _, fi := range formats {
		kind := "text"
		switch {
		case fi.Graphviz:
			kind = "graphviz"
		case fi.Raster:
			kind = "raster"
		case fi.Name == export.SVG:
			kind = "vector"
		}
		rows = append(rows, []string{string(fi.Name), fi.Ext, kind, fi.Description})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Format", "Ext", "Kind", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	fmt.Fprintln(w, StyleTitle.Render("Export formats"))
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)

	printKeyValue(w, "strategies", strings.Join(names(layout.Strategies()), ", "))
	printKeyValue(w, "orientations", layout.Vertical.String()+", "+layout.Horizontal.String())
	printKeyValue(w, "kinds", strings.Join(names(builder.Kinds), ", "))
	printKeyValue(w, "themes", strings.Join(render.ThemeNames(), ", "))
}
