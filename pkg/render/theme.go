package render

import (
	"image/color"
	"slices"

	"github.com/matzehuels/disgraph/pkg/content"
	"github.com/matzehuels/disgraph/pkg/graph"
)

// Theme holds the colours used for one paint.
type Theme struct {
	Name string

	Background  color.RGBA
	BlockFill   color.RGBA
	BlockBorder color.RGBA
	Placeholder color.RGBA

	Text     color.RGBA
	Mnemonic color.RGBA
	Number   color.RGBA
	Comment  color.RGBA
	Title    color.RGBA

	EdgeGeneric color.RGBA
	EdgeJump    color.RGBA
	EdgeTrue    color.RGBA
	EdgeFalse   color.RGBA
	EdgeCall    color.RGBA

	Coverage       color.RGBA
	CurrentInstr   color.RGBA
	Selection      color.RGBA
	SearchToken    color.RGBA
	Breakpoint     color.RGBA
	CurrentBorder  color.RGBA
	SelectedBorder color.RGBA
}

// EdgeColor returns the colour for an edge kind.
func (t Theme) EdgeColor(k graph.EdgeKind) color.RGBA {
	switch k {
	case graph.EdgeJump:
		return t.EdgeJump
	case graph.EdgeTrue:
		return t.EdgeTrue
	case graph.EdgeFalse:
		return t.EdgeFalse
	case graph.EdgeCall:
		return t.EdgeCall
	default:
		return t.EdgeGeneric
	}
}

// SpanColor returns the colour for a highlighted span.
func (t Theme) SpanColor(s content.Style) color.RGBA {
	switch s {
	case content.StyleMnemonic:
		return t.Mnemonic
	case content.StyleNumber:
		return t.Number
	case content.StyleComment:
		return t.Comment
	case content.StyleTitle:
		return t.Title
	default:
		return t.Text
	}
}

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{r, g, b, 0xff} }

func rgba(r, g, b, a uint8) color.RGBA {
	// premultiplied, as image/color expects
	return color.RGBA{
		R: uint8(uint16(r) * uint16(a) / 0xff),
		G: uint8(uint16(g) * uint16(a) / 0xff),
		B: uint8(uint16(b) * uint16(a) / 0xff),
		A: a,
	}
}

// Light is the default theme.
var Light = Theme{
	Name:        "light",
	Background:  rgb(0xfa, 0xfa, 0xfa),
	BlockFill:   rgb(0xff, 0xff, 0xff),
	BlockBorder: rgb(0x9e, 0x9e, 0x9e),
	Placeholder: rgb(0x75, 0x75, 0x75),

	Text:     rgb(0x21, 0x21, 0x21),
	Mnemonic: rgb(0x15, 0x65, 0xc0),
	Number:   rgb(0xad, 0x14, 0x57),
	Comment:  rgb(0x43, 0xa0, 0x47),
	Title:    rgb(0x6a, 0x1b, 0x9a),

	EdgeGeneric: rgb(0x75, 0x75, 0x75),
	EdgeJump:    rgb(0x1e, 0x88, 0xe5),
	EdgeTrue:    rgb(0x2e, 0x7d, 0x32),
	EdgeFalse:   rgb(0xc6, 0x28, 0x28),
	EdgeCall:    rgb(0x8e, 0x24, 0xaa),

	Coverage:       rgba(0x81, 0xc7, 0x84, 0x60),
	CurrentInstr:   rgba(0xff, 0xee, 0x58, 0xa0),
	Selection:      rgba(0x90, 0xca, 0xf9, 0x90),
	SearchToken:    rgba(0xff, 0xb7, 0x4d, 0xb0),
	Breakpoint:     rgba(0xef, 0x53, 0x50, 0x70),
	CurrentBorder:  rgb(0xf9, 0xa8, 0x25),
	SelectedBorder: rgb(0x19, 0x76, 0xd2),
}

// Dark is a theme for dark backgrounds.
var Dark = Theme{
	Name:        "dark",
	Background:  rgb(0x1e, 0x1e, 0x1e),
	BlockFill:   rgb(0x2b, 0x2b, 0x2b),
	BlockBorder: rgb(0x5f, 0x5f, 0x5f),
	Placeholder: rgb(0x9e, 0x9e, 0x9e),

	Text:     rgb(0xd4, 0xd4, 0xd4),
	Mnemonic: rgb(0x56, 0x9c, 0xd6),
	Number:   rgb(0xb5, 0xce, 0xa8),
	Comment:  rgb(0x6a, 0x99, 0x55),
	Title:    rgb(0xc5, 0x86, 0xc0),

	EdgeGeneric: rgb(0x9e, 0x9e, 0x9e),
	EdgeJump:    rgb(0x64, 0xb5, 0xf6),
	EdgeTrue:    rgb(0x66, 0xbb, 0x6a),
	EdgeFalse:   rgb(0xef, 0x53, 0x50),
	EdgeCall:    rgb(0xba, 0x68, 0xc8),

	Coverage:       rgba(0x38, 0x8e, 0x3c, 0x60),
	CurrentInstr:   rgba(0xff, 0xd5, 0x4f, 0x50),
	Selection:      rgba(0x42, 0xa5, 0xf5, 0x60),
	SearchToken:    rgba(0xff, 0x98, 0x00, 0x80),
	Breakpoint:     rgba(0xe5, 0x39, 0x35, 0x70),
	CurrentBorder:  rgb(0xff, 0xca, 0x28),
	SelectedBorder: rgb(0x42, 0xa5, 0xf5),
}

var themes = []Theme{Light, Dark}

// ThemeNames lists the built-in theme names.
func ThemeNames() []string {
	names := make([]string, len(themes))
	for i, t := range themes {
		names[i] = t.Name
	}
	return names
}

// ThemeByName returns the built-in theme called name.
func ThemeByName(name string) (Theme, bool) {
	i := slices.IndexFunc(themes, func(t Theme) bool { return t.Name == name })
	if i < 0 {
		return Theme{}, false
	}
	return themes[i], true
}
