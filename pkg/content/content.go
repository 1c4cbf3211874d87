package content

import (
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/disgraph/pkg/graph"
)

// Ellipsis marks text cropped to the column budget.
const Ellipsis = "…"

// DefaultColumns is the column budget used when Options.Columns is zero.
const DefaultColumns = 80

// Style tags a span for colouring.
type Style int

const (
	StyleText Style = iota
	StyleMnemonic
	StyleNumber
	StyleComment
	StyleTitle
)

// Span is a run of text drawn with one style.
type Span struct {
	Text  string
	Style Style
}

// RawLine is one line as delivered by a builder. Size is the instruction
// byte length, zero when unknown.
type RawLine struct {
	Addr uint64
	Text string
	Size int
}

// Line is one displayed row of a block.
type Line struct {
	Addr    uint64
	Size    int
	Full    string
	Text    string
	Cropped bool
	Spans   []Span
	tokens  []Token
}

// Tokens returns the word tokens of the displayed text.
func (l *Line) Tokens() []Token { return l.tokens }

// Contains reports whether addr falls within the instruction on this line.
func (l *Line) Contains(addr uint64) bool {
	if l.Size <= 0 {
		return addr == l.Addr
	}
	return addr >= l.Addr && addr < l.Addr+uint64(l.Size)
}

// Block is the content of one graph block.
type Block struct {
	Key       graph.Key
	Title     string
	FullTitle string
	Lines     []Line
}

// Columns returns the widest displayed row in terminal columns.
func (b *Block) Columns() int {
	cols := runewidth.StringWidth(b.Title)
	for i := range b.Lines {
		cols = max(cols, runewidth.StringWidth(b.Lines[i].Text))
	}
	return cols
}

// Rows returns the number of text rows including the title row.
func (b *Block) Rows() int {
	if b.Title == "" {
		return len(b.Lines)
	}
	return len(b.Lines) + 1
}

// HeaderRows is 1 when the block has a title row.
func (b *Block) HeaderRows() int {
	if b.Title == "" {
		return 0
	}
	return 1
}

// Options configures a Model.
type Options struct {
	// Columns is the column budget per row. Longer text is cropped.
	Columns int
	// Padding is the inner margin around text, in graph units.
	Padding float64
}

// Model owns the content of every block in one snapshot.
type Model struct {
	opts   Options
	blocks map[graph.Key]*Block
	order  []graph.Key
}

// New creates an empty model.
func New(opts Options) *Model {
	if opts.Columns <= 0 {
		opts.Columns = DefaultColumns
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	return &Model{opts: opts, blocks: make(map[graph.Key]*Block)}
}

// Columns returns the configured column budget.
func (m *Model) Columns() int { return m.opts.Columns }

// Padding returns the configured inner margin.
func (m *Model) Padding() float64 { return m.opts.Padding }

// Add stores the content for key, replacing any previous content.
// Every row is cropped to the column budget.
func (m *Model) Add(key graph.Key, title string, lines []RawLine) *Block {
	b := &Block{
		Key:       key,
		FullTitle: title,
		Title:     Crop(title, m.opts.Columns),
		Lines:     make([]Line, len(lines)),
	}
	for i, raw := range lines {
		b.Lines[i] = newLine(raw, m.opts.Columns)
	}
	if _, exists := m.blocks[key]; !exists {
		m.order = append(m.order, key)
	}
	m.blocks[key] = b
	return b
}

func newLine(raw RawLine, columns int) Line {
	full := strings.ReplaceAll(raw.Text, "\t", "    ")
	text := Crop(full, columns)
	l := Line{
		Addr:    raw.Addr,
		Size:    raw.Size,
		Full:    raw.Text,
		Text:    text,
		Cropped: text != full,
	}
	l.tokens = Tokenize(text)
	l.Spans = highlight(text, l.tokens)
	return l
}

// Block returns the content for key.
func (m *Model) Block(key graph.Key) (*Block, bool) {
	b, ok := m.blocks[key]
	return b, ok
}

// Keys returns the keys in insertion order.
func (m *Model) Keys() []graph.Key { return slices.Clone(m.order) }

// Len returns the number of blocks with content.
func (m *Model) Len() int { return len(m.order) }

// Tooltip returns the untruncated text of a row. Row -1 is the title.
func (m *Model) Tooltip(key graph.Key, row int) (string, bool) {
	b, ok := m.blocks[key]
	if !ok {
		return "", false
	}
	if row == -1 {
		return b.FullTitle, true
	}
	if row < 0 || row >= len(b.Lines) {
		return "", false
	}
	return b.Lines[row].Full, true
}

// Locate finds the block and row whose instruction contains addr.
// Blocks are scanned in insertion order, so the first match wins.
func (m *Model) Locate(addr uint64) (graph.Key, int, bool) {
	for _, k := range m.order {
		for i := range m.blocks[k].Lines {
			if m.blocks[k].Lines[i].Contains(addr) {
				return k, i, true
			}
		}
	}
	return 0, 0, false
}

// Crop truncates s to at most columns display cells, ending with
// Ellipsis when anything was removed.
func Crop(s string, columns int) string {
	s = strings.ReplaceAll(s, "\t", "    ")
	if columns <= 0 || runewidth.StringWidth(s) <= columns {
		return s
	}
	return runewidth.Truncate(s, columns, Ellipsis)
}
