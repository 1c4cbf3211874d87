package content

import (
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/matzehuels/disgraph/pkg/graph"
)

// Match is one search hit.
type Match struct {
	Key   graph.Key
	Row   int
	Addr  uint64
	Token Token
	Score int
}

type rowRef struct {
	key graph.Key
	row int
}

// Search ranks every row against query with a fuzzy matcher. The token
// reported for each hit is the one containing the first matched rune.
// Results are ordered best first; ties keep insertion order.
func (m *Model) Search(query string) []Match {
	if query == "" {
		return nil
	}
	var (
		refs []rowRef
		text []string
	)
	for _, k := range m.order {
		for i := range m.blocks[k].Lines {
			refs = append(refs, rowRef{k, i})
			text = append(text, m.blocks[k].Lines[i].Text)
		}
	}
	found := fuzzy.Find(query, text)
	out := make([]Match, 0, len(found))
	for _, f := range found {
		ref := refs[f.Index]
		line := &m.blocks[ref.key].Lines[ref.row]
		match := Match{Key: ref.key, Row: ref.row, Addr: line.Addr, Score: f.Score}
		if len(f.MatchedIndexes) > 0 {
			idx := min(f.MatchedIndexes[0], len(f.Str))
			if tok, ok := line.TokenAt(runewidth.StringWidth(f.Str[:idx])); ok {
				match.Token = tok
			}
		}
		out = append(out, match)
	}
	return out
}

// FindToken returns every exact occurrence of text in insertion order.
func (m *Model) FindToken(text string) []Match {
	var out []Match
	for _, k := range m.order {
		for i := range m.blocks[k].Lines {
			line := &m.blocks[k].Lines[i]
			for _, t := range line.Occurrences(text) {
				out = append(out, Match{Key: k, Row: i, Addr: line.Addr, Token: t})
			}
		}
	}
	return out
}
