package export

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/disgraph/pkg/graph"
	"github.com/matzehuels/disgraph/pkg/layout"
)

type edgeKey struct{ from, to graph.Key }

func edgePoints(res *layout.Result) map[edgeKey][]layout.Point {
	out := make(map[edgeKey][]layout.Point, len(res.Edges))
	for _, e := range res.Edges {
		out[edgeKey{e.From, e.To}] = e.Points
	}
	return out
}

// document builds the wire form with positions, text and routes.
func document(s Scene) graph.Document {
	s.Layout.Apply(s.Graph)
	doc := graph.FromGraph(s.Graph)
	if s.Content != nil {
		for i := range doc.Nodes {
			k, _ := graph.ParseKey(doc.Nodes[i].ID)
			blk, ok := s.Content.Block(k)
			if !ok {
				continue
			}
			doc.Nodes[i].Title = blk.FullTitle
			for _, ln := range blk.Lines {
				doc.Nodes[i].Lines = append(doc.Nodes[i].Lines, ln.Full)
			}
		}
	}
	pts := edgePoints(s.Layout)
	for i := range doc.Edges {
		from, _ := graph.ParseKey(doc.Edges[i].From)
		to, _ := graph.ParseKey(doc.Edges[i].To)
		for _, p := range pts[edgeKey{from, to}] {
			doc.Edges[i].Points = append(doc.Edges[i].Points, p.X, p.Y)
		}
	}
	return doc
}

func encodeJSON(w io.Writer, s Scene, req Request) error {
	doc := document(s)
	if doc.Title == "" {
		doc.Title = req.Command
	}
	return graph.WriteDocument(w, doc)
}

// encodeGML writes Graph Modelling Language. Node ids are insertion
// indices; the block key is kept in the label.
func encodeGML(w io.Writer, s Scene, req Request) error {
	doc := document(s)
	index := make(map[string]int, len(doc.Nodes))
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "graph [")
	fmt.Fprintln(bw, "  directed 1")
	if doc.Title != "" {
		fmt.Fprintf(bw, "  label %s\n", gmlString(doc.Title))
	}
	if req.Command != "" {
		fmt.Fprintf(bw, "  command %s\n", gmlString(req.Command))
	}
	for i, n := range doc.Nodes {
		index[n.ID] = i
		label := n.ID
		if n.Title != "" {
			label = n.Title
		}
		fmt.Fprintln(bw, "  node [")
		fmt.Fprintf(bw, "    id %d\n", i)
		fmt.Fprintf(bw, "    label %s\n", gmlString(label))
		fmt.Fprintf(bw, "    key %s\n", gmlString(n.ID))
		fmt.Fprintf(bw, "    graphics [ x %s y %s w %s h %s ]\n",
			num(n.X+n.W/2), num(n.Y+n.H/2), num(n.W), num(n.H))
		fmt.Fprintln(bw, "  ]")
	}
	for _, e := range doc.Edges {
		fmt.Fprintln(bw, "  edge [")
		fmt.Fprintf(bw, "    source %d\n", index[e.From])
		fmt.Fprintf(bw, "    target %d\n", index[e.To])
		fmt.Fprintf(bw, "    label %s\n", gmlString(e.Kind))
		fmt.Fprintln(bw, "  ]")
	}
	fmt.Fprintln(bw, "]")
	return bw.Flush()
}

func gmlString(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;")
	return `"` + r.Replace(s) + `"`
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// kvBase64 prefixes values stored base64 encoded in the KV listing.
const kvBase64 = "base64:"

// kvValue keeps s readable unless it would break the one-pair-per-line
// format or be mistaken for an encoded value.
func kvValue(s string) string {
	if !strings.ContainsAny(s, "=\r\n") && !strings.HasPrefix(s, kvBase64) {
		return s
	}
	return kvBase64 + base64.StdEncoding.EncodeToString([]byte(s))
}

// encodeKV writes one key=value pair per line. Block bodies, and any
// title or command holding '=' or a line break, are base64 encoded.
func encodeKV(w io.Writer, s Scene, req Request) error {
	doc := document(s)
	bw := bufio.NewWriter(w)

	kv := func(k, v string) { fmt.Fprintf(bw, "%s=%s\n", k, v) }
	kv("graph.title", kvValue(doc.Title))
	if req.Command != "" {
		kv("graph.command", kvValue(req.Command))
	}
	if req.Address != 0 {
		kv("graph.address", fmt.Sprintf("%#x", req.Address))
	}
	kv("graph.entry", doc.Entry)

	ids := make([]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		ids[i] = n.ID
	}
	kv("graph.nodes", strings.Join(ids, ","))

	neighbours := make(map[string][]string)
	for _, e := range doc.Edges {
		neighbours[e.From] = append(neighbours[e.From], e.To)
	}
	for _, n := range doc.Nodes {
		p := "graph.nodes." + n.ID
		kv(p+".title", kvValue(n.Title))
		kv(p+".body", kvBase64+base64.StdEncoding.EncodeToString([]byte(strings.Join(n.Lines, "\n"))))
		kv(p+".rect", fmt.Sprintf("%s,%s,%s,%s", num(n.X), num(n.Y), num(n.W), num(n.H)))
		kv(p+".neighbours", strings.Join(neighbours[n.ID], ","))
	}
	for _, e := range doc.Edges {
		kv("graph.edges."+e.From+"."+e.To+".kind", e.Kind)
	}
	return bw.Flush()
}
