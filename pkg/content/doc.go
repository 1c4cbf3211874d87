// Package content stores the text shown inside each block, independent of
// geometry.
//
// Blocks reference content by [graph.Key] but never own it. Text is cropped
// to a column budget when it is added, so the size used by layout always
// matches what is drawn. The untruncated text is kept on every [Line] for
// tooltips and copy.
//
//	m := content.New(content.Options{Columns: 40})
//	m.Add(0x1000, "main", []content.RawLine{{Addr: 0x1000, Text: "push rbp"}})
//	m.ApplySizes(g, content.FixedMetrics{Char: 7, Line: 14})
//
// Hit testing walks accumulated line heights ([Block.LineAt]) and word
// boundaries ([Line.TokenAt]). [Model.Search] ranks lines with a fuzzy
// matcher for the find-in-graph feature.
package content
