package content

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Token is a word within a line. Start and End are display columns,
// End exclusive.
type Token struct {
	Text       string
	Start, End int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '$' || r == '@'
}

// Tokenize splits s into word tokens and single punctuation tokens.
// Whitespace is dropped.
func Tokenize(s string) []Token {
	var (
		out   []Token
		col   int
		start = -1
		word  strings.Builder
	)
	flush := func() {
		if start >= 0 {
			out = append(out, Token{Text: word.String(), Start: start, End: col})
			word.Reset()
			start = -1
		}
	}
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		switch {
		case isWordRune(r):
			if start < 0 {
				start = col
			}
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			out = append(out, Token{Text: string(r), Start: col, End: col + w})
		}
		col += w
	}
	flush()
	return out
}

// TokenAt returns the token under column col.
func (l *Line) TokenAt(col int) (Token, bool) {
	for _, t := range l.tokens {
		if col >= t.Start && col < t.End {
			return t, true
		}
	}
	return Token{}, false
}

// Occurrences returns every token equal to text.
func (l *Line) Occurrences(text string) []Token {
	if text == "" {
		return nil
	}
	var out []Token
	for _, t := range l.tokens {
		if t.Text == text {
			out = append(out, t)
		}
	}
	return out
}

func isNumber(s string) bool {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return len(s) > 2
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// highlight assigns styles: the first word is the mnemonic, numbers are
// numbers, and everything after ';' is a comment.
func highlight(text string, tokens []Token) []Span {
	if text == "" {
		return nil
	}
	var spans []Span
	cells := []rune(text)
	widths := make([]int, len(cells)+1)
	for i, r := range cells {
		widths[i+1] = widths[i] + runewidth.RuneWidth(r)
	}
	byCol := func(from, to int) string {
		var b strings.Builder
		for i, r := range cells {
			if widths[i] >= from && widths[i] < to {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	total := widths[len(cells)]
	col := 0
	comment := false
	for i, t := range tokens {
		if t.Start > col {
			spans = append(spans, Span{Text: byCol(col, t.Start)})
		}
		if t.Text == ";" {
			comment = true
		}
		style := StyleText
		switch {
		case comment:
			style = StyleComment
		case i == 0:
			style = StyleMnemonic
		case isNumber(t.Text):
			style = StyleNumber
		}
		if comment {
			spans = append(spans, Span{Text: byCol(t.Start, total), Style: style})
			return spans
		}
		spans = append(spans, Span{Text: t.Text, Style: style})
		col = t.End
	}
	if col < total {
		spans = append(spans, Span{Text: byCol(col, total)})
	}
	return spans
}
