// Package tokenize applies a compiled grammar to source text, producing a
// lazy sequence of classified spans that exactly covers the input.
package tokenize

import (
	"unicode/utf8"

	"github.com/editkit/hilite/pkg/compile"
	"github.com/editkit/hilite/pkg/grammar"
)

// Span is a classified byte range [Start, End) of the input text. Spans are
// non-overlapping and ordered by start offset; text no category matched is
// reported as grammar.Plain.
type Span struct {
	Category grammar.Category `json:"category"`
	Start    int              `json:"start"`
	End      int              `json:"end"`
}

// Scanner walks text left to right, producing one span per Next call. A
// Scanner holds no state shared with other scanners: tokenization is a pure
// function of (grammar, text), and independent requests over the same
// grammar may run concurrently.
type Scanner struct {
	g    *compile.Grammar
	text []byte
	pos  int
	end  int
}

// New returns a scanner over the whole text.
func New(g *compile.Grammar, text []byte) *Scanner {
	return &Scanner{g: g, text: text, end: len(text)}
}

// NewRange returns a scanner that emits spans clipped to [start, end).
// Matching runs against the full text, so the caller should include enough
// surrounding context in text for matches that straddle the range boundary;
// only the emitted spans are clipped.
func NewRange(g *compile.Grammar, text []byte, start, end int) *Scanner {
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if end < start {
		end = start
	}
	return &Scanner{g: g, text: text, pos: start, end: end}
}

// Next returns the next span. The second result is false once the input is
// exhausted.
func (s *Scanner) Next() (Span, bool) {
	if s.pos >= s.end {
		return Span{}, false
	}

	if cat, n, ok := s.g.MatchAt(s.text, s.pos); ok {
		span := Span{Category: cat, Start: s.pos, End: s.clip(s.pos + n)}
		s.pos = span.End
		return span, true
	}

	// No category matches here: extend a plain span until one does. A rune
	// straddling the range end is clipped so spans never leave [start, end).
	start := s.pos
	for s.pos < s.end {
		_, size := utf8.DecodeRune(s.text[s.pos:])
		s.pos = s.clip(s.pos + size)
		if s.pos >= s.end {
			break
		}
		if _, _, ok := s.g.MatchAt(s.text, s.pos); ok {
			break
		}
	}
	return Span{Category: grammar.Plain, Start: start, End: s.pos}, true
}

func (s *Scanner) clip(end int) int {
	if end > s.end {
		return s.end
	}
	return end
}

// Spans tokenizes the whole text eagerly.
func Spans(g *compile.Grammar, text []byte) []Span {
	var out []Span
	sc := New(g, text)
	for {
		span, ok := sc.Next()
		if !ok {
			return out
		}
		out = append(out, span)
	}
}

// Range tokenizes the sub-range [start, end) eagerly, with matching context
// taken from the full text.
func Range(g *compile.Grammar, text []byte, start, end int) []Span {
	var out []Span
	sc := NewRange(g, text, start, end)
	for {
		span, ok := sc.Next()
		if !ok {
			return out
		}
		out = append(out, span)
	}
}

// Text returns the slice of text a span covers.
func (sp Span) Text(text []byte) string {
	return string(text[sp.Start:sp.End])
}
