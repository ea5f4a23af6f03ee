package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/editkit/hilite/pkg/position"
)

func TestGetLineAndColumn(t *testing.T) {
	t.Run("test_start_of_text", func(t *testing.T) {
		p := position.NewBasicPosition("keyword", 0)
		line, col := p.GetLineAndColumn("keyword = \"if\"")
		assert.Equal(t, 0, line)
		assert.Equal(t, 0, col)
	})

	t.Run("test_later_line", func(t *testing.T) {
		text := "@title C\nkeyword = \"if\"\nsymbols = \"=\"\n"
		p := position.NewBasicPosition("symbols = \"=\"", 24)
		line, col := p.GetLineAndColumn(text)
		assert.Equal(t, 2, line)
		assert.Equal(t, 0, col)
	})

	t.Run("test_column_counts_graphemes", func(t *testing.T) {
		// The two-byte ö must count as one column.
		text := "# wörld\nkeyword"
		p := position.NewBasicPosition("rld", 5)
		line, col := p.GetLineAndColumn(text)
		assert.Equal(t, 0, line)
		assert.Equal(t, 4, col, "columns are grapheme clusters, not bytes")
	})

	t.Run("test_offset_past_end_clamps", func(t *testing.T) {
		p := position.NewBasicPosition("", 100)
		line, col := p.GetLineAndColumn("ab\ncd")
		assert.Equal(t, 1, line)
		assert.Equal(t, 2, col)
	})
}

func TestGetRange(t *testing.T) {
	text := "keyword = \"if\"\nsymbols = \"=\"\n"
	p := position.NewBasicPosition("symbols", 15)
	r := p.GetRange(text)
	assert.Equal(t, position.Place{Line: 1, Character: 0}, r.Start)
	assert.Equal(t, position.Place{Line: 1, Character: 7}, r.End)
}

func TestHasRangeOverlapWith(t *testing.T) {
	a := position.NewBasicPosition("keyword", 0)
	b := position.NewBasicPosition("word", 3)
	c := position.NewBasicPosition("x", 20)

	assert.True(t, a.HasRangeOverlapWith(b))
	assert.True(t, b.HasRangeOverlapWith(a))
	assert.False(t, a.HasRangeOverlapWith(c))
}

func TestID(t *testing.T) {
	p := position.NewBasicPosition("if", 4)
	assert.Equal(t, "if@4", p.ID())
	assert.Equal(t, "if@4", p.String())
	assert.Equal(t, 2, p.Length())
}
