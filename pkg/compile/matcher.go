package compile

import (
	"bytes"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// matcher attempts a match anchored at pos and returns the matched length in
// bytes, or -1 if nothing matched. A zero-length match counts as no match.
type matcher interface {
	match(text []byte, pos int) int
}

// literalAlt is one exact-text alternative of a literal set. Boundary flags
// record which ends of the alternative are identifier-like and therefore must
// be delimited by non-identifier text, so "if" never matches inside "iffy".
type literalAlt struct {
	text       string
	boundLeft  bool
	boundRight bool
}

// literalMatcher matches the longest boundary-respecting alternative at pos.
// Alternatives are kept sorted by length, longest first, so the first hit is
// the maximal munch.
type literalMatcher struct {
	alts []literalAlt
}

func (m *literalMatcher) match(text []byte, pos int) int {
	rest := text[pos:]
	for _, alt := range m.alts {
		if len(alt.text) == 0 || len(alt.text) > len(rest) {
			continue
		}
		if string(rest[:len(alt.text)]) != alt.text {
			continue
		}
		if alt.boundLeft && isWordBefore(text, pos) {
			continue
		}
		if alt.boundRight && isWordAt(text, pos+len(alt.text)) {
			continue
		}
		return len(alt.text)
	}
	return -1
}

// regexMatcher matches a compiled pattern anchored at pos. The regexp is
// compiled with a leading ^ group, which anchors to the start of the slice it
// is applied to.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m *regexMatcher) match(text []byte, pos int) int {
	loc := m.re.FindIndex(text[pos:])
	if loc == nil || loc[1] == 0 {
		return -1
	}
	return loc[1]
}

// delimPair is one delimiter spec of a string or comment category. With
// toEOL set the span runs from open to the end of the line.
type delimPair struct {
	open  string
	close string
	toEOL bool
}

// delimMatcher implements the greedy delimited span semantics of string and
// comment categories: from the opening delimiter to the nearest unescaped
// closing delimiter, or to end of input when unterminated. When several
// pairs open at the same position the longest resulting span wins, so a
// triple-quote pair beats a single-quote pair on '''.
type delimMatcher struct {
	pairs []delimPair
}

func (m *delimMatcher) match(text []byte, pos int) int {
	rest := text[pos:]
	best := -1
	for _, p := range m.pairs {
		if !bytes.HasPrefix(rest, []byte(p.open)) {
			continue
		}
		var n int
		body := rest[len(p.open):]
		switch {
		case p.toEOL:
			if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
				n = len(p.open) + nl
			} else {
				n = len(rest)
			}
		default:
			if end := indexUnescaped(body, p.close); end >= 0 {
				n = len(p.open) + end + len(p.close)
			} else {
				n = len(rest)
			}
		}
		if n > best {
			best = n
		}
	}
	return best
}

// indexUnescaped finds the first occurrence of sep in b that is not preceded
// by an odd run of backslashes, so "a\"b" stays one string span.
func indexUnescaped(b []byte, sep string) int {
	offset := 0
	for {
		idx := bytes.Index(b[offset:], []byte(sep))
		if idx < 0 {
			return -1
		}
		idx += offset
		backslashes := 0
		for i := idx - 1; i >= 0 && b[i] == '\\'; i-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return idx
		}
		offset = idx + 1
	}
}

// BracketPair is an ordered open/close delimiter pair declared by a cbracket
// category, used for nested-scope consumers such as fold regions.
type BracketPair struct {
	Open  string
	Close string
}

// bracketMatcher classifies either delimiter of its pairs as a bracket span.
type bracketMatcher struct {
	pairs []BracketPair
}

func (m *bracketMatcher) match(text []byte, pos int) int {
	rest := text[pos:]
	best := -1
	for _, p := range m.pairs {
		if bytes.HasPrefix(rest, []byte(p.Open)) && len(p.Open) > best {
			best = len(p.Open)
		}
		if bytes.HasPrefix(rest, []byte(p.Close)) && len(p.Close) > best {
			best = len(p.Close)
		}
	}
	return best
}

func firstLastRune(s string) (rune, rune) {
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return first, last
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordBefore(text []byte, pos int) bool {
	if pos <= 0 {
		return false
	}
	r, _ := utf8.DecodeLastRune(text[:pos])
	return isWordRune(r)
}

func isWordAt(text []byte, pos int) bool {
	if pos >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRune(text[pos:])
	return isWordRune(r)
}
