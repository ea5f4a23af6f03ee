package grammar

import (
	"fmt"
	"strings"

	"github.com/editkit/hilite/pkg/position"
)

// ParseError reports a malformed grammar file line.
type ParseError struct {
	Fragment string
	Position position.RawPosition
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (at %s)", e.Fragment, e.Message, e.Position.ID())
}

// Parse parses the textual grammar file format into a File. It validates
// statement shape only; category vocabulary and pattern references are
// checked by the compiler.
//
// The format is line oriented:
//
//	@title C
//	@matchext c, h
//	include "c_comment"
//	vardef ID = '[[:word:]]+'
//	keyword = "if|else|while"
//	variable = '\$' + $ID
//
// Lines starting with # are comments. Repeating a category name continues
// its alternative list.
func Parse(name string, src []byte) (*File, error) {
	f := &File{Name: name}
	text := string(src)

	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(line)

		line = strings.TrimSuffix(line, "\n")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		pos := position.NewBasicPosition(trimmed, lineStart+strings.Index(line, trimmed[:1]))

		if strings.HasPrefix(trimmed, "@") {
			parseDirective(f, trimmed)
			continue
		}

		stmt, err := parseStatement(name, trimmed, pos)
		if err != nil {
			return nil, err
		}
		f.Statements = append(f.Statements, stmt)
	}

	return f, nil
}

// parseDirective handles @-prefixed header metadata. Unrecognized directives
// are passed over: the engine only transports metadata, it never interprets
// it, and newer editor builds may emit directives older ones do not know.
func parseDirective(f *File, line string) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "@title":
		f.Title = rest
	case "@matchuti":
		f.UTIs = splitList(rest)
	case "@matchext":
		f.Extensions = splitList(rest)
	case "@matchprogram":
		f.Programs = splitList(rest)
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseStatement(fragment, line string, pos position.RawPosition) (Statement, error) {
	fail := func(format string, args ...any) (Statement, error) {
		return nil, &ParseError{
			Fragment: fragment,
			Position: pos,
			Message:  fmt.Sprintf(format, args...),
		}
	}

	if rest, ok := strings.CutPrefix(line, "include"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '"') {
		target, err := parseIncludeTarget(strings.TrimSpace(rest))
		if err != nil {
			return fail("%v", err)
		}
		return &Include{Fragment: target, Position: pos}, nil
	}

	if rest, ok := strings.CutPrefix(line, "vardef"); ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
		vd, err := parseVardef(strings.TrimSpace(rest))
		if err != nil {
			return fail("%v", err)
		}
		vd.Position = pos
		return vd, nil
	}

	name, rest, ok := strings.Cut(line, "=")
	if !ok {
		return fail("expected declaration of the form <category> = <value>")
	}
	name = strings.TrimSpace(name)
	if !isIdent(name) {
		return fail("invalid category name %q", name)
	}

	values, err := parseValues(strings.TrimSpace(rest))
	if err != nil {
		return fail("%v", err)
	}
	return &Declaration{Category: Category(name), Values: values, Position: pos}, nil
}

func parseIncludeTarget(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("include target must be a quoted fragment name")
	}
	target := s[1 : len(s)-1]
	if target == "" || strings.ContainsAny(target, "\"\n") {
		return "", fmt.Errorf("invalid include target %q", target)
	}
	return target, nil
}

func parseVardef(s string) (*Vardef, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok {
		return nil, fmt.Errorf("expected vardef <Name> = '<regex>'")
	}
	name = strings.TrimSpace(name)
	if !isIdent(name) {
		return nil, fmt.Errorf("invalid vardef name %q", name)
	}

	sc := newValueScanner(strings.TrimSpace(rest))
	seg, err := sc.segment()
	if err != nil {
		return nil, err
	}
	if !sc.done() {
		return nil, fmt.Errorf("vardef %s: trailing input after regex literal", name)
	}
	if seg.quote != '\'' {
		return nil, fmt.Errorf("vardef %s: value must be a single-quoted regex literal", name)
	}
	return &Vardef{Name: name, Source: seg.text}, nil
}

// rawSegment is a scanned pattern piece before literal-set disambiguation.
type rawSegment struct {
	text  string
	quote byte // '\'', '"', or '$' for references
}

// parseValues parses the right-hand side of a declaration: comma-separated
// values, each a +-concatenation of quoted segments and $Name references.
func parseValues(s string) ([]Value, error) {
	sc := newValueScanner(s)
	var values []Value

	for {
		var segs []rawSegment
		for {
			seg, err := sc.segment()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			if !sc.eat('+') {
				break
			}
		}
		values = append(values, buildValue(segs))

		if sc.done() {
			return values, nil
		}
		if !sc.eat(',') {
			return nil, fmt.Errorf("unexpected input at %q", sc.rest())
		}
	}
}

// buildValue decides the value form: a lone double-quoted segment is a
// pipe-delimited literal set, anything else is a pattern expression.
func buildValue(segs []rawSegment) Value {
	if len(segs) == 1 && segs[0].quote == '"' {
		return Value{Literals: strings.Split(segs[0].text, "|")}
	}

	pattern := make([]Segment, len(segs))
	for i, seg := range segs {
		switch seg.quote {
		case '\'':
			pattern[i] = Segment{Kind: SegmentRegex, Text: seg.text}
		case '"':
			pattern[i] = Segment{Kind: SegmentLiteral, Text: seg.text}
		case '$':
			pattern[i] = Segment{Kind: SegmentReference, Text: seg.text}
		}
	}
	return Value{Pattern: pattern}
}

type valueScanner struct {
	s   string
	pos int
}

func newValueScanner(s string) *valueScanner {
	return &valueScanner{s: s}
}

func (sc *valueScanner) skipSpace() {
	for sc.pos < len(sc.s) && (sc.s[sc.pos] == ' ' || sc.s[sc.pos] == '\t') {
		sc.pos++
	}
}

func (sc *valueScanner) done() bool {
	sc.skipSpace()
	return sc.pos >= len(sc.s)
}

func (sc *valueScanner) rest() string {
	return sc.s[sc.pos:]
}

func (sc *valueScanner) eat(c byte) bool {
	sc.skipSpace()
	if sc.pos < len(sc.s) && sc.s[sc.pos] == c {
		sc.pos++
		return true
	}
	return false
}

func (sc *valueScanner) segment() (rawSegment, error) {
	sc.skipSpace()
	if sc.pos >= len(sc.s) {
		return rawSegment{}, fmt.Errorf("expected a value expression")
	}

	switch c := sc.s[sc.pos]; c {
	case '"', '\'':
		text, err := sc.quoted(c)
		if err != nil {
			return rawSegment{}, err
		}
		return rawSegment{text: text, quote: c}, nil
	case '$':
		sc.pos++
		start := sc.pos
		for sc.pos < len(sc.s) && isIdentByte(sc.s[sc.pos]) {
			sc.pos++
		}
		if sc.pos == start {
			return rawSegment{}, fmt.Errorf("expected pattern name after $")
		}
		return rawSegment{text: sc.s[start:sc.pos], quote: '$'}, nil
	default:
		return rawSegment{}, fmt.Errorf("unexpected character %q in value expression", c)
	}
}

// quoted scans a quoted segment. In double-quoted values backslash escapes
// the quote and itself. In single-quoted regex literals only \' unescapes;
// every other backslash sequence is kept verbatim so regex escapes like \$
// and \\ survive untouched.
func (sc *valueScanner) quoted(quote byte) (string, error) {
	sc.pos++ // opening quote
	var b strings.Builder
	for sc.pos < len(sc.s) {
		c := sc.s[sc.pos]
		switch c {
		case quote:
			sc.pos++
			return b.String(), nil
		case '\\':
			if sc.pos+1 >= len(sc.s) {
				return "", fmt.Errorf("dangling backslash in quoted value")
			}
			next := sc.s[sc.pos+1]
			if next == quote || (quote == '"' && next == '\\') {
				b.WriteByte(next)
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			sc.pos += 2
		default:
			b.WriteByte(c)
			sc.pos++
		}
	}
	return "", fmt.Errorf("unterminated quoted value")
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentByte(s[i]) {
			return false
		}
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
