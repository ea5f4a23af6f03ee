package grammar

import (
	"github.com/editkit/hilite/pkg/position"
)

// Category is the name of a lexical token class a grammar file may declare.
type Category string

const (
	Keyword     Category = "keyword"
	Type        Category = "type"
	String      Category = "string"
	Comment     Category = "comment"
	Number      Category = "number"
	Symbols     Category = "symbols"
	CBracket    Category = "cbracket"
	Variable    Category = "variable"
	Function    Category = "function"
	Preproc     Category = "preproc"
	Label       Category = "label"
	SpecialChar Category = "specialchar"
	Todo        Category = "todo"
	URL         Category = "url"
	Normal      Category = "normal"

	// Plain tags text no declared category matched. It cannot be declared
	// in a grammar file; the tokenizer produces it for uncovered gaps.
	Plain Category = "plain"
)

var vocabulary = map[Category]bool{
	Keyword:     true,
	Type:        true,
	String:      true,
	Comment:     true,
	Number:      true,
	Symbols:     true,
	CBracket:    true,
	Variable:    true,
	Function:    true,
	Preproc:     true,
	Label:       true,
	SpecialChar: true,
	Todo:        true,
	URL:         true,
	Normal:      true,
}

// Known reports whether c belongs to the recognized category vocabulary.
func (c Category) Known() bool {
	return vocabulary[c]
}

// SegmentKind discriminates the pieces a pattern expression is built from.
type SegmentKind int

const (
	// SegmentRegex is a single-quoted regular expression literal.
	SegmentRegex SegmentKind = iota
	// SegmentLiteral is a double-quoted plain string, matched verbatim.
	SegmentLiteral
	// SegmentReference is a $Name back-reference to an earlier vardef.
	SegmentReference
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentRegex:
		return "regex"
	case SegmentLiteral:
		return "literal"
	case SegmentReference:
		return "reference"
	}
	return "unknown"
}

// Segment is one +-concatenated piece of a pattern expression. Text holds
// regex source, literal text, or the referenced vardef name depending on Kind.
type Segment struct {
	Kind SegmentKind
	Text string
}

// Value is one alternative assigned to a category. Exactly one of Literals
// and Pattern is set: a double-quoted pipe-delimited set ("if|else") yields
// Literals; anything with regex literals, plain-literal concatenation, or
// $Name references yields Pattern.
type Value struct {
	Literals []string
	Pattern  []Segment
}

// IsPattern reports whether this value is a pattern expression rather than a
// literal alternative set.
func (v Value) IsPattern() bool {
	return v.Pattern != nil
}

// Statement is one parsed line of a grammar file body: an Include, a
// Declaration, or a Vardef.
type Statement interface {
	Pos() position.RawPosition
}

// Include splices another fragment's declarations at this point.
type Include struct {
	Fragment string

	Position position.RawPosition
}

func (s *Include) Pos() position.RawPosition { return s.Position }

// Declaration assigns one or more value expressions to a category.
type Declaration struct {
	Category Category
	Values   []Value

	Position position.RawPosition
}

func (s *Declaration) Pos() position.RawPosition { return s.Position }

// Vardef introduces a named, reusable regular-expression fragment that later
// pattern expressions may reference as $Name.
type Vardef struct {
	Name   string
	Source string

	Position position.RawPosition
}

func (s *Vardef) Pos() position.RawPosition { return s.Position }

// File is one parsed grammar file: selection metadata plus the ordered
// statement list. Statement order is load-bearing: it decides both include
// expansion points and category precedence.
type File struct {
	// Name is the fragment identity this file was loaded under.
	Name string

	// Metadata from @-directives. Consumed by grammar-selection components
	// outside this engine; passthrough only.
	Title      string
	UTIs       []string
	Extensions []string
	Programs   []string

	Statements []Statement
}

// Resolved is the flattened declaration set of a file's include closure, in
// effective declaration order. Produced by the loader, consumed by the
// compiler.
type Resolved struct {
	// File is the root grammar file; included fragments contribute
	// statements, not metadata.
	File *File

	Statements []ResolvedStatement
}

// ResolvedStatement is a Declaration or Vardef together with the fragment it
// came from, for error reporting.
type ResolvedStatement struct {
	Fragment  string
	Source    string
	Statement Statement
}
