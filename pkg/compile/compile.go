// Package compile transforms a resolved grammar declaration set into an
// immutable, matchable form. Compilation is deterministic: identical
// declarations always yield a structurally identical Grammar.
package compile

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/editkit/hilite/pkg/grammar"
)

// Rule is one compiled category with its precedence rank. Lower ranks were
// declared or included earlier and win on overlapping matches.
type Rule struct {
	Category grammar.Category
	Rank     int

	literals *literalMatcher
	matchers []matcher
}

// match returns the longest match among the rule's alternatives at pos, or
// -1. Longest-wins inside a rule is the maximal munch tie-break.
func (r *Rule) match(text []byte, pos int) int {
	best := -1
	if r.literals != nil {
		best = r.literals.match(text, pos)
	}
	for _, m := range r.matchers {
		if n := m.match(text, pos); n > best {
			best = n
		}
	}
	return best
}

// Grammar is the compiled, flattened union of all categories across a
// grammar's include closure. It is immutable and safe for concurrent use.
type Grammar struct {
	file     *grammar.File
	rules    []*Rule
	brackets []BracketPair
}

// Name returns the grammar identity this was compiled from.
func (g *Grammar) Name() string { return g.file.Name }

// File returns the root grammar file, including its selection metadata.
func (g *Grammar) File() *grammar.File { return g.file }

// Brackets returns the ordered open/close pairs declared by cbracket
// categories.
func (g *Grammar) Brackets() []BracketPair {
	out := make([]BracketPair, len(g.brackets))
	copy(out, g.brackets)
	return out
}

// Categories returns the declared categories in precedence order.
func (g *Grammar) Categories() []grammar.Category {
	out := make([]grammar.Category, len(g.rules))
	for i, r := range g.rules {
		out[i] = r.Category
	}
	return out
}

// MatchAt tries every rule at pos in precedence order and returns the
// winning category with its matched length. Within a rule the longest
// alternative wins; across rules the earliest-declared wins.
func (g *Grammar) MatchAt(text []byte, pos int) (grammar.Category, int, bool) {
	for _, r := range g.rules {
		if n := r.match(text, pos); n > 0 {
			return r.Category, n, true
		}
	}
	return grammar.Plain, 0, false
}

// New compiles a resolved declaration set. All validation failures are
// accumulated and returned together; a grammar with any invalid declaration
// never compiles partially.
func New(ctx context.Context, res *grammar.Resolved) (*Grammar, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("grammar", res.File.Name).Int("statements", len(res.Statements)).Msg("compiling grammar")

	c := &compiler{
		vars:  make(map[string]string),
		byCat: make(map[grammar.Category]*Rule),
		out:   &Grammar{file: res.File},
	}

	for _, rs := range res.Statements {
		switch st := rs.Statement.(type) {
		case *grammar.Vardef:
			c.vardef(rs.Fragment, st)
		case *grammar.Declaration:
			c.declare(rs.Fragment, st)
		}
	}

	if c.errs != nil {
		return nil, c.errs
	}

	for _, r := range c.out.rules {
		if r.literals != nil {
			finalizeLiterals(r.literals)
		}
	}

	logger.Debug().Str("grammar", res.File.Name).Int("rules", len(c.out.rules)).Msg("compiled grammar")
	return c.out, nil
}

type compiler struct {
	vars  map[string]string
	byCat map[grammar.Category]*Rule
	out   *Grammar
	errs  error
}

func (c *compiler) fail(err error) {
	c.errs = multierr.Append(c.errs, err)
}

// vardef records a named pattern fragment. A redefinition shadows the
// earlier one for all later references. The regex source is validated here
// so a broken vardef is reported at its definition, not at first use.
func (c *compiler) vardef(fragment string, st *grammar.Vardef) {
	if _, err := regexp.Compile("(?:" + st.Source + ")"); err != nil {
		c.fail(&InvalidPatternError{
			Fragment: fragment,
			Position: st.Pos(),
			Source:   st.Source,
			Reason:   regexErrReason(err),
		})
		return
	}
	c.vars[st.Name] = st.Source
}

func (c *compiler) declare(fragment string, st *grammar.Declaration) {
	if !st.Category.Known() {
		c.fail(&UnknownCategoryError{Category: st.Category, Fragment: fragment, Position: st.Pos()})
		return
	}

	rule := c.byCat[st.Category]
	if rule == nil {
		rule = &Rule{Category: st.Category, Rank: len(c.out.rules)}
		c.byCat[st.Category] = rule
		c.out.rules = append(c.out.rules, rule)
	}

	for _, v := range st.Values {
		switch st.Category {
		case grammar.CBracket:
			c.addBracket(rule, fragment, st, v)
		case grammar.String, grammar.Comment:
			c.addDelimited(rule, fragment, st, v)
		default:
			c.addValue(rule, fragment, st, v)
		}
	}
}

// addValue compiles a plain category value: a literal set merges into the
// rule's shared literal matcher, a pattern expression compiles to an
// anchored regexp.
func (c *compiler) addValue(rule *Rule, fragment string, st *grammar.Declaration, v grammar.Value) {
	if !v.IsPattern() {
		if rule.literals == nil {
			rule.literals = &literalMatcher{}
		}
		for _, text := range v.Literals {
			if text == "" {
				continue
			}
			rule.literals.alts = append(rule.literals.alts, newLiteralAlt(text))
		}
		return
	}

	source, err := c.expand(fragment, st, v.Pattern)
	if err != nil {
		c.fail(err)
		return
	}
	re, err := regexp.Compile("^(?:" + source + ")")
	if err != nil {
		c.fail(&InvalidPatternError{
			Fragment: fragment,
			Position: st.Pos(),
			Source:   source,
			Reason:   regexErrReason(err),
		})
		return
	}
	rule.matchers = append(rule.matchers, &regexMatcher{re: re})
}

// addBracket parses a cbracket value as an ordered open/close pair, e.g.
// cbracket = "{|}".
func (c *compiler) addBracket(rule *Rule, fragment string, st *grammar.Declaration, v grammar.Value) {
	if v.IsPattern() || len(v.Literals) != 2 || v.Literals[0] == "" || v.Literals[1] == "" {
		c.fail(&InvalidPatternError{
			Fragment: fragment,
			Position: st.Pos(),
			Source:   valueSource(v),
			Reason:   "cbracket requires an \"open|close\" delimiter pair",
		})
		return
	}

	pair := BracketPair{Open: v.Literals[0], Close: v.Literals[1]}
	c.out.brackets = append(c.out.brackets, pair)

	var bm *bracketMatcher
	for _, m := range rule.matchers {
		if existing, ok := m.(*bracketMatcher); ok {
			bm = existing
			break
		}
	}
	if bm == nil {
		bm = &bracketMatcher{}
		rule.matchers = append(rule.matchers, bm)
	}
	bm.pairs = append(bm.pairs, pair)
}

// addDelimited handles string and comment values. Pair form "open|close"
// spans open to close, single form "open" spans open to end of line, and a
// pattern expression compiles like any other pattern.
func (c *compiler) addDelimited(rule *Rule, fragment string, st *grammar.Declaration, v grammar.Value) {
	if v.IsPattern() {
		c.addValue(rule, fragment, st, v)
		return
	}

	var pair delimPair
	switch {
	case len(v.Literals) == 1 && v.Literals[0] != "":
		pair = delimPair{open: v.Literals[0], toEOL: true}
	case len(v.Literals) == 2 && v.Literals[0] != "" && v.Literals[1] != "":
		pair = delimPair{open: v.Literals[0], close: v.Literals[1]}
	default:
		c.fail(&InvalidPatternError{
			Fragment: fragment,
			Position: st.Pos(),
			Source:   valueSource(v),
			Reason:   string(st.Category) + " requires an \"open\" or \"open|close\" delimiter",
		})
		return
	}

	var dm *delimMatcher
	for _, m := range rule.matchers {
		if existing, ok := m.(*delimMatcher); ok {
			dm = existing
			break
		}
	}
	if dm == nil {
		dm = &delimMatcher{}
		rule.matchers = append(rule.matchers, dm)
	}
	dm.pairs = append(dm.pairs, pair)
}

// expand substitutes $Name references with their vardef regex source. A
// reference resolves against the vardefs seen so far in effective
// declaration order, so declaration order matters across includes.
func (c *compiler) expand(fragment string, st *grammar.Declaration, pattern []grammar.Segment) (string, error) {
	var b strings.Builder
	for _, seg := range pattern {
		switch seg.Kind {
		case grammar.SegmentRegex:
			b.WriteString("(?:" + seg.Text + ")")
		case grammar.SegmentLiteral:
			b.WriteString(regexp.QuoteMeta(seg.Text))
		case grammar.SegmentReference:
			src, ok := c.vars[seg.Text]
			if !ok {
				return "", &UndefinedReferenceError{Name: seg.Text, Fragment: fragment, Position: st.Pos()}
			}
			b.WriteString("(?:" + src + ")")
		}
	}
	return b.String(), nil
}

func newLiteralAlt(text string) literalAlt {
	first, last := firstLastRune(text)
	return literalAlt{
		text:       text,
		boundLeft:  isWordRune(first),
		boundRight: isWordRune(last),
	}
}

// finalizeLiterals dedupes alternatives and orders them longest first. The
// sort is stable so equal-length alternatives keep declaration order.
func finalizeLiterals(m *literalMatcher) {
	seen := make(map[string]bool, len(m.alts))
	deduped := m.alts[:0]
	for _, alt := range m.alts {
		if seen[alt.text] {
			continue
		}
		seen[alt.text] = true
		deduped = append(deduped, alt)
	}
	m.alts = deduped
	sort.SliceStable(m.alts, func(i, j int) bool {
		return len(m.alts[i].text) > len(m.alts[j].text)
	})
}

func valueSource(v grammar.Value) string {
	if !v.IsPattern() {
		return strings.Join(v.Literals, "|")
	}
	parts := make([]string, len(v.Pattern))
	for i, seg := range v.Pattern {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " + ")
}

// regexErrReason strips the "error parsing regexp: " prefix the regexp
// package puts on every message, since InvalidPatternError adds its own
// context.
func regexErrReason(err error) string {
	return strings.TrimPrefix(err.Error(), "error parsing regexp: ")
}
