package markdown

import (
	"regexp"
	"unicode/utf8"

	"github.com/csams/mdkit/internal/styledtext"
)

// Buffer is the part of a styled text the elements need. It is satisfied by
// *styledtext.Document; any other rich-text type offering the same
// capabilities can be parsed in place with Parser.ParseBuffer.
type Buffer interface {
	Len() int
	String() string
	Attribute(key styledtext.Key, pos int) (any, bool)
	AddAttributes(attrs styledtext.Attributes, start, end int)
	Replace(start, end int, text string, attrs styledtext.Attributes)
}

var _ Buffer = (*styledtext.Document)(nil)

// Element implements one Markdown syntax rule. Apply finds every
// non-overlapping match of the rule in the buffer, scanning left to right, and
// rewrites each match in place. Text inserted by Apply is not scanned again.
//
// Parsers tell elements apart by identity, so implementations should be
// pointer types.
type Element interface {
	Apply(buf Buffer)
}

// Match is one occurrence of a pattern. All positions are rune offsets into
// the buffer as it was when the pattern was run.
type Match struct {
	Start, End int
	groups     []group
}

type group struct {
	start, end int
	text       string
}

// NumGroups returns the number of submatches, not counting the whole match.
func (m Match) NumGroups() int {
	return len(m.groups) - 1
}

// Group returns the text of submatch i; 0 is the whole match. Submatches
// that did not take part in the match are empty.
func (m Match) Group(i int) string {
	if i < 0 || i >= len(m.groups) {
		return ""
	}
	return m.groups[i].text
}

// HasGroup reports whether submatch i took part in the match.
func (m Match) HasGroup(i int) bool {
	return i >= 0 && i < len(m.groups) && m.groups[i].start >= 0
}

// GroupRange returns the rune range of submatch i, or -1, -1.
func (m Match) GroupRange(i int) (int, int) {
	if !m.HasGroup(i) {
		return -1, -1
	}
	return m.groups[i].start, m.groups[i].end
}

// Rewrite describes how a single match is rendered.
//
// By default the submatch selected by Keep stays in the buffer untouched, so
// attributes earlier elements gave it survive, and the markup before and
// after it is swapped for Prefix and Suffix. With Replace set the whole match
// is swapped for Text instead.
//
// Attributes are then applied over the rendered range and Traits are merged
// into whatever font each part of that range already has, or into BaseFont
// where it has none.
type Rewrite struct {
	Keep           int
	Prefix, Suffix string

	Replace bool
	Text    string

	Attributes styledtext.Attributes
	Traits     styledtext.Traits
	BaseFont   styledtext.Font
}

// RewriteFunc renders one match. Returning false leaves the match as literal
// text. The buffer may be inspected but must not be modified.
type RewriteFunc func(buf Buffer, m Match) (Rewrite, bool)

// RegexElement is an Element driven by a regular expression. It is the
// building block of the built-in rules and the easiest way to write a custom
// one.
type RegexElement struct {
	Pattern *regexp.Regexp
	Render  RewriteFunc
}

// NewRegexElement creates an element rendering every match of re with render.
func NewRegexElement(re *regexp.Regexp, render RewriteFunc) *RegexElement {
	return &RegexElement{Pattern: re, Render: render}
}

func (e *RegexElement) Apply(buf Buffer) {
	if e.Pattern == nil || e.Render == nil {
		return
	}
	applyPattern(buf, e.Pattern, e.Render)
}

// applyPattern renders every match of re against the current text, then
// applies the rewrites.
func applyPattern(buf Buffer, re *regexp.Regexp, render RewriteFunc) {
	text := buf.String()
	locs := re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return
	}
	offsets := runeOffsets(text)
	var edits []edit
	for _, loc := range locs {
		m := newMatch(text, loc, offsets)
		if rw, ok := render(buf, m); ok {
			edits = append(edits, edit{m, rw})
		}
	}
	applyEdits(buf, edits)
}

// edit is a rendered match.
type edit struct {
	m  Match
	rw Rewrite
}

// applyEdits applies non-overlapping edits ordered by position. A
// *styledtext.Document is rebuilt in one pass; other buffers are edited
// from the last match backwards so the offsets of earlier ones stay valid.
func applyEdits(buf Buffer, edits []edit) {
	if len(edits) == 0 {
		return
	}
	if doc, ok := buf.(*styledtext.Document); ok {
		*doc = *rebuild(doc, edits)
		return
	}
	for i := len(edits) - 1; i >= 0; i-- {
		rewrite(buf, edits[i].m, edits[i].rw)
	}
}

func rebuild(src *styledtext.Document, edits []edit) *styledtext.Document {
	out := &styledtext.Document{}
	pos := 0
	for _, e := range edits {
		m, rw := e.m, e.rw
		out.AppendSlice(src, pos, m.Start)
		start := out.Len()
		if rw.Replace || !m.HasGroup(rw.Keep) {
			out.Append(rw.Text, src.InheritedAttributes(m.Start, m.End))
		} else {
			cs, ce := m.GroupRange(rw.Keep)
			out.Append(rw.Prefix, src.InheritedAttributes(m.Start, cs))
			out.AppendSlice(src, cs, ce)
			out.Append(rw.Suffix, src.InheritedAttributes(ce, m.End))
		}
		style(out, start, out.Len(), rw)
		pos = m.End
	}
	out.AppendSlice(src, pos, src.Len())
	return out
}

func newMatch(text string, loc []int, offsets []int) Match {
	m := Match{
		Start:  offsets[loc[0]],
		End:    offsets[loc[1]],
		groups: make([]group, len(loc)/2),
	}
	for i := range m.groups {
		b, e := loc[2*i], loc[2*i+1]
		if b < 0 {
			m.groups[i] = group{start: -1, end: -1}
			continue
		}
		m.groups[i] = group{start: offsets[b], end: offsets[e], text: text[b:e]}
	}
	return m
}

func rewrite(buf Buffer, m Match, rw Rewrite) {
	var n int
	if rw.Replace || !m.HasGroup(rw.Keep) {
		buf.Replace(m.Start, m.End, rw.Text, nil)
		n = utf8.RuneCountInString(rw.Text)
	} else {
		cs, ce := m.GroupRange(rw.Keep)
		if ce != m.End || rw.Suffix != "" {
			buf.Replace(ce, m.End, rw.Suffix, nil)
		}
		if cs != m.Start || rw.Prefix != "" {
			buf.Replace(m.Start, cs, rw.Prefix, nil)
		}
		n = utf8.RuneCountInString(rw.Prefix) + (ce - cs) + utf8.RuneCountInString(rw.Suffix)
	}
	style(buf, m.Start, m.Start+n, rw)
}

// style applies the attributes and traits of rw over [start, end).
func style(buf Buffer, start, end int, rw Rewrite) {
	if start == end {
		return
	}
	if len(rw.Attributes) > 0 {
		buf.AddAttributes(rw.Attributes, start, end)
	}
	if rw.Traits != 0 {
		addTraits(buf, start, end, rw.Traits, rw.BaseFont)
	}
}

// addTraits merges traits into the font of every run in [start, end).
func addTraits(buf Buffer, start, end int, traits styledtext.Traits, base styledtext.Font) {
	if base == (styledtext.Font{}) {
		base = styledtext.DefaultFont
	}
	for pos := start; pos < end; {
		font := fontAt(buf, pos, base)
		next := pos + 1
		for next < end && fontAt(buf, next, base) == font {
			next++
		}
		buf.AddAttributes(styledtext.Attributes{styledtext.KeyFont: font.With(traits)}, pos, next)
		pos = next
	}
}

func fontAt(buf Buffer, pos int, base styledtext.Font) styledtext.Font {
	if v, ok := buf.Attribute(styledtext.KeyFont, pos); ok {
		if f, ok := v.(styledtext.Font); ok {
			return f
		}
	}
	return base
}

// runeOffsets maps every byte offset of s that starts a rune (and len(s)) to
// the rune offset at that point.
func runeOffsets(s string) []int {
	offsets := make([]int, len(s)+1)
	n := 0
	for i := range s {
		offsets[i] = n
		n++
	}
	offsets[len(s)] = n
	return offsets
}

// hasAttribute reports whether any rune in [start, end) carries key.
func hasAttribute(buf Buffer, key styledtext.Key, start, end int) bool {
	for pos := start; pos < end; pos++ {
		if _, ok := buf.Attribute(key, pos); ok {
			return true
		}
	}
	return false
}
