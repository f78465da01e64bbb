// Package styledtext implements a mutable rich-text buffer: a sequence of
// runes with style attributes attached to rune ranges.
//
// Every attribute kind (font, color, link target, ...) keeps its own list of
// runs. Runs of one kind never overlap, and neighbouring runs carrying equal
// values are merged. All positions are rune offsets into the current text;
// out-of-range positions are clamped rather than rejected.
package styledtext

import (
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/gdamore/tcell/v2"
)

// Key identifies one kind of style attribute.
type Key int

const (
	KeyFont       Key = iota // Font
	KeyColor                 // tcell.Color, the foreground
	KeyBackground            // tcell.Color
	KeyLink                  // string, the link target
)

var keyNames = [...]string{"font", "color", "background", "link"}

func (k Key) String() string {
	if k >= 0 && int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "key(" + strconv.Itoa(int(k)) + ")"
}

// Attributes maps attribute kinds to values. Values must be comparable;
// a nil value removes the attribute when applied.
type Attributes map[Key]any

// Font returns the font attribute, if any.
func (a Attributes) Font() (Font, bool) {
	f, ok := a[KeyFont].(Font)
	return f, ok
}

// Color returns the foreground color attribute, if any.
func (a Attributes) Color() (tcell.Color, bool) {
	c, ok := a[KeyColor].(tcell.Color)
	return c, ok
}

// Background returns the background color attribute, if any.
func (a Attributes) Background() (tcell.Color, bool) {
	c, ok := a[KeyBackground].(tcell.Color)
	return c, ok
}

// Link returns the link target, if any.
func (a Attributes) Link() (string, bool) {
	l, ok := a[KeyLink].(string)
	return l, ok
}

// Equal reports whether a and b carry the same values for the same keys.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !sameValue(v, w) {
			return false
		}
	}
	return true
}

// Span is one run of a single attribute kind.
type Span struct {
	Start, End int
	Value      any
}

// Run is a maximal stretch of text sharing one set of attributes.
type Run struct {
	Text       string
	Start, End int
	Attributes Attributes
}

type span struct {
	start, end int
	value      any
}

// Document is a mutable styled text. The zero value is an empty document.
type Document struct {
	text  []rune
	spans map[Key][]span
}

// New creates an unstyled document holding text.
func New(text string) *Document {
	return &Document{text: []rune(text)}
}

// NewStyled creates a document holding text with attrs over its whole range.
func NewStyled(text string, attrs Attributes) *Document {
	d := New(text)
	d.AddAttributes(attrs, 0, d.Len())
	return d
}

// Len returns the length of the document in runes.
func (d *Document) Len() int {
	return len(d.text)
}

func (d *Document) String() string {
	return string(d.text)
}

// Slice returns the text between two rune positions.
func (d *Document) Slice(start, end int) string {
	start, end = d.clamp(start, end)
	return string(d.text[start:end])
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := &Document{text: append([]rune(nil), d.text...)}
	if len(d.spans) > 0 {
		c.spans = make(map[Key][]span, len(d.spans))
		for k, spans := range d.spans {
			c.spans[k] = append([]span(nil), spans...)
		}
	}
	return c
}

// AddAttribute sets key to value over [start, end), replacing whatever value
// the range carried before.
func (d *Document) AddAttribute(key Key, value any, start, end int) {
	start, end = d.clamp(start, end)
	if start == end {
		return
	}
	d.set(key, value, start, end)
}

// AddAttributes applies every entry of attrs over [start, end).
func (d *Document) AddAttributes(attrs Attributes, start, end int) {
	start, end = d.clamp(start, end)
	if start == end {
		return
	}
	for k, v := range attrs {
		d.set(k, v, start, end)
	}
}

// RemoveAttribute clears key over [start, end).
func (d *Document) RemoveAttribute(key Key, start, end int) {
	d.AddAttribute(key, nil, start, end)
}

// Attribute returns the value of key at rune position pos.
func (d *Document) Attribute(key Key, pos int) (any, bool) {
	if pos < 0 || pos >= len(d.text) {
		return nil, false
	}
	spans := d.spans[key]
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > pos })
	if i < len(spans) && spans[i].start <= pos {
		return spans[i].value, true
	}
	return nil, false
}

// AttributesAt returns all attributes in effect at rune position pos.
func (d *Document) AttributesAt(pos int) Attributes {
	attrs := Attributes{}
	for k := range d.spans {
		if v, ok := d.Attribute(k, pos); ok {
			attrs[k] = v
		}
	}
	return attrs
}

// Spans returns the runs of a single attribute kind in text order.
func (d *Document) Spans(key Key) []Span {
	spans := d.spans[key]
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, len(spans))
	for i, s := range spans {
		out[i] = Span{Start: s.start, End: s.end, Value: s.value}
	}
	return out
}

// Replace swaps the text in [start, end) for text. The new text inherits the
// attributes of the first replaced rune (for a pure insertion, those of the
// rune before it); attrs are then layered on top. Runs behind the edit are
// shifted so they keep covering the same characters.
func (d *Document) Replace(start, end int, text string, attrs Attributes) {
	start, end = d.clamp(start, end)
	ins := []rune(text)
	inherited := d.InheritedAttributes(start, end)
	delta := len(ins) - (end - start)

	for key, spans := range d.spans {
		d.spans[key] = cut(spans, start, end, delta)
	}
	d.text = slices.Replace(d.text, start, end, ins...)

	if len(ins) == 0 {
		return
	}
	for k, v := range inherited {
		d.set(k, v, start, start+len(ins))
	}
	for k, v := range attrs {
		d.set(k, v, start, start+len(ins))
	}
}

// InheritedAttributes returns the attributes Replace gives text that takes
// the place of [start, end).
func (d *Document) InheritedAttributes(start, end int) Attributes {
	pos := start
	if start == end && start > 0 {
		pos = start - 1
	}
	return d.AttributesAt(pos)
}

// Append adds text carrying exactly attrs to the end of d.
func (d *Document) Append(text string, attrs Attributes) {
	if text == "" {
		return
	}
	start := len(d.text)
	d.text = append(d.text, []rune(text)...)
	for k, v := range attrs {
		d.set(k, v, start, len(d.text))
	}
}

// AppendSlice adds the text of src in [start, end) to the end of d, together
// with its attributes.
func (d *Document) AppendSlice(src *Document, start, end int) {
	start, end = src.clamp(start, end)
	if start == end {
		return
	}
	off := len(d.text) - start
	d.text = append(d.text, src.text[start:end]...)
	for key, spans := range src.spans {
		i := sort.Search(len(spans), func(i int) bool { return spans[i].end > start })
		for ; i < len(spans) && spans[i].start < end; i++ {
			d.set(key, spans[i].value, max(spans[i].start, start)+off, min(spans[i].end, end)+off)
		}
	}
}

// Runs splits the document into maximal runs of identical attribute sets.
func (d *Document) Runs() []Run {
	if len(d.text) == 0 {
		return nil
	}
	bounds := []int{0, len(d.text)}
	for _, spans := range d.spans {
		for _, s := range spans {
			bounds = append(bounds, s.start, s.end)
		}
	}
	sort.Ints(bounds)

	var runs []Run
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		if start == end {
			continue
		}
		attrs := d.AttributesAt(start)
		if n := len(runs); n > 0 && runs[n-1].Attributes.Equal(attrs) {
			runs[n-1].End = end
			continue
		}
		runs = append(runs, Run{Start: start, End: end, Attributes: attrs})
	}
	for i := range runs {
		runs[i].Text = string(d.text[runs[i].Start:runs[i].End])
	}
	return runs
}

func (d *Document) set(key Key, value any, start, end int) {
	if start >= end {
		return
	}
	if d.spans == nil {
		d.spans = make(map[Key][]span)
	}
	spans := d.spans[key]
	i, j := overlap(spans, start, end)

	repl := make([]span, 0, 5)
	lo, hi := i, j
	if i > 0 {
		lo--
		repl = append(repl, spans[lo])
	}
	if i < j && spans[i].start < start {
		repl = append(repl, span{spans[i].start, start, spans[i].value})
	}
	if value != nil {
		repl = append(repl, span{start, end, value})
	}
	if i < j && spans[j-1].end > end {
		repl = append(repl, span{end, spans[j-1].end, spans[j-1].value})
	}
	if j < len(spans) {
		repl = append(repl, spans[j])
		hi++
	}
	spans = slices.Replace(spans, lo, hi, merge(repl)...)
	if len(spans) == 0 {
		delete(d.spans, key)
		return
	}
	d.spans[key] = spans
}

// overlap returns the index range of the spans intersecting [start, end).
func overlap(spans []span, start, end int) (int, int) {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > start })
	j := sort.Search(len(spans), func(i int) bool { return spans[i].start >= end })
	return i, max(i, j)
}

// cut removes [start, end) from spans and moves the spans behind it by delta.
func cut(spans []span, start, end, delta int) []span {
	i, j := overlap(spans, start, end)
	repl := make([]span, 0, 2)
	k := i
	if i < j && spans[i].start < start {
		repl = append(repl, span{spans[i].start, start, spans[i].value})
		k++
	}
	if i < j && spans[j-1].end > end {
		repl = append(repl, span{end, spans[j-1].end, spans[j-1].value})
	}
	spans = slices.Replace(spans, i, j, repl...)

	for n := k; n < len(spans); n++ {
		spans[n].start += delta
		spans[n].end += delta
	}
	if k > 0 && k < len(spans) && spans[k-1].end == spans[k].start && sameValue(spans[k-1].value, spans[k].value) {
		spans[k-1].end = spans[k].end
		spans = slices.Delete(spans, k, k+1)
	}
	return spans
}

func (d *Document) clamp(start, end int) (int, int) {
	n := len(d.text)
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	return start, end
}

// merge joins neighbouring spans of equal value and drops empty ones.
func merge(spans []span) []span {
	out := spans[:0]
	for _, s := range spans {
		if s.start >= s.end {
			continue
		}
		if n := len(out); n > 0 && out[n-1].end == s.start && sameValue(out[n-1].value, s.value) {
			out[n-1].end = s.end
			continue
		}
		out = append(out, s)
	}
	return out
}

func sameValue(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta == nil {
		return true
	}
	return ta.Comparable() && a == b
}
