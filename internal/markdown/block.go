package markdown

import (
	"regexp"
	"strings"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/gdamore/tcell/v2"
)

const maxHeaderLevel = 6

// Header renders ATX headers (# Title). The text is bold and grows by
// FontIncrease points for every level above the lowest.
type Header struct {
	Font         styledtext.Font
	Color        tcell.Color
	FontIncrease float64

	pattern *regexp.Regexp
}

// NewHeader creates a header element.
func NewHeader(font styledtext.Font, color tcell.Color) *Header {
	return &Header{
		Font:         font,
		Color:        color,
		FontIncrease: 2,
		pattern:      regexp.MustCompile(`(?m)^[ ]{0,3}(#{1,6})[ \t]+(.+?)(?:[ \t]+#+)?[ \t]*$`),
	}
}

func (h *Header) Apply(buf Buffer) {
	applyPattern(buf, h.pattern, h.render)
}

func (h *Header) render(_ Buffer, m Match) (Rewrite, bool) {
	return Rewrite{
		Keep: 2,
		Attributes: styledtext.Attributes{
			styledtext.KeyFont:  h.FontFor(len(m.Group(1))),
			styledtext.KeyColor: h.Color,
		},
	}, true
}

// FontFor returns the font headers of the given level (1-6) are set in.
func (h *Header) FontFor(level int) styledtext.Font {
	level = max(1, min(level, maxHeaderLevel))
	size := h.Font.Size + h.FontIncrease*float64(maxHeaderLevel-level)
	return h.Font.Resized(size).With(styledtext.Bold)
}

// List renders list item markers. Unordered markers become bullets chosen by
// nesting depth, ordered markers are normalised to "N.". Indentation is
// rewritten to two spaces per level.
type List struct {
	Font    styledtext.Font
	Color   tcell.Color
	Bullets []string

	pattern *regexp.Regexp
}

// NewList creates a list element.
func NewList(font styledtext.Font, color tcell.Color) *List {
	return &List{
		Font:    font,
		Color:   color,
		Bullets: []string{"•", "◦", "▸"},
		pattern: regexp.MustCompile(`(?m)^([ \t]*)([-*+]|\d{1,9}[.)])[ \t]+`),
	}
}

func (l *List) Apply(buf Buffer) {
	applyPattern(buf, l.pattern, l.render)
}

func (l *List) render(_ Buffer, m Match) (Rewrite, bool) {
	level := indentLevel(m.Group(1))
	marker := m.Group(2)
	switch marker {
	case "-", "*", "+":
		if len(l.Bullets) > 0 {
			marker = l.Bullets[min(level, len(l.Bullets)-1)]
		}
	default:
		marker = marker[:len(marker)-1] + "."
	}
	return Rewrite{
		Replace: true,
		Text:    strings.Repeat("  ", level) + marker + " ",
		Attributes: styledtext.Attributes{
			styledtext.KeyFont:  l.Font,
			styledtext.KeyColor: l.Color,
		},
	}, true
}

func indentLevel(indent string) int {
	cols := 0
	for _, r := range indent {
		if r == '\t' {
			cols += 4
		} else {
			cols++
		}
	}
	return min(cols/2, 2)
}

// Quote renders block quote lines with a bar in front, in italics.
type Quote struct {
	Font  styledtext.Font
	Color tcell.Color
	Bar   string

	pattern *regexp.Regexp
}

// NewQuote creates a quote element.
func NewQuote(font styledtext.Font, color tcell.Color) *Quote {
	return &Quote{
		Font:    font,
		Color:   color,
		Bar:     "│ ",
		pattern: regexp.MustCompile(`(?m)^[ ]{0,3}>[ \t]?(.*)$`),
	}
}

func (q *Quote) Apply(buf Buffer) {
	applyPattern(buf, q.pattern, q.render)
}

func (q *Quote) render(_ Buffer, m Match) (Rewrite, bool) {
	return Rewrite{
		Keep:   1,
		Prefix: q.Bar,
		Attributes: styledtext.Attributes{
			styledtext.KeyFont:  q.Font,
			styledtext.KeyColor: q.Color,
		},
		Traits: styledtext.Italic,
	}, true
}
