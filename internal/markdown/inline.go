package markdown

import (
	"regexp"
	"strings"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/gdamore/tcell/v2"
)

// Link renders inline links [text](url "title") and images ![alt](src). The
// text stays in place, carries the target in styledtext.KeyLink and is drawn
// in Color. A link without text shows its target.
type Link struct {
	Color tcell.Color

	pattern *regexp.Regexp
}

// NewLink creates a link element.
func NewLink(color tcell.Color) *Link {
	return &Link{
		Color:   color,
		pattern: regexp.MustCompile(`(!?)\[([^\[\]]*)\]\([ \t]*<?([^\s()<>]+)>?(?:[ \t]+"([^"]*)")?[ \t]*\)`),
	}
}

func (l *Link) Apply(buf Buffer) {
	applyPattern(buf, l.pattern, l.render)
}

func (l *Link) render(_ Buffer, m Match) (Rewrite, bool) {
	target := plainText(m.Group(3))
	attrs := styledtext.Attributes{
		styledtext.KeyLink:  target,
		styledtext.KeyColor: l.Color,
	}
	if strings.TrimSpace(m.Group(2)) == "" {
		return Rewrite{Replace: true, Text: target, Attributes: attrs}, true
	}
	return Rewrite{Keep: 2, Attributes: attrs}, true
}

// AutomaticLink turns bare URLs into links. Trailing punctuation is left out
// of the link, and text that already is a link is not touched. The URL is
// escaped so emphasis rules do not rewrite it.
type AutomaticLink struct {
	Color tcell.Color

	pattern *regexp.Regexp
}

// NewAutomaticLink creates an automatic link element.
func NewAutomaticLink(color tcell.Color) *AutomaticLink {
	return &AutomaticLink{
		Color:   color,
		pattern: regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>]*[^\s<>.,:;!?'"*_)\]]`),
	}
}

func (a *AutomaticLink) Apply(buf Buffer) {
	applyPattern(buf, a.pattern, a.render)
}

func (a *AutomaticLink) render(buf Buffer, m Match) (Rewrite, bool) {
	if hasAttribute(buf, styledtext.KeyLink, m.Start, m.End) {
		return Rewrite{}, false
	}
	target := plainText(m.Group(0))
	if strings.HasPrefix(strings.ToLower(target), "www.") {
		target = "http://" + target
	}
	return Rewrite{
		Replace: true,
		Text:    shieldLiterals(m.Group(0)),
		Attributes: styledtext.Attributes{
			styledtext.KeyLink:  target,
			styledtext.KeyColor: a.Color,
		},
	}, true
}

// Bold renders **strong** and __strong__ text by adding the bold trait to the
// fonts already in place. Font is used where the text has none.
type Bold struct {
	Font styledtext.Font

	pattern *regexp.Regexp
}

// NewBold creates a bold element.
func NewBold(font styledtext.Font) *Bold {
	return &Bold{
		Font:    font,
		pattern: regexp.MustCompile(`\*\*(\S(?:.*?\S)?)\*\*|__(\S(?:.*?\S)?)__`),
	}
}

func (b *Bold) Apply(buf Buffer) {
	applyPattern(buf, b.pattern, emphasis(styledtext.Bold, b.Font))
}

// Italic renders *emphasis* and _emphasis_. Underscores only count at word
// boundaries so snake_case names stay intact.
type Italic struct {
	Font styledtext.Font

	pattern *regexp.Regexp
}

// NewItalic creates an italic element.
func NewItalic(font styledtext.Font) *Italic {
	return &Italic{
		Font:    font,
		pattern: regexp.MustCompile(`\*(\S(?:.*?\S)?)\*|\b_(\S(?:.*?\S)?)_\b`),
	}
}

func (i *Italic) Apply(buf Buffer) {
	applyPattern(buf, i.pattern, emphasis(styledtext.Italic, i.Font))
}

func emphasis(traits styledtext.Traits, font styledtext.Font) RewriteFunc {
	return func(_ Buffer, m Match) (Rewrite, bool) {
		keep := 1
		if !m.HasGroup(1) {
			keep = 2
		}
		return Rewrite{Keep: keep, Traits: traits, BaseFont: font}, true
	}
}
