package markdown

import (
	"regexp"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/gdamore/tcell/v2"
)

// Code renders the code spans and fenced blocks hidden by the escaping phase.
// Their text is restored verbatim and styled in a monospace variant of the
// surrounding font, in Color and, unless it is tcell.ColorDefault, on
// Background.
type Code struct {
	Font       styledtext.Font
	Color      tcell.Color
	Background tcell.Color

	pattern *regexp.Regexp
}

// NewCode creates a code element.
func NewCode(font styledtext.Font, color tcell.Color) *Code {
	return &Code{
		Font:       font,
		Color:      color,
		Background: tcell.ColorDefault,
		pattern:    regexp.MustCompile(`\x{E002}([^\x{E003}]*)\x{E003}|\x{E004}([^\x{E005}]*)\x{E005}([^\x{E006}]*)\x{E006}`),
	}
}

func (c *Code) Apply(buf Buffer) {
	applyPattern(buf, c.pattern, c.render)
}

func (c *Code) render(_ Buffer, m Match) (Rewrite, bool) {
	content := m.Group(1)
	if !m.HasGroup(1) {
		content = m.Group(3)
	}
	attrs := styledtext.Attributes{styledtext.KeyColor: c.Color}
	if c.Background != tcell.ColorDefault {
		attrs[styledtext.KeyBackground] = c.Background
	}
	return Rewrite{
		Replace:    true,
		Text:       codeText(content),
		Attributes: attrs,
		Traits:     styledtext.Monospace,
		BaseFont:   c.Font,
	}, true
}
