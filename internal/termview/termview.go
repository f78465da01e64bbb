// Package termview draws styled documents on a tcell screen.
package termview

import (
	"github.com/csams/mdkit/internal/styledtext"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// StyleFor converts document attributes to a terminal style layered over
// base. Bold and italic traits map to the matching attributes, links are
// underlined and carry their target as an OSC 8 hyperlink.
func StyleFor(attrs styledtext.Attributes, base tcell.Style) tcell.Style {
	style := base
	if f, ok := attrs.Font(); ok {
		if f.Has(styledtext.Bold) {
			style = style.Bold(true)
		}
		if f.Has(styledtext.Italic) {
			style = style.Italic(true)
		}
	}
	if c, ok := attrs.Color(); ok && c != tcell.ColorDefault {
		style = style.Foreground(c)
	}
	if c, ok := attrs.Background(); ok && c != tcell.ColorDefault {
		style = style.Background(c)
	}
	if link, ok := attrs.Link(); ok {
		style = style.Underline(true).Url(link)
	}
	return style
}

// Cell is one rune of a wrapped line. Pos is its position in the document.
// Combining runes have Width 0 and belong to the cell before them.
type Cell struct {
	Rune  rune
	Width int
	Style tcell.Style
	Pos   int
}

// Line is a row of cells no wider than the wrap width.
type Line []Cell

// Width returns the display width of the line.
func (l Line) Width() int {
	w := 0
	for _, c := range l {
		w += c.Width
	}
	return w
}

func (l Line) String() string {
	rs := make([]rune, len(l))
	for i, c := range l {
		rs[i] = c.Rune
	}
	return string(rs)
}

// Wrap breaks doc into lines of at most width columns. Lines break at
// newlines and, where possible, at the last space that fits; the space a line
// is broken at is dropped. Words wider than the line are split.
func Wrap(doc *styledtext.Document, width int, base tcell.Style) []Line {
	if width <= 0 {
		return nil
	}

	var lines []Line
	var cur Line
	curWidth, lastSpace := 0, -1
	flush := func() {
		lines = append(lines, cur)
		cur, curWidth, lastSpace = nil, 0, -1
	}

	for _, run := range doc.Runs() {
		style := StyleFor(run.Attributes, base)
		pos := run.Start
		for _, r := range run.Text {
			p := pos
			pos++
			if r == '\n' {
				flush()
				continue
			}
			if r == '\t' {
				r = ' '
			}
			w := runewidth.RuneWidth(r)
			if w > 0 && curWidth+w > width && len(cur) > 0 {
				if r == ' ' {
					flush()
					continue
				}
				if lastSpace >= 0 {
					rest := append(Line(nil), cur[lastSpace+1:]...)
					cur = cur[:lastSpace]
					flush()
					cur, curWidth = rest, rest.Width()
				} else {
					flush()
				}
			}
			if r == ' ' {
				lastSpace = len(cur)
			}
			cur = append(cur, Cell{Rune: r, Width: w, Style: style, Pos: p})
			curWidth += w
		}
	}
	if len(cur) > 0 {
		flush()
	}
	return lines
}

// DrawLine draws line at x, y, clipped to width columns, and pads the rest of
// the row with fill.
func DrawLine(s tcell.Screen, x, y, width int, line Line, fill tcell.Style) {
	col := 0
	for i, c := range line {
		if c.Width == 0 {
			continue
		}
		if col+c.Width > width {
			break
		}
		var combining []rune
		for j := i + 1; j < len(line) && line[j].Width == 0; j++ {
			combining = append(combining, line[j].Rune)
		}
		s.SetContent(x+col, y, c.Rune, combining, c.Style)
		col += c.Width
	}
	for ; col < width; col++ {
		s.SetContent(x+col, y, ' ', nil, fill)
	}
}

// Draw renders doc into the width x height box at x, y, starting at wrapped
// line offset. It returns the total number of wrapped lines so callers can
// clamp their scroll offset.
func Draw(s tcell.Screen, doc *styledtext.Document, x, y, width, height, offset int, base tcell.Style) int {
	lines := Wrap(doc, width, base)
	offset = max(0, min(offset, len(lines)))
	for row := 0; row < height; row++ {
		var line Line
		if offset+row < len(lines) {
			line = lines[offset+row]
		}
		DrawLine(s, x, y+row, width, line, base)
	}
	return len(lines)
}
