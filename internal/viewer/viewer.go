// Package viewer is a terminal pager for Markdown documents with fuzzy
// search.
package viewer

import (
	"context"
	"fmt"

	"github.com/csams/mdkit/internal/markdown"
	"github.com/csams/mdkit/internal/search"
	"github.com/csams/mdkit/internal/styledtext"
	"github.com/csams/mdkit/internal/termview"
	"github.com/csams/mdkit/internal/theme"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mdkit.viewer")
}

// Mode is the input mode of the viewer.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
)

// Viewer shows one parsed document on a screen.
type Viewer struct {
	screen tcell.Screen
	parser *markdown.Parser
	theme  *theme.Theme
	title  string

	doc    *styledtext.Document
	view   *styledtext.Document
	lines  []termview.Line
	width  int
	offset int

	mode    Mode
	query   Query
	matcher *search.Matcher
	hits    []search.Hit
	current int
	status  string
}

// New creates a viewer for source, parsed with p and drawn in th.
func New(screen tcell.Screen, p *markdown.Parser, th *theme.Theme, title, source string) *Viewer {
	if th == nil {
		th = theme.Default()
	}
	v := &Viewer{
		screen:  screen,
		parser:  p,
		theme:   th,
		title:   title,
		matcher: search.NewMatcher(""),
	}
	v.SetSource(source)
	return v
}

// SetSource replaces the document and keeps the current search.
func (v *Viewer) SetSource(source string) {
	v.doc = v.parser.Parse(source)
	v.offset = 0
	v.applySearch()
}

// Mode returns the current input mode.
func (v *Viewer) Mode() Mode {
	return v.mode
}

// Offset returns the index of the first wrapped line on screen.
func (v *Viewer) Offset() int {
	return v.offset
}

// Hits returns the lines matching the current search.
func (v *Viewer) Hits() []search.Hit {
	return v.hits
}

// ScrollTo moves the first visible line to offset, clamped to the document.
func (v *Viewer) ScrollTo(offset int) {
	v.scrollTo(offset)
}

// Search sets the search query and highlights its matches.
func (v *Viewer) Search(query string) {
	v.query.Set(query)
	v.applySearch()
}

// Query returns the current search query.
func (v *Viewer) Query() string {
	return v.query.String()
}

// Status returns the message shown in the status bar.
func (v *Viewer) Status() string {
	return v.status
}

func (v *Viewer) baseStyle() tcell.Style {
	return tcell.StyleDefault.Foreground(v.theme.Text).Background(v.theme.Background)
}

// applySearch re-highlights the document for the current query.
func (v *Viewer) applySearch() {
	v.view = v.doc.Clone()
	v.matcher.SetQuery(v.query.String())
	v.hits = v.matcher.HighlightLines(v.view, v.theme.Highlight)
	v.current = 0
	v.lines = nil
}

func (v *Viewer) layout() {
	w, _ := v.screen.Size()
	if v.lines == nil || w != v.width {
		v.width = w
		v.lines = termview.Wrap(v.view, w, v.baseStyle())
	}
}

func (v *Viewer) pageHeight() int {
	_, h := v.screen.Size()
	return max(1, h-1)
}

func (v *Viewer) scrollTo(offset int) {
	v.layout()
	v.offset = max(0, min(offset, len(v.lines)-v.pageHeight()))
}

// lineOf returns the wrapped line holding document position pos.
func (v *Viewer) lineOf(pos int) int {
	v.layout()
	for i, l := range v.lines {
		if len(l) > 0 && l[len(l)-1].Pos >= pos {
			return i
		}
	}
	return max(0, len(v.lines)-1)
}

func (v *Viewer) showHit(i int) {
	if len(v.hits) == 0 {
		v.status = fmt.Sprintf("no match for %q", v.query.String())
		return
	}
	v.current = (i%len(v.hits) + len(v.hits)) % len(v.hits)
	hit := v.hits[v.current]
	pos := hit.Start
	if len(hit.Positions) > 0 {
		pos += hit.Positions[0]
	}
	v.scrollTo(v.lineOf(pos))
	v.status = fmt.Sprintf("match %d/%d", v.current+1, len(v.hits))
}

// Run draws the viewer and handles events until the user quits or ctx is
// done.
func (v *Viewer) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
				v.Draw()
			case *tcell.EventKey:
				if v.quitKey(ev) {
					tracer().Infof("viewer: quit")
					return nil
				}
				if v.HandleKey(ev) {
					v.Draw()
				}
			}
		}
	}
}

func (v *Viewer) quitKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return true
	}
	return v.mode == ModeNormal && ev.Key() == tcell.KeyRune && ev.Rune() == 'q'
}

// HandleKey processes a key press and reports whether the screen needs a
// redraw.
func (v *Viewer) HandleKey(ev *tcell.EventKey) bool {
	if v.mode == ModeSearch {
		return v.handleSearchKey(ev)
	}

	v.layout()
	page := v.pageHeight()
	switch ev.Key() {
	case tcell.KeyDown, tcell.KeyEnter:
		v.scrollTo(v.offset + 1)
	case tcell.KeyUp:
		v.scrollTo(v.offset - 1)
	case tcell.KeyPgDn, tcell.KeyCtrlF:
		v.scrollTo(v.offset + page)
	case tcell.KeyPgUp, tcell.KeyCtrlB:
		v.scrollTo(v.offset - page)
	case tcell.KeyHome:
		v.scrollTo(0)
	case tcell.KeyEnd:
		v.scrollTo(len(v.lines))
	case tcell.KeyEscape:
		if v.query.String() == "" {
			return false
		}
		v.query.Clear()
		v.applySearch()
		v.status = ""
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'j':
			v.scrollTo(v.offset + 1)
		case 'k':
			v.scrollTo(v.offset - 1)
		case ' ':
			v.scrollTo(v.offset + page)
		case 'b':
			v.scrollTo(v.offset - page)
		case 'g':
			v.scrollTo(0)
		case 'G':
			v.scrollTo(len(v.lines))
		case '/':
			v.mode = ModeSearch
			v.status = ""
		case 'n':
			v.showHit(v.current + 1)
		case 'N':
			v.showHit(v.current - 1)
		default:
			return false
		}
	default:
		return false
	}
	return true
}

func (v *Viewer) handleSearchKey(ev *tcell.EventKey) bool {
	prev := v.query.String()

	switch ev.Key() {
	case tcell.KeyEscape:
		v.mode = ModeNormal
		return true
	case tcell.KeyEnter:
		v.mode = ModeNormal
		v.showHit(0)
		return true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		v.query.DeleteBackward()
	case tcell.KeyDelete, tcell.KeyCtrlD:
		v.query.DeleteForward()
	case tcell.KeyLeft, tcell.KeyCtrlB:
		v.query.Left()
	case tcell.KeyRight, tcell.KeyCtrlF:
		v.query.Right()
	case tcell.KeyHome, tcell.KeyCtrlA:
		v.query.Home()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		v.query.End()
	case tcell.KeyCtrlK:
		v.query.DeleteToEnd()
	case tcell.KeyCtrlW:
		v.query.DeleteWordBackward()
	case tcell.KeyCtrlU:
		v.query.DeleteToStart()
	case tcell.KeyCtrlT:
		v.cycleThreshold()
		v.applySearch()
		return true
	case tcell.KeyRune:
		if ev.Modifiers()&tcell.ModAlt != 0 {
			switch ev.Rune() {
			case 'f', 'F':
				v.query.WordForward()
			case 'b', 'B':
				v.query.WordBackward()
			case 'd', 'D':
				v.query.DeleteWordForward()
			}
		} else {
			v.query.Insert(ev.Rune())
		}
	}

	if v.query.String() != prev {
		v.applySearch()
	}
	return true
}

func (v *Viewer) cycleThreshold() {
	var next int
	switch v.matcher.MinScore() {
	case search.ScoreThresholdNone:
		next = search.ScoreThresholdPermissive
		v.status = "search: permissive (include marginal matches)"
	case search.ScoreThresholdPermissive:
		next = search.ScoreThresholdNormal
		v.status = "search: normal"
	case search.ScoreThresholdNormal:
		next = search.ScoreThresholdStrict
		v.status = "search: strict (high quality matches only)"
	default:
		next = search.ScoreThresholdNone
		v.status = "search: no filtering"
	}
	v.matcher.SetMinScore(next)
}

// Draw renders the document and the status bar.
func (v *Viewer) Draw() {
	v.layout()
	w, h := v.screen.Size()
	base := v.baseStyle()
	v.screen.SetStyle(base)

	rows := v.pageHeight()
	for row := 0; row < rows && row < h; row++ {
		var line termview.Line
		if i := v.offset + row; i < len(v.lines) {
			line = v.lines[i]
		}
		termview.DrawLine(v.screen, 0, row, w, line, base)
	}
	if h > 1 {
		v.drawStatusBar(w, h-1)
	}
	v.screen.Show()
}

func (v *Viewer) drawStatusBar(w, y int) {
	style := tcell.StyleDefault.Foreground(v.theme.Background).Background(v.theme.Header)
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, y, ' ', nil, style)
	}

	if v.mode == ModeSearch {
		prompt := "/" + v.query.String()
		drawText(v.screen, 0, y, w, style, prompt)
		cursor := 1 + runewidth.StringWidth(string([]rune(v.query.String())[:v.query.Cursor()]))
		v.screen.ShowCursor(min(cursor, w-1), y)
		return
	}
	v.screen.HideCursor()

	left := v.title
	if v.status != "" {
		left += "  " + v.status
	}
	drawText(v.screen, 0, y, w, style, left)

	percent := 100
	if n := len(v.lines) - v.pageHeight(); n > 0 {
		percent = v.offset * 100 / n
	}
	right := fmt.Sprintf("%d%%", percent)
	if x := w - runewidth.StringWidth(right); x > runewidth.StringWidth(left)+1 {
		drawText(v.screen, x, y, w-x, style, right)
	}
}

func drawText(s tcell.Screen, x, y, maxWidth int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if col+rw > maxWidth {
			break
		}
		s.SetContent(x+col, y, r, nil, style)
		col += rw
	}
}
