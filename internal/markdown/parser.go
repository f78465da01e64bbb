package markdown

import (
	"reflect"
	"sync"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/csams/mdkit/internal/theme"
	"github.com/gdamore/tcell/v2"
)

// Parser converts Markdown into styled text.
//
// The built-in elements are exposed so their styling can be tuned; do that
// before the parser is shared. Custom elements may be added and removed at
// any time, registration is synchronized with parsing.
type Parser struct {
	Header        *Header
	List          *List
	Quote         *Quote
	Link          *Link
	AutomaticLink *AutomaticLink
	Bold          *Bold
	Italic        *Italic
	Code          *Code

	font                   styledtext.Font
	color                  tcell.Color
	automaticLinkDetection bool

	codeEscaping Element
	escaping     Element
	unescaping   Element

	mu             sync.RWMutex
	customElements []Element
}

// Option configures a Parser.
type Option func(*config)

type config struct {
	font                   styledtext.Font
	color                  tcell.Color
	automaticLinkDetection bool
	customElements         []Element
	theme                  *theme.Theme
}

// WithFont sets the base font of parsed text.
func WithFont(font styledtext.Font) Option {
	return func(c *config) {
		c.font = font
	}
}

// WithColor sets the base text color.
func WithColor(color tcell.Color) Option {
	return func(c *config) {
		c.color = color
	}
}

// WithAutomaticLinkDetection turns the detection of bare URLs on or off.
// It is on by default.
func WithAutomaticLinkDetection(enabled bool) Option {
	return func(c *config) {
		c.automaticLinkDetection = enabled
	}
}

// WithCustomElements registers elements to run after the built-in ones.
func WithCustomElements(elements ...Element) Option {
	return func(c *config) {
		c.customElements = append(c.customElements, elements...)
	}
}

// WithTheme takes the base font, text color, link detection setting and the
// accent colors of the built-in elements from t. Options given after it
// override the base settings.
func WithTheme(t *theme.Theme) Option {
	return func(c *config) {
		if t == nil {
			return
		}
		c.font = t.Font
		c.color = t.Text
		c.automaticLinkDetection = t.AutomaticLinkDetection
		c.theme = t
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	c := config{
		font:                   styledtext.DefaultFont,
		color:                  tcell.ColorDefault,
		automaticLinkDetection: true,
	}
	for _, opt := range opts {
		opt(&c)
	}

	p := &Parser{
		Header:        NewHeader(c.font, c.color),
		List:          NewList(c.font, c.color),
		Quote:         NewQuote(c.font, c.color),
		Link:          NewLink(tcell.ColorBlue),
		AutomaticLink: NewAutomaticLink(tcell.ColorBlue),
		Bold:          NewBold(c.font),
		Italic:        NewItalic(c.font),
		Code:          NewCode(c.font, c.color),

		font:                   c.font,
		color:                  c.color,
		automaticLinkDetection: c.automaticLinkDetection,

		codeEscaping: codeEscaping{},
		escaping:     newEscaping(),
		unescaping:   newUnescaping(),
	}
	if t := c.theme; t != nil {
		p.Header.Color = t.Header
		p.List.Color = t.List
		p.Quote.Color = t.Quote
		p.Link.Color = t.Link
		p.AutomaticLink.Color = t.Link
		p.Code.Color = t.Code
		p.Code.Background = t.CodeBackground
	}
	for _, e := range c.customElements {
		p.AddCustomElement(e)
	}
	return p
}

// Font returns the base font.
func (p *Parser) Font() styledtext.Font {
	return p.font
}

// Color returns the base text color.
func (p *Parser) Color() tcell.Color {
	return p.color
}

// AutomaticLinkDetectionEnabled reports whether bare URLs become links.
func (p *Parser) AutomaticLinkDetectionEnabled() bool {
	return p.automaticLinkDetection
}

// AddCustomElement appends e to the custom elements. Nil is ignored.
func (p *Parser) AddCustomElement(e Element) {
	if e == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customElements = append(p.customElements, e)
}

// RemoveCustomElement removes the first registration of e. Elements are
// compared by identity; removing an element that was never added does
// nothing.
func (p *Parser) RemoveCustomElement(e Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ce := range p.customElements {
		if sameElement(ce, e) {
			p.customElements = append(p.customElements[:i:i], p.customElements[i+1:]...)
			return
		}
	}
}

// CustomElements returns a copy of the registered custom elements.
func (p *Parser) CustomElements() []Element {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Element(nil), p.customElements...)
}

// Parse converts markdown into a new styled document.
func (p *Parser) Parse(markdown string) *styledtext.Document {
	doc := styledtext.New(markdown)
	p.ParseBuffer(doc)
	return doc
}

// ParseDocument converts a copy of doc. Styling already present in doc is
// kept as a base layer, except font and color which are reset to the
// parser's base values before the Markdown styling is applied.
func (p *Parser) ParseDocument(doc *styledtext.Document) *styledtext.Document {
	if doc == nil {
		return p.Parse("")
	}
	out := doc.Clone()
	p.ParseBuffer(out)
	return out
}

// ParseBuffer converts buf in place.
func (p *Parser) ParseBuffer(buf Buffer) {
	buf.AddAttributes(styledtext.Attributes{
		styledtext.KeyFont:  p.font,
		styledtext.KeyColor: p.color,
	}, 0, buf.Len())

	elements := p.elements()
	tracer().Debugf("markdown: parsing %d runes with %d elements", buf.Len(), len(elements))
	for _, e := range elements {
		if _, ok := e.(*AutomaticLink); ok && !p.automaticLinkDetection {
			continue
		}
		e.Apply(buf)
	}
}

// elements assembles the pipeline for one parse call.
func (p *Parser) elements() []Element {
	p.mu.RLock()
	custom := append([]Element(nil), p.customElements...)
	p.mu.RUnlock()

	elements := make([]Element, 0, 11+len(custom))
	elements = append(elements, p.codeEscaping, p.escaping)
	for _, e := range []Element{
		p.Header, p.List, p.Quote, p.Link, p.AutomaticLink, p.Bold, p.Italic,
	} {
		if !isNil(e) {
			elements = append(elements, e)
		}
	}
	elements = append(elements, custom...)
	if p.Code != nil {
		elements = append(elements, p.Code)
	}
	return append(elements, p.unescaping)
}

// sameElement compares elements by identity. Elements of types that cannot
// be compared are never equal.
func sameElement(a, b Element) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

func isNil(e Element) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
