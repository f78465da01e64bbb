// Package mdkit converts Markdown into styled text.
//
// A Parser runs a fixed pipeline of syntax rules over a styled document:
// code spans and backslash escapes are hidden first, then headers, lists,
// quotes, links, bare URLs, bold and italic are rendered, then any custom
// elements, and finally code and escaped characters are restored. Parsing
// never fails; Markdown that matches no rule stays literal text.
//
//	p := mdkit.NewParser(mdkit.WithAutomaticLinkDetection(false))
//	doc := p.Parse("**Hello** [world](https://example.com)")
//	for _, run := range doc.Runs() {
//		...
//	}
package mdkit

import (
	"regexp"

	"github.com/csams/mdkit/internal/markdown"
	"github.com/csams/mdkit/internal/styledtext"
	"github.com/csams/mdkit/internal/theme"
)

type (
	Parser      = markdown.Parser
	Option      = markdown.Option
	Element     = markdown.Element
	Buffer      = markdown.Buffer
	Match       = markdown.Match
	Rewrite     = markdown.Rewrite
	RewriteFunc = markdown.RewriteFunc

	RegexElement = markdown.RegexElement

	Document   = styledtext.Document
	Font       = styledtext.Font
	Traits     = styledtext.Traits
	Key        = styledtext.Key
	Attributes = styledtext.Attributes
	Run        = styledtext.Run

	Theme = theme.Theme
)

const (
	Bold      = styledtext.Bold
	Italic    = styledtext.Italic
	Monospace = styledtext.Monospace

	KeyFont       = styledtext.KeyFont
	KeyColor      = styledtext.KeyColor
	KeyBackground = styledtext.KeyBackground
	KeyLink       = styledtext.KeyLink
)

// DefaultFont is the base font of parsers created without WithFont.
var DefaultFont = styledtext.DefaultFont

var (
	WithFont                   = markdown.WithFont
	WithColor                  = markdown.WithColor
	WithAutomaticLinkDetection = markdown.WithAutomaticLinkDetection
	WithCustomElements         = markdown.WithCustomElements
	WithTheme                  = markdown.WithTheme
)

// NewParser creates a parser with the built-in elements.
func NewParser(opts ...Option) *Parser {
	return markdown.New(opts...)
}

// NewDocument creates an unstyled document holding text.
func NewDocument(text string) *Document {
	return styledtext.New(text)
}

// NewRegexElement creates a custom element rendering every match of re with
// render.
func NewRegexElement(re *regexp.Regexp, render RewriteFunc) *RegexElement {
	return markdown.NewRegexElement(re, render)
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() *Theme {
	return theme.Default()
}

// LoadTheme reads a YAML theme file. Settings it leaves out keep their
// default values.
func LoadTheme(path string) (*Theme, error) {
	return theme.Load(path)
}

// Parse converts text with a default parser.
func Parse(text string) *Document {
	return NewParser().Parse(text)
}
