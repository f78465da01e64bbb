package styledtext

import (
	"fmt"
	"strings"
)

// Traits is a set of font variations applied on top of a base font.
type Traits uint8

const (
	Bold Traits = 1 << iota
	Italic
	Monospace
)

func (t Traits) String() string {
	if t == 0 {
		return "regular"
	}
	var parts []string
	if t&Bold != 0 {
		parts = append(parts, "bold")
	}
	if t&Italic != 0 {
		parts = append(parts, "italic")
	}
	if t&Monospace != 0 {
		parts = append(parts, "monospace")
	}
	return strings.Join(parts, "+")
}

// Font describes the typeface a run of text is displayed with.
// Terminal renderers only look at the traits.
type Font struct {
	Family string
	Size   float64
	Traits Traits
}

// DefaultFont is used when a parser is configured without a font.
var DefaultFont = Font{Family: "sans-serif", Size: 12}

// With returns a copy of f with the given traits added.
func (f Font) With(t Traits) Font {
	f.Traits |= t
	return f
}

// Without returns a copy of f with the given traits removed.
func (f Font) Without(t Traits) Font {
	f.Traits &^= t
	return f
}

// Has reports whether all of the given traits are set.
func (f Font) Has(t Traits) bool {
	return f.Traits&t == t
}

// Resized returns a copy of f with a different point size.
func (f Font) Resized(size float64) Font {
	f.Size = size
	return f
}

func (f Font) String() string {
	return fmt.Sprintf("%s %gpt %s", f.Family, f.Size, f.Traits)
}
