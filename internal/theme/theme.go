// Package theme holds the fonts and colors Markdown is rendered with, and
// loads them from YAML files.
package theme

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/gdamore/tcell/v2"
	"github.com/google/renameio"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultThemeData []byte

// FileName is the name LoadDir looks for.
const FileName = "theme.yaml"

// ErrInvalidColor is returned for color values that are neither a hex
// triplet nor a known color name.
var ErrInvalidColor = errors.New("invalid color")

// Theme is the resolved set of styles.
type Theme struct {
	Font styledtext.Font

	Text           tcell.Color
	Background     tcell.Color
	Header         tcell.Color
	List           tcell.Color
	Quote          tcell.Color
	Link           tcell.Color
	Code           tcell.Color
	CodeBackground tcell.Color
	Highlight      tcell.Color

	AutomaticLinkDetection bool
}

// File is the YAML representation of a theme. Colors are "#rrggbb", "#rgb",
// a color name known to tcell, or "default".
type File struct {
	Font struct {
		Family string  `yaml:"family"`
		Size   float64 `yaml:"size"`
		Bold   bool    `yaml:"bold"`
		Italic bool    `yaml:"italic"`
	} `yaml:"font"`
	Colors struct {
		Text           string `yaml:"text"`
		Background     string `yaml:"background"`
		Header         string `yaml:"header"`
		List           string `yaml:"list"`
		Quote          string `yaml:"quote"`
		Link           string `yaml:"link"`
		Code           string `yaml:"code"`
		CodeBackground string `yaml:"codeBackground"`
		Highlight      string `yaml:"highlight"`
	} `yaml:"colors"`
	AutomaticLinkDetection bool `yaml:"automaticLinkDetection"`
}

func tracer() tracing.Trace {
	return tracing.Select("mdkit.theme")
}

func defaultFile() *File {
	var f File
	if err := yaml.Unmarshal(defaultThemeData, &f); err != nil {
		panic(fmt.Sprintf("theme: embedded default theme is broken: %v", err))
	}
	return &f
}

// Default returns the built-in theme.
func Default() *Theme {
	t, err := defaultFile().Resolve()
	if err != nil {
		panic(fmt.Sprintf("theme: embedded default theme is broken: %v", err))
	}
	return t
}

// Parse reads a theme from YAML. Settings missing from data keep their
// default values.
func Parse(data []byte) (*Theme, error) {
	f := defaultFile()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("theme: %w", err)
	}
	return f.Resolve()
}

// Load reads a theme file.
func Load(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tracer().Debugf("theme: loaded %s", path)
	return t, nil
}

// LoadDir loads FileName from a config directory, falling back to the
// default theme when there is no such file.
func LoadDir(configDir string) (*Theme, error) {
	path := filepath.Join(configDir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// WriteDefault writes the built-in theme to FileName in configDir, creating
// the directory if needed, and returns the file's path. An existing file is
// replaced atomically.
func WriteDefault(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(configDir, FileName)
	if err := renameio.WriteFile(path, defaultThemeData, 0o644); err != nil {
		return "", fmt.Errorf("theme: %w", err)
	}
	tracer().Infof("theme: wrote default theme to %s", path)
	return path, nil
}

// Resolve turns the file representation into a Theme.
func (f *File) Resolve() (*Theme, error) {
	t := &Theme{
		Font: styledtext.Font{
			Family: f.Font.Family,
			Size:   f.Font.Size,
		},
		AutomaticLinkDetection: f.AutomaticLinkDetection,
	}
	if t.Font.Family == "" {
		t.Font.Family = styledtext.DefaultFont.Family
	}
	if t.Font.Size <= 0 {
		t.Font.Size = styledtext.DefaultFont.Size
	}
	if f.Font.Bold {
		t.Font = t.Font.With(styledtext.Bold)
	}
	if f.Font.Italic {
		t.Font = t.Font.With(styledtext.Italic)
	}

	for _, c := range []struct {
		name  string
		value string
		dst   *tcell.Color
	}{
		{"text", f.Colors.Text, &t.Text},
		{"background", f.Colors.Background, &t.Background},
		{"header", f.Colors.Header, &t.Header},
		{"list", f.Colors.List, &t.List},
		{"quote", f.Colors.Quote, &t.Quote},
		{"link", f.Colors.Link, &t.Link},
		{"code", f.Colors.Code, &t.Code},
		{"codeBackground", f.Colors.CodeBackground, &t.CodeBackground},
		{"highlight", f.Colors.Highlight, &t.Highlight},
	} {
		color, err := ParseColor(c.value)
		if err != nil {
			return nil, fmt.Errorf("theme: %s: %w", c.name, err)
		}
		*c.dst = color
	}

	if strings.TrimSpace(f.Colors.Quote) == "" {
		t.Quote = Blend(t.Text, t.Background, 0.4)
	}
	return t, nil
}

// ParseColor parses a hex triplet or a tcell color name. Empty strings and
// "default" yield tcell.ColorDefault.
func ParseColor(s string) (tcell.Color, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "default":
		return tcell.ColorDefault, nil
	}
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(strings.ToLower(s))
		if err != nil {
			return tcell.ColorDefault, fmt.Errorf("%w %q", ErrInvalidColor, s)
		}
		return fromColorful(c), nil
	}
	if c, ok := tcell.ColorNames[strings.ToLower(s)]; ok {
		return c, nil
	}
	return tcell.ColorDefault, fmt.Errorf("%w %q", ErrInvalidColor, s)
}

// Blend mixes two colors in Lab space; t=0 gives a, t=1 gives b. When either
// color has no RGB value (tcell.ColorDefault) a is returned unchanged.
func Blend(a, b tcell.Color, t float64) tcell.Color {
	if !a.Valid() || !b.Valid() {
		return a
	}
	return fromColorful(toColorful(a).BlendLab(toColorful(b), t).Clamped())
}

func toColorful(c tcell.Color) colorful.Color {
	r, g, b := c.RGB()
	return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

func fromColorful(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
