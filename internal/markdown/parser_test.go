package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/csams/mdkit/internal/theme"
	"github.com/gdamore/tcell/v2"
	"github.com/npillmayer/schuko/testconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fontAtPos(t *testing.T, doc *styledtext.Document, pos int) styledtext.Font {
	t.Helper()
	v, ok := doc.Attribute(styledtext.KeyFont, pos)
	require.True(t, ok, "no font at %d", pos)
	return v.(styledtext.Font)
}

func linkAt(doc *styledtext.Document, pos int) string {
	v, ok := doc.Attribute(styledtext.KeyLink, pos)
	if !ok {
		return ""
	}
	return v.(string)
}

func newPlaceholderElement(color tcell.Color) *RegexElement {
	return NewRegexElement(regexp.MustCompile(`\{\{(\w+)\}\}`), func(_ Buffer, m Match) (Rewrite, bool) {
		return Rewrite{
			Keep:       1,
			Attributes: styledtext.Attributes{styledtext.KeyColor: color},
		}, true
	})
}

func TestParseEmpty(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse("")
	assert.Equal(t, 0, doc.Len())
	assert.Equal(t, "", doc.String())
	assert.Empty(t, doc.Runs())
}

func TestParsePlainText(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New(WithColor(tcell.ColorGreen))
	doc := p.Parse("just text")
	assert.Equal(t, "just text", doc.String())
	runs := doc.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, styledtext.Attributes{
		styledtext.KeyFont:  styledtext.DefaultFont,
		styledtext.KeyColor: tcell.ColorGreen,
	}, runs[0].Attributes)
}

func TestParseText(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	for _, tc := range []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**strong** text", "strong text"},
		{"bold underscores", "__strong__", "strong"},
		{"italic", "*em* text", "em text"},
		{"italic underscores", "an _em_ word", "an em word"},
		{"snake case", "snake_case_name", "snake_case_name"},
		{"lone asterisks", "2 * 3 * 4", "2 * 3 * 4"},
		{"escaped emphasis", `\*not italic\*`, "*not italic*"},
		{"escaped backslash", `a\\b`, `a\b`},
		{"backslash before letter", `a\b`, `a\b`},
		{"code span", "`*not bold*`", "*not bold*"},
		{"double backtick span", "``a ` b``", "a ` b"},
		{"escaped backtick", "\\`not code\\`", "`not code`"},
		{"unterminated code", "`open", "`open"},
		{"code block", "```go\nfmt.Println(\"*hi*\")\n```", "fmt.Println(\"*hi*\")"},
		{"empty code block", "```\n```", ""},
		{"header", "# Title", "Title"},
		{"header closing hashes", "## Title ##", "Title"},
		{"not a header", "#hashtag", "#hashtag"},
		{"list", "- one\n  - two\n    - three", "• one\n  ◦ two\n    ▸ three"},
		{"ordered list", "1) first\n2. second", "1. first\n2. second"},
		{"quote", "> quoted", "│ quoted"},
		{"link", "[site](http://x.com)", "site"},
		{"link with title", `[site](http://x.com "Title")`, "site"},
		{"image", "![alt](img.png)", "alt"},
		{"empty link text", "[](http://x.com)", "http://x.com"},
		{"bold link", "**[a](http://x)**", "a"},
		{"unicode", "héllo **wörld**", "héllo wörld"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, New().Parse(tc.in).String())
		})
	}
}

func TestBoldLink(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	doc := p.Parse("**[a](http://x)**")
	require.Equal(t, "a", doc.String())

	assert.Equal(t, "http://x", linkAt(doc, 0))
	assert.True(t, fontAtPos(t, doc, 0).Has(styledtext.Bold))
	color, _ := doc.Attribute(styledtext.KeyColor, 0)
	assert.Equal(t, p.Link.Color, color)
}

func TestEmphasisTraits(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse("**bold** and *it* and ***both***")
	require.Equal(t, "bold and it and both", doc.String())

	assert.Equal(t, styledtext.DefaultFont.With(styledtext.Bold), fontAtPos(t, doc, 0))
	assert.Equal(t, styledtext.DefaultFont, fontAtPos(t, doc, 5))
	assert.Equal(t, styledtext.DefaultFont.With(styledtext.Italic), fontAtPos(t, doc, 9))
	assert.Equal(t, styledtext.DefaultFont.With(styledtext.Bold|styledtext.Italic), fontAtPos(t, doc, 16))
}

func TestEscapedEmphasisIsNotItalic(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse(`\*not italic\*`)
	require.Equal(t, "*not italic*", doc.String())
	for i := 0; i < doc.Len(); i++ {
		assert.False(t, fontAtPos(t, doc, i).Has(styledtext.Italic), "rune %d", i)
	}
}

func TestCode(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	p.Code.Color = tcell.ColorGreen
	p.Code.Background = tcell.ColorBlack

	doc := p.Parse("say `*not bold*` now")
	require.Equal(t, "say *not bold* now", doc.String())
	for i := 4; i < 14; i++ {
		f := fontAtPos(t, doc, i)
		assert.True(t, f.Has(styledtext.Monospace), "rune %d", i)
		assert.False(t, f.Has(styledtext.Bold), "rune %d", i)
		assert.False(t, f.Has(styledtext.Italic), "rune %d", i)
	}
	assert.Equal(t, styledtext.DefaultFont, fontAtPos(t, doc, 0))
	assert.Equal(t, styledtext.DefaultFont, fontAtPos(t, doc, 15))

	attrs := doc.AttributesAt(4)
	color, _ := attrs.Color()
	bg, _ := attrs.Background()
	assert.Equal(t, tcell.ColorGreen, color)
	assert.Equal(t, tcell.ColorBlack, bg)
	_, ok := doc.AttributesAt(0).Background()
	assert.False(t, ok)
}

type textRecorder struct {
	text string
}

func (r *textRecorder) Apply(buf Buffer) {
	r.text = buf.String()
}

func TestCodeIsRestoredAfterCustomElements(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	rec := &textRecorder{}
	stars := NewRegexElement(regexp.MustCompile(`\*b\*`), func(Buffer, Match) (Rewrite, bool) {
		return Rewrite{Keep: 0, Attributes: styledtext.Attributes{styledtext.KeyColor: tcell.ColorRed}}, true
	})
	p := New(WithCustomElements(rec, stars))

	doc := p.Parse("a `*b*` c")
	assert.NotContains(t, rec.text, "*b*", "code is hidden from custom elements")
	assert.NotContains(t, rec.text, "`")
	assert.True(t, strings.ContainsRune(rec.text, codeOpen))

	require.Equal(t, "a *b* c", doc.String())
	for i := 2; i < 5; i++ {
		assert.True(t, fontAtPos(t, doc, i).Has(styledtext.Monospace), "rune %d", i)
		color, _ := doc.Attribute(styledtext.KeyColor, i)
		assert.NotEqual(t, tcell.ColorRed, color, "rune %d", i)
	}
	assert.False(t, fontAtPos(t, doc, 0).Has(styledtext.Monospace))
	assert.False(t, fontAtPos(t, doc, 6).Has(styledtext.Monospace))
}

func TestCodeInsideBold(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse("**`x`**")
	require.Equal(t, "x", doc.String())
	assert.Equal(t, styledtext.DefaultFont.With(styledtext.Bold|styledtext.Monospace), fontAtPos(t, doc, 0))
}

func TestHeader(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	p.Header.Color = tcell.ColorPurple
	doc := p.Parse("# Big\n###### Small\ntext")
	require.Equal(t, "Big\nSmall\ntext", doc.String())

	big := fontAtPos(t, doc, 0)
	assert.Equal(t, 22.0, big.Size)
	assert.True(t, big.Has(styledtext.Bold))
	assert.Equal(t, p.Header.FontFor(1), big)

	small := fontAtPos(t, doc, 4)
	assert.Equal(t, 12.0, small.Size)
	assert.True(t, small.Has(styledtext.Bold))

	assert.Equal(t, styledtext.DefaultFont, fontAtPos(t, doc, 10))
	color, _ := doc.Attribute(styledtext.KeyColor, 0)
	assert.Equal(t, tcell.ColorPurple, color)
	color, _ = doc.Attribute(styledtext.KeyColor, 10)
	assert.Equal(t, tcell.ColorDefault, color)
}

func TestQuoteIsItalic(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse("> a **b**")
	require.Equal(t, "│ a b", doc.String())
	assert.True(t, fontAtPos(t, doc, 2).Has(styledtext.Italic))
	f := fontAtPos(t, doc, 4)
	assert.True(t, f.Has(styledtext.Italic))
	assert.True(t, f.Has(styledtext.Bold))
}

func TestLinks(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	for _, tc := range []struct {
		name string
		in   string
		text string
		link string
	}{
		{"inline", "[site](http://x.com)", "site", "http://x.com"},
		{"angle brackets", "[site](<http://x.com>)", "site", "http://x.com"},
		{"escaped target", `[a](http://x.com/\*)`, "a", "http://x.com/*"},
		{"image", "![alt](img.png)", "alt", "img.png"},
		{"empty text", "[](http://x.com)", "http://x.com", "http://x.com"},
		{"auto", "https://example.com", "https://example.com", "https://example.com"},
		{"auto www", "www.example.com", "www.example.com", "http://www.example.com"},
		{"auto in link text", "[http://a.com](http://b.com)", "http://a.com", "http://b.com"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			doc := New().Parse(tc.in)
			require.Equal(t, tc.text, doc.String())
			for i := 0; i < doc.Len(); i++ {
				assert.Equal(t, tc.link, linkAt(doc, i), "rune %d", i)
			}
		})
	}
}

func TestAutomaticLinkTrailingPunctuation(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse("see https://example.com/a_b. next")
	require.Equal(t, "see https://example.com/a_b. next", doc.String())
	assert.Equal(t, "", linkAt(doc, 3))
	assert.Equal(t, "https://example.com/a_b", linkAt(doc, 4))
	assert.Equal(t, "https://example.com/a_b", linkAt(doc, 26))
	assert.Equal(t, "", linkAt(doc, 27))
}

func TestAutomaticLinkKeepsEmphasisMarkup(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := New().Parse("http://a.com/*foo* and **b**")
	require.Equal(t, "http://a.com/*foo* and b", doc.String())
	for i := 0; i < 17; i++ {
		assert.Equal(t, "http://a.com/*foo", linkAt(doc, i), "rune %d", i)
		assert.False(t, fontAtPos(t, doc, i).Has(styledtext.Italic), "rune %d", i)
	}
	assert.Equal(t, "", linkAt(doc, 17))
	assert.True(t, fontAtPos(t, doc, 23).Has(styledtext.Bold))

	doc = New().Parse("**https://example.com**")
	require.Equal(t, "https://example.com", doc.String())
	assert.Equal(t, "https://example.com", linkAt(doc, 0))
	assert.True(t, fontAtPos(t, doc, 0).Has(styledtext.Bold))
}

func TestAutomaticLinkDetectionToggle(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	const in = "visit https://example.com today"

	on := New()
	assert.True(t, on.AutomaticLinkDetectionEnabled())
	doc := on.Parse(in)
	assert.Equal(t, in, doc.String())
	assert.Equal(t, "https://example.com", linkAt(doc, 6))

	off := New(WithAutomaticLinkDetection(false))
	assert.False(t, off.AutomaticLinkDetectionEnabled())
	doc = off.Parse(in)
	assert.Equal(t, in, doc.String())
	assert.Empty(t, doc.Spans(styledtext.KeyLink))

	doc = off.Parse("[x](http://y)")
	assert.Equal(t, "http://y", linkAt(doc, 0), "explicit links do not depend on detection")
}

func TestCustomElements(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	red := newPlaceholderElement(tcell.ColorRed)

	assert.Equal(t, "{{x}}", p.Parse("{{x}}").String())

	p.AddCustomElement(red)
	doc := p.Parse("a {{x}} b")
	require.Equal(t, "a x b", doc.String())
	color, _ := doc.Attribute(styledtext.KeyColor, 2)
	assert.Equal(t, tcell.ColorRed, color)
	color, _ = doc.Attribute(styledtext.KeyColor, 0)
	assert.Equal(t, tcell.ColorDefault, color)

	p.RemoveCustomElement(red)
	assert.Equal(t, "a {{x}} b", p.Parse("a {{x}} b").String())
	assert.Empty(t, p.CustomElements())
}

func TestCustomElementsIdentity(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	red := newPlaceholderElement(tcell.ColorRed)
	blue := newPlaceholderElement(tcell.ColorBlue)
	p := New(WithCustomElements(red, blue))
	require.Len(t, p.CustomElements(), 2)

	// the first element consumes the markup, later ones see plain text
	doc := p.Parse("{{x}}")
	color, _ := doc.Attribute(styledtext.KeyColor, 0)
	assert.Equal(t, tcell.ColorRed, color)

	p.RemoveCustomElement(newPlaceholderElement(tcell.ColorRed))
	assert.Len(t, p.CustomElements(), 2, "an equal but distinct element is not removed")

	p.RemoveCustomElement(red)
	assert.Equal(t, []Element{blue}, p.CustomElements())
	doc = p.Parse("{{x}}")
	color, _ = doc.Attribute(styledtext.KeyColor, 0)
	assert.Equal(t, tcell.ColorBlue, color)

	p.AddCustomElement(nil)
	p.RemoveCustomElement(nil)
	p.RemoveCustomElement(red)
	assert.Len(t, p.CustomElements(), 1)

	p.AddCustomElement(blue)
	p.RemoveCustomElement(blue)
	assert.Len(t, p.CustomElements(), 1, "only the first registration is removed")
}

func TestCustomElementsSeeEscapedText(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New(WithCustomElements(newPlaceholderElement(tcell.ColorRed)))
	doc := p.Parse(`\{\{x\}\} and ` + "`{{y}}`")
	require.Equal(t, "{{x}} and {{y}}", doc.String())
	color, _ := doc.Attribute(styledtext.KeyColor, 2)
	assert.Equal(t, tcell.ColorDefault, color)
}

func TestNoPlaceholderLeaks(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	for _, in := range []string{
		"`", "``", "```", "```\ncode", "\\", "\\`x`", "`\\`", "[a](\\*)",
		"**`a`**", "> `x`", "# `h` \\#", "- `a` *b*", "[`c`](http://x)",
		"```\n\\*\n```", "`a\nb`", "\\\\`x`",
	} {
		out := p.Parse(in).String()
		assert.False(t, strings.ContainsFunc(out, isReserved), "%q leaked into %q", in, out)
	}

	for _, in := range []string{
		"\uE000", "a\uE001b", "\uE000\uE010\uE001", "\uE002x\uE003",
	} {
		out := p.Parse(in).String()
		assert.Equal(t, in, out, "reserved runes in the input are kept as text")
	}

	doc := p.Parse("`\uE001`")
	require.Equal(t, "\uE001", doc.String(), "reserved runes inside code are kept")
	assert.True(t, fontAtPos(t, doc, 0).Has(styledtext.Monospace))
}

func TestParseDocument(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New(WithColor(tcell.ColorWhite))
	src := styledtext.New("**x** y")
	src.AddAttribute(styledtext.KeyBackground, tcell.ColorRed, 0, src.Len())
	src.AddAttribute(styledtext.KeyColor, tcell.ColorGreen, 0, src.Len())

	out := p.ParseDocument(src)
	require.Equal(t, "x y", out.String())
	assert.Equal(t, "**x** y", src.String(), "the source is not modified")

	bg, ok := out.Attribute(styledtext.KeyBackground, 0)
	assert.True(t, ok)
	assert.Equal(t, tcell.ColorRed, bg)
	color, _ := out.Attribute(styledtext.KeyColor, 2)
	assert.Equal(t, tcell.ColorWhite, color)
	assert.True(t, fontAtPos(t, out, 0).Has(styledtext.Bold))

	assert.Equal(t, 0, p.ParseDocument(nil).Len())
}

func TestParseBuffer(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	doc := styledtext.New("*a*")
	New().ParseBuffer(doc)
	assert.Equal(t, "a", doc.String())
	assert.True(t, fontAtPos(t, doc, 0).Has(styledtext.Italic))
}

// plainBuffer hides the concrete document type so elements edit it through
// the Buffer interface alone.
type plainBuffer struct {
	*styledtext.Document
}

func TestParseBufferMatchesParse(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	const in = "# Title\n- item *one*\n> **quote** `code`\n\\*x\\* [l](http://l) www.a.com _i_\n"
	p := New()
	want := p.Parse(in)

	buf := plainBuffer{styledtext.New(in)}
	p.ParseBuffer(buf)
	require.Equal(t, want.String(), buf.String())
	assert.Equal(t, want.Runs(), buf.Runs())
}

func TestParseLargeInput(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	var b strings.Builder
	b.WriteString("```go\n")
	for b.Len() < 64<<10 {
		b.WriteString("x := y * 2 // *not italic*\n")
	}
	b.WriteString("```\n")
	for i := 0; i < 4000; i++ {
		b.WriteString("**a** \\*b _c_ `d` ")
	}

	start := time.Now()
	doc := New().Parse(b.String())
	elapsed := time.Since(start)

	text := doc.String()
	assert.True(t, strings.HasPrefix(text, "x := y * 2 // *not italic*\n"))
	assert.True(t, strings.HasSuffix(text, "a *b c d "))
	assert.False(t, strings.ContainsFunc(text, isReserved))
	assert.Less(t, elapsed.Seconds(), 5.0, "parse time should grow linearly")
}

func BenchmarkParse(b *testing.B) {
	for _, size := range []int{4 << 10, 16 << 10, 64 << 10} {
		in := strings.Repeat("**a** \\*b [c](http://x) `d` https://e.com\n", size/44)
		b.Run(fmt.Sprintf("%dKB", size>>10), func(b *testing.B) {
			p := New()
			for i := 0; i < b.N; i++ {
				p.Parse(in)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	font := styledtext.Font{Family: "serif", Size: 10}
	p := New(WithFont(font), WithColor(tcell.ColorYellow))
	assert.Equal(t, font, p.Font())
	assert.Equal(t, tcell.ColorYellow, p.Color())

	doc := p.Parse("**a**")
	assert.Equal(t, font.With(styledtext.Bold), fontAtPos(t, doc, 0))
	assert.Equal(t, 20.0, p.Header.FontFor(1).Size)
}

func TestWithTheme(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	th := theme.Default()
	th.AutomaticLinkDetection = false

	p := New(WithTheme(th))
	assert.Equal(t, th.Font, p.Font())
	assert.Equal(t, th.Text, p.Color())
	assert.False(t, p.AutomaticLinkDetectionEnabled())
	assert.Equal(t, th.Link, p.Link.Color)
	assert.Equal(t, th.Code, p.Code.Color)
	assert.Equal(t, th.CodeBackground, p.Code.Background)

	doc := p.Parse("[a](http://x) b")
	color, _ := doc.Attribute(styledtext.KeyColor, 0)
	assert.Equal(t, th.Link, color)
	color, _ = doc.Attribute(styledtext.KeyColor, 2)
	assert.Equal(t, th.Text, color)

	p = New(WithTheme(th), WithColor(tcell.ColorRed))
	assert.Equal(t, tcell.ColorRed, p.Color(), "later options win")
	assert.NotPanics(t, func() { New(WithTheme(nil)) })
}

func TestDisabledBuiltins(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	p.Bold = nil
	p.Code = nil
	out := p.Parse("**a** `b`").String()
	assert.Equal(t, "*a* b", out, "italic still runs, code stays hidden but is restored")
}

func TestConcurrentParse(t *testing.T) {
	teardown := testconfig.QuickConfig(t)
	defer teardown()

	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				out := p.Parse(fmt.Sprintf("**%d** {{v}} `%d`", i, j)).String()
				assert.True(t, strings.HasPrefix(out, fmt.Sprint(i)))
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			e := newPlaceholderElement(tcell.ColorRed)
			p.AddCustomElement(e)
			p.RemoveCustomElement(e)
		}
	}()
	wg.Wait()
	assert.Empty(t, p.CustomElements())
}
