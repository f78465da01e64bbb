package markdown

import (
	"regexp"
	"strings"
)

// codeSpanPattern alternatives, in priority order, with their groups:
//
//	-    a backslash escape, which keeps an escaped backtick from opening a span
//	1, 2 fenced code block: info string, content
//	3    double-backtick span
//	4    single-backtick span
var codeSpanPattern = regexp.MustCompile("(?s)\\\\." +
	"|(?m:^)```[ \\t]*([A-Za-z0-9_+#.-]*)[ \\t]*(?:\\n(.*?))?\\n```[ \\t]*(?m:$)" +
	"|``(.+?)``" +
	"|`([^`]+)`")

// codeEscaping hides code blocks and code spans behind placeholder tokens so
// no later rule looks into them. It also shields raw input runes that happen to
// fall into the reserved placeholder block.
type codeEscaping struct{}

func (codeEscaping) Apply(buf Buffer) {
	text := buf.String()
	offsets := runeOffsets(text)
	var edits []edit

	shield := func(from, to int) {
		for i, r := range text[from:to] {
			if isReserved(r) {
				p := offsets[from+i]
				edits = append(edits, replacement(p, p+1, literalToken(r)))
			}
		}
	}

	covered := 0
	for _, loc := range codeSpanPattern.FindAllStringSubmatchIndex(text, -1) {
		var token string
		switch {
		case loc[2] >= 0:
			token = codeBlockToken(submatch(text, loc, 1), submatch(text, loc, 2))
		case loc[6] >= 0:
			token = inlineCodeToken(spanContent(submatch(text, loc, 3)))
		case loc[8] >= 0:
			token = inlineCodeToken(spanContent(submatch(text, loc, 4)))
		default:
			continue
		}
		shield(covered, loc[0])
		edits = append(edits, replacement(offsets[loc[0]], offsets[loc[1]], token))
		covered = loc[1]
	}
	shield(covered, len(text))

	applyEdits(buf, edits)
}

func replacement(start, end int, text string) edit {
	return edit{Match{Start: start, End: end}, Rewrite{Replace: true, Text: text}}
}

func submatch(text string, loc []int, i int) string {
	if loc[2*i] < 0 {
		return ""
	}
	return text[loc[2*i]:loc[2*i+1]]
}

// spanContent folds line endings into spaces and strips one surrounding space
// when the span is padded on both sides.
func spanContent(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) >= 2 && s[0] == ' ' && s[len(s)-1] == ' ' && strings.Trim(s, " ") != "" {
		s = s[1 : len(s)-1]
	}
	return s
}

// escapePattern matches a backslash before ASCII punctuation.
var escapePattern = regexp.MustCompile("\\\\([!-/:-@\\[-`{-~])")

func newEscaping() *RegexElement {
	return NewRegexElement(escapePattern, func(_ Buffer, m Match) (Rewrite, bool) {
		return Rewrite{Replace: true, Text: escapeLiterals(m.Group(1))}, true
	})
}

func newUnescaping() *RegexElement {
	return NewRegexElement(placeholderPattern, func(_ Buffer, m Match) (Rewrite, bool) {
		return Rewrite{Replace: true, Text: plainText(m.Group(0))}, true
	})
}
