package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// Escaped text is carried through the pipeline as tokens made only of runes
// from a reserved block of the Private Use Area. No rule pattern matches
// those runes, so a token passes every element between escaping and
// unescaping untouched.
//
//	literal     literalOpen hexdigit... literalClose
//	inline code codeOpen literal... codeClose
//	code block  blockOpen literal... blockInfo literal... blockClose
//
// Hex digits are encoded as digitZero+value.
const (
	literalOpen  rune = 0xE000
	literalClose rune = 0xE001
	codeOpen     rune = 0xE002
	codeClose    rune = 0xE003
	blockOpen    rune = 0xE004
	blockInfo    rune = 0xE005
	blockClose   rune = 0xE006
	digitZero    rune = 0xE010
	reservedLast rune = 0xE01F
)

// placeholderPattern matches a well-formed literal token or, failing that, any
// stray reserved rune.
var placeholderPattern = regexp.MustCompile(`\x{E000}([\x{E010}-\x{E01F}]{1,6})\x{E001}|[\x{E000}-\x{E01F}]`)

var literalPattern = regexp.MustCompile(`\x{E000}([\x{E010}-\x{E01F}]{1,6})\x{E001}`)

func isReserved(r rune) bool {
	return r >= literalOpen && r <= reservedLast
}

func writeLiteral(b *strings.Builder, r rune) {
	b.WriteRune(literalOpen)
	for _, h := range strconv.FormatInt(int64(r), 16) {
		d := h - '0'
		if h >= 'a' {
			d = h - 'a' + 10
		}
		b.WriteRune(digitZero + d)
	}
	b.WriteRune(literalClose)
}

// escapeLiterals turns every rune of s into a literal token.
func escapeLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 9)
	for _, r := range s {
		writeLiteral(&b, r)
	}
	return b.String()
}

// shieldLiterals is escapeLiterals for text that may already hold tokens,
// which are kept as they are.
func shieldLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 9)
	for _, r := range s {
		if isReserved(r) {
			b.WriteRune(r)
			continue
		}
		writeLiteral(&b, r)
	}
	return b.String()
}

func literalToken(r rune) string {
	var b strings.Builder
	writeLiteral(&b, r)
	return b.String()
}

func decodeDigits(digits string) rune {
	var r rune
	for _, d := range digits {
		r = r<<4 | (d - digitZero)
	}
	return r
}

// plainText decodes the literal tokens in s and drops any other reserved
// rune. It is used where escaped text leaves the buffer, such as link
// targets, and by the final unescaping pass.
func plainText(s string) string {
	if !strings.ContainsFunc(s, isReserved) {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(tok string) string {
		m := placeholderPattern.FindStringSubmatch(tok)
		if m[1] == "" {
			return ""
		}
		return string(decodeDigits(m[1]))
	})
}

// codeText decodes the literal tokens of code content. Tokens for reserved
// runes stay encoded until the final unescaping pass.
func codeText(s string) string {
	return literalPattern.ReplaceAllStringFunc(s, func(tok string) string {
		r := decodeDigits(literalPattern.FindStringSubmatch(tok)[1])
		if isReserved(r) {
			return tok
		}
		return string(r)
	})
}

func inlineCodeToken(content string) string {
	return string(codeOpen) + escapeLiterals(content) + string(codeClose)
}

func codeBlockToken(info, content string) string {
	return string(blockOpen) + escapeLiterals(info) + string(blockInfo) +
		escapeLiterals(content) + string(blockClose)
}
