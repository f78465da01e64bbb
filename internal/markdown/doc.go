/*
Package markdown turns Markdown text into a styled text document.

A Parser runs an ordered pipeline of elements over a styledtext buffer. Each
element implements one syntax rule and rewrites its matches in place, so
every element sees the text as left behind by the ones before it. The
pipeline has four segments, always in this order:

	escaping    code spans and blocks, then backslash escapes, are hidden
	            behind placeholder tokens
	default     header, list, quote, link, automatic link, bold, italic
	custom      elements registered with AddCustomElement, in order
	unescaping  code is rendered, then remaining placeholders are restored

Parsing never fails: Markdown that does not match any rule stays as literal
text.
*/
package markdown

import (
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("mdkit.markdown")
}
