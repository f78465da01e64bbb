// Package search finds fuzzy matches in styled documents and highlights them.
package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/csams/mdkit/internal/styledtext"
	"github.com/gdamore/tcell/v2"
	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
	"github.com/npillmayer/schuko/tracing"
)

// Score thresholds, in raw fzf scores.
const (
	ScoreThresholdStrict     = 70 // only high quality matches
	ScoreThresholdNormal     = 50
	ScoreThresholdPermissive = 30
	ScoreThresholdNone       = 0 // accept all matches
)

func init() {
	algo.Init("default")
}

func tracer() tracing.Trace {
	return tracing.Select("mdkit.search")
}

// Matcher matches a query against text with the fzf v2 algorithm.
// A Matcher is not safe for concurrent use.
type Matcher struct {
	query         string
	caseSensitive bool
	minScore      int
}

// NewMatcher returns a case-insensitive matcher using ScoreThresholdNormal.
func NewMatcher(query string) *Matcher {
	return &Matcher{
		query:    query,
		minScore: ScoreThresholdNormal,
	}
}

// SetQuery replaces the query.
func (m *Matcher) SetQuery(query string) {
	m.query = query
}

// Query returns the current query.
func (m *Matcher) Query() string {
	return m.query
}

// SetCaseSensitive toggles case sensitive matching.
func (m *Matcher) SetCaseSensitive(caseSensitive bool) {
	m.caseSensitive = caseSensitive
}

// SetMinScore sets the minimum score a match needs.
func (m *Matcher) SetMinScore(score int) {
	m.minScore = score
}

// MinScore returns the minimum score threshold.
func (m *Matcher) MinScore() int {
	return m.minScore
}

// Result is a match score with the matched rune positions in ascending order.
type Result struct {
	Score     int
	Positions []int
}

// Match reports whether text matches the query well enough. An empty query
// matches everything with score 0 and no positions.
func (m *Matcher) Match(text string) (Result, bool) {
	if m.query == "" {
		return Result{}, true
	}

	pattern := m.query
	if !m.caseSensitive {
		// fzf folds the text itself, the pattern has to be lower case already
		pattern = strings.Map(unicode.ToLower, pattern)
	}

	chars := util.ToChars([]byte(text))
	slab := util.MakeSlab(16384, 1024)
	result, positions := algo.FuzzyMatchV2(m.caseSensitive, false, true, &chars, []rune(pattern), true, slab)
	if result.Start < 0 {
		return Result{Score: -1}, false
	}

	res := Result{Score: result.Score}
	if positions != nil {
		res.Positions = append([]int(nil), *positions...)
		sort.Ints(res.Positions)
	}
	if m.minScore != ScoreThresholdNone && res.Score < m.minScore {
		return res, false
	}
	return res, true
}

// Highlight matches the query against the text of doc and sets the
// background of every matched rune to color.
func (m *Matcher) Highlight(doc *styledtext.Document, color tcell.Color) (Result, bool) {
	res, ok := m.Match(doc.String())
	if !ok {
		return res, false
	}
	for _, p := range res.Positions {
		doc.AddAttribute(styledtext.KeyBackground, color, p, p+1)
	}
	tracer().Debugf("search: %q matched %d runes, score %d", m.query, len(res.Positions), res.Score)
	return res, true
}

// Hit is a matching line of a document. Start is the position of the line's
// first rune; Result positions are relative to it.
type Hit struct {
	Line  int
	Start int
	Result
}

// HighlightLines matches every line of doc on its own, highlights the matches
// like Highlight and returns the matching lines in order. An empty query
// matches nothing here.
func (m *Matcher) HighlightLines(doc *styledtext.Document, color tcell.Color) []Hit {
	if m.query == "" {
		return nil
	}
	var hits []Hit
	start := 0
	for i, line := range strings.Split(doc.String(), "\n") {
		if res, ok := m.Match(line); ok {
			for _, p := range res.Positions {
				doc.AddAttribute(styledtext.KeyBackground, color, start+p, start+p+1)
			}
			hits = append(hits, Hit{Line: i, Start: start, Result: res})
		}
		start += utf8.RuneCountInString(line) + 1
	}
	tracer().Debugf("search: %q matched %d lines", m.query, len(hits))
	return hits
}
