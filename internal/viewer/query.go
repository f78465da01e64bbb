package viewer

// Query is an editable single line of input with emacs-style editing.
type Query struct {
	text   []rune
	cursor int
}

// String returns the query text.
func (q *Query) String() string {
	return string(q.text)
}

// Cursor returns the cursor position in runes.
func (q *Query) Cursor() int {
	return q.cursor
}

// Set replaces the text and puts the cursor at its end.
func (q *Query) Set(s string) {
	q.text = []rune(s)
	q.cursor = len(q.text)
}

// Clear empties the query.
func (q *Query) Clear() {
	q.text = nil
	q.cursor = 0
}

// Insert inserts r at the cursor.
func (q *Query) Insert(r rune) {
	q.text = append(q.text, 0)
	copy(q.text[q.cursor+1:], q.text[q.cursor:])
	q.text[q.cursor] = r
	q.cursor++
}

// DeleteBackward deletes the rune before the cursor (backspace).
func (q *Query) DeleteBackward() {
	if q.cursor > 0 {
		q.text = append(q.text[:q.cursor-1], q.text[q.cursor:]...)
		q.cursor--
	}
}

// DeleteForward deletes the rune at the cursor (delete, Ctrl+D).
func (q *Query) DeleteForward() {
	if q.cursor < len(q.text) {
		q.text = append(q.text[:q.cursor], q.text[q.cursor+1:]...)
	}
}

func (q *Query) Left() {
	if q.cursor > 0 {
		q.cursor--
	}
}

func (q *Query) Right() {
	if q.cursor < len(q.text) {
		q.cursor++
	}
}

// Home moves the cursor to the start (Ctrl+A).
func (q *Query) Home() {
	q.cursor = 0
}

// End moves the cursor to the end (Ctrl+E).
func (q *Query) End() {
	q.cursor = len(q.text)
}

// DeleteToEnd deletes from the cursor to the end (Ctrl+K).
func (q *Query) DeleteToEnd() {
	q.text = q.text[:q.cursor]
}

// DeleteToStart deletes from the start to the cursor (Ctrl+U).
func (q *Query) DeleteToStart() {
	q.text = append(q.text[:0], q.text[q.cursor:]...)
	q.cursor = 0
}

// DeleteWordBackward deletes the word before the cursor (Ctrl+W).
func (q *Query) DeleteWordBackward() {
	start := q.wordStart()
	q.text = append(q.text[:start], q.text[q.cursor:]...)
	q.cursor = start
}

// DeleteWordForward deletes the word after the cursor (Alt+D).
func (q *Query) DeleteWordForward() {
	end := q.wordEnd()
	q.text = append(q.text[:q.cursor], q.text[end:]...)
}

// WordForward moves past the end of the next word (Alt+F).
func (q *Query) WordForward() {
	q.cursor = q.wordEnd()
}

// WordBackward moves to the start of the previous word (Alt+B).
func (q *Query) WordBackward() {
	q.cursor = q.wordStart()
}

func (q *Query) wordStart() int {
	i := q.cursor
	for i > 0 && q.text[i-1] == ' ' {
		i--
	}
	for i > 0 && q.text[i-1] != ' ' {
		i--
	}
	return i
}

func (q *Query) wordEnd() int {
	i := q.cursor
	for i < len(q.text) && q.text[i] == ' ' {
		i++
	}
	for i < len(q.text) && q.text[i] != ' ' {
		i++
	}
	return i
}
