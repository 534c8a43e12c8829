package leaf

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/rangetable"
)

// identifierStartSet and identifierContinueSet classify which runes may
// begin or continue an identifier. Built with golang.org/x/text/runes over
// merged Unicode range tables instead of a hand-rolled ASCII table, so
// identifiers may use any Unicode letter, not just a-z/A-Z.
var (
	identifierStartSet    = runes.In(rangetable.Merge(unicode.L, rangetable.New('_')))
	identifierContinueSet = runes.In(rangetable.Merge(unicode.L, unicode.Nd, rangetable.New('_')))
)

func isIdentifierStart(r rune) bool    { return identifierStartSet.Contains(r) }
func isIdentifierContinue(r rune) bool { return identifierContinueSet.Contains(r) }
func isDigit(r rune) bool              { return r >= '0' && r <= '9' }
func isNumericContinue(r rune) bool {
	switch {
	case isDigit(r):
		return true
	case r == '_' || r == '.':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	default:
		return false
	}
}

// RawTemplate is a character-level cursor over one named template source. It
// never fails: running past the end of input simply yields ok=false.
type RawTemplate struct {
	name  string
	runes []rune
	pos   int
	line  int
	col   int
}

// NewRawTemplate constructs a cursor over input, named for diagnostics.
func NewRawTemplate(name, input string) *RawTemplate {
	return &RawTemplate{
		name:  name,
		runes: []rune(input),
		line:  1,
		col:   1,
	}
}

// Position returns the cursor's current 1-based line/column.
func (r *RawTemplate) Position() Position {
	return Position{Line: r.line, Col: r.col}
}

// Peek returns the rune under the cursor without consuming it.
func (r *RawTemplate) Peek() (rune, bool) {
	return r.PeekAhead(0)
}

// PeekAhead returns the rune n positions ahead of the cursor (n=0 is Peek)
// without consuming anything.
func (r *RawTemplate) PeekAhead(n int) (rune, bool) {
	i := r.pos + n
	if i < 0 || i >= len(r.runes) {
		return 0, false
	}
	return r.runes[i], true
}

// Pop consumes and returns the rune under the cursor, advancing position
// tracking (including line/column bookkeeping on newlines).
func (r *RawTemplate) Pop() (rune, bool) {
	ch, ok := r.Peek()
	if !ok {
		return 0, false
	}
	r.pos++
	if ch == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	return ch, true
}

// AtEOF reports whether the cursor has consumed all input.
func (r *RawTemplate) AtEOF() bool {
	_, ok := r.Peek()
	return !ok
}

// ReadWhile consumes and returns the maximal run of runes satisfying pred,
// starting at the cursor.
func (r *RawTemplate) ReadWhile(pred func(rune) bool) string {
	var sb strings.Builder
	for {
		ch, ok := r.Peek()
		if !ok || !pred(ch) {
			break
		}
		r.Pop()
		sb.WriteRune(ch)
	}
	return sb.String()
}

// ReadWhileNot consumes and returns the maximal run of runes not present in
// stop, starting at the cursor.
func (r *RawTemplate) ReadWhileNot(stop map[rune]struct{}) string {
	return r.ReadWhile(func(ch rune) bool {
		_, bad := stop[ch]
		return !bad
	})
}

// PeekWhile returns the maximal run of runes satisfying pred, starting at
// the cursor, without consuming any of them.
func (r *RawTemplate) PeekWhile(pred func(rune) bool) string {
	var sb strings.Builder
	for i := 0; ; i++ {
		ch, ok := r.PeekAhead(i)
		if !ok || !pred(ch) {
			break
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// HasPrefix reports whether the upcoming input starts with s, without
// consuming it.
func (r *RawTemplate) HasPrefix(s string) bool {
	for i, want := range []rune(s) {
		got, ok := r.PeekAhead(i)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Skip consumes n runes unconditionally (used once HasPrefix has matched).
func (r *RawTemplate) Skip(n int) {
	for i := 0; i < n; i++ {
		r.Pop()
	}
}
