package script

import (
	"fmt"
	"strings"
	"unicode"
)

// cursor walks script source rune by rune. Speculative parses push the
// current position with save and either restore it or release the mark.
type cursor struct {
	src   []rune
	pos   int
	marks []int
	// bad holds a lexical failure found while skipping comments.
	bad *ScriptError
}

func newCursor(src string) *cursor {
	return &cursor{src: []rune(strings.TrimSpace(src))}
}

func (l *cursor) save() {
	l.marks = append(l.marks, l.pos)
}

func (l *cursor) restore() {
	n := len(l.marks) - 1
	l.pos = l.marks[n]
	l.marks = l.marks[:n]
}

func (l *cursor) release() {
	l.marks = l.marks[:len(l.marks)-1]
}

func (l *cursor) atEnd() bool {
	return l.pos >= len(l.src)
}

func (l *cursor) peek() rune {
	return l.peekAt(0)
}

func (l *cursor) peekAt(off int) rune {
	if l.pos+off >= len(l.src) || l.pos+off < 0 {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *cursor) advance() rune {
	if l.atEnd() {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	return r
}

func (l *cursor) hasPrefix(s string) bool {
	i := l.pos
	for _, r := range s {
		if i >= len(l.src) || l.src[i] != r {
			return false
		}
		i++
	}
	return true
}

func (l *cursor) match(r rune) bool {
	if l.peek() == r {
		l.pos++
		return true
	}
	return false
}

func (l *cursor) matchString(s string) bool {
	if l.hasPrefix(s) {
		l.pos += len([]rune(s))
		return true
	}
	return false
}

// isKeyword reports whether word starts at the cursor and is not merely the
// prefix of a longer identifier (`do` against `double`).
func (l *cursor) isKeyword(word string) bool {
	if !l.hasPrefix(word) {
		return false
	}
	return !isIdentPart(l.peekAt(len([]rune(word))))
}

func (l *cursor) matchKeyword(word string) bool {
	if l.isKeyword(word) {
		l.pos += len([]rune(word))
		return true
	}
	return false
}

// peekWord returns the identifier after any whitespace without moving.
func (l *cursor) peekWord() string {
	i := l.pos
	for i < len(l.src) && unicode.IsSpace(l.src[i]) {
		i++
	}
	start := i
	for i < len(l.src) && isIdentPart(l.src[i]) {
		i++
	}
	return string(l.src[start:i])
}

func (l *cursor) skipWhitespace() {
	for !l.atEnd() {
		switch {
		case unicode.IsSpace(l.peek()):
			l.pos++
		case l.hasPrefix("//"):
			for !l.atEnd() && l.peek() != '\n' && l.peek() != '\r' {
				l.pos++
			}
		case l.hasPrefix("/*"):
			start := l.pos
			l.pos += 2
			for !l.atEnd() && !l.hasPrefix("*/") {
				l.pos++
			}
			if l.atEnd() {
				if l.bad == nil {
					line, col := l.lineCol(start)
					l.bad = parseError("Unterminated multi-line comment at %d:%d", line, col)
				}
				return
			}
			l.pos += 2
		default:
			return
		}
	}
}

func (l *cursor) expect(r rune) error {
	l.skipWhitespace()
	if !l.match(r) {
		return l.errorf("Expected '%c' but found %s", r, l.describe())
	}
	return nil
}

func (l *cursor) expectKeyword(word string) error {
	l.skipWhitespace()
	if !l.matchKeyword(word) {
		return l.errorf("Expected '%s' but found %s", word, l.describe())
	}
	return nil
}

// identifier reads letters, digits, '_' and '$'. The first rune may not be
// a digit.
func (l *cursor) identifier() (string, error) {
	l.skipWhitespace()
	start := l.pos
	for !l.atEnd() && isIdentPart(l.peek()) {
		l.pos++
	}
	if start == l.pos {
		return "", l.errorf("Expected identifier but found %s", l.describe())
	}
	if unicode.IsDigit(l.src[start]) {
		word := string(l.src[start:l.pos])
		l.pos = start
		return "", l.errorf("Invalid identifier: %s", word)
	}
	return string(l.src[start:l.pos]), nil
}

func (l *cursor) lineCol(pos int) (int, int) {
	line, col := 1, 1
	for i := 0; i < pos && i < len(l.src); i++ {
		if l.src[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func (l *cursor) describe() string {
	if l.atEnd() {
		return "end of input"
	}
	end := l.pos + 20
	if end > len(l.src) {
		end = len(l.src)
	}
	return fmt.Sprintf("'%s'", string(l.src[l.pos:end]))
}

func (l *cursor) errorf(format string, args ...any) *ScriptError {
	line, col := l.lineCol(l.pos)
	e := parseError(format, args...)
	e.Message = fmt.Sprintf("%s (line %d, column %d)", e.Message, line, col)
	return e
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
