package nwscript

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// ValueKind tags the shape of a Value.
type ValueKind int

const (
	ScalarValue ValueKind = iota
	VectorValue
	ObjectValue
)

func (k ValueKind) String() string {
	switch k {
	case ScalarValue:
		return "scalar"
	case VectorValue:
		return "vector"
	case ObjectValue:
		return "object"
	}
	return fmt.Sprintf("value(%d)", int(k))
}

// Value is a literal as it appears in an initializer or a default argument:
// a token, a bracketed vector or a braced object. Vectors and objects hold
// their elements in source order.
type Value struct {
	Kind  ValueKind
	Text  string // exact source text, comments included
	Items []Value
}

// ParseValue parses text as a single literal, allowing surrounding
// whitespace and comments.
func ParseValue(text string) (Value, error) {
	s := newScanner([]rune(text))
	s.skipTrivia()
	v, ok := s.value()
	if !ok {
		return Value{}, fmt.Errorf("invalid literal at offset %d", s.pos)
	}
	s.skipTrivia()
	if !s.eof() {
		return Value{}, fmt.Errorf("unexpected %q after literal at offset %d", s.src[s.pos], s.pos)
	}
	return v, nil
}

// scanner is a cursor over canonical text. Methods that can fail restore the
// cursor on failure.
type scanner struct {
	src    []rune
	pos    int
	closes []int
}

func newScanner(src []rune) *scanner {
	return &scanner{src: src, closes: commentCloses(src)}
}

// commentCloses returns the offsets of every "*/" in src, ascending.
func commentCloses(src []rune) []int {
	var out []int
	for i := 0; i+1 < len(src); i++ {
		if src[i] == '*' && src[i+1] == '/' {
			out = append(out, i)
		}
	}
	return out
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) at(lit string) bool {
	i := s.pos
	for _, r := range lit {
		if i >= len(s.src) || s.src[i] != r {
			return false
		}
		i++
	}
	return true
}

// skipTrivia consumes whitespace and comments. It never gives back what it
// consumed. An unterminated block comment is left in place.
func (s *scanner) skipTrivia() {
	for !s.eof() {
		switch {
		case unicode.IsSpace(s.src[s.pos]):
			s.pos++
		case s.at("//"):
			for !s.eof() && s.src[s.pos] != '\n' {
				s.pos++
			}
		case s.at("/*"):
			end := s.blockCommentEnd(s.pos + 2)
			if end < 0 {
				return
			}
			s.pos = end
		default:
			return
		}
	}
}

// blockCommentEnd returns the offset just past the first "*/" at or after
// from, or -1.
func (s *scanner) blockCommentEnd(from int) int {
	i := sort.SearchInts(s.closes, from)
	if i == len(s.closes) {
		return -1
	}
	return s.closes[i] + 2
}

// value parses a token, a vector or an object.
func (s *scanner) value() (Value, bool) {
	switch s.peek() {
	case '[':
		return s.sequence('[', ']', VectorValue)
	case '{':
		return s.sequence('{', '}', ObjectValue)
	}
	return s.token()
}

func isTokenRune(r rune) bool {
	return r == '_' || r == '.' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// token parses a single-line quoted string or a bare run of word, digit, dot and hyphen
// characters.
func (s *scanner) token() (Value, bool) {
	start := s.pos
	if s.at("//") || s.at("/*") {
		return Value{}, false
	}
	if s.peek() == '"' {
		i := s.pos + 1
		for i < len(s.src) {
			switch s.src[i] {
			case '\\':
				i += 2
				continue
			case '"':
				s.pos = i + 1
				return Value{Kind: ScalarValue, Text: string(s.src[start:s.pos])}, true
			case '\n':
				return Value{}, false
			}
			i++
		}
		return Value{}, false
	}
	for !s.eof() && isTokenRune(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return Value{}, false
	}
	return Value{Kind: ScalarValue, Text: string(s.src[start:s.pos])}, true
}

// sequence parses open, zero or more values separated by optional commas,
// and close. Nesting is handled by recursion through value.
func (s *scanner) sequence(open, close rune, kind ValueKind) (Value, bool) {
	start := s.pos
	if s.peek() != open {
		return Value{}, false
	}
	s.pos++
	var items []Value
	for {
		s.skipTrivia()
		if s.peek() == close {
			s.pos++
			return Value{Kind: kind, Text: string(s.src[start:s.pos]), Items: items}, true
		}
		item, ok := s.value()
		if !ok {
			s.pos = start
			return Value{}, false
		}
		items = append(items, item)
		s.skipTrivia()
		if s.peek() == ',' {
			s.pos++
		}
	}
}

// ident parses an identifier.
func (s *scanner) ident() (string, bool) {
	start := s.pos
	for !s.eof() && isIdentRune(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return "", false
	}
	return string(s.src[start:s.pos]), true
}

// keyword consumes word when it is followed by a non-identifier rune.
func (s *scanner) keyword(word string) bool {
	if !s.at(word) {
		return false
	}
	end := s.pos + len([]rune(word))
	if end < len(s.src) && isIdentRune(s.src[end]) {
		return false
	}
	s.pos = end
	return true
}

// typeName parses a parameter type, optionally prefixed by "struct".
func (s *scanner) typeName() (string, bool) {
	start := s.pos
	if s.keyword("struct") {
		s.skipTrivia()
		name, ok := s.ident()
		if !ok {
			s.pos = start
			return "", false
		}
		return "struct " + name, true
	}
	return s.ident()
}

// parameter parses "[const] type name [= value]".
func (s *scanner) parameter() (symbols.Parameter, bool) {
	start := s.pos
	s.skipTrivia()
	if s.keyword("const") {
		s.skipTrivia()
	}
	typ, ok := s.typeName()
	if !ok {
		s.pos = start
		return symbols.Parameter{}, false
	}
	s.skipTrivia()
	name, ok := s.ident()
	if !ok {
		s.pos = start
		return symbols.Parameter{}, false
	}
	p := symbols.Parameter{Type: typ, Name: name}
	s.skipTrivia()
	if s.peek() == '=' {
		s.pos++
		s.skipTrivia()
		v, ok := s.value()
		if !ok {
			s.pos = start
			return symbols.Parameter{}, false
		}
		p.DefaultValue = v.Text
		s.skipTrivia()
	}
	return p, true
}

// parameterList parses the parameters of a prototype whose opening
// parenthesis is just behind the cursor, consuming the closing one. It fails
// at the first rune the parameter grammar cannot contain, so the work done
// never reaches past the next unexpected parenthesis, brace or semicolon.
func (s *scanner) parameterList() ([]symbols.Parameter, bool) {
	start := s.pos
	params := []symbols.Parameter{}
	s.skipTrivia()
	if s.peek() == ')' {
		s.pos++
		return params, true
	}
	for {
		p, ok := s.parameter()
		if !ok {
			s.pos = start
			return nil, false
		}
		params = append(params, p)
		s.skipTrivia()
		switch s.peek() {
		case ')':
			s.pos++
			return params, true
		case ',':
			s.pos++
		default:
			s.pos = start
			return nil, false
		}
	}
}
