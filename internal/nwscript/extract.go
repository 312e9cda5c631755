package nwscript

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// source is the canonical text of one file plus its line index. It is owned
// by a single extraction call.
type source struct {
	text   []rune
	lines  *lineIndex
	closes []int
}

func newSource(text []rune) *source {
	return &source{text: text, lines: newLineIndex(text), closes: commentCloses(text)}
}

// scanAt returns a scanner over the whole text positioned at pos.
func (src *source) scanAt(pos int) *scanner {
	return &scanner{src: src.text, pos: pos, closes: src.closes}
}

func group(m *regexp2.Match, name string) *regexp2.Group {
	g := m.GroupByName(name)
	if g == nil || len(g.Captures) == 0 {
		return nil
	}
	return g
}

// normalizeType collapses the whitespace inside "struct   Name".
func normalizeType(t string) string {
	return strings.Join(strings.Fields(t), " ")
}

func (src *source) engineStructures(g *grammar, out []symbols.Symbol) []symbols.Symbol {
	forEachMatch(g.engineStructure, src.text, func(m *regexp2.Match) int {
		name := group(m, "name")
		if name == nil {
			return 0
		}
		out = append(out, symbols.Symbol{
			Kind:       symbols.KindEngineStructure,
			Name:       name.String(),
			Parameters: []symbols.Parameter{},
			Line:       src.lines.line(name.Index),
		})
		return 0
	})
	return out
}

// functions extracts prototypes: a head, a parameter list and a terminating
// semicolon. Anything else after the list, a body in particular, drops the
// candidate.
func (src *source) functions(g *grammar, out []symbols.Symbol) []symbols.Symbol {
	forEachMatch(g.functionHead, src.text, func(m *regexp2.Match) int {
		typ, name := group(m, "type"), group(m, "name")
		if typ == nil || name == nil {
			return 0
		}
		s := src.scanAt(m.Index + m.Length)
		params, ok := s.parameterList()
		if !ok {
			return 0
		}
		s.skipTrivia()
		if s.peek() != ';' {
			return 0
		}
		out = append(out, symbols.Symbol{
			Kind:       symbols.KindFunction,
			Name:       name.String(),
			Type:       normalizeType(typ.String()),
			Parameters: params,
			Line:       src.lines.line(name.Index),
		})
		return s.pos + 1
	})
	return out
}

// constants extracts initialised top-level declarations ending in a
// semicolon.
func (src *source) constants(g *grammar, out []symbols.Symbol) []symbols.Symbol {
	forEachMatch(g.constantHead, src.text, func(m *regexp2.Match) int {
		typ, name := group(m, "type"), group(m, "name")
		if typ == nil || name == nil {
			return 0
		}
		s := src.scanAt(m.Index + m.Length)
		s.skipTrivia()
		v, ok := s.value()
		if !ok {
			return 0
		}
		s.skipTrivia()
		if s.peek() != ';' {
			return 0
		}
		out = append(out, symbols.Symbol{
			Kind:       symbols.KindConstant,
			Name:       name.String(),
			Type:       normalizeType(typ.String()),
			Value:      v.Text,
			Parameters: []symbols.Parameter{},
			Line:       src.lines.line(name.Index),
		})
		return s.pos + 1
	})
	return out
}
