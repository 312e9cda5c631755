package nwscript

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// Pattern fragments. Every repetition that can see long runs of input is
// wrapped in an atomic group so the engine never backtracks into it.
const (
	identPattern = `(?>[A-Za-z0-9_]+)`

	// trivia: whitespace, line comments and block comments.
	triviaPattern = `(?>(?:\s+|//[^\n]*|/\*(?>(?:[^*]|\*(?!/))*)\*/)*)`

	// leading block comments allowed before a declaration at column 0.
	leadCommentsPattern = `(?>(?:/\*(?>(?:[^*]|\*(?!/))*)\*/[ \t]*)*)`

	// statement heads that look like "type name(" but are not declarations.
	notKeywordPattern = `(?!(?:return|if|else|switch)(?![A-Za-z0-9_]))`

	typePattern = `(?:struct(?>[ \t]+))?` + identPattern
)

// expand substitutes the named fragments into a pattern template.
func expand(tmpl string) string {
	return strings.NewReplacer(
		"{lead}", leadCommentsPattern,
		"{t}", triviaPattern,
		"{ident}", identPattern,
		"{type}", typePattern,
		"{notkw}", notKeywordPattern,
	).Replace(tmpl)
}

var (
	engineStructurePattern = expand(
		`^(?>[ \t]*)#define(?>[ \t]+)ENGINE_STRUCTURE_(?>\d+)(?>[ \t]+)(?<name>{ident})`)

	functionHeadPattern = expand(
		`^{lead}{notkw}(?<type>{type}){t}(?<name>{ident}){t}\(`)

	constantHeadPattern = expand(
		`^{lead}(?:const(?>\s+))?{notkw}(?<type>{type}){t}(?<name>{ident}){t}=(?!=)`)
)

// grammar holds the compiled declaration-boundary patterns. It is built once
// per process and only read afterwards.
type grammar struct {
	engineStructure *regexp2.Regexp
	functionHead    *regexp2.Regexp
	constantHead    *regexp2.Regexp
}

var compiledGrammar = sync.OnceValue(func() *grammar {
	return &grammar{
		engineStructure: regexp2.MustCompile(engineStructurePattern, regexp2.Multiline),
		functionHead:    regexp2.MustCompile(functionHeadPattern, regexp2.Multiline),
		constantHead:    regexp2.MustCompile(constantHeadPattern, regexp2.Multiline),
	}
})

// forEachMatch runs re over text from the top, handing each match to fn.
// fn returns the offset where the next search starts; returning a value not
// past the match start resumes right after the match.
func forEachMatch(re *regexp2.Regexp, text []rune, fn func(m *regexp2.Match) int) {
	pos := 0
	for pos <= len(text) {
		m, err := re.FindRunesMatchStartingAt(text, pos)
		if err != nil || m == nil {
			return
		}
		next := fn(m)
		if next <= m.Index {
			next = m.Index + m.Length
			if m.Length == 0 {
				next++
			}
		}
		pos = next
	}
}
