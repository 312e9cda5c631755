package indexer

import (
	"github.com/nwscript-tools/nwsoutline/internal/nwscript"
	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// Parser extracts an outline from source bytes.
type Parser interface {
	Parse(filename string, src []byte) (*symbols.FileResult, error)
}

// NWScriptParser adapts an nwscript.Extractor to Parser. Extraction never
// fails, so neither does Parse.
type NWScriptParser struct {
	X *nwscript.Extractor
}

func (p *NWScriptParser) Parse(_ string, src []byte) (*symbols.FileResult, error) {
	return p.X.Extract(src), nil
}

// parserRegistry maps languages to their parser implementations.
type parserRegistry map[Lang]Parser

func newParserRegistry(x *nwscript.Extractor) parserRegistry {
	return parserRegistry{LangNWScript: &NWScriptParser{X: x}}
}

// get returns the parser for the given language, or nil if unsupported.
func (r parserRegistry) get(lang Lang) Parser {
	return r[lang]
}
