// Package nwscript extracts a structural outline (engine structures,
// function prototypes and constants) from NWScript source.
//
// Extraction is a pure function of the input bytes. The compiled grammar is
// shared by every call and is safe for concurrent use; everything else is
// owned by the call.
package nwscript

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

// Options configures an Extractor. The zero value is usable.
type Options struct {
	// SampleSize bounds the prefix inspected by the encoding detector.
	SampleSize int
	// LegacyCharset names the 8-bit code page used for narrow buffers that
	// are not valid UTF-8, e.g. "windows-1252". Empty disables transcoding.
	LegacyCharset string
}

// Extractor runs the outline pipeline with a fixed set of options.
type Extractor struct {
	sampleSize int
	legacy     encoding.Encoding
}

// New validates opts and returns an Extractor.
func New(opts Options) (*Extractor, error) {
	if opts.SampleSize < 0 {
		return nil, fmt.Errorf("sample size must not be negative, got %d", opts.SampleSize)
	}
	e := &Extractor{sampleSize: opts.SampleSize}
	if e.sampleSize == 0 {
		e.sampleSize = DefaultSampleSize
	}
	if opts.LegacyCharset != "" {
		enc, err := LookupCharset(opts.LegacyCharset)
		if err != nil {
			return nil, err
		}
		e.legacy = enc
	}
	return e, nil
}

// LookupCharset resolves a WHATWG encoding label.
func LookupCharset(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}

// Extract returns the outline of buf. It never fails: declarations that do
// not match the grammar are skipped.
func (e *Extractor) Extract(buf []byte) *symbols.FileResult {
	enc := DetectEncoding(buf, e.sampleSize)
	src := newSource(decodeText(buf, enc, e.legacy))

	g := compiledGrammar()
	members := make([]symbols.Symbol, 0, memberCapacity(src.text, src.lines))
	members = src.engineStructures(g, members)
	members = src.functions(g, members)
	members = src.constants(g, members)
	return assemble(members, enc)
}

var defaultExtractor = &Extractor{sampleSize: DefaultSampleSize}

// Extract runs the pipeline with default options.
func Extract(buf []byte) *symbols.FileResult {
	return defaultExtractor.Extract(buf)
}

// Text returns buf as the canonical text the extraction passes see.
func (e *Extractor) Text(buf []byte) string {
	return string(decodeText(buf, DetectEncoding(buf, e.sampleSize), e.legacy))
}
