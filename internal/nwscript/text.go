package nwscript

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// decodeText turns the raw buffer into the canonical text every extraction
// pass runs on. Wide buffers are transcoded using the detected byte order;
// narrow buffers are taken as-is unless a legacy code page is configured and
// the bytes are not valid UTF-8.
func decodeText(buf []byte, enc Encoding, legacy encoding.Encoding) []rune {
	if enc.IsWide() {
		if text, ok := decodeWide(buf, enc); ok {
			return text
		}
	}

	body := bytes.TrimPrefix(buf, markUTF8)
	if legacy != nil && !utf8.Valid(body) {
		if out, err := legacy.NewDecoder().Bytes(body); err == nil {
			return []rune(string(out))
		}
	}
	return []rune(string(body))
}

func decodeWide(buf []byte, enc Encoding) ([]rune, bool) {
	var codec encoding.Encoding
	switch enc {
	case WideLE:
		codec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case WideBE:
		codec = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case WideLENoMark:
		codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case WideBENoMark:
		codec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	default:
		return nil, false
	}
	out, err := codec.NewDecoder().Bytes(buf)
	if err != nil {
		return nil, false
	}
	return []rune(string(out)), true
}

// lineIndex maps rune offsets to 1-based line numbers.
type lineIndex struct {
	starts []int
}

func newLineIndex(text []rune) *lineIndex {
	starts := make([]int, 1, 64)
	for i, r := range text {
		if r == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{starts: starts}
}

// line returns the 1-based line containing offset.
func (li *lineIndex) line(offset int) int {
	return sort.SearchInts(li.starts, offset+1)
}

// memberCapacity is a cheap upper bound on the number of members: one per
// line. Files using bare carriage returns are counted by those instead.
func memberCapacity(text []rune, li *lineIndex) int {
	lines := len(li.starts) - 1
	if lines == 0 {
		for _, r := range text {
			if r == '\r' {
				lines++
			}
		}
	}
	return 1 + lines
}
