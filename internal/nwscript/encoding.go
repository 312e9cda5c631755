package nwscript

import (
	"bytes"
	"unicode/utf8"
)

// DefaultSampleSize is the number of leading bytes inspected by
// DetectEncoding when no explicit size is configured.
const DefaultSampleSize = 128*1024 + 4

// Encoding is the detector's verdict for a raw byte buffer.
type Encoding int

const (
	Unknown Encoding = iota
	Narrow
	NarrowWithCookie
	WideLE
	WideBE
	WideLENoMark
	WideBENoMark
)

var encodingNames = map[Encoding]string{
	Unknown:          "unknown",
	Narrow:           "narrow",
	NarrowWithCookie: "narrow-utf8",
	WideLE:           "utf16le-bom",
	WideBE:           "utf16be-bom",
	WideLENoMark:     "utf16le",
	WideBENoMark:     "utf16be",
}

func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return "unknown"
}

// IsWide reports whether the buffer holds 16-bit characters.
func (e Encoding) IsWide() bool {
	switch e {
	case WideLE, WideBE, WideLENoMark, WideBENoMark:
		return true
	}
	return false
}

var (
	markUTF16BE = []byte{0xFE, 0xFF}
	markUTF16LE = []byte{0xFF, 0xFE}
	markUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// DetectEncoding classifies buf by looking at most maxSample leading bytes.
// A non-positive maxSample means DefaultSampleSize.
func DetectEncoding(buf []byte, maxSample int) Encoding {
	if maxSample <= 0 {
		maxSample = DefaultSampleSize
	}
	sample := buf
	if len(sample) > maxSample {
		sample = sample[:maxSample]
	}
	if len(sample) == 0 {
		return Unknown
	}

	switch {
	case bytes.HasPrefix(sample, markUTF16BE):
		return WideBE
	case bytes.HasPrefix(sample, markUTF16LE):
		return WideLE
	case bytes.HasPrefix(sample, markUTF8):
		return NarrowWithCookie
	}

	if enc, ok := detectWideNoMark(sample); ok {
		return enc
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return Unknown
	}
	return detectNarrow(sample, len(buf) > len(sample))
}

// detectWideNoMark looks at the distribution of null bytes over even and odd
// positions. ASCII-heavy UTF-16 text has one null per character on the
// high-byte side.
func detectWideNoMark(sample []byte) (Encoding, bool) {
	pairs := len(sample) / 2
	if pairs == 0 {
		return Unknown, false
	}
	var evenNulls, oddNulls int
	for i := 0; i+1 < len(sample); i += 2 {
		if sample[i] == 0 {
			evenNulls++
		}
		if sample[i+1] == 0 {
			oddNulls++
		}
	}
	dominant := func(n int) bool { return n*10 >= pairs*6 }
	rare := func(n int) bool { return n*10 <= pairs }

	if sample[0] != 0 && sample[1] == 0 && dominant(oddNulls) && rare(evenNulls) {
		return WideLENoMark, true
	}
	if sample[0] == 0 && sample[1] != 0 && dominant(evenNulls) && rare(oddNulls) {
		return WideBENoMark, true
	}
	return Unknown, false
}

// detectNarrow separates UTF-8 with multibyte content from 7-bit ASCII and
// legacy 8-bit code pages. truncated tells whether the sample was cut from a
// longer buffer, in which case an incomplete trailing rune is ignored.
func detectNarrow(sample []byte, truncated bool) Encoding {
	multibyte := false
	for i := 0; i < len(sample); {
		c := sample[i]
		if c < utf8.RuneSelf {
			i++
			continue
		}
		if truncated && !utf8.FullRune(sample[i:]) {
			break
		}
		r, size := utf8.DecodeRune(sample[i:])
		if r == utf8.RuneError && size <= 1 {
			return Narrow
		}
		multibyte = true
		i += size
	}
	if multibyte {
		return NarrowWithCookie
	}
	return Narrow
}
