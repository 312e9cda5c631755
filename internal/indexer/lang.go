package indexer

import (
	"path/filepath"
	"strings"
)

// Lang identifies the script dialect of an indexed file.
type Lang string

const (
	LangNWScript Lang = "nwscript"
	LangUnknown  Lang = ""
)

// DefaultExtensions are the file extensions indexed when none are configured.
var DefaultExtensions = []string{".nss"}

// langMap maps lower-case file extensions to languages.
type langMap map[string]Lang

func newLangMap(exts []string) langMap {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	m := make(langMap, len(exts))
	for _, e := range exts {
		m[strings.ToLower(e)] = LangNWScript
	}
	return m
}

// detect returns the language for a path based on its extension.
func (m langMap) detect(path string) Lang {
	if l, ok := m[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return LangUnknown
}

// DetectLang reports the language of path using the default extensions.
func DetectLang(path string) Lang {
	return defaultLangs.detect(path)
}

var defaultLangs = newLangMap(nil)
