// Package search keeps a Bleve full-text index of indexed declarations so
// they can be found by the words in their names and signatures rather than
// by exact name or prefix.
package search

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/nwscript-tools/nwsoutline/internal/symbols"
)

const (
	indexDirName     = "symbols.bleve"
	manifestFileName = "symbols-manifest.json"
	docType          = "declaration"
	defaultLimit     = 20
	batchSize        = 500
)

// Source is the index the search documents are built from.
type Source interface {
	// Files returns every indexed path with its content hash.
	Files() (map[string]string, error)
	// FileOutline returns the stored outline of one path.
	FileOutline(path string) (*symbols.FileResult, error)
}

// SymbolIndex is a Bleve index with one document per declaration. It is safe
// for concurrent use.
type SymbolIndex struct {
	mu           sync.Mutex
	indexPath    string
	manifestPath string
	idx          *bleveIndex
	manifest     *manifest
}

// declarationDoc is the indexed shape of one declaration.
type declarationDoc struct {
	Name      string `json:"name"`
	Words     string `json:"words"`
	Kind      string `json:"symbolKind"`
	Signature string `json:"signature"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
}

// BleveType implements bleve's classifier so the declaration mapping applies.
func (declarationDoc) BleveType() string { return docType }

// Open opens or creates the on-disk index under baseDir, typically
// <repo>/.nwsoutline/search. Only one process may hold it open.
func Open(baseDir string) (*SymbolIndex, error) {
	indexPath := filepath.Join(baseDir, indexDirName)
	manifestPath := filepath.Join(baseDir, manifestFileName)

	idx, err := openOrCreate(indexPath, indexMapping())
	if err != nil {
		return nil, err
	}
	m, err := loadManifest(manifestPath)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	if m == nil {
		// Documents without a manifest cannot be replaced; start over.
		_ = idx.Close()
		if idx, err = reset(indexPath, indexMapping()); err != nil {
			return nil, err
		}
		m = newManifest()
	}
	return &SymbolIndex{indexPath: indexPath, manifestPath: manifestPath, idx: idx, manifest: m}, nil
}

// OpenMemory returns an empty in-memory index. It is used when another
// process holds the on-disk index.
func OpenMemory() (*SymbolIndex, error) {
	idx, err := newMemOnly(indexMapping())
	if err != nil {
		return nil, err
	}
	return &SymbolIndex{idx: idx, manifest: newManifest()}, nil
}

// Reset drops every document.
func (s *SymbolIndex) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.idx.Close()
	var (
		b   *bleveIndex
		err error
	)
	if s.indexPath == "" {
		b, err = newMemOnly(indexMapping())
	} else {
		b, err = reset(s.indexPath, indexMapping())
	}
	if err != nil {
		return err
	}
	s.idx = b
	s.manifest = newManifest()
	return saveManifest(s.manifestPath, s.manifest)
}

func (s *SymbolIndex) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := saveManifest(s.manifestPath, s.manifest); err != nil {
		_ = s.idx.Close()
		return err
	}
	return s.idx.Close()
}

// SyncStats counts the files a Sync touched.
type SyncStats struct {
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
}

// Sync brings the documents in line with src: files whose hash changed are
// re-indexed and files no longer in src are dropped.
func (s *SymbolIndex) Sync(src Source) (SyncStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st SyncStats
	files, err := src.Files()
	if err != nil {
		return st, fmt.Errorf("list indexed files: %w", err)
	}

	batch := s.idx.index.NewBatch()
	flush := func() error {
		if batch.Size() < batchSize {
			return nil
		}
		if err := s.idx.index.Batch(batch); err != nil {
			return fmt.Errorf("bleve batch: %w", err)
		}
		batch.Reset()
		return nil
	}

	for path, entry := range s.manifest.Files {
		if _, ok := files[path]; ok {
			continue
		}
		for _, id := range entry.DocIDs {
			batch.Delete(id)
		}
		delete(s.manifest.Files, path)
		st.Removed++
		if err := flush(); err != nil {
			return st, err
		}
	}

	paths := make([]string, 0, len(files))
	for path, sha := range files {
		if s.manifest.Files[path].SHA256 != sha {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		fr, err := src.FileOutline(path)
		if err != nil {
			return st, fmt.Errorf("load outline of %s: %w", path, err)
		}
		for _, id := range s.manifest.Files[path].DocIDs {
			batch.Delete(id)
		}
		ids := make([]string, 0, len(fr.Members))
		for i, m := range fr.Members {
			id := fmt.Sprintf("%s#%d", path, i)
			if err := batch.Index(id, newDoc(path, m)); err != nil {
				return st, fmt.Errorf("index %s: %w", id, err)
			}
			ids = append(ids, id)
		}
		s.manifest.Files[path] = manifestEntry{SHA256: files[path], DocIDs: ids}
		st.Indexed++
		if err := flush(); err != nil {
			return st, err
		}
	}

	if batch.Size() > 0 {
		if err := s.idx.index.Batch(batch); err != nil {
			return st, fmt.Errorf("bleve batch: %w", err)
		}
	}
	if st.Indexed > 0 || st.Removed > 0 {
		if err := saveManifest(s.manifestPath, s.manifest); err != nil {
			return st, err
		}
	}
	return st, nil
}

func newDoc(path string, m symbols.Symbol) declarationDoc {
	return declarationDoc{
		Name:      m.Name,
		Words:     strings.Join(SplitWords(m.Name), " "),
		Kind:      m.Kind.String(),
		Signature: m.Signature(),
		Path:      filepath.ToSlash(path),
		Line:      m.Line,
	}
}

// Options narrows a search.
type Options struct {
	Kinds      []symbols.SymbolKind
	PathPrefix string
	Limit      int
}

// Hit is one matching declaration.
type Hit struct {
	Name      string             `json:"name"`
	Kind      symbols.SymbolKind `json:"kind"`
	Signature string             `json:"signature"`
	Path      string             `json:"path"`
	Line      int                `json:"line"`
	Score     float64            `json:"score"`
}

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("empty search query")

// Search ranks declarations against text. An exact name match ranks
// highest, then matches on name words, then on the signature; name words
// also match with one edit of fuzziness.
func (s *SymbolIndex) Search(text string, opts Options) ([]Hit, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	qExact := bleve.NewTermQuery(text)
	qExact.SetField("name")
	qExact.SetBoost(5.0)

	words := strings.Join(SplitWords(text), " ")
	qWords := bleve.NewMatchQuery(words)
	qWords.SetField("words")
	qWords.SetBoost(3.0)

	qFuzzy := bleve.NewMatchQuery(words)
	qFuzzy.SetField("words")
	qFuzzy.SetFuzziness(1)
	qFuzzy.SetBoost(0.5)

	qSig := bleve.NewMatchQuery(text)
	qSig.SetField("signature")
	qSig.SetBoost(1.0)

	var q query.Query = bleve.NewDisjunctionQuery(qExact, qWords, qFuzzy, qSig)

	var filters []query.Query
	if len(opts.Kinds) > 0 {
		kinds := make([]query.Query, 0, len(opts.Kinds))
		for _, k := range opts.Kinds {
			tq := bleve.NewTermQuery(k.String())
			tq.SetField("symbolKind")
			kinds = append(kinds, tq)
		}
		filters = append(filters, bleve.NewDisjunctionQuery(kinds...))
	}
	if opts.PathPrefix != "" {
		pq := bleve.NewPrefixQuery(filepath.ToSlash(opts.PathPrefix))
		pq.SetField("path")
		filters = append(filters, pq)
	}
	if len(filters) > 0 {
		q = bleve.NewConjunctionQuery(append([]query.Query{q}, filters...)...)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"name", "symbolKind", "signature", "path", "line"}

	res, err := s.idx.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		name, _ := h.Fields["name"].(string)
		kind, _ := h.Fields["symbolKind"].(string)
		sig, _ := h.Fields["signature"].(string)
		path, _ := h.Fields["path"].(string)
		line, _ := h.Fields["line"].(float64)
		hits = append(hits, Hit{
			Name:      name,
			Kind:      symbols.ParseKind(kind),
			Signature: sig,
			Path:      path,
			Line:      int(line),
			Score:     h.Score,
		})
	}
	return hits, nil
}

// DocCount returns the number of indexed declarations.
func (s *SymbolIndex) DocCount() (uint64, error) {
	return s.idx.index.DocCount()
}

// SplitWords breaks an identifier into words at underscores, spaces and
// case changes: "GetIsPCSpeaking" gives Get, Is, PC, Speaking and
// "OBJECT_TYPE_ITEM" gives OBJECT, TYPE, ITEM.
func SplitWords(name string) []string {
	var (
		words []string
		cur   []rune
	)
	emit := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		if r == '_' || unicode.IsSpace(r) {
			emit()
			continue
		}
		if i > 0 && len(cur) > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				emit()
			}
		}
		cur = append(cur, r)
	}
	emit()
	return words
}

func indexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	m.DefaultType = docType

	doc := mapping.NewDocumentMapping()

	text := mapping.NewTextFieldMapping()
	text.Store = true

	kw := mapping.NewKeywordFieldMapping()
	kw.Store = true

	num := mapping.NewNumericFieldMapping()
	num.Store = true

	// Exact and filter fields.
	doc.AddFieldMappingsAt("name", kw)
	doc.AddFieldMappingsAt("symbolKind", kw)
	doc.AddFieldMappingsAt("path", kw)
	doc.AddFieldMappingsAt("line", num)

	// Relevance fields.
	doc.AddFieldMappingsAt("words", text)
	doc.AddFieldMappingsAt("signature", text)

	m.AddDocumentMapping(docType, doc)
	return m
}
