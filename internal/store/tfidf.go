package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/motif-dev/motif/internal/errs"
)

const (
	// CodeTokenizerName is the name of the code-aware tokenizer registered
	// with Bleve: splits camelCase/snake_case identifiers the way
	// TokenizeCode does.
	CodeTokenizerName = "code_tokenizer"

	// CodeStopFilterName is the name of the code stop word filter.
	CodeStopFilterName = "code_stop"

	// CodeAnalyzerName is the name of the composed code analyzer
	// (tokenizer + lowercase + stop filter).
	CodeAnalyzerName = "code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(CodeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(CodeStopFilterName, codeStopFilterConstructor)
}

// TFIDFIndex is the in-memory FTS flavor selected by the factory
// (fts_factory.go) for small projects: a Bleve index held entirely in
// memory, never touching disk, addressed by chunk id and tracking each
// document's owning file path so whole-file removal doesn't require the
// caller to enumerate chunk ids. The disk-backed BM25 flavor backed by
// SQLite FTS5 lives in bm25_sqlite.go; both implement FTSIndex.
type TFIDFIndex struct {
	mu        sync.RWMutex
	index     bleve.Index
	config    BM25Config
	closed    bool
	docPaths  map[string]string              // chunk id -> owning file path
	docByPath map[string]map[string]struct{} // file path -> set of chunk ids
	content   map[string]string              // chunk id -> raw content, for serialize/deserialize
}

// BleveDocument is the document structure indexed into Bleve.
type BleveDocument struct {
	Content string `json:"content"`
}

// NewTFIDFIndex creates an empty in-memory TF-IDF index.
func NewTFIDFIndex(config BM25Config) (*TFIDFIndex, error) {
	indexMapping, err := createCodeIndexMapping()
	if err != nil {
		return nil, errs.FTSSerialization("failed to create index mapping", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, errs.Store("failed to create in-memory FTS index", err, false)
	}

	return &TFIDFIndex{
		index:     idx,
		config:    config,
		docPaths:  make(map[string]string),
		docByPath: make(map[string]map[string]struct{}),
		content:   make(map[string]string),
	}, nil
}

// createCodeIndexMapping builds the Bleve mapping with the code-aware
// analyzer, shared by both FTS backends' search-token handling even though
// only TFIDFIndex embeds a Bleve index directly.
func createCodeIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(CodeAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": CodeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			CodeStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = CodeAnalyzerName
	return indexMapping, nil
}

// AddChunk indexes a single chunk, recording its owning path for later
// RemoveByPath calls.
func (t *TFIDFIndex) AddChunk(ctx context.Context, c *Chunk) error {
	return t.AddChunks(ctx, []*Chunk{c})
}

// AddChunks indexes a batch of chunks in one Bleve batch operation.
func (t *TFIDFIndex) AddChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errs.Store("index is closed", nil, false)
	}

	batch := t.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, BleveDocument{Content: c.Content}); err != nil {
			return errs.Store("failed to index chunk "+c.ID, err, false)
		}
		t.docPaths[c.ID] = c.FilePath
		t.content[c.ID] = c.Content
		if t.docByPath[c.FilePath] == nil {
			t.docByPath[c.FilePath] = make(map[string]struct{})
		}
		t.docByPath[c.FilePath][c.ID] = struct{}{}
	}

	if err := t.index.Batch(batch); err != nil {
		return errs.Store("failed to execute index batch", err, false)
	}
	return nil
}

// RemoveByPath deletes every chunk indexed under path.
func (t *TFIDFIndex) RemoveByPath(ctx context.Context, path string) error {
	t.mu.Lock()
	ids := t.docByPath[path]
	if len(ids) == 0 {
		t.mu.Unlock()
		return nil
	}
	docIDs := make([]string, 0, len(ids))
	for id := range ids {
		docIDs = append(docIDs, id)
	}
	t.mu.Unlock()

	return t.Delete(ctx, docIDs)
}

// Search returns chunks matching query, scored by the underlying Bleve
// analyzer's relevance ranking.
func (t *TFIDFIndex) Search(ctx context.Context, queryStr string, topK int) ([]*BM25Result, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return nil, errs.Store("index is closed", nil, false)
	}
	if strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK
	req.IncludeLocations = true

	result, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errs.Store("search failed", err, false)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, &BM25Result{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return results, nil
}

// NormalizeScores min-max scales results' scores into [0,1] in place,
// mirroring the RRF fusion normalization rule: a single result, or a set
// where every score is equal or zero, maps every positive score to 1.0.
func NormalizeScores(results []*BM25Result) {
	if len(results) == 0 {
		return
	}
	if len(results) == 1 {
		if results[0].Score > 0 {
			results[0].Score = 1.0
		}
		return
	}

	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	rangeScore := maxScore - minScore
	if rangeScore == 0 || maxScore == 0 {
		for _, r := range results {
			if r.Score > 0 {
				r.Score = 1.0
			}
		}
		return
	}

	for _, r := range results {
		r.Score = (r.Score - minScore) / rangeScore
	}
}

// HasData reports whether the index currently holds any documents.
func (t *TFIDFIndex) HasData() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.content) > 0
}

// Clear removes every document from the index.
func (t *TFIDFIndex) Clear(ctx context.Context) error {
	t.mu.Lock()
	ids := make([]string, 0, len(t.content))
	for id := range t.content {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	return t.Delete(ctx, ids)
}

// tfidfSnapshot is the JSON shape serialized/deserialized for the in-memory
// flavor's persistence, since a Bleve MemOnly index has nothing on disk to
// point to. Round-tripping rebuilds the Bleve index from scratch.
type tfidfSnapshot struct {
	Docs map[string]tfidfSnapshotDoc `json:"docs"`
}

type tfidfSnapshotDoc struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Serialize returns an opaque string capturing the index's full contents.
func (t *TFIDFIndex) Serialize() (string, error) {
	t.mu.RLock()
	snap := tfidfSnapshot{Docs: make(map[string]tfidfSnapshotDoc, len(t.content))}
	for id, content := range t.content {
		snap.Docs[id] = tfidfSnapshotDoc{Path: t.docPaths[id], Content: content}
	}
	t.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return "", errs.FTSSerialization("failed to serialize index", err)
	}
	return string(data), nil
}

// Deserialize replaces the index's contents with the snapshot encoded in
// data, as produced by Serialize. An unparseable payload is reported as a
// KindFTSSerialization error rather than a partial load.
func (t *TFIDFIndex) Deserialize(ctx context.Context, data string) error {
	var snap tfidfSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return errs.FTSSerialization("unrecognized snapshot version or corrupt data", err)
	}

	if err := t.Clear(ctx); err != nil {
		return err
	}

	chunks := make([]*Chunk, 0, len(snap.Docs))
	for id, doc := range snap.Docs {
		chunks = append(chunks, &Chunk{ID: id, FilePath: doc.Path, Content: doc.Content})
	}
	return t.AddChunks(ctx, chunks)
}

// Index adds documents to the index (BM25Index interface).
func (t *TFIDFIndex) Index(ctx context.Context, docs []*Document) error {
	chunks := make([]*Chunk, len(docs))
	for i, d := range docs {
		chunks[i] = &Chunk{ID: d.ID, Content: d.Content}
	}
	return t.AddChunks(ctx, chunks)
}

// Delete removes documents from the index by id.
func (t *TFIDFIndex) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errs.Store("index is closed", nil, false)
	}

	batch := t.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
		if path, ok := t.docPaths[id]; ok {
			delete(t.docByPath[path], id)
			if len(t.docByPath[path]) == 0 {
				delete(t.docByPath, path)
			}
		}
		delete(t.docPaths, id)
		delete(t.content, id)
	}

	if err := t.index.Batch(batch); err != nil {
		return errs.Store("failed to delete documents", err, false)
	}
	return nil
}

// AllIDs returns all document IDs in the index.
func (t *TFIDFIndex) AllIDs() ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.content))
	for id := range t.content {
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats returns index statistics.
func (t *TFIDFIndex) Stats() *IndexStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	docCount, _ := t.index.DocCount()
	return &IndexStats{DocumentCount: int(docCount)}
}

// Save is a no-op: the in-memory flavor is persisted via Serialize, which
// IndexManager writes alongside the fingerprint store.
func (t *TFIDFIndex) Save(path string) error {
	return nil
}

// Load is unsupported for the in-memory flavor; use Deserialize.
func (t *TFIDFIndex) Load(path string) error {
	return errs.FTSSerialization("TFIDFIndex does not support Load; use Deserialize", nil)
}

// Close releases the underlying Bleve index.
func (t *TFIDFIndex) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.index != nil {
		return t.index.Close()
	}
	return nil
}

// Verify interface implementation
var _ FTSIndex = (*TFIDFIndex)(nil)

// extractMatchedTerms extracts matched terms from a search hit.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "content" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}

// codeTokenizerConstructor creates a new code tokenizer for Bleve.
func codeTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

// bleveCodeTokenizer implements analysis.Tokenizer for code-aware tokenization.
type bleveCodeTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (tk *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0

	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}

	return result
}

// codeStopFilterConstructor creates a code stop word filter for Bleve.
func codeStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveCodeStopFilter{
		stopWords: BuildStopWordMap(DefaultCodeStopWords),
	}, nil
}

// bleveCodeStopFilter implements analysis.TokenFilter for code stop words.
type bleveCodeStopFilter struct {
	stopWords map[string]struct{}
}

// Filter implements analysis.TokenFilter.
func (f *bleveCodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, isStop := f.stopWords[term]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
