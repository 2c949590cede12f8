package chunk

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// markdownExtensions lists the extensions routed to the Markdown-header strategy.
var markdownExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdx":      true,
}

// SelectorChunker picks one chunking strategy per file based on extension
// and, for source languages, parse success: Markdown-header for markdown
// files, AST-driven when a tree-sitter grammar parses the file cleanly,
// Code-heuristic when a regex-boundary table exists for the language (or
// the AST parse produced nothing), and Character-recursive as the
// universal fallback.
type SelectorChunker struct {
	markdown  Chunker
	ast       *CodeChunker
	heuristic *HeuristicChunker
	recursive Chunker
}

var _ Chunker = (*SelectorChunker)(nil)

// NewSelectorChunker builds a selector wired with one instance of each strategy.
func NewSelectorChunker() *SelectorChunker {
	return &SelectorChunker{
		markdown:  NewMarkdownChunker(),
		ast:       NewCodeChunker(),
		heuristic: NewHeuristicChunker(),
		recursive: NewRecursiveChunker(),
	}
}

// Close releases resources held by strategies that need cleanup.
func (s *SelectorChunker) Close() {
	s.ast.Close()
}

// SupportedExtensions returns the union of extensions every wrapped
// strategy recognizes; the recursive fallback has none of its own since it
// accepts anything.
func (s *SelectorChunker) SupportedExtensions() []string {
	exts := make([]string, 0)
	for ext := range markdownExtensions {
		exts = append(exts, ext)
	}
	exts = append(exts, s.ast.SupportedExtensions()...)
	exts = append(exts, s.heuristic.SupportedExtensions()...)
	return exts
}

// Chunk dispatches file to the appropriate chunking strategy.
func (s *SelectorChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	ext := strings.ToLower(filepath.Ext(file.Path))
	if markdownExtensions[ext] {
		return s.markdown.Chunk(ctx, file)
	}

	if _, astSupported := s.ast.registry.GetByName(file.Language); astSupported {
		chunks, err := s.astChunk(ctx, file)
		if err != nil {
			return nil, err
		}
		if len(chunks) > 0 {
			return chunks, nil
		}
		// AST parse produced no symbol-level chunks (e.g. a file that is
		// entirely top-level statements tree-sitter doesn't name); fall
		// through to the heuristic path below rather than returning empty.
	}

	if s.heuristic.SupportsLanguage(file.Language) || s.heuristic.languageByExt(file.Path) != nil {
		return s.heuristic.Chunk(ctx, file)
	}

	return s.recursive.Chunk(ctx, file)
}

// astChunk runs the AST strategy directly against the parser, bypassing
// CodeChunker.Chunk's own line-based fallback so the selector retains
// control of the AST → heuristic → character-recursive order.
func (s *SelectorChunker) astChunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	if len(file.Content) == 0 {
		return nil, nil
	}

	tree, err := s.ast.parser.Parse(ctx, file.Content, file.Language)
	if err != nil {
		return nil, nil
	}

	fileContext := s.ast.extractFileContext(tree, file.Content, file.Language)
	fileContext = s.ast.enrichContextWithFilePath(file.Path, file.Language, fileContext)

	symbolNodes := s.ast.findSymbolNodes(tree, file.Language)
	if len(symbolNodes) == 0 {
		return nil, nil
	}

	now := time.Now()
	chunks := make([]*Chunk, 0, len(symbolNodes))
	for _, node := range symbolNodes {
		chunks = append(chunks, s.ast.createChunksFromNode(node, tree, file, fileContext, now)...)
	}
	return chunks, nil
}
