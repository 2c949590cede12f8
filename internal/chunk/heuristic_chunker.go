package chunk

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// boundaryPattern is a single regex that marks the start of a semantic unit
// (function, class, interface, struct, ...) for a heuristic-chunked language.
type boundaryPattern struct {
	re   *regexp.Regexp
	kind string // function, class, interface, struct, method, enum, impl
}

// heuristicLanguage is a curated language entry for the regex-boundary
// strategy, used for languages with no tree-sitter grammar registered (or as
// a fallback when AST parsing fails but the language is still recognized).
type heuristicLanguage struct {
	name        string
	extensions  []string
	boundaries  []boundaryPattern
	indentAware bool // Python-style: boundaries only count at indent < 4
}

// HeuristicChunkerOptions configures the regex-boundary chunker.
type HeuristicChunkerOptions struct {
	ChunkSize    int // Maximum bytes per chunk before a unit is line-split
	ChunkOverlap int // Line-level overlap carried when a unit is line-split
}

// DefaultHeuristicChunkerOptions returns sensible defaults sized for the
// same token budget the other chunking strategies target.
func DefaultHeuristicChunkerOptions() HeuristicChunkerOptions {
	return HeuristicChunkerOptions{
		ChunkSize:    DefaultMaxChunkTokens * TokensPerChar,
		ChunkOverlap: DefaultOverlapTokens * TokensPerChar,
	}
}

// HeuristicChunker splits source files into chunks by locating line-level
// boundaries with a per-language regex table, for languages with no
// tree-sitter grammar available.
type HeuristicChunker struct {
	opts      HeuristicChunkerOptions
	extToLang map[string]*heuristicLanguage
}

var _ Chunker = (*HeuristicChunker)(nil)

// NewHeuristicChunker creates a heuristic chunker with default options and
// the curated language table.
func NewHeuristicChunker() *HeuristicChunker {
	return NewHeuristicChunkerWithOptions(DefaultHeuristicChunkerOptions())
}

// NewHeuristicChunkerWithOptions creates a heuristic chunker with custom options.
func NewHeuristicChunkerWithOptions(opts HeuristicChunkerOptions) *HeuristicChunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultHeuristicChunkerOptions().ChunkSize
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = DefaultHeuristicChunkerOptions().ChunkOverlap
	}

	extToLang := make(map[string]*heuristicLanguage)
	for i := range heuristicLanguages {
		lang := &heuristicLanguages[i]
		for _, ext := range lang.extensions {
			extToLang[ext] = lang
		}
	}

	return &HeuristicChunker{opts: opts, extToLang: extToLang}
}

// SupportedExtensions returns the file extensions this chunker's regex table covers.
func (c *HeuristicChunker) SupportedExtensions() []string {
	exts := make([]string, 0, len(c.extToLang))
	for ext := range c.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

// SupportsLanguage reports whether the regex table has an entry for the
// given language name (used by the strategy selector's fallback probe).
func (c *HeuristicChunker) SupportsLanguage(language string) bool {
	for i := range heuristicLanguages {
		if heuristicLanguages[i].name == language {
			return true
		}
	}
	return false
}

// Chunk splits file content by locating regex boundaries for the file's
// language, greedily growing each chunk from one boundary to just before the
// next, subject to ChunkSize. Falls back to treating the whole file as a
// single unit when no boundary matches.
func (c *HeuristicChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lang := c.languageByName(file.Language)
	if lang == nil {
		lang = c.languageByExt(file.Path)
	}
	if lang == nil {
		return c.chunkUnbounded(file, content)
	}

	lines := strings.Split(content, "\n")
	boundaryLines := findBoundaryLines(lines, lang)
	if len(boundaryLines) == 0 {
		return c.chunkUnbounded(file, content)
	}

	now := time.Now()
	var chunks []*Chunk
	for i, b := range boundaryLines {
		endLine := len(lines)
		if i+1 < len(boundaryLines) {
			endLine = boundaryLines[i+1].startLine - 1
		}
		unitLines := lines[b.startLine-1 : endLine]
		unit := strings.Join(unitLines, "\n")

		if len(unit) <= c.opts.ChunkSize {
			chunks = append(chunks, &Chunk{
				ID:          generateChunkID(file.Path, unit),
				FilePath:    file.Path,
				Content:     unit,
				RawContent:  unit,
				ContentType: ContentTypeCode,
				Language:    file.Language,
				StartLine:   b.startLine,
				EndLine:     endLine,
				Symbols: []*Symbol{{
					Name:      b.name,
					Type:      kindToSymbolType(b.kind),
					StartLine: b.startLine,
					EndLine:   endLine,
				}},
				Metadata:  map[string]string{},
				CreatedAt: now,
				UpdatedAt: now,
			})
			continue
		}

		chunks = append(chunks, c.splitOverlongUnit(file, unitLines, b, now)...)
	}

	return chunks, nil
}

// chunkUnbounded treats the whole file as a single unit, line-splitting if
// it exceeds ChunkSize. Used when the language has no regex table entry or
// no boundary matched anywhere in the file.
func (c *HeuristicChunker) chunkUnbounded(file *FileInput, content string) ([]*Chunk, error) {
	now := time.Now()
	if len(content) <= c.opts.ChunkSize {
		return []*Chunk{{
			ID:          generateChunkID(file.Path, content),
			FilePath:    file.Path,
			Content:     content,
			RawContent:  content,
			ContentType: ContentTypeCode,
			Language:    file.Language,
			StartLine:   1,
			EndLine:     strings.Count(content, "\n") + 1,
			Metadata:    map[string]string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}}, nil
	}

	lines := strings.Split(content, "\n")
	b := boundaryLine{startLine: 1, name: "", kind: "other"}
	return c.splitOverlongUnit(file, lines, b, now), nil
}

// splitOverlongUnit line-splits a semantic unit that exceeds ChunkSize into
// multiple chunks carrying a small line-level overlap, tagged "partial".
func (c *HeuristicChunker) splitOverlongUnit(file *FileInput, unitLines []string, b boundaryLine, now time.Time) []*Chunk {
	overlapLines := 0
	if c.opts.ChunkOverlap > 0 && len(unitLines) > 0 {
		avgLineLen := (len(strings.Join(unitLines, "\n")) + 1) / len(unitLines)
		if avgLineLen > 0 {
			overlapLines = c.opts.ChunkOverlap / avgLineLen
		}
	}

	var chunks []*Chunk
	start := 0
	for start < len(unitLines) {
		end := start
		size := 0
		for end < len(unitLines) && (size == 0 || size+len(unitLines[end])+1 <= c.opts.ChunkSize) {
			size += len(unitLines[end]) + 1
			end++
		}
		piece := strings.Join(unitLines[start:end], "\n")
		startLine := b.startLine + start
		endLine := b.startLine + end - 1

		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(file.Path, piece),
			FilePath:    file.Path,
			Content:     piece,
			RawContent:  piece,
			ContentType: ContentTypeCode,
			Language:    file.Language,
			StartLine:   startLine,
			EndLine:     endLine,
			Symbols: []*Symbol{{
				Name:      b.name,
				Type:      kindToSymbolType(b.kind),
				StartLine: startLine,
				EndLine:   endLine,
			}},
			Metadata:  map[string]string{"partial": "true"},
			CreatedAt: now,
			UpdatedAt: now,
		})

		if end >= len(unitLines) {
			break
		}
		start = end - overlapLines
		if start <= chunks[len(chunks)-1].StartLine-b.startLine {
			start = end
		}
	}
	return chunks
}

func (c *HeuristicChunker) languageByName(name string) *heuristicLanguage {
	for i := range heuristicLanguages {
		if heuristicLanguages[i].name == name {
			return &heuristicLanguages[i]
		}
	}
	return nil
}

func (c *HeuristicChunker) languageByExt(path string) *heuristicLanguage {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return nil
	}
	return c.extToLang[strings.ToLower(path[idx:])]
}

type boundaryLine struct {
	startLine int // 1-based
	name      string
	kind      string
}

// findBoundaryLines scans lines for the first regex in lang.boundaries that
// matches, in source order. For indent-aware languages (Python), a
// boundary only counts when its indentation is below 4 columns, and a
// decorator line is folded into the following definition's boundary start
// (only the first of a run of consecutive decorators is kept).
func findBoundaryLines(lines []string, lang *heuristicLanguage) []boundaryLine {
	var result []boundaryLine
	pendingDecoratorLine := -1

	for i, line := range lines {
		if lang.indentAware {
			indent := leadingSpaces(line)
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "@") {
				if pendingDecoratorLine == -1 {
					pendingDecoratorLine = i + 1
				}
				continue
			}
			if indent >= 4 {
				pendingDecoratorLine = -1
				continue
			}
			for _, b := range lang.boundaries {
				if m := b.re.FindStringSubmatch(line); m != nil {
					start := i + 1
					if pendingDecoratorLine != -1 {
						start = pendingDecoratorLine
					}
					result = append(result, boundaryLine{
						startLine: start,
						name:      boundaryName(m),
						kind:      b.kind,
					})
					break
				}
			}
			pendingDecoratorLine = -1
			continue
		}

		for _, b := range lang.boundaries {
			if m := b.re.FindStringSubmatch(line); m != nil {
				result = append(result, boundaryLine{
					startLine: i + 1,
					name:      boundaryName(m),
					kind:      b.kind,
				})
				break
			}
		}
	}
	return result
}

func boundaryName(m []string) string {
	if len(m) > 1 && m[1] != "" {
		return m[1]
	}
	return ""
}

func leadingSpaces(s string) int {
	n := 0
	for _, r := range s {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 4
		} else {
			break
		}
	}
	return n
}

func kindToSymbolType(kind string) SymbolType {
	switch kind {
	case "class", "struct", "enum", "impl":
		return SymbolTypeClass
	case "interface", "trait":
		return SymbolTypeInterface
	case "method":
		return SymbolTypeMethod
	default:
		return SymbolTypeFunction
	}
}

func b(kind, pattern string) boundaryPattern {
	return boundaryPattern{re: regexp.MustCompile(pattern), kind: kind}
}

// heuristicLanguages is the curated regex-boundary table. Languages already
// covered by a tree-sitter grammar (Go, JS/TS/TSX, Python, Java, Rust, C,
// C++, C#) are still listed here as the fallback path for parse failures;
// the rest have no AST support at all and rely on this table exclusively.
var heuristicLanguages = []heuristicLanguage{
	{
		name:       "python",
		extensions: []string{".py", ".pyi"},
		boundaries: []boundaryPattern{
			b("function", `^\s*(?:async\s+)?def\s+(\w+)\s*\(`),
			b("class", `^\s*class\s+(\w+)`),
		},
		indentAware: true,
	},
	{
		name:       "go",
		extensions: []string{".go"},
		boundaries: []boundaryPattern{
			b("method", `^func\s+\([^)]+\)\s+(\w+)\s*\(`),
			b("function", `^func\s+(\w+)\s*\(`),
			b("struct", `^type\s+(\w+)\s+struct\b`),
			b("interface", `^type\s+(\w+)\s+interface\b`),
		},
	},
	{
		name:       "javascript",
		extensions: []string{".js", ".mjs", ".cjs", ".jsx"},
		boundaries: []boundaryPattern{
			b("class", `^\s*(?:export\s+)?(?:default\s+)?class\s+(\w+)`),
			b("function", `^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`),
			b("method", `^\s*(?:static\s+)?(?:async\s+)?(\w+)\s*\([^)]*\)\s*\{`),
		},
	},
	{
		name:       "typescript",
		extensions: []string{".ts", ".tsx"},
		boundaries: []boundaryPattern{
			b("interface", `^\s*(?:export\s+)?interface\s+(\w+)`),
			b("class", `^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`),
			b("function", `^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(`),
			b("method", `^\s*(?:public\s+|private\s+|protected\s+)?(?:static\s+)?(?:async\s+)?(\w+)\s*\([^)]*\)\s*:?\s*\S*\s*\{`),
		},
	},
	{
		name:       "java",
		extensions: []string{".java"},
		boundaries: []boundaryPattern{
			b("interface", `^\s*(?:public\s+|private\s+|protected\s+)?interface\s+(\w+)`),
			b("class", `^\s*(?:public\s+|private\s+|protected\s+)?(?:abstract\s+|final\s+)?class\s+(\w+)`),
			b("enum", `^\s*(?:public\s+|private\s+|protected\s+)?enum\s+(\w+)`),
			b("method", `^\s*(?:public|private|protected)\s+(?:static\s+)?(?:final\s+)?[\w<>\[\],\s]+\s+(\w+)\s*\([^;]*\)\s*(?:throws\s+[\w,\s]+)?\s*\{`),
		},
	},
	{
		name:       "rust",
		extensions: []string{".rs"},
		boundaries: []boundaryPattern{
			b("impl", `^\s*impl(?:<[^>]*>)?\s+(?:\w+\s+for\s+)?(\w+)`),
			b("trait", `^\s*(?:pub\s+)?trait\s+(\w+)`),
			b("struct", `^\s*(?:pub\s+)?struct\s+(\w+)`),
			b("enum", `^\s*(?:pub\s+)?enum\s+(\w+)`),
			b("function", `^\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)`),
		},
	},
	{
		name:       "c",
		extensions: []string{".c", ".h"},
		boundaries: []boundaryPattern{
			b("struct", `^\s*(?:typedef\s+)?struct\s+(\w+)`),
			b("enum", `^\s*(?:typedef\s+)?enum\s+(\w+)`),
			b("function", `^[\w][\w\s\*]*?(\w+)\s*\([^;)]*\)\s*\{`),
		},
	},
	{
		name:       "cpp",
		extensions: []string{".cpp", ".cc", ".cxx", ".hpp", ".hh"},
		boundaries: []boundaryPattern{
			b("class", `^\s*class\s+(\w+)`),
			b("struct", `^\s*struct\s+(\w+)`),
			b("function", `^[\w][\w\s:<>\*&,]*?(\w+)\s*\([^;)]*\)\s*(?:const\s*)?\{`),
		},
	},
	{
		name:       "csharp",
		extensions: []string{".cs"},
		boundaries: []boundaryPattern{
			b("interface", `^\s*(?:public\s+|private\s+|internal\s+)?interface\s+(\w+)`),
			b("class", `^\s*(?:public\s+|private\s+|internal\s+)?(?:abstract\s+|sealed\s+)?(?:partial\s+)?class\s+(\w+)`),
			b("struct", `^\s*(?:public\s+|private\s+|internal\s+)?struct\s+(\w+)`),
			b("method", `^\s*(?:public|private|protected|internal)\s+(?:static\s+)?(?:async\s+)?[\w<>\[\],\.]+\s+(\w+)\s*\([^;]*\)\s*\{`),
		},
	},
	{
		name:       "ruby",
		extensions: []string{".rb"},
		boundaries: []boundaryPattern{
			b("class", `^\s*class\s+(\w+)`),
			b("module", `^\s*module\s+(\w+)`),
			b("function", `^\s*def\s+(?:self\.)?(\w+)`),
		},
	},
	{
		name:       "php",
		extensions: []string{".php"},
		boundaries: []boundaryPattern{
			b("interface", `^\s*interface\s+(\w+)`),
			b("class", `^\s*(?:abstract\s+|final\s+)?class\s+(\w+)`),
			b("function", `^\s*(?:public\s+|private\s+|protected\s+)?(?:static\s+)?function\s+(\w+)\s*\(`),
		},
	},
	{
		name:       "swift",
		extensions: []string{".swift"},
		boundaries: []boundaryPattern{
			b("class", `^\s*(?:public\s+|private\s+|internal\s+)?class\s+(\w+)`),
			b("struct", `^\s*(?:public\s+|private\s+|internal\s+)?struct\s+(\w+)`),
			b("interface", `^\s*(?:public\s+|private\s+|internal\s+)?protocol\s+(\w+)`),
			b("function", `^\s*(?:public\s+|private\s+|internal\s+)?func\s+(\w+)`),
		},
	},
	{
		name:       "kotlin",
		extensions: []string{".kt", ".kts"},
		boundaries: []boundaryPattern{
			b("interface", `^\s*interface\s+(\w+)`),
			b("class", `^\s*(?:abstract\s+|open\s+|data\s+|sealed\s+)?class\s+(\w+)`),
			b("function", `^\s*(?:private\s+|internal\s+)?fun\s+(\w+)`),
		},
	},
	{
		name:       "scala",
		extensions: []string{".scala"},
		boundaries: []boundaryPattern{
			b("trait", `^\s*trait\s+(\w+)`),
			b("class", `^\s*(?:abstract\s+)?(?:case\s+)?class\s+(\w+)`),
			b("function", `^\s*def\s+(\w+)`),
		},
	},
	{
		name:       "csharp_razor",
		extensions: []string{".cshtml"},
		boundaries: []boundaryPattern{
			b("function", `^\s*(?:public|private|protected)\s+[\w<>\[\],]+\s+(\w+)\s*\(`),
		},
	},
	{
		name:       "lua",
		extensions: []string{".lua"},
		boundaries: []boundaryPattern{
			b("function", `^\s*(?:local\s+)?function\s+([\w.:]+)\s*\(`),
		},
	},
	{
		name:       "perl",
		extensions: []string{".pl", ".pm"},
		boundaries: []boundaryPattern{
			b("function", `^\s*sub\s+(\w+)`),
			b("class", `^\s*package\s+(\w+)`),
		},
	},
	{
		name:       "haskell",
		extensions: []string{".hs"},
		boundaries: []boundaryPattern{
			b("function", `^(\w+)\s*::`),
			b("class", `^\s*data\s+(\w+)`),
		},
	},
	{
		name:       "elixir",
		extensions: []string{".ex", ".exs"},
		boundaries: []boundaryPattern{
			b("class", `^\s*defmodule\s+([\w.]+)`),
			b("function", `^\s*def\s+(\w+)`),
		},
	},
	{
		name:       "dart",
		extensions: []string{".dart"},
		boundaries: []boundaryPattern{
			b("class", `^\s*(?:abstract\s+)?class\s+(\w+)`),
			b("function", `^\s*(?:static\s+)?[\w<>?]+\s+(\w+)\s*\([^;{]*\)\s*(?:async\s*)?\{`),
		},
	},
	{
		name:       "shell",
		extensions: []string{".sh", ".bash", ".zsh"},
		boundaries: []boundaryPattern{
			b("function", `^\s*(?:function\s+)?(\w+)\s*\(\)\s*\{`),
		},
	},
	{
		name:       "sql",
		extensions: []string{".sql"},
		boundaries: []boundaryPattern{
			b("function", `(?i)^\s*create\s+(?:or\s+replace\s+)?(?:function|procedure)\s+(\w+)`),
			b("class", `(?i)^\s*create\s+table\s+(?:if\s+not\s+exists\s+)?(\w+)`),
		},
	},
	{
		name:       "objective_c",
		extensions: []string{".m", ".mm"},
		boundaries: []boundaryPattern{
			b("class", `^@interface\s+(\w+)`),
			b("function", `^[-+]\s*\([^)]*\)\s*(\w+)`),
		},
	},
	{
		name:       "groovy",
		extensions: []string{".groovy"},
		boundaries: []boundaryPattern{
			b("class", `^\s*class\s+(\w+)`),
			b("function", `^\s*def\s+(\w+)\s*\(`),
		},
	},
	{
		name:       "zig",
		extensions: []string{".zig"},
		boundaries: []boundaryPattern{
			b("function", `^\s*(?:pub\s+)?fn\s+(\w+)`),
			b("struct", `^\s*(?:pub\s+)?const\s+(\w+)\s*=\s*struct\b`),
		},
	},
}
