package chunk

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"github.com/motif-dev/motif/internal/errs"
)

// Priority-ordered separators for the character-recursive strategy. Text is
// split on the first separator that produces pieces small enough to merge;
// "" means split at a fixed byte offset, the last resort.
var recursiveSeparators = []string{"\n\n", "\n", " ", ""}

// StreamThresholdBytes is the file size above which chunking switches to the
// line-by-line streaming path instead of a full in-memory read.
const StreamThresholdBytes = 10 * 1024 * 1024

// RecursiveChunkerOptions configures the character-recursive chunker.
type RecursiveChunkerOptions struct {
	ChunkSize    int // Maximum bytes per chunk
	ChunkOverlap int // Bytes carried backward between adjacent chunks
	MaxChunks    int // Hard cap on chunks per file; exceeding it is fatal for that file
}

// DefaultRecursiveChunkerOptions returns sensible defaults sized for the
// same token budget the AST and heuristic chunkers target.
func DefaultRecursiveChunkerOptions() RecursiveChunkerOptions {
	return RecursiveChunkerOptions{
		ChunkSize:    DefaultMaxChunkTokens * TokensPerChar,
		ChunkOverlap: DefaultOverlapTokens * TokensPerChar,
		MaxChunks:    5000,
	}
}

// RecursiveChunker is the fallback chunking strategy: it never fails to
// produce chunks for any text file, regardless of language or structure.
type RecursiveChunker struct {
	opts RecursiveChunkerOptions
}

var _ Chunker = (*RecursiveChunker)(nil)

// NewRecursiveChunker creates a recursive chunker with default options.
func NewRecursiveChunker() *RecursiveChunker {
	return NewRecursiveChunkerWithOptions(DefaultRecursiveChunkerOptions())
}

// NewRecursiveChunkerWithOptions creates a recursive chunker with custom options.
func NewRecursiveChunkerWithOptions(opts RecursiveChunkerOptions) *RecursiveChunker {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultRecursiveChunkerOptions().ChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = DefaultRecursiveChunkerOptions().ChunkOverlap
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = DefaultRecursiveChunkerOptions().MaxChunks
	}
	return &RecursiveChunker{opts: opts}
}

// SupportedExtensions returns nil: the recursive chunker is the universal
// fallback and is not selected by extension.
func (c *RecursiveChunker) SupportedExtensions() []string { return nil }

// Chunk splits file content using the character-recursive strategy.
func (c *RecursiveChunker) Chunk(ctx context.Context, file *FileInput) ([]*Chunk, error) {
	content := string(file.Content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	pieces := splitRecursive(content, recursiveSeparators, c.opts.ChunkSize)
	merged := mergeWithOverlap(pieces, c.opts.ChunkSize, c.opts.ChunkOverlap)
	if len(merged) > c.opts.MaxChunks {
		return nil, errs.ResourceLimit(
			"file "+file.Path+" would produce "+itoa(len(merged))+" chunks, exceeding the per-file cap", nil).WithPath(file.Path)
	}

	now := time.Now()
	chunks := make([]*Chunk, 0, len(merged))
	cursor := 0
	prevEndLine := 0
	for _, piece := range merged {
		startLine, endLine, nextCursor := recoverLineNumbers(content, piece, cursor, prevEndLine, c.opts.ChunkOverlap)
		chunk := &Chunk{
			ID:          generateChunkID(file.Path, piece),
			FilePath:    file.Path,
			Content:     piece,
			RawContent:  piece,
			ContentType: ContentTypeText,
			Language:    file.Language,
			StartLine:   startLine,
			EndLine:     endLine,
			Metadata:    map[string]string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		chunks = append(chunks, chunk)
		cursor = nextCursor
		prevEndLine = endLine
	}
	return chunks, nil
}

// ChunkFile chunks a file from disk, using the streaming path once the file
// exceeds StreamThresholdBytes so large files never require a full
// in-memory read. Symbolic links are skipped and return zero chunks.
// contentHash is the SHA-256 of the file content, computed without a second
// read of the full file, for callers that need a fingerprint alongside the
// chunks (e.g. incremental indexing).
func (c *RecursiveChunker) ChunkFile(ctx context.Context, path, relPath, language string) (chunks []*Chunk, contentHash string, err error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errs.Input("file not found: "+path, err).WithPath(relPath)
		}
		if os.IsPermission(err) {
			return nil, "", errs.Input("permission denied: "+path, err).WithPath(relPath)
		}
		return nil, "", errs.Input("stat failed: "+path, err).WithPath(relPath)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, "", nil
	}

	if info.Size() < StreamThresholdBytes {
		content, err := os.ReadFile(path)
		if err != nil {
			if os.IsPermission(err) {
				return nil, "", errs.Input("permission denied: "+path, err).WithPath(relPath)
			}
			return nil, "", errs.Input("read failed: "+path, err).WithPath(relPath)
		}
		sum := sha256.Sum256(content)
		chunks, err := c.Chunk(ctx, &FileInput{Path: relPath, Content: content, Language: language})
		return chunks, hex.EncodeToString(sum[:]), err
	}

	return c.chunkStream(path, relPath, language)
}

// chunkStream chunks a large file line by line without a full in-memory
// read, maintaining a rolling SHA-256 of the file content and respecting
// the same per-file chunk cap as the in-memory path.
func (c *RecursiveChunker) chunkStream(path, relPath, language string) (chunks []*Chunk, contentHash string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errs.Input("open failed: "+path, err).WithPath(relPath)
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	reader := io.TeeReader(f, hasher)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	now := time.Now()
	var current strings.Builder
	startLine := 1
	lineNo := 0

	flush := func(endLine int) error {
		if current.Len() == 0 {
			return nil
		}
		content := current.String()
		chunks = append(chunks, &Chunk{
			ID:          generateChunkID(relPath, content),
			FilePath:    relPath,
			Content:     content,
			RawContent:  content,
			ContentType: ContentTypeText,
			Language:    language,
			StartLine:   startLine,
			EndLine:     endLine,
			Metadata:    map[string]string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if len(chunks) > c.opts.MaxChunks {
			return errs.ResourceLimit(
				"file "+relPath+" would produce more than "+itoa(c.opts.MaxChunks)+" chunks, exceeding the per-file cap", nil).WithPath(relPath)
		}
		suffix := overlapSuffix(content, c.opts.ChunkOverlap)
		current.Reset()
		current.WriteString(suffix)
		startLine = endLine - strings.Count(suffix, "\n")
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if current.Len() > 0 && current.Len()+len(line)+1 > c.opts.ChunkSize {
			if ferr := flush(lineNo - 1); ferr != nil {
				return nil, "", ferr
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if serr := scanner.Err(); serr != nil {
		return nil, "", errs.Input("read failed: "+path, serr).WithPath(relPath)
	}
	if ferr := flush(lineNo); ferr != nil {
		return nil, "", ferr
	}

	return chunks, hex.EncodeToString(hasher.Sum(nil)), nil
}

// splitRecursive recursively splits text on the priority-ordered separator
// list until every resulting piece is at most chunkSize bytes.
func splitRecursive(text string, separators []string, chunkSize int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return splitFixed(text, chunkSize)
	}

	sep := separators[0]
	if sep == "" {
		return splitFixed(text, chunkSize)
	}

	parts := strings.Split(text, sep)
	var pieces []string
	for i, p := range parts {
		if i < len(parts)-1 {
			p += sep
		}
		if p == "" {
			continue
		}
		if len(p) > chunkSize {
			pieces = append(pieces, splitRecursive(p, separators[1:], chunkSize)...)
		} else {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

// splitFixed splits text into fixed-size byte windows, the last-resort
// separator ("") in the priority list.
func splitFixed(text string, chunkSize int) []string {
	var pieces []string
	for len(text) > 0 {
		n := chunkSize
		if n > len(text) {
			n = len(text)
		}
		pieces = append(pieces, text[:n])
		text = text[n:]
	}
	return pieces
}

// mergeWithOverlap greedily merges adjacent small pieces up to chunkSize,
// carrying a suffix of the previous merged chunk (truncated at a separator
// boundary) forward as the seed of the next.
func mergeWithOverlap(pieces []string, chunkSize, overlap int) []string {
	if len(pieces) == 0 {
		return nil
	}

	var merged []string
	var current strings.Builder
	for _, p := range pieces {
		if current.Len() > 0 && current.Len()+len(p) > chunkSize {
			merged = append(merged, current.String())
			suffix := overlapSuffix(current.String(), overlap)
			current.Reset()
			current.WriteString(suffix)
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		merged = append(merged, current.String())
	}
	return merged
}

// overlapSuffix returns the trailing window of s of length at most overlap,
// truncated forward to the next separator boundary so the carried-over
// prefix of the next chunk doesn't start mid-word.
func overlapSuffix(s string, overlap int) string {
	if overlap <= 0 || len(s) == 0 {
		return ""
	}
	if len(s) <= overlap {
		return s
	}
	start := len(s) - overlap
	if idx := strings.IndexAny(s[start:], "\n "); idx >= 0 {
		start += idx + 1
	}
	if start >= len(s) {
		return ""
	}
	return s[start:]
}

// recoverLineNumbers locates chunkContent in fullText to recover its
// original 1-based start/end line, searching forward from cursor minus the
// overlap window. Falls back to the previous chunk's end line plus the
// newline count in chunkContent when the substring can't be found (content
// was synthesized, e.g. a seeded overlap prefix merged with new text).
func recoverLineNumbers(fullText, chunkContent string, cursor, prevEndLine, overlap int) (startLine, endLine, nextCursor int) {
	searchFrom := cursor - overlap
	if searchFrom < 0 {
		searchFrom = 0
	}
	if searchFrom > len(fullText) {
		searchFrom = len(fullText)
	}

	if idx := strings.Index(fullText[searchFrom:], chunkContent); idx >= 0 {
		absIdx := searchFrom + idx
		startLine = strings.Count(fullText[:absIdx], "\n") + 1
		endLine = startLine + strings.Count(chunkContent, "\n")
		nextCursor = absIdx + len(chunkContent)
		return
	}

	startLine = prevEndLine + 1
	endLine = prevEndLine + strings.Count(chunkContent, "\n") + 1
	nextCursor = cursor + len(chunkContent)
	return
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

