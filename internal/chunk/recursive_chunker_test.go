package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveChunker_SmallFile_SingleChunk(t *testing.T) {
	chunker := NewRecursiveChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:    "notes.txt",
		Content: []byte("a short file\nwith two lines\n"),
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestRecursiveChunker_EmptyFile_ReturnsNoChunks(t *testing.T) {
	chunker := NewRecursiveChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:    "empty.txt",
		Content: []byte("   \n "),
	})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRecursiveChunker_LargeFile_SplitsWithOverlap(t *testing.T) {
	opts := RecursiveChunkerOptions{ChunkSize: 100, ChunkOverlap: 20, MaxChunks: 100}
	chunker := NewRecursiveChunkerWithOptions(opts)

	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("this is paragraph number filler text here\n\n")
	}

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:    "doc.txt",
		Content: []byte(b.String()),
	})

	require.NoError(t, err)
	require.True(t, len(chunks) > 1)

	// Line numbers should be monotonic and recovered from the original text.
	for i, c := range chunks {
		assert.True(t, c.StartLine <= c.EndLine, "chunk %d: start %d > end %d", i, c.StartLine, c.EndLine)
	}
}

func TestRecursiveChunker_ChunkCapExceeded_ReturnsResourceLimitError(t *testing.T) {
	opts := RecursiveChunkerOptions{ChunkSize: 10, ChunkOverlap: 0, MaxChunks: 2}
	chunker := NewRecursiveChunkerWithOptions(opts)

	content := strings.Repeat("word ", 100)
	_, err := chunker.Chunk(context.Background(), &FileInput{
		Path:    "huge.txt",
		Content: []byte(content),
	})

	require.Error(t, err)
}

func TestSplitRecursive_ReassemblesToOriginalText(t *testing.T) {
	text := "first paragraph here\n\nsecond paragraph here\n\nthird paragraph here"
	pieces := splitRecursive(text, recursiveSeparators, 30)
	require.NotEmpty(t, pieces)
	assert.Equal(t, text, strings.Join(pieces, ""))
}

func TestOverlapSuffix_TruncatesAtBoundary(t *testing.T) {
	s := "hello world this is a test string"
	suffix := overlapSuffix(s, 10)
	assert.True(t, len(suffix) <= 10 || strings.HasPrefix(s[len(s)-len(suffix)-1:], " "))
}

func TestOverlapSuffix_ZeroOverlap_ReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", overlapSuffix("anything", 0))
}

func TestRecoverLineNumbers_FindsExactMatch(t *testing.T) {
	full := "line one\nline two\nline three\n"
	startLine, endLine, next := recoverLineNumbers(full, "line two", 0, 0, 0)
	assert.Equal(t, 2, startLine)
	assert.Equal(t, 2, endLine)
	assert.True(t, next > 0)
}

func TestRecoverLineNumbers_FallsBackWhenNotFound(t *testing.T) {
	full := "line one\nline two\n"
	startLine, endLine, _ := recoverLineNumbers(full, "synthesized\ncontent", 0, 5, 0)
	assert.Equal(t, 6, startLine)
	assert.Equal(t, 7, endLine)
}
