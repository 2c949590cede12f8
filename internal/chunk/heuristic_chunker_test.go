package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicChunker_Ruby_SplitsOnClassAndDef(t *testing.T) {
	source := `class Greeter
  def hello
    puts "hi"
  end

  def bye
    puts "bye"
  end
end
`
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "greeter.rb",
		Content:  []byte(source),
		Language: "ruby",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Greeter", chunks[0].Symbols[0].Name)
	assert.Equal(t, SymbolTypeClass, chunks[0].Symbols[0].Type)
	assert.Equal(t, "hello", chunks[1].Symbols[0].Name)
	assert.Equal(t, "bye", chunks[2].Symbols[0].Name)
}

func TestHeuristicChunker_PythonIndentRule_IgnoresNestedDef(t *testing.T) {
	source := `def outer():
    def inner():
        pass
    return inner

def sibling():
    pass
`
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "mod.py",
		Content:  []byte(source),
		Language: "python",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 2, "nested def at indent >= 4 must not start a new chunk")
	assert.Equal(t, "outer", chunks[0].Symbols[0].Name)
	assert.Contains(t, chunks[0].RawContent, "inner")
	assert.Equal(t, "sibling", chunks[1].Symbols[0].Name)
}

func TestHeuristicChunker_PythonDecorator_AttachesToFollowingDef(t *testing.T) {
	source := `@staticmethod
def helper():
    pass
`
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "mod.py",
		Content:  []byte(source),
		Language: "python",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine, "chunk should start at the decorator line")
	assert.Contains(t, chunks[0].RawContent, "@staticmethod")
}

func TestHeuristicChunker_PythonMultipleDecorators_OnlyFirstRecordedAsStart(t *testing.T) {
	source := `@first
@second
def helper():
    pass
`
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "mod.py",
		Content:  []byte(source),
		Language: "python",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestHeuristicChunker_UnknownLanguage_FallsBackToSingleChunk(t *testing.T) {
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "notes.txt",
		Content:  []byte("just some text\nwith two lines\n"),
		Language: "plaintext",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].StartLine)
}

func TestHeuristicChunker_EmptyFile_ReturnsNoChunks(t *testing.T) {
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "empty.rb",
		Content:  []byte("   \n  "),
		Language: "ruby",
	})

	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestHeuristicChunker_OverlongUnit_SplitsAndTagsPartial(t *testing.T) {
	opts := DefaultHeuristicChunkerOptions()
	opts.ChunkSize = 80
	opts.ChunkOverlap = 10
	chunker := NewHeuristicChunkerWithOptions(opts)

	var body string
	for i := 0; i < 40; i++ {
		body += "    puts \"line of filler text to exceed the chunk size\"\n"
	}
	source := "class Big\n  def long_method\n" + body + "  end\nend\n"

	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "big.rb",
		Content:  []byte(source),
		Language: "ruby",
	})

	require.NoError(t, err)
	require.True(t, len(chunks) > 2, "long method body should be split into multiple chunks")

	foundPartial := false
	for _, c := range chunks {
		if c.Metadata["partial"] == "true" {
			foundPartial = true
		}
	}
	assert.True(t, foundPartial, "overlong unit pieces should be tagged partial")
}

func TestHeuristicChunker_Rust_FindsImplAndFn(t *testing.T) {
	source := `struct Counter {
    value: i32,
}

impl Counter {
    fn increment(&mut self) {
        self.value += 1;
    }
}
`
	chunker := NewHeuristicChunker()
	chunks, err := chunker.Chunk(context.Background(), &FileInput{
		Path:     "counter.rs",
		Content:  []byte(source),
		Language: "rust",
	})

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Counter", chunks[0].Symbols[0].Name)
	assert.Equal(t, "Counter", chunks[1].Symbols[0].Name)
}

func TestHeuristicChunker_SupportsLanguage(t *testing.T) {
	chunker := NewHeuristicChunker()
	assert.True(t, chunker.SupportsLanguage("ruby"))
	assert.True(t, chunker.SupportsLanguage("rust"))
	assert.False(t, chunker.SupportsLanguage("not-a-real-language"))
}
