package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Run("collapses whitespace", func(t *testing.T) {
		got := Clean("hello \n\t  world")
		assert.Equal(t, "hello world", got)
	})

	t.Run("strips page number artifacts", func(t *testing.T) {
		got := Clean("intro text Page 12 more text p. 7 end")
		assert.NotContains(t, got, "Page 12")
		assert.NotContains(t, got, "p. 7")
		assert.Contains(t, got, "intro text")
		assert.Contains(t, got, "end")
	})

	t.Run("strips odd symbols but keeps punctuation", func(t *testing.T) {
		got := Clean("f(x) = y; cost <= $100 • done.")
		assert.NotContains(t, got, "$")
		assert.NotContains(t, got, "•")
		assert.Contains(t, got, "f(x)")
		assert.Contains(t, got, "done.")
	})

	t.Run("keeps non-ASCII letters", func(t *testing.T) {
		assert.Equal(t, "Cafe au lait résumé.", Clean("Cafe au lait résumé."))
		assert.Equal(t, "Ein Überblick über Gänsefüßchen.", Clean("Ein Überblick über Gänsefüßchen."))
		assert.Equal(t, "Η γλώσσα Go.", Clean("Η γλώσσα Go."))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", Clean("   \n  "))
	})
}

func TestSplitEmpty(t *testing.T) {
	c := New(100, 20)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   "))
}

func TestSplitSingleChunk(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Split("A short paragraph. It fits in one chunk.")

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Contains(t, chunks[0].Content, "short paragraph")
}

func TestSplitRespectsChunkSize(t *testing.T) {
	c := New(100, 20)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This is a filler sentence for the splitter. ")
	}

	chunks := c.Split(b.String())
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.NotEmpty(t, ch.Content)
		assert.LessOrEqual(t, len(ch.Content), 100, "chunk %d too large", i)
	}
}

func TestSplitHardCutsOversizeSentence(t *testing.T) {
	c := New(100, 20)
	chunks := c.Split(strings.Repeat("a", 250))

	// stride is chunkSize-overlap, so 250 chars become three pieces
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, len(chunks[0].Content))
	assert.Equal(t, 2, chunks[2].Index)
}

func TestSplitOversizeSentenceAfterBufferedText(t *testing.T) {
	c := New(100, 20)
	text := "Short one here. And here two. " + strings.Repeat("b", 121)

	chunks := c.Split(text)

	// buffered sentences, then the hard-cut pieces; no stray tail fragment
	require.Len(t, chunks, 3)
	assert.Equal(t, "Short one here. And here two.", chunks[0].Content)
	assert.Equal(t, strings.Repeat("b", 100), chunks[1].Content)
	assert.Equal(t, strings.Repeat("b", 41), chunks[2].Content)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestOverlapTail(t *testing.T) {
	t.Run("cuts at word boundary", func(t *testing.T) {
		assert.Equal(t, "gamma ", overlapTail("alpha beta gamma", 10))
	})

	t.Run("short input produces no tail", func(t *testing.T) {
		assert.Equal(t, "", overlapTail("tiny", 10))
	})

	t.Run("zero overlap", func(t *testing.T) {
		assert.Equal(t, "", overlapTail("alpha beta gamma", 0))
	})
}

func TestNewDefaults(t *testing.T) {
	c := New(0, -1)
	assert.Equal(t, 1000, c.chunkSize)
	assert.Equal(t, 200, c.overlap)

	// overlap may never reach the chunk size
	c = New(100, 100)
	assert.Equal(t, 20, c.overlap)
}
