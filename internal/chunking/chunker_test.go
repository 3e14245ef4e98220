package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

func sampleText(paragraphs, sentencesPerParagraph int) string {
	var b strings.Builder
	for p := 0; p < paragraphs; p++ {
		for s := 0; s < sentencesPerParagraph; s++ {
			b.WriteString("The quick brown fox jumps over the lazy dog near the river bank. ")
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// stripOverlap removes the duplicated prefix of a chunk, leaving its core.
func stripOverlap(chunk api.Chunk) string {
	runes := []rune(chunk.Text)
	return string(runes[chunk.OverlapStart:])
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	c := NewChunker(200, 30, "en")
	chunks := c.Chunk("A short paragraph.")

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkID)
	assert.Equal(t, 0, chunks[0].OverlapStart)
	assert.Equal(t, api.ChunkPositionStart, chunks[0].Position)
	assert.Equal(t, 1, chunks[0].TotalChunks)
}

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(200, 30, "en")
	assert.Empty(t, c.Chunk("   \n\n  "))
}

func TestChunkRoundTrip(t *testing.T) {
	c := NewChunker(200, 30, "en")
	text := sampleText(6, 4)
	norm := c.Normalize(text)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)

	var b strings.Builder
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkID)
		b.WriteString(stripOverlap(chunk))
	}
	assert.Equal(t, norm, b.String())
}

func TestChunkSizeBound(t *testing.T) {
	c := NewChunker(200, 30, "en")
	chunks := c.Chunk(sampleText(8, 6))

	for _, chunk := range chunks {
		core := len([]rune(stripOverlap(chunk)))
		assert.LessOrEqual(t, core, 300, "chunk %d core exceeds one and a half times the target size", chunk.ChunkID)
	}
}

func TestChunkOversizedSentenceSplitsAtWordBoundary(t *testing.T) {
	c := NewChunker(100, 20, "en")
	// One sentence far beyond the oversize limit, no terminators.
	text := strings.TrimSpace(strings.Repeat("word ", 120))

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)

	var b strings.Builder
	for _, chunk := range chunks {
		core := stripOverlap(chunk)
		assert.False(t, strings.HasPrefix(core, " "))
		b.WriteString(core)
	}
	assert.Equal(t, c.Normalize(text), b.String())
}

func TestChunkOverlapPrefixMatchesPreviousChunk(t *testing.T) {
	c := NewChunker(200, 30, "en")
	chunks := c.Chunk(sampleText(6, 4))
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		chunk := chunks[i]
		if chunk.OverlapStart == 0 {
			continue
		}
		prefix := string([]rune(chunk.Text)[:chunk.OverlapStart])
		assert.LessOrEqual(t, chunk.OverlapStart, 30)
		assert.True(t, strings.HasSuffix(stripOverlap(chunks[i-1]), prefix),
			"chunk %d overlap prefix is not a suffix of its predecessor", i)
		// The prefix starts right after a word boundary, never mid-word.
		assert.False(t, strings.HasPrefix(prefix, " "))
	}
}

func TestChunkPositions(t *testing.T) {
	c := NewChunker(200, 30, "en")
	chunks := c.Chunk(sampleText(6, 4))
	require.Greater(t, len(chunks), 2)

	assert.Equal(t, api.ChunkPositionStart, chunks[0].Position)
	for _, chunk := range chunks[1 : len(chunks)-1] {
		assert.Equal(t, api.ChunkPositionMiddle, chunk.Position)
	}
	assert.Equal(t, api.ChunkPositionEnd, chunks[len(chunks)-1].Position)

	for _, chunk := range chunks {
		assert.Equal(t, len(chunks), chunk.TotalChunks)
	}
}

func TestChunkCJKSentences(t *testing.T) {
	c := NewChunker(20, 5, "zh")
	text := strings.Repeat("这是一个测试句子。", 10)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)

	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(stripOverlap(chunk))
	}
	assert.Equal(t, c.Normalize(text), b.String())
}

func TestNormalize(t *testing.T) {
	c := NewChunker(200, 30, "en")

	assert.Equal(t, "a b", c.Normalize("a    b"))
	assert.Equal(t, "a\nb", c.Normalize("a   \nb"))
	assert.Equal(t, "a\n\nb", c.Normalize("a\n\n\n\n\nb"))
	assert.Equal(t, "a b", c.Normalize("  a b  \n"))
}

func TestMergeSplicesOverlap(t *testing.T) {
	c := NewChunker(200, 10, "en")

	merged := c.Merge([]string{"one two three four", "three four five six"})
	assert.Equal(t, "one two three four five six", merged)
}

func TestMergeWithoutOverlapJoinsWithSpace(t *testing.T) {
	c := NewChunker(200, 10, "en")

	merged := c.Merge([]string{"first part", "second part"})
	assert.Equal(t, "first part second part", merged)
}

func TestMergeRoundTrip(t *testing.T) {
	c := NewChunker(200, 30, "en")
	text := sampleText(6, 4)
	norm := c.Normalize(text)

	chunks := c.Chunk(text)
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	assert.Equal(t, norm, c.Merge(texts))
}

func TestMergeEmpty(t *testing.T) {
	c := NewChunker(200, 30, "en")
	assert.Equal(t, "", c.Merge(nil))
}
