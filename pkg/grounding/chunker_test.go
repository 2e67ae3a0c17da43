package grounding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortContentIsOneChunk(t *testing.T) {
	chunks := SplitText("a short paragraph that fits in one chunk")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph that fits in one chunk", chunks[0])
}

func TestSplitTextEmptyContent(t *testing.T) {
	assert.Empty(t, SplitText(""))
}

func TestSplitTextLongContentProducesOverlappingChunks(t *testing.T) {
	paragraph := strings.Repeat("word ", 50) + "\n\n"
	content := strings.Repeat(paragraph, 30)

	chunks := SplitText(content)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), chunkSize)
	}

	// Consecutive chunks should share trailing/leading context from the
	// configured overlap, the same continuity guarantee vectorizer.py's
	// RecursiveCharacterTextSplitter(chunk_overlap=200) provides.
	for i := 1; i < len(chunks); i++ {
		prevTail := takeTrailingRunes(chunks[i-1], 20)
		assert.Contains(t, chunks[i-1]+chunks[i], prevTail)
	}
}

func TestSplitTextFallsBackToFixedWindowForUnbrokenText(t *testing.T) {
	content := strings.Repeat("x", chunkSize*3)
	chunks := SplitText(content)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), chunkSize)
	}
}

func TestReassembleChunksJoinsInOrder(t *testing.T) {
	assert.Equal(t, "abc", ReassembleChunks([]string{"a", "b", "c"}))
}
