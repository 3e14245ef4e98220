package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

func TestAssembleTextRuns(t *testing.T) {
	c := NewChunker(200, 30, "en")
	batches := []api.ExtractionBatch{
		{BatchID: 0, PageStart: 1, PageEnd: 2, Elements: []api.Element{
			{Type: api.ElementTypeText, Content: "First page paragraph.", PageNumber: 1},
			{Type: api.ElementTypeText, Content: "Second page paragraph.", PageNumber: 2},
		}},
	}

	chunks, err := c.Assemble(batches)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, api.ChunkKindText, chunks[0].Kind)
	assert.Equal(t, "First page paragraph.\n\nSecond page paragraph.", chunks[0].Text)
	assert.Equal(t, 1, chunks[0].PageStart)
	assert.Equal(t, 2, chunks[0].PageEnd)
}

func TestAssembleAtomicElements(t *testing.T) {
	c := NewChunker(50, 10, "en")
	tableJSON := `{"headers":["a"],"rows":[["` + strings.Repeat("x", 500) + `"]]}`
	batches := []api.ExtractionBatch{
		{BatchID: 0, PageStart: 1, PageEnd: 3, Elements: []api.Element{
			{Type: api.ElementTypeText, Content: "Before the table.", PageNumber: 1},
			{Type: api.ElementTypeTable, Content: tableJSON, PageNumber: 2},
			{Type: api.ElementTypeFormula, Content: "E = mc^2", PageNumber: 2},
			{Type: api.ElementTypeText, Content: "After the table.", PageNumber: 3},
		}},
	}

	chunks, err := c.Assemble(batches)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	// A table stays one chunk no matter how large it is.
	assert.Equal(t, api.ChunkKindTable, chunks[1].Kind)
	assert.Equal(t, tableJSON, chunks[1].Text)
	assert.True(t, chunks[1].Atomic())
	assert.Equal(t, 2, chunks[1].PageStart)
	assert.Equal(t, 2, chunks[1].PageEnd)

	assert.Equal(t, api.ChunkKindFormula, chunks[2].Kind)
	assert.Equal(t, "E = mc^2", chunks[2].Text)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkID)
		assert.Equal(t, 4, chunk.TotalChunks)
	}
	assert.Equal(t, api.ChunkPositionStart, chunks[0].Position)
	assert.Equal(t, api.ChunkPositionEnd, chunks[3].Position)
}

func TestAssemblePossibleScanTreatedAsText(t *testing.T) {
	c := NewChunker(200, 30, "en")
	batches := []api.ExtractionBatch{
		{BatchID: 0, PageStart: 1, PageEnd: 1, Elements: []api.Element{
			{Type: api.ElementTypePossibleScan, Content: "Short scan.", PageNumber: 1},
		}},
	}

	chunks, err := c.Assemble(batches)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, api.ChunkKindText, chunks[0].Kind)
}

func TestAssembleEmptyBatches(t *testing.T) {
	c := NewChunker(200, 30, "en")

	chunks, err := c.Assemble(nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestAssembleMissingElementsPayload(t *testing.T) {
	c := NewChunker(200, 30, "en")
	_, err := c.Assemble([]api.ExtractionBatch{{BatchID: 3}})

	require.Error(t, err)
	var chunkErr *Error
	assert.ErrorAs(t, err, &chunkErr)
}

func TestAssembleUnknownElementType(t *testing.T) {
	c := NewChunker(200, 30, "en")
	batches := []api.ExtractionBatch{
		{BatchID: 0, Elements: []api.Element{{Type: "image", Content: "x", PageNumber: 1}}},
	}

	_, err := c.Assemble(batches)
	var chunkErr *Error
	assert.ErrorAs(t, err, &chunkErr)
}
