package chunking

import (
	"fmt"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

// Error reports malformed intermediate data. It is fatal to the job.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("chunking: %s", e.Reason)
}

func NewError(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// textRun accumulates contiguous text elements between atomic elements.
type textRun struct {
	text      string
	pageStart int
	pageEnd   int
}

// Assemble converts ordered extraction batches into the job's chunk sequence.
// Contiguous text (and possible_scan) elements are concatenated and split by
// the chunker; every table or formula element becomes exactly one atomic
// chunk regardless of its size. Chunk IDs are assigned globally in document
// order.
func (c *Chunker) Assemble(batches []api.ExtractionBatch) ([]api.Chunk, error) {
	var chunks []api.Chunk
	var run *textRun

	flushRun := func() {
		if run == nil {
			return
		}
		for _, chunk := range c.Chunk(run.text) {
			chunk.ChunkID = len(chunks)
			chunk.PageStart = run.pageStart
			chunk.PageEnd = run.pageEnd
			chunks = append(chunks, chunk)
		}
		run = nil
	}

	for _, batch := range batches {
		if batch.Elements == nil {
			return nil, NewError("batch %d has no elements payload", batch.BatchID)
		}
		for _, element := range batch.Elements {
			switch element.Type {
			case api.ElementTypeTable, api.ElementTypeFormula:
				flushRun()
				kind := api.ChunkKindTable
				if element.Type == api.ElementTypeFormula {
					kind = api.ChunkKindFormula
				}
				chunks = append(chunks, api.Chunk{
					ChunkID:   len(chunks),
					Text:      element.Content,
					Kind:      kind,
					PageStart: element.PageNumber,
					PageEnd:   element.PageNumber,
				})
			case api.ElementTypeText, api.ElementTypePossibleScan:
				if element.Content == "" {
					continue
				}
				if run == nil {
					run = &textRun{pageStart: element.PageNumber}
				} else {
					run.text += "\n\n"
				}
				run.text += element.Content
				run.pageEnd = element.PageNumber
			default:
				return nil, NewError("unknown element type %q on page %d", element.Type, element.PageNumber)
			}
		}
	}
	flushRun()

	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
		chunks[i].Position = position(i, len(chunks))
	}
	return chunks, nil
}
