// Package extraction turns source documents into ordered batches of page
// elements. Batches are emitted as soon as they fill so a large document never
// has more than one batch of pages resident in memory.
package extraction

import (
	"context"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

const (
	DefaultBatchSize     = 50
	DefaultMinTextLength = 50
)

type Options struct {
	// BatchSize is the maximum number of pages per emitted batch.
	BatchSize int
	// MinTextLength is the minimum number of non-whitespace runes a page must
	// carry before its content is treated as extractable text. Shorter pages
	// are flagged as possible scans.
	MinTextLength int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = DefaultMinTextLength
	}
	return o
}

// EmitFunc receives each completed batch. The batch slice is not retained by
// the extractor after the call returns.
type EmitFunc func(ctx context.Context, batch api.ExtractionBatch) error

type Extractor interface {
	// Extract parses the document at path and emits its content in page order.
	// It returns the total page count of the document.
	Extract(ctx context.Context, path string, opts Options, emit EmitFunc) (int, error)
}

// Registry maps detected file types to their extractor.
type Registry struct {
	extractors map[FileType]Extractor
}

func NewRegistry() *Registry {
	docx := NewDocconvExtractor()
	return &Registry{extractors: map[FileType]Extractor{
		FileTypePDF:  NewPDFExtractor(),
		FileTypeDocx: docx,
		FileTypeText: docx,
		FileTypeXLSX: NewXLSXExtractor(),
	}}
}

func (r *Registry) ForType(fileType FileType) (Extractor, error) {
	extractor, ok := r.extractors[fileType]
	if !ok {
		return nil, NewErrUnsupportedFormat(string(fileType))
	}
	return extractor, nil
}

// batcher groups page elements into bounded batches and emits each one as it
// fills.
type batcher struct {
	size     int
	emit     EmitFunc
	batchID  int
	start    int
	end      int
	pages    int
	elements []api.Element
}

func newBatcher(size int, emit EmitFunc) *batcher {
	return &batcher{size: size, emit: emit}
}

// Page records one page worth of elements. Pages without elements still count
// toward the batch size so page ranges stay contiguous.
func (b *batcher) Page(ctx context.Context, page int, elements ...api.Element) error {
	if b.pages == 0 {
		b.start = page
	}
	b.end = page
	b.pages++
	b.elements = append(b.elements, elements...)

	if b.pages >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush emits the pending batch, if any.
func (b *batcher) Flush(ctx context.Context) error {
	if b.pages == 0 {
		return nil
	}
	batch := api.ExtractionBatch{
		BatchID:   b.batchID,
		PageStart: b.start,
		PageEnd:   b.end,
		Elements:  b.elements,
	}
	b.batchID++
	b.pages = 0
	b.elements = nil
	return b.emit(ctx, batch)
}
