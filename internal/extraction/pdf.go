package extraction

import (
	"context"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

// PDFExtractor extracts text page by page. Pages whose extractable text is
// shorter than MinTextLength are flagged as possible scans rather than
// silently dropped, so the caller can tell "empty page" from "image-only
// page".
type PDFExtractor struct{}

var _ Extractor = (*PDFExtractor)(nil)

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string, opts Options, emit EmitFunc) (int, error) {
	opts = opts.withDefaults()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, NewErrFileCorrupted(path, err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	if totalPages == 0 {
		return 0, NewErrEmptyDocument(path)
	}

	batches := newBatcher(opts.BatchSize, emit)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return totalPages, err
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			if err := batches.Page(ctx, pageNum); err != nil {
				return totalPages, err
			}
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			zap.S().Named("extraction").Warnw("failed to read pdf page text", "page", pageNum, "error", err)
			content = ""
		}
		content = strings.TrimSpace(content)

		element := api.Element{
			Type:       api.ElementTypeText,
			Content:    content,
			PageNumber: pageNum,
		}
		if printableLength(content) < opts.MinTextLength {
			element.Type = api.ElementTypePossibleScan
		}
		if err := batches.Page(ctx, pageNum, element); err != nil {
			return totalPages, err
		}
	}
	if err := batches.Flush(ctx); err != nil {
		return totalPages, err
	}
	return totalPages, nil
}

func printableLength(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
