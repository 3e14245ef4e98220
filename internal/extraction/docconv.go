package extraction

import (
	"context"
	"strings"

	"code.sajari.com/docconv"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

// pageCharBudget is the number of runes assigned to one synthetic page for
// formats without a page structure of their own.
const pageCharBudget = 3000

// DocconvExtractor handles docx and plain-text documents. These formats carry
// no page boundaries, so paragraphs are laid out onto synthetic pages of
// roughly pageCharBudget runes each.
type DocconvExtractor struct{}

var _ Extractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

func (e *DocconvExtractor) Extract(ctx context.Context, path string, opts Options, emit EmitFunc) (int, error) {
	opts = opts.withDefaults()

	res, err := docconv.ConvertPath(path)
	if err != nil {
		return 0, NewErrFileCorrupted(path, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	paragraphs := splitParagraphs(res.Body)
	if len(paragraphs) == 0 {
		return 0, NewErrEmptyDocument(path)
	}

	batches := newBatcher(opts.BatchSize, emit)
	page := 1
	pageLen := 0
	var pageElements []api.Element

	flushPage := func() error {
		if len(pageElements) == 0 {
			return nil
		}
		err := batches.Page(ctx, page, pageElements...)
		page++
		pageLen = 0
		pageElements = nil
		return err
	}

	for _, para := range paragraphs {
		if err := ctx.Err(); err != nil {
			return page, err
		}
		if pageLen > 0 && pageLen+len([]rune(para)) > pageCharBudget {
			if err := flushPage(); err != nil {
				return page, err
			}
		}
		pageElements = append(pageElements, api.Element{
			Type:       api.ElementTypeText,
			Content:    para,
			PageNumber: page,
		})
		pageLen += len([]rune(para))
	}
	if err := flushPage(); err != nil {
		return page, err
	}
	if err := batches.Flush(ctx); err != nil {
		return page - 1, err
	}
	return page - 1, nil
}

func splitParagraphs(body string) []string {
	var paragraphs []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}
