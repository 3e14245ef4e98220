package extraction

import (
	"context"
	"encoding/json"

	"github.com/xuri/excelize/v2"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

// XLSXExtractor maps each sheet to one page carrying a single atomic table
// element. The first row becomes the header row.
type XLSXExtractor struct{}

var _ Extractor = (*XLSXExtractor)(nil)

func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

func (e *XLSXExtractor) Extract(ctx context.Context, path string, opts Options, emit EmitFunc) (int, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, NewErrFileCorrupted(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, NewErrEmptyDocument(path)
	}

	batches := newBatcher(opts.BatchSize, emit)
	nonEmpty := 0
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return len(sheets), err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return len(sheets), NewErrFileCorrupted(path, err)
		}
		page := i + 1
		if len(rows) == 0 {
			if err := batches.Page(ctx, page); err != nil {
				return len(sheets), err
			}
			continue
		}
		nonEmpty++

		table := api.Table{Headers: rows[0]}
		if len(rows) > 1 {
			table.Rows = rows[1:]
		}
		content, err := json.Marshal(table)
		if err != nil {
			return len(sheets), err
		}
		element := api.Element{
			Type:       api.ElementTypeTable,
			Content:    string(content),
			PageNumber: page,
		}
		if err := batches.Page(ctx, page, element); err != nil {
			return len(sheets), err
		}
	}
	if nonEmpty == 0 {
		return len(sheets), NewErrEmptyDocument(path)
	}
	if err := batches.Flush(ctx); err != nil {
		return len(sheets), err
	}
	return len(sheets), nil
}
