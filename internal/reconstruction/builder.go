// Package reconstruction assembles translated chunks back into an output
// document.
package reconstruction

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/chunking"
)

// Error reports a fatal reconstruction failure.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("reconstruction: %s", e.Reason)
}

func NewError(format string, args ...interface{}) *Error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}

// Placeholder is emitted when a job produced zero chunks, so an empty source
// document still completes with a well-defined output.
const Placeholder = "No translatable content was found in this document."

var (
	// langTagMarker matches the language tag prefix emitted by the static
	// backend, e.g. "[vi] ".
	langTagMarker = regexp.MustCompile(`^\[[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})?\] `)
	errorMarker   = regexp.MustCompile(`\[(Error[^\]]*|Translation failed:[^\]]*)\]\s*`)
)

// Document is the assembled output.
type Document struct {
	Content      string
	Format       string
	ChunkCount   int
	SoftFailures int
}

// Builder turns a job's translated chunks into a document. Text runs are
// spliced with the chunker's overlap-aware merge, tables are rendered as
// structured blocks and formulas pass through verbatim.
type Builder struct {
	chunker *chunking.Chunker
}

func NewBuilder(chunker *chunking.Chunker) *Builder {
	return &Builder{chunker: chunker}
}

func (b *Builder) Build(chunks []api.TranslatedChunk) (*Document, error) {
	doc := &Document{Format: "txt", ChunkCount: len(chunks)}
	if len(chunks) == 0 {
		doc.Content = Placeholder
		return doc, nil
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkID < chunks[j].ChunkID })

	var blocks []string
	var run []string

	flushRun := func() {
		if len(run) == 0 {
			return
		}
		blocks = append(blocks, b.chunker.Merge(run))
		run = nil
	}

	for _, chunk := range chunks {
		if !chunk.Succeeded {
			doc.SoftFailures++
		}
		text := stripMarkers(chunk.TranslatedText)

		switch chunk.Kind {
		case api.ChunkKindTable:
			flushRun()
			blocks = append(blocks, renderTable(text))
		case api.ChunkKindFormula:
			flushRun()
			blocks = append(blocks, chunk.TranslatedText)
		default:
			run = append(run, text)
		}
	}
	flushRun()

	content := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	if content == "" {
		doc.Content = Placeholder
		return doc, nil
	}
	doc.Content = content
	return doc, nil
}

// stripMarkers removes internal provider markers so they never leak into the
// output document.
func stripMarkers(text string) string {
	text = langTagMarker.ReplaceAllString(text, "")
	text = errorMarker.ReplaceAllString(text, "")
	return text
}

// renderTable lays a table chunk out as an aligned block. Content that is not
// the expected {headers, rows} JSON is kept verbatim.
func renderTable(content string) string {
	var table api.Table
	if err := json.Unmarshal([]byte(content), &table); err != nil {
		return content
	}

	var b strings.Builder
	if len(table.Headers) > 0 {
		b.WriteString("| " + strings.Join(table.Headers, " | ") + " |\n")
		separators := make([]string, len(table.Headers))
		for i := range separators {
			separators[i] = "---"
		}
		b.WriteString("| " + strings.Join(separators, " | ") + " |\n")
	}
	for _, row := range table.Rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
