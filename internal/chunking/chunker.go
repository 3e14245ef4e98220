// Package chunking splits normalized document text into translation-sized
// chunks with context overlap, and merges translated chunks back together.
package chunking

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

const (
	DefaultChunkSize   = 3000
	DefaultOverlapSize = 200

	// contextHintSize is the number of runes of neighbouring text attached to
	// each chunk as advisory translation context.
	contextHintSize = 100
)

// oversizeFactor bounds chunk growth: a paragraph or sentence may exceed the
// target size by up to 50% before it is split further.
const oversizeFactor = 1.5

var (
	latinTerminators = ".!?"
	cjkTerminators   = "。！？"

	spaceRuns  = regexp.MustCompile(" +")
	blankLines = regexp.MustCompile(`\n{2,}`)
)

type Chunker struct {
	chunkSize   int
	overlapSize int
	sentenceRe  *regexp.Regexp
}

// NewChunker builds a chunker for the given source language. The language
// selects the sentence terminator set: CJK scripts use fullwidth terminators,
// Latin scripts use ASCII ones, anything else gets the union.
func NewChunker(chunkSize, overlapSize int, lang string) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapSize < 0 {
		overlapSize = DefaultOverlapSize
	}
	return &Chunker{
		chunkSize:   chunkSize,
		overlapSize: overlapSize,
		sentenceRe:  sentencePattern(lang),
	}
}

func sentencePattern(lang string) *regexp.Regexp {
	terminators := latinTerminators + cjkTerminators

	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		switch base.String() {
		case "en", "fr", "de", "es", "pt", "it", "nl":
			terminators = latinTerminators
		case "zh", "ja", "ko":
			terminators = cjkTerminators
		}
	}
	return regexp.MustCompile("[" + regexp.QuoteMeta(terminators) + `]+\s*`)
}

// Normalize collapses runs of spaces, trims trailing whitespace per line and
// squeezes blank-line runs down to a single paragraph separator.
func (c *Chunker) Normalize(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Chunk splits text into ordered chunks. The operation is deterministic and
// lossless: chunk texts are contiguous slices of the normalized input, so
// stripping each chunk's OverlapStart runes and concatenating in ChunkID
// order reproduces the normalized text exactly.
func (c *Chunker) Chunk(text string) []api.Chunk {
	norm := c.Normalize(text)
	if norm == "" {
		return nil
	}

	runes := []rune(norm)
	if len(runes) <= c.chunkSize {
		return c.annotate([][]rune{runes})
	}

	cores := c.splitCores(runes)
	return c.annotate(cores)
}

// splitCores cuts the rune slice into contiguous cores at paragraph
// boundaries, falling back to sentence boundaries (and finally word
// boundaries) for oversized paragraphs. Separators stay attached to the
// preceding core so the cores concatenate back to the input.
func (c *Chunker) splitCores(runes []rune) [][]rune {
	paragraphs := cutSegments(runes, paragraphEnds(runes))
	limit := oversize(c.chunkSize)

	var cores [][]rune
	var current []rune

	flush := func() {
		if len(current) > 0 {
			cores = append(cores, current)
			current = nil
		}
	}

	for _, para := range paragraphs {
		if len(para) > limit {
			flush()
			cores = append(cores, c.splitOversized(para)...)
			continue
		}
		if len(current) > 0 && len(current)+len(para) > c.chunkSize {
			flush()
		}
		current = append(current, para...)
	}
	flush()
	return cores
}

// splitOversized packs an oversized paragraph sentence by sentence. A single
// sentence beyond the oversize limit is hard-split at word boundaries.
func (c *Chunker) splitOversized(para []rune) [][]rune {
	limit := oversize(c.chunkSize)
	sentences := cutSegments(para, c.sentenceEnds(para))

	var cores [][]rune
	var current []rune

	flush := func() {
		if len(current) > 0 {
			cores = append(cores, current)
			current = nil
		}
	}

	for _, sentence := range sentences {
		for len(sentence) > limit {
			flush()
			cut := wordBoundaryBefore(sentence, c.chunkSize)
			cores = append(cores, sentence[:cut])
			sentence = sentence[cut:]
		}
		if len(current) > 0 && len(current)+len(sentence) > c.chunkSize {
			flush()
		}
		current = append(current, sentence...)
	}
	flush()
	return cores
}

func (c *Chunker) sentenceEnds(runes []rune) []int {
	matches := c.sentenceRe.FindAllStringIndex(string(runes), -1)
	byteToRune := byteOffsets(runes)

	var ends []int
	for _, m := range matches {
		ends = append(ends, byteToRune[m[1]])
	}
	return ends
}

// annotate attaches overlap prefixes, ordinals, positions and context hints.
func (c *Chunker) annotate(cores [][]rune) []api.Chunk {
	chunks := make([]api.Chunk, 0, len(cores))

	for i, core := range cores {
		chunk := api.Chunk{
			ChunkID:     i,
			Kind:        api.ChunkKindText,
			TotalChunks: len(cores),
			Position:    position(i, len(cores)),
		}

		text := core
		if i > 0 && c.overlapSize > 0 {
			prefix := overlapPrefix(cores[i-1], c.overlapSize)
			if len(prefix) > 0 {
				chunk.OverlapStart = len(prefix)
				text = append(append([]rune{}, prefix...), core...)
			}
		}
		chunk.Text = string(text)

		if i > 0 {
			chunk.ContextBefore = tailString(cores[i-1], contextHintSize)
		}
		if i < len(cores)-1 {
			chunk.ContextAfter = headString(cores[i+1], contextHintSize)
		}

		chunks = append(chunks, chunk)
	}
	return chunks
}

// Merge reassembles translated chunk texts in order. Adjacent texts are
// spliced at the longest suffix/prefix match up to twice the overlap size;
// when no overlap is found they are joined with a single space.
func (c *Chunker) Merge(texts []string) string {
	if len(texts) == 0 {
		return ""
	}

	merged := []rune(texts[0])
	for _, text := range texts[1:] {
		cur := []rune(text)
		max := 2 * c.overlapSize
		if max > len(merged) {
			max = len(merged)
		}
		if max > len(cur) {
			max = len(cur)
		}

		spliced := false
		for n := max; n > 0; n-- {
			if runesEqual(merged[len(merged)-n:], cur[:n]) {
				merged = append(merged, cur[n:]...)
				spliced = true
				break
			}
		}
		if !spliced {
			merged = append(merged, ' ')
			merged = append(merged, cur...)
		}
	}
	return string(merged)
}

// overlapPrefix takes the trailing window of the previous core and trims it
// forward to the first word boundary, so the duplicated context never starts
// mid-word.
func overlapPrefix(prev []rune, overlapSize int) []rune {
	tail := prev
	if len(tail) > overlapSize {
		tail = tail[len(tail)-overlapSize:]
	}
	for i, r := range tail {
		if r == ' ' || r == '\n' {
			return tail[i+1:]
		}
	}
	return nil
}

func paragraphEnds(runes []rune) []int {
	var ends []int
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			ends = append(ends, i+2)
			i++
		}
	}
	return ends
}

// cutSegments slices runes at the given end offsets, covering the whole
// input. Offsets beyond the slice or out of order are ignored.
func cutSegments(runes []rune, ends []int) [][]rune {
	var segments [][]rune
	start := 0
	for _, end := range ends {
		if end <= start || end > len(runes) {
			continue
		}
		segments = append(segments, runes[start:end])
		start = end
	}
	if start < len(runes) {
		segments = append(segments, runes[start:])
	}
	return segments
}

// wordBoundaryBefore finds a cut offset at or before limit, preferring the
// position right after the last space.
func wordBoundaryBefore(runes []rune, limit int) int {
	if limit >= len(runes) {
		return len(runes)
	}
	for i := limit; i > 0; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\n' {
			return i
		}
	}
	return limit
}

func byteOffsets(runes []rune) map[int]int {
	offsets := make(map[int]int, len(runes)+1)
	b := 0
	for i, r := range runes {
		offsets[b] = i
		b += len(string(r))
	}
	offsets[b] = len(runes)
	return offsets
}

func position(i, total int) api.ChunkPosition {
	switch {
	case i == 0:
		return api.ChunkPositionStart
	case i == total-1:
		return api.ChunkPositionEnd
	default:
		return api.ChunkPositionMiddle
	}
}

func oversize(chunkSize int) int {
	return int(float64(chunkSize) * oversizeFactor)
}

func tailString(runes []rune, n int) string {
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return strings.TrimSpace(string(runes))
}

func headString(runes []rune, n int) string {
	if len(runes) > n {
		runes = runes[:n]
	}
	return strings.TrimSpace(string(runes))
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
