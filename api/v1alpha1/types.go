// Package v1alpha1 holds the types shared between pipeline stages: extracted
// page elements, chunks and translated chunks. They are persisted as jsonb
// between stages and therefore versioned.
package v1alpha1

import "time"

type ElementType string

const (
	ElementTypeText         ElementType = "text"
	ElementTypeTable        ElementType = "table"
	ElementTypeFormula      ElementType = "formula"
	ElementTypePossibleScan ElementType = "possible_scan"
)

// Element is a single piece of extracted page content. Table elements carry
// the JSON encoding of a Table in Content.
type Element struct {
	Type       ElementType `json:"type"`
	Content    string      `json:"content"`
	PageNumber int         `json:"pageNumber"`
	BBox       []float64   `json:"bbox,omitempty"`
}

// Table is the structured form of a table element.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ExtractionBatch is a bounded group of extracted pages. Batches are persisted
// one at a time so a 500+ page document never has more than one batch of pages
// resident in the extraction worker.
type ExtractionBatch struct {
	BatchID   int       `json:"batchId"`
	PageStart int       `json:"pageStart"`
	PageEnd   int       `json:"pageEnd"`
	Elements  []Element `json:"elements"`
}

type ChunkKind string

const (
	ChunkKindText    ChunkKind = "text"
	ChunkKindTable   ChunkKind = "table"
	ChunkKindFormula ChunkKind = "formula"
)

type ChunkPosition string

const (
	ChunkPositionStart  ChunkPosition = "start"
	ChunkPositionMiddle ChunkPosition = "middle"
	ChunkPositionEnd    ChunkPosition = "end"
)

// Chunk is one unit of text sized for a single translation call, or one
// atomic table/formula element. ChunkID defines the final document order.
// OverlapStart is the number of leading runes duplicated from the previous
// chunk; stripping it on merge restores the original text.
type Chunk struct {
	ChunkID       int           `json:"chunkId"`
	Text          string        `json:"text"`
	Kind          ChunkKind     `json:"kind"`
	PageStart     int           `json:"pageStart"`
	PageEnd       int           `json:"pageEnd"`
	OverlapStart  int           `json:"overlapStart"`
	TotalChunks   int           `json:"totalChunks"`
	Position      ChunkPosition `json:"position"`
	ContextBefore string        `json:"contextBefore,omitempty"`
	ContextAfter  string        `json:"contextAfter,omitempty"`
}

// Atomic reports whether the chunk must be translated as a single unit and
// never merged with surrounding text.
func (c Chunk) Atomic() bool {
	return c.Kind == ChunkKindTable || c.Kind == ChunkKindFormula
}

// TranslatedChunk carries the translation outcome for one chunk.
// TranslatedText is never empty: when every provider failed it holds the
// original source text and Succeeded is false.
type TranslatedChunk struct {
	Chunk
	TranslatedText string        `json:"translatedText"`
	Provider       string        `json:"provider"`
	Succeeded      bool          `json:"succeeded"`
	Duration       time.Duration `json:"duration"`
}

type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}
