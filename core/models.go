package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID generates the deterministic ID of a chunk from its document and index.
// Reprocessing a document yields the same chunk IDs, which keeps embedding
// rows addressable across runs.
func ChunkID(documentID ID, index int) ID {
	return IDFromContent(fmt.Sprintf("chunk:%d:%d", documentID, index))
}

// Status is the processing state of a document's pipeline job.
// The state machine is single direction:
//
//	queued -> processing -> extracting -> chunking -> embedding -> completed
//
// with failed reachable from any non-terminal state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusExtracting Status = "extracting"
	StatusChunking   Status = "chunking"
	StatusEmbedding  Status = "embedding"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents an ingested document and its extracted content.
type Document struct {
	Id          ID
	OwnerId     ID
	Filename    string
	Path        string // Location of the raw uploaded file
	ContentType string
	Content     string // Extracted text (populated by the extraction stage)
	Status      Status
	Method      string // Extraction method reported by the extractor
	CreatedAt   time.Time
	ProcessedAt time.Time // Zero until the pipeline completes
}

// Chunk is a bounded-size slice of a document's text, the unit of
// embedding and retrieval. Chunks are immutable once created; reprocessing
// a document replaces its whole chunk set.
type Chunk struct {
	Id           ID
	DocumentId   ID
	Index        int // 0-based, contiguous, document order
	Text         string
	PageNumbers  []int  // Approximate source pages, may be empty
	SectionTitle string // Nearest enclosing heading, may be empty
	TokenCount   int
	CreatedAt    time.Time
}

// EmbeddingRecord stores the vector generated for one chunk by one provider.
// At most one record exists per (ChunkId, Provider) pair.
type EmbeddingRecord struct {
	ChunkId   ID
	Vector    []float32
	Provider  string
	Model     string
	CreatedAt time.Time
}

// SearchResult pairs a chunk with its similarity score for vector search.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}

// Checkpoint is a durable snapshot of a resumable batch run's progress.
// RunIdentity ties the snapshot to the provider and shape of the run that
// wrote it; a snapshot with a different identity must be discarded.
type Checkpoint struct {
	RunIdentity  string
	ProcessedIds []ID
	FailedIds    []ID
	Cursor       int
	Total        int
	UpdatedAt    time.Time
}

// Contains reports whether id is in the checkpoint's processed set.
func (c *Checkpoint) Contains(id ID) bool {
	for _, p := range c.ProcessedIds {
		if p == id {
			return true
		}
	}
	return false
}
