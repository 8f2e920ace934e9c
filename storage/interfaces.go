package storage

import (
	"context"

	"github.com/poiesic/docpipe/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DocumentRepository provides operations for managing documents.
type DocumentRepository interface {
	Repository
	// AddDocuments adds one or more documents to storage.
	// For documents with ID=0, generates new IDs from sequence.
	// Sets CreatedAt timestamp if not already set and defaults Status to queued.
	// Returns the documents with generated IDs and timestamps populated.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// UpdateDocuments updates existing documents.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs, cascading to the
	// documents' chunks and those chunks' embeddings.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// ListDocuments retrieves all documents, ordered by ID.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// UpdateStatus transitions a document to a new processing status.
	// The transition is validated against the pipeline state machine;
	// backwards transitions return core.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id core.ID, status core.Status) error

	// SaveExtractedText stores the extraction stage's output on the document.
	SaveExtractedText(ctx context.Context, id core.ID, text, method string) error
}

// ChunkRepository provides operations for managing document chunks.
type ChunkRepository interface {
	Repository
	// ReplaceChunks atomically replaces a document's chunk set.
	// Existing chunks and their embeddings are deleted first, so
	// reprocessing a document never duplicates or orphans chunk rows.
	ReplaceChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error

	// ListChunks retrieves a document's chunks ordered by index.
	ListChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// ListAllChunks retrieves every stored chunk across all documents.
	// Used by batch embedding runs to find chunks missing vectors.
	ListAllChunks(ctx context.Context) ([]*core.Chunk, error)
}

// EmbeddingRepository provides operations for managing embedding records.
type EmbeddingRepository interface {
	Repository
	// SaveEmbeddings stores embedding records, upserting on (chunkId, provider).
	SaveEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error

	// GetEmbedding retrieves the embedding for a chunk from one provider.
	// Returns ErrNotFound if no such record exists.
	GetEmbedding(ctx context.Context, chunkID core.ID, provider string) (*core.EmbeddingRecord, error)

	// HasEmbedding reports whether an embedding exists for (chunkId, provider).
	HasEmbedding(ctx context.Context, chunkID core.ID, provider string) (bool, error)

	// DeleteEmbeddingsForChunk removes all providers' embeddings for a chunk.
	DeleteEmbeddingsForChunk(ctx context.Context, chunkID core.ID) error

	// FindSimilar finds chunks whose embedding from the given provider is
	// similar to the query vector. Returns chunks with similarity >=
	// minSimilarity, up to limit results, ordered by score (highest first).
	FindSimilar(ctx context.Context, vector []float32, provider string, minSimilarity float32, limit int) ([]*core.SearchResult, error)
}

// CheckpointRepository persists progress snapshots for resumable batch runs.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, keyed by its run identity.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint retrieves the checkpoint for a run identity.
	// Returns nil, nil if no checkpoint exists or the stored snapshot was
	// written by a different run identity.
	LoadCheckpoint(ctx context.Context, runIdentity string) (*core.Checkpoint, error)

	// ClearCheckpoint removes the checkpoint for a run identity.
	// Clearing a missing checkpoint is not an error.
	ClearCheckpoint(ctx context.Context, runIdentity string) error
}
