package ai

import (
	"context"
	"time"
)

// ExtractionResult is the outcome of extracting text from one document.
type ExtractionResult struct {
	// Text is the extracted plain text or markdown content.
	Text string

	// Method names the extraction path the service used
	// (e.g. "docling", "ocr", "plaintext").
	Method string

	// Duration is how long the extraction call took.
	Duration time.Duration
}

// Extractor converts a raw document into text.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// Extract reads the document at path and returns its text content.
	// Returns an error if the document cannot be read or converted.
	Extract(ctx context.Context, path string) (*ExtractionResult, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Extractor and Embedder instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Extractor returns the document text extraction service.
	// The returned Extractor is safe for concurrent use.
	Extractor() Extractor

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
