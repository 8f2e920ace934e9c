package batchembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/retry"
	"github.com/poiesic/docpipe/storage"
)

// BatchProcessor generates and persists embeddings for batches of chunks.
type BatchProcessor struct {
	embeddings     storage.EmbeddingRepository
	embedder       ai.Embedder
	provider       string
	model          string
	maxAttempts    int
	retryBaseDelay time.Duration
	backoffFactor  float64
}

// NewBatchProcessor creates a new batch processor.
// provider and model are recorded on every embedding row the processor writes.
func NewBatchProcessor(embeddings storage.EmbeddingRepository, embedder ai.Embedder, provider, model string, config *Config) *BatchProcessor {
	if config == nil {
		config = DefaultConfig()
	}
	return &BatchProcessor{
		embeddings:     embeddings,
		embedder:       embedder,
		provider:       provider,
		model:          model,
		maxAttempts:    config.MaxAttempts,
		retryBaseDelay: config.RetryDelay,
		backoffFactor:  config.BackoffFactor,
	}
}

// Process generates embeddings for a batch of chunks and persists them.
// Vectors are normalized after embedding to ensure compatibility with
// cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// Generate embeddings with retry
	var embeddings [][]float32
	err := retry.Do(ctx, func() error {
		var err error
		embeddings, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxAttempts, bp.retryBaseDelay, bp.backoffFactor)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	records := make([]*core.EmbeddingRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = &core.EmbeddingRecord{
			ChunkId:  chunk.Id,
			Vector:   ai.NormalizeVector(embeddings[i]),
			Provider: bp.provider,
			Model:    bp.model,
		}
	}

	if err := bp.embeddings.SaveEmbeddings(ctx, records...); err != nil {
		return fmt.Errorf("failed to save embeddings: %w", err)
	}

	return nil
}
