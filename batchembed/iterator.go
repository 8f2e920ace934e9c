// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package batchembed

import (
	"context"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

const (
	// DefaultBatchSize is the default number of chunks per embedding call
	DefaultBatchSize = 30
)

// ChunkIterator walks chunks that still need an embedding from a provider.
type ChunkIterator struct {
	chunks     storage.ChunkRepository
	embeddings storage.EmbeddingRepository
	provider   string
	batchSize  int
}

// NewChunkIterator creates a new chunk iterator.
// batchSize: number of chunks per batch (must be > 0)
func NewChunkIterator(chunks storage.ChunkRepository, embeddings storage.EmbeddingRepository, provider string, batchSize int) *ChunkIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ChunkIterator{
		chunks:     chunks,
		embeddings: embeddings,
		provider:   provider,
		batchSize:  batchSize,
	}
}

// Pending returns the chunks that have no embedding from the provider yet,
// in storage order.
func (it *ChunkIterator) Pending(ctx context.Context) ([]*core.Chunk, error) {
	all, err := it.chunks.ListAllChunks(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*core.Chunk
	for _, chunk := range all {
		exists, err := it.embeddings.HasEmbedding(ctx, chunk.Id, it.provider)
		if err != nil {
			return nil, err
		}
		if !exists {
			pending = append(pending, chunk)
		}
	}
	return pending, nil
}

// ForEach iterates over the given chunks, calling fn for each batch.
// Iteration stops on first error from fn or when all chunks are processed.
// Context cancellation is checked between batches.
func (it *ChunkIterator) ForEach(ctx context.Context, chunks []*core.Chunk, fn func([]*core.Chunk) error) error {
	// Check context before starting
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for i := 0; i < len(chunks); i += it.batchSize {
		end := i + it.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := fn(chunks[i:end]); err != nil {
			return err
		}

		// Check context after each batch
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
