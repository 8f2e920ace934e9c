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


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	return &EmbeddingRepository{
		backend: backend,
	}, nil
}

// Close is a no-op; the embedding repository holds no resources of its own.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EmbeddingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveEmbeddings stores embedding records, upserting on (chunkId, provider).
// The referenced chunk must exist.
func (r *EmbeddingRepository) SaveEmbeddings(ctx context.Context, records ...*core.EmbeddingRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			chunk, err := readChunkByID(tx, record.ChunkId)
			if err != nil {
				return err
			}
			if chunk == nil {
				return storage.ErrNotFound
			}

			if record.CreatedAt.IsZero() {
				record.CreatedAt = time.Now().UTC()
			}

			key := makeEmbeddingKey(record.ChunkId, record.Provider)
			if err := tx.Set(key, storage.MarshalEmbeddingRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEmbedding retrieves the embedding for a chunk from one provider.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, chunkID core.ID, provider string) (*core.EmbeddingRecord, error) {
	var result *core.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(chunkID, provider))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalEmbeddingRecord(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// HasEmbedding reports whether an embedding exists for (chunkId, provider).
func (r *EmbeddingRepository) HasEmbedding(ctx context.Context, chunkID core.ID, provider string) (bool, error) {
	exists := false
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeEmbeddingKey(chunkID, provider))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		exists = true
		return nil
	}, false)
	return exists, err
}

// DeleteEmbeddingsForChunk removes all providers' embeddings for a chunk.
func (r *EmbeddingRepository) DeleteEmbeddingsForChunk(ctx context.Context, chunkID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteEmbeddingsForChunk(tx, chunkID); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FindSimilar delegates to the backend.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, vector []float32, provider string, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, provider, minSimilarity, limit)
}

// deleteEmbeddingsForChunk removes every embedding row for a chunk within
// a transaction.
func deleteEmbeddingsForChunk(tx *badger.Txn, chunkID core.ID) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialEmbeddingKey(chunkID)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
