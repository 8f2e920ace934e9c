package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	return &ChunkRepository{
		backend: backend,
	}, nil
}

// Close is a no-op; the chunk repository holds no resources of its own.
func (r *ChunkRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// ReplaceChunks atomically replaces a document's chunk set.
// The previous chunks and their embeddings are deleted first, so
// re-running the chunking stage never duplicates rows.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID core.ID, chunks []*core.Chunk) error {
	for i, chunk := range chunks {
		if chunk.DocumentId != documentID || chunk.Index != i {
			return storage.ErrInvalidQuery
		}
		if err := core.ValidateChunk(chunk); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := deleteChunksForDocument(tx, documentID); err != nil {
			return err
		}

		for _, chunk := range chunks {
			key := makeChunkKey(documentID, chunk.Index)
			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}
			// Secondary index: chunk ID -> primary key
			if err := tx.Set(makeChunkIDKey(chunk.Id), key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ListChunks retrieves a document's chunks ordered by index.
func (r *ChunkRepository) ListChunks(ctx context.Context, documentID core.ID) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkKey(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// BigEndian index encoding makes key order the chunk order
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunkByID(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListAllChunks retrieves every stored chunk across all documents.
func (r *ChunkRepository) ListAllChunks(ctx context.Context) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			})
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// readChunkByID resolves a chunk ID through the secondary index.
// Returns nil, nil if the chunk does not exist.
func readChunkByID(tx *badger.Txn, id core.ID) (*core.Chunk, error) {
	idxItem, err := tx.Get(makeChunkIDKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var primaryKey []byte
	if err := idxItem.Value(func(val []byte) error {
		primaryKey = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return nil, err
	}

	item, err := tx.Get(primaryKey)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	return chunk, err
}

// deleteChunksForDocument removes a document's chunk rows, their secondary
// index entries, and all embeddings referencing them.
func deleteChunksForDocument(tx *badger.Txn, documentID core.ID) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkKey(documentID)
	iter := tx.NewIterator(opts)

	var primaryKeys [][]byte
	var chunkIDs []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		primaryKeys = append(primaryKeys, item.KeyCopy(nil))

		var chunk *core.Chunk
		if err := item.Value(func(val []byte) error {
			var err error
			chunk, err = storage.UnmarshalChunk(val)
			return err
		}); err != nil {
			iter.Close()
			return err
		}
		if chunk != nil {
			chunkIDs = append(chunkIDs, chunk.Id)
		}
	}
	iter.Close()

	for _, chunkID := range chunkIDs {
		if err := deleteEmbeddingsForChunk(tx, chunkID); err != nil {
			return err
		}
		if err := tx.Delete(makeChunkIDKey(chunkID)); err != nil {
			return err
		}
	}
	for _, key := range primaryKeys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
