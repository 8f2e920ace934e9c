package badger

import "github.com/poiesic/docpipe/storage"

// Stores bundles all repositories over one backend, mainly for tests
// and CLI wiring.
type Stores struct {
	Documents   storage.DocumentRepository
	Chunks      storage.ChunkRepository
	Embeddings  storage.EmbeddingRepository
	Checkpoints storage.CheckpointRepository

	backend *Backend
}

// Close closes the repositories and the shared backend.
func (s *Stores) Close() error {
	if s.Documents != nil {
		s.Documents.Close()
	}
	if s.Chunks != nil {
		s.Chunks.Close()
	}
	if s.Embeddings != nil {
		s.Embeddings.Close()
	}
	return s.backend.Close()
}

// NewStores opens a backend at path and creates all repositories over it.
func NewStores(path string) (*Stores, error) {
	return newStores(path, false)
}

// NewMemoryStores creates in-memory repositories for testing.
// Caller must close the stores when done.
func NewMemoryStores() (*Stores, error) {
	return newStores("", true)
}

func newStores(path string, inMemory bool) (*Stores, error) {
	backend, err := OpenBackend(path, inMemory)
	if err != nil {
		return nil, err
	}

	docs, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	embeddings, err := NewEmbeddingRepository(backend)
	if err != nil {
		chunks.Close()
		docs.Close()
		backend.Close()
		return nil, err
	}

	return &Stores{
		Documents:   docs,
		Chunks:      chunks,
		Embeddings:  embeddings,
		Checkpoints: NewCheckpointRepository(backend),
		backend:     backend,
	}, nil
}
