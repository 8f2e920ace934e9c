package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) *Stores {
	t.Helper()
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func makeTestDocument(filename string) *core.Document {
	return &core.Document{
		Filename:    filename,
		Path:        "/uploads/" + filename,
		ContentType: "application/pdf",
	}
}

func makeTestChunks(documentID core.ID, texts ...string) []*core.Chunk {
	chunks := make([]*core.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.Chunk{
			Id:         core.ChunkID(documentID, i),
			DocumentId: documentID,
			Index:      i,
			Text:       text,
			TokenCount: len(text) / 4,
			CreatedAt:  time.Now().UTC(),
		}
	}
	return chunks
}

func TestDocumentAddAndGet(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"), makeTestDocument("b.pdf"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.NotZero(t, docs[0].Id)
	assert.NotEqual(t, docs[0].Id, docs[1].Id)
	assert.Equal(t, core.StatusQueued, docs[0].Status)
	assert.False(t, docs[0].CreatedAt.IsZero())

	got, err := stores.Documents.GetDocument(ctx, docs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", got.Filename)
	assert.Equal(t, "/uploads/a.pdf", got.Path)
}

func TestDocumentGetMissing(t *testing.T) {
	stores := newTestStores(t)

	_, err := stores.Documents.GetDocument(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentList(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Documents.AddDocuments(ctx,
		makeTestDocument("one.pdf"), makeTestDocument("two.pdf"), makeTestDocument("three.pdf"))
	require.NoError(t, err)

	all, err := stores.Documents.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Id, all[i].Id, "list should be ordered by ID")
	}
}

func TestDocumentUpdateStatus(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	for _, status := range []core.Status{
		core.StatusProcessing, core.StatusExtracting, core.StatusChunking,
		core.StatusEmbedding, core.StatusCompleted,
	} {
		require.NoError(t, stores.Documents.UpdateStatus(ctx, id, status))
	}

	got, err := stores.Documents.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, got.Status)
	assert.False(t, got.ProcessedAt.IsZero())
}

func TestDocumentUpdateStatusRejectsBackwards(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	require.NoError(t, stores.Documents.UpdateStatus(ctx, id, core.StatusProcessing))
	require.NoError(t, stores.Documents.UpdateStatus(ctx, id, core.StatusExtracting))

	err = stores.Documents.UpdateStatus(ctx, id, core.StatusProcessing)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestDocumentSaveExtractedText(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)

	require.NoError(t, stores.Documents.SaveExtractedText(ctx, docs[0].Id, "extracted body", "docling"))

	got, err := stores.Documents.GetDocument(ctx, docs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "extracted body", got.Content)
	assert.Equal(t, "docling", got.Method)
}

func TestChunkReplaceAndList(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "first chunk", "second chunk", "third chunk")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))

	listed, err := stores.Chunks.ListChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, chunk := range listed {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, chunks[i].Text, chunk.Text)
	}
}

func TestChunkReplaceIsIdempotent(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, makeTestChunks(id, "old one", "old two", "old three")))

	// Reprocessing writes a smaller chunk set
	replacement := makeTestChunks(id, "new one", "new two")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, replacement))

	listed, err := stores.Chunks.ListChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, listed, 2, "old chunks should be fully replaced")
	assert.Equal(t, "new one", listed[0].Text)
	assert.Equal(t, "new two", listed[1].Text)
}

func TestChunkReplaceRemovesStaleEmbeddings(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "alpha", "beta", "gamma")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))

	staleChunkID := chunks[2].Id
	require.NoError(t, stores.Embeddings.SaveEmbeddings(ctx, &core.EmbeddingRecord{
		ChunkId:  staleChunkID,
		Vector:   []float32{1, 0, 0},
		Provider: "openai",
		Model:    "embeddinggemma",
	}))

	// Replacing with fewer chunks drops the third chunk and its embedding
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, makeTestChunks(id, "alpha", "beta")))

	exists, err := stores.Embeddings.HasEmbedding(ctx, staleChunkID, "openai")
	require.NoError(t, err)
	assert.False(t, exists, "embedding for a replaced chunk must not survive")
}

func TestChunkRejectsBadIndices(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "one", "two")
	chunks[1].Index = 5 // gap

	err = stores.Chunks.ReplaceChunks(ctx, id, chunks)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestChunkGetByID(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "lookup me")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))

	got, err := stores.Chunks.GetChunk(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "lookup me", got.Text)

	_, err = stores.Chunks.GetChunk(ctx, 99999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmbeddingSaveAndGet(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "some text")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))

	record := &core.EmbeddingRecord{
		ChunkId:  chunks[0].Id,
		Vector:   []float32{0.1, 0.2, 0.3},
		Provider: "openai",
		Model:    "embeddinggemma",
	}
	require.NoError(t, stores.Embeddings.SaveEmbeddings(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	got, err := stores.Embeddings.GetEmbedding(ctx, chunks[0].Id, "openai")
	require.NoError(t, err)
	assert.Equal(t, record.Vector, got.Vector)
	assert.Equal(t, "embeddinggemma", got.Model)

	_, err = stores.Embeddings.GetEmbedding(ctx, chunks[0].Id, "mistral")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEmbeddingUpsert(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "some text")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))

	first := &core.EmbeddingRecord{ChunkId: chunks[0].Id, Vector: []float32{1}, Provider: "openai", Model: "m1"}
	second := &core.EmbeddingRecord{ChunkId: chunks[0].Id, Vector: []float32{2}, Provider: "openai", Model: "m2"}

	require.NoError(t, stores.Embeddings.SaveEmbeddings(ctx, first))
	require.NoError(t, stores.Embeddings.SaveEmbeddings(ctx, second))

	got, err := stores.Embeddings.GetEmbedding(ctx, chunks[0].Id, "openai")
	require.NoError(t, err)
	assert.Equal(t, "m2", got.Model, "same (chunk, provider) pair should overwrite")
}

func TestEmbeddingRejectsMissingChunk(t *testing.T) {
	stores := newTestStores(t)

	err := stores.Embeddings.SaveEmbeddings(context.Background(), &core.EmbeddingRecord{
		ChunkId:  42,
		Vector:   []float32{1},
		Provider: "openai",
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindSimilar(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "about cats", "about dogs", "about weather")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))

	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}
	for i, chunk := range chunks {
		require.NoError(t, stores.Embeddings.SaveEmbeddings(ctx, &core.EmbeddingRecord{
			ChunkId:  chunk.Id,
			Vector:   vectors[i],
			Provider: "openai",
			Model:    "embeddinggemma",
		}))
	}

	results, err := stores.Embeddings.FindSimilar(ctx, []float32{1, 0, 0}, "openai", 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "about cats", results[0].Chunk.Text)
	assert.Greater(t, results[0].Score, results[1].Score)

	// Another provider's rows are invisible
	results, err = stores.Embeddings.FindSimilar(ctx, []float32{1, 0, 0}, "mistral", 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDocumentDeleteCascades(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"))
	require.NoError(t, err)
	id := docs[0].Id

	chunks := makeTestChunks(id, "one", "two")
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, id, chunks))
	require.NoError(t, stores.Embeddings.SaveEmbeddings(ctx, &core.EmbeddingRecord{
		ChunkId: chunks[0].Id, Vector: []float32{1}, Provider: "openai",
	}))

	require.NoError(t, stores.Documents.DeleteDocuments(ctx, id))

	_, err = stores.Documents.GetDocument(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	listed, err := stores.Chunks.ListChunks(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, listed)

	exists, err := stores.Embeddings.HasEmbedding(ctx, chunks[0].Id, "openai")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCheckpointSaveLoadClear(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	checkpoint := &core.Checkpoint{
		RunIdentity:  "openai/embeddinggemma",
		ProcessedIds: []core.ID{1, 2, 3},
		FailedIds:    []core.ID{9},
		Cursor:       3,
		Total:        100,
	}
	require.NoError(t, stores.Checkpoints.SaveCheckpoint(ctx, checkpoint))
	assert.False(t, checkpoint.UpdatedAt.IsZero())

	loaded, err := stores.Checkpoints.LoadCheckpoint(ctx, "openai/embeddinggemma")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, checkpoint.ProcessedIds, loaded.ProcessedIds)
	assert.Equal(t, checkpoint.FailedIds, loaded.FailedIds)
	assert.Equal(t, 3, loaded.Cursor)
	assert.Equal(t, 100, loaded.Total)

	// A different run identity sees nothing
	other, err := stores.Checkpoints.LoadCheckpoint(ctx, "mistral/mistral-embed")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, stores.Checkpoints.ClearCheckpoint(ctx, "openai/embeddinggemma"))
	loaded, err = stores.Checkpoints.LoadCheckpoint(ctx, "openai/embeddinggemma")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing again is not an error
	require.NoError(t, stores.Checkpoints.ClearCheckpoint(ctx, "openai/embeddinggemma"))
}

func TestListAllChunks(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	docs, err := stores.Documents.AddDocuments(ctx, makeTestDocument("a.pdf"), makeTestDocument("b.pdf"))
	require.NoError(t, err)

	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, docs[0].Id, makeTestChunks(docs[0].Id, "a1", "a2")))
	require.NoError(t, stores.Chunks.ReplaceChunks(ctx, docs[1].Id, makeTestChunks(docs[1].Id, "b1")))

	all, err := stores.Chunks.ListAllChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
