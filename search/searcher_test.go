package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/ai/mock"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchProvider = "mock"

type searchFixture struct {
	stores   *badger.Stores
	embedder *mock.MockEmbedder
	searcher *Searcher
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockExtractor())

	searcher, err := NewSearcher(stores.Embeddings, provider,
		ai.NewConfig(ai.WithEmbeddingProvider(searchProvider)))
	require.NoError(t, err)

	return &searchFixture{
		stores:   stores,
		embedder: embedder,
		searcher: searcher,
	}
}

type seedChunk struct {
	text   string
	vector []float32
}

// seedCorpus stores one document whose chunks carry the given texts and
// unit-length vectors.
func (f *searchFixture) seedCorpus(t *testing.T, seeds ...seedChunk) []*core.Chunk {
	t.Helper()
	ctx := context.Background()

	docs, err := f.stores.Documents.AddDocuments(ctx, &core.Document{
		Filename: "notes.md",
		Path:     "/uploads/notes.md",
	})
	require.NoError(t, err)
	docID := docs[0].Id

	chunks := make([]*core.Chunk, len(seeds))
	records := make([]*core.EmbeddingRecord, len(seeds))
	for i, seed := range seeds {
		chunks[i] = &core.Chunk{
			Id:         core.ChunkID(docID, i),
			DocumentId: docID,
			Index:      i,
			Text:       seed.text,
			TokenCount: 1,
		}
		records[i] = &core.EmbeddingRecord{
			ChunkId:  chunks[i].Id,
			Vector:   seed.vector,
			Provider: searchProvider,
			Model:    "mock-embed",
		}
	}
	require.NoError(t, f.stores.Chunks.ReplaceChunks(ctx, docID, chunks))
	require.NoError(t, f.stores.Embeddings.SaveEmbeddings(ctx, records...))
	return chunks
}

func (f *searchFixture) queryVector(vector []float32) {
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
}

func TestNewSearcherValidation(t *testing.T) {
	provider := mock.NewMockProvider()

	_, err := NewSearcher(nil, provider, nil)
	assert.ErrorIs(t, err, ErrEmbeddingRepositoryRequired)

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	_, err = NewSearcher(stores.Embeddings, nil, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestFindSimilarRanksByScore(t *testing.T) {
	f := newSearchFixture(t)

	chunks := f.seedCorpus(t,
		seedChunk{"gradient descent convergence", []float32{1, 0}},
		seedChunk{"optimizer learning rates", []float32{0.8, 0.6}},
		seedChunk{"unrelated cooking recipe", []float32{0, 1}},
	)
	exact, near := chunks[0], chunks[1]

	f.queryVector([]float32{1, 0})
	results, err := f.searcher.FindSimilar(context.Background(), "optimizer notes", 10)
	require.NoError(t, err)

	require.Len(t, results, 2, "chunk below the similarity floor should be excluded")
	assert.Equal(t, exact.Id, results[0].Chunk.Id)
	assert.Equal(t, near.Id, results[1].Chunk.Id)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFindSimilarVerbatimBoostReorders(t *testing.T) {
	f := newSearchFixture(t)

	// First chunk is slightly less similar, but contains every query word
	chunks := f.seedCorpus(t,
		seedChunk{"tuning gradient descent step sizes", []float32{0.9, 0.43588989}},
		seedChunk{"convergence proofs and bounds", []float32{1, 0}},
	)
	verbatim := chunks[0]

	f.queryVector([]float32{1, 0})
	results, err := f.searcher.FindSimilar(context.Background(), "gradient descent tuning", 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, verbatim.Id, results[0].Chunk.Id)
	assert.InDelta(t, 0.9+verbatimBoost, results[0].Score, 0.01)
}

func TestFindSimilarRespectsMaxHits(t *testing.T) {
	f := newSearchFixture(t)

	seeds := make([]seedChunk, 5)
	for i := range seeds {
		seeds[i] = seedChunk{fmt.Sprintf("paragraph number %d", i), []float32{1, 0}}
	}
	f.seedCorpus(t, seeds...)

	f.queryVector([]float32{1, 0})
	results, err := f.searcher.FindSimilar(context.Background(), "paragraph", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestFindSimilarNoMatches(t *testing.T) {
	f := newSearchFixture(t)

	f.queryVector([]float32{1, 0})
	results, err := f.searcher.FindSimilar(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindSimilarEmbedError(t *testing.T) {
	f := newSearchFixture(t)

	wantErr := errors.New("embedding host unreachable")
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, wantErr
	}

	_, err := f.searcher.FindSimilar(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, wantErr)
}

// recordingMonitor captures every callback for assertions.
type recordingMonitor struct {
	query        string
	semanticIds  []core.ID
	verbatimHits []core.ID
	finished     []*core.SearchResult
}

func (m *recordingMonitor) Start(query string)                  { m.query = query }
func (m *recordingMonitor) AfterSemanticSearch(ids []core.ID)   { m.semanticIds = ids }
func (m *recordingMonitor) VerbatimHit(chunk *core.Chunk)       { m.verbatimHits = append(m.verbatimHits, chunk.Id) }
func (m *recordingMonitor) Finish(results []*core.SearchResult) { m.finished = results }

func TestFindSimilarWithMonitor(t *testing.T) {
	f := newSearchFixture(t)

	hit := f.seedCorpus(t, seedChunk{"kernel scheduler latency", []float32{1, 0}})[0]

	f.queryVector([]float32{1, 0})
	monitor := &recordingMonitor{}
	results, err := f.searcher.FindSimilarWithMonitor(context.Background(), "scheduler latency kernel", 5, monitor)
	require.NoError(t, err)

	assert.Equal(t, "scheduler latency kernel", monitor.query)
	assert.Equal(t, []core.ID{hit.Id}, monitor.semanticIds)
	assert.Equal(t, []core.ID{hit.Id}, monitor.verbatimHits)
	assert.Equal(t, results, monitor.finished)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		want     bool
	}{
		{"all present", "the gradient descent algorithm converges", "gradient descent", true},
		{"missing word", "the gradient ascent algorithm", "gradient descent", false},
		{"stop words ignored", "descent of the gradient", "the gradient and descent", true},
		{"case and punctuation", "Gradient, Descent!", "gradient descent", true},
		{"only stop words", "some document", "the and of", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(tt.document, tt.query))
		})
	}
}
