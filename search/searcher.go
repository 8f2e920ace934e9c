package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// minSimilarity is the cosine-similarity floor below which a chunk is not
// considered a match.
const minSimilarity = 0.60

// verbatimBoost is added to the score of a chunk that contains every
// significant word of the query.
const verbatimBoost = 0.3

// Searcher provides semantic search over embedded document chunks.
type Searcher struct {
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	provider   string
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher. Results are drawn from embeddings
// written by aiConfig's embedding provider.
func NewSearcher(
	embeddings storage.EmbeddingRepository,
	provider ai.AIProvider,
	aiConfig *ai.Config,
	opts ...Option,
) (*Searcher, error) {
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if aiConfig == nil {
		aiConfig = ai.DefaultConfig()
	}

	s := &Searcher{
		embeddings: embeddings,
		embedder:   provider.Embedder(),
		provider:   aiConfig.EmbeddingProvider,
		logger:     slog.Default().With("component", "search"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches for chunks similar to the query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	return s.FindSimilarWithMonitor(ctx, query, maxHits, nil)
}

// FindSimilarWithMonitor searches for chunks similar to the query with
// monitoring. The monitor receives callbacks at each stage of the search.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	// Stored vectors are unit length, so dot product needs a normalized query
	results, err := s.embeddings.FindSimilar(ctx, ai.NormalizeVector(embedding), s.provider, minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	ids := make([]core.ID, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.Chunk.Id)
	}
	monitor.AfterSemanticSearch(ids)

	for _, result := range results {
		if containsAllQueryWords(result.Chunk.Text, query) {
			result.Score += verbatimBoost
			monitor.VerbatimHit(result.Chunk)
		}
	}

	// Re-rank: the verbatim boost can reorder the similarity ranking
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	monitor.Finish(results)

	return results, nil
}
