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


package docpipe

import (
	"io"
	"log/slog"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/ai/openai"
	"github.com/poiesic/docpipe/batchembed"
	"github.com/poiesic/docpipe/chunking"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/search"
	"github.com/poiesic/docpipe/storage"
	"github.com/poiesic/docpipe/storage/badger"
)

// Database bundles the storage backend, repositories, and AI provider
// behind one handle, with factories for the pipeline, batch embedding,
// and search components.
type Database struct {
	backend        *badger.Backend
	documentRepo   storage.DocumentRepository
	chunkRepo      storage.ChunkRepository
	embeddingRepo  storage.EmbeddingRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	aiConfig       *ai.Config
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
}

// WithAIConfig sets the AI service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithAIProvider overrides the AI provider. Used by tests to inject mocks;
// the default builds an openai provider from the AI config.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	documentRepo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	embeddingRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		chunkRepo.Close()
		documentRepo.Close()
		backend.Close()
		return nil, err
	}

	checkpointRepo := badger.NewCheckpointRepository(backend)

	// Create AI provider with configured settings unless one was injected
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			embeddingRepo.Close()
			chunkRepo.Close()
			documentRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:        backend,
		documentRepo:   documentRepo,
		chunkRepo:      chunkRepo,
		embeddingRepo:  embeddingRepo,
		checkpointRepo: checkpointRepo,
		provider:       provider,
		aiConfig:       options.aiConfig,
		logger:         slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.embeddingRepo.Close(); err != nil {
		db.logger.Error("error closing embedding repository", "err", err)
		return err
	}
	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.documentRepo.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documentRepo
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.embeddingRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

// NewSupervisor builds a processing supervisor over a pipeline runner
// wired to this database's stores and AI provider.
func (db *Database) NewSupervisor(config pipeline.RunnerConfig, opts ...pipeline.SupervisorOption) (*pipeline.Supervisor, error) {
	splitter, err := chunking.NewSplitter()
	if err != nil {
		return nil, err
	}

	runner, err := pipeline.NewRunner(
		db.documentRepo, db.chunkRepo, db.embeddingRepo,
		db.provider, splitter, db.aiConfig, config)
	if err != nil {
		return nil, err
	}

	return pipeline.NewSupervisor(runner, opts...)
}

// NewBatchEmbedRunner builds a resumable batch embedding runner for every
// chunk missing a vector from the configured embedding provider.
func (db *Database) NewBatchEmbedRunner(config *batchembed.Config, progress io.Writer) *batchembed.Runner {
	return batchembed.NewRunner(
		db.chunkRepo, db.embeddingRepo, db.checkpointRepo,
		db.provider.Embedder(),
		db.aiConfig.EmbeddingProvider, db.aiConfig.EmbeddingModel,
		config, progress)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.embeddingRepo, db.provider, db.aiConfig, opts...)
}
