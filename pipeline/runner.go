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


package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/chunking"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/retry"
	"github.com/poiesic/docpipe/storage"
)

// Stage labels reported through job views and failure messages.
const (
	StepExtract = "extract"
	StepChunk   = "chunk"
	StepEmbed   = "embed"
)

// Progress milestones at stage boundaries.
const (
	progressStarted   = 10
	progressExtracted = 40
	progressChunked   = 70
	progressEmbedded  = 100
)

// ProgressFunc receives stage transitions while a job runs.
// Implementations must tolerate being called from a worker goroutine.
type ProgressFunc func(status core.Status, step string, progress int)

// RunnerConfig bounds the runner's chunking and remote-call behavior.
type RunnerConfig struct {
	// MaxChunkTokens is the token budget per chunk.
	MaxChunkTokens int

	// MaxAttempts, BaseDelay and BackoffFactor parameterize retries
	// around each remote call.
	MaxAttempts   int
	BaseDelay     time.Duration
	BackoffFactor float64

	// CallTimeout bounds one remote call (one extraction, one embedding batch).
	CallTimeout time.Duration

	// EmbedBatchSize is the number of chunks embedded per remote call.
	EmbedBatchSize int
}

// DefaultRunnerConfig returns the runner defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxChunkTokens: 480,
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		BackoffFactor:  2.0,
		CallTimeout:    2 * time.Minute,
		EmbedBatchSize: 30,
	}
}

// Runner drives one document through the extract, chunk and embed stages.
// Each stage persists its output before the recorded step advances, so a
// crash mid-stage never claims more progress than was durably written.
type Runner struct {
	documents  storage.DocumentRepository
	chunks     storage.ChunkRepository
	embeddings storage.EmbeddingRepository
	provider   ai.AIProvider
	splitter   *chunking.Splitter
	config     RunnerConfig
	aiConfig   *ai.Config
	logger     *slog.Logger
}

// NewRunner creates a pipeline runner.
func NewRunner(
	documents storage.DocumentRepository,
	chunks storage.ChunkRepository,
	embeddings storage.EmbeddingRepository,
	provider ai.AIProvider,
	splitter *chunking.Splitter,
	aiConfig *ai.Config,
	config RunnerConfig,
) (*Runner, error) {
	if documents == nil {
		return nil, ErrDocumentStoreRequired
	}
	if chunks == nil {
		return nil, ErrChunkStoreRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if splitter == nil {
		return nil, ErrSplitterRequired
	}
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}

	return &Runner{
		documents:  documents,
		chunks:     chunks,
		embeddings: embeddings,
		provider:   provider,
		splitter:   splitter,
		config:     config,
		aiConfig:   aiConfig,
		logger:     slog.Default().With("component", "pipeline-runner"),
	}, nil
}

// Run processes one document through all stages. On failure it marks the
// document failed and returns a *StageError naming the failed stage;
// callers surface that through the job rather than re-raising it.
func (r *Runner) Run(ctx context.Context, documentID core.ID, report ProgressFunc) error {
	if report == nil {
		report = func(core.Status, string, int) {}
	}

	doc, err := r.start(ctx, documentID)
	if err != nil {
		return &StageError{Stage: StepExtract, Err: err}
	}
	report(core.StatusProcessing, StepExtract, progressStarted)

	text, err := r.runExtract(ctx, doc, report)
	if err != nil {
		return r.fail(ctx, documentID, StepExtract, err)
	}

	chunks, err := r.runChunk(ctx, doc, text, report)
	if err != nil {
		return r.fail(ctx, documentID, StepChunk, err)
	}

	if err := r.runEmbed(ctx, doc, chunks, report); err != nil {
		return r.fail(ctx, documentID, StepEmbed, err)
	}

	if err := r.documents.UpdateStatus(ctx, documentID, core.StatusCompleted); err != nil {
		return r.fail(ctx, documentID, StepEmbed, err)
	}
	report(core.StatusCompleted, StepEmbed, progressEmbedded)

	r.logger.Info("document processed", "document", documentID, "chunks", len(chunks))
	return nil
}

// start loads the document and moves it into the processing state.
// Terminal documents are reset so reprocessing can begin a fresh pass.
func (r *Runner) start(ctx context.Context, documentID core.ID) (*core.Document, error) {
	doc, err := r.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if doc.Status == core.StatusQueued {
		if err := r.documents.UpdateStatus(ctx, documentID, core.StatusProcessing); err != nil {
			return nil, err
		}
	} else {
		// Reprocessing: reset whatever state the last pass left behind
		doc.Status = core.StatusProcessing
		doc.ProcessedAt = time.Time{}
		if _, err := r.documents.UpdateDocuments(ctx, doc); err != nil {
			return nil, err
		}
	}
	doc.Status = core.StatusProcessing
	return doc, nil
}

// runExtract performs the extraction stage: remote call with retries,
// then persist the text before reporting the stage boundary.
func (r *Runner) runExtract(ctx context.Context, doc *core.Document, report ProgressFunc) (string, error) {
	if err := r.documents.UpdateStatus(ctx, doc.Id, core.StatusExtracting); err != nil {
		return "", err
	}
	report(core.StatusExtracting, StepExtract, progressStarted)

	var result *ai.ExtractionResult
	err := retry.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
		defer cancel()

		var callErr error
		result, callErr = r.provider.Extractor().Extract(callCtx, doc.Path)
		return callErr
	}, r.config.MaxAttempts, r.config.BaseDelay, r.config.BackoffFactor)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(result.Text) == "" {
		return "", retry.Fatal(fmt.Errorf("%w: %s", ErrEmptyExtraction, doc.Filename))
	}

	if err := r.documents.SaveExtractedText(ctx, doc.Id, result.Text, result.Method); err != nil {
		return "", err
	}

	report(core.StatusExtracting, StepExtract, progressExtracted)
	r.logger.Debug("extraction complete", "document", doc.Id, "method", result.Method, "chars", len(result.Text))
	return result.Text, nil
}

// runChunk performs the chunking stage. The document's previous chunk set
// is replaced wholesale, so reprocessing never duplicates rows.
func (r *Runner) runChunk(ctx context.Context, doc *core.Document, text string, report ProgressFunc) ([]*core.Chunk, error) {
	if err := r.documents.UpdateStatus(ctx, doc.Id, core.StatusChunking); err != nil {
		return nil, err
	}
	report(core.StatusChunking, StepChunk, progressExtracted)

	doc.Content = text
	chunks, err := r.splitter.ChunkDocument(doc, r.config.MaxChunkTokens)
	if err != nil {
		return nil, retry.Fatal(err)
	}

	if err := r.chunks.ReplaceChunks(ctx, doc.Id, chunks); err != nil {
		return nil, err
	}

	report(core.StatusChunking, StepChunk, progressChunked)
	r.logger.Debug("chunking complete", "document", doc.Id, "chunks", len(chunks))
	return chunks, nil
}

// runEmbed performs the embedding stage in batches. Each batch is retried
// independently and persisted before the next batch starts.
func (r *Runner) runEmbed(ctx context.Context, doc *core.Document, chunks []*core.Chunk, report ProgressFunc) error {
	if err := r.documents.UpdateStatus(ctx, doc.Id, core.StatusEmbedding); err != nil {
		return err
	}
	report(core.StatusEmbedding, StepEmbed, progressChunked)

	batchSize := r.config.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		var vectors [][]float32
		err := retry.Do(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, r.config.CallTimeout)
			defer cancel()

			var callErr error
			vectors, callErr = r.provider.Embedder().EmbedTexts(callCtx, texts)
			if callErr != nil {
				return callErr
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(texts), len(vectors))
			}
			return nil
		}, r.config.MaxAttempts, r.config.BaseDelay, r.config.BackoffFactor)
		if err != nil {
			return err
		}

		records := make([]*core.EmbeddingRecord, len(batch))
		for i, chunk := range batch {
			records[i] = &core.EmbeddingRecord{
				ChunkId:  chunk.Id,
				Vector:   ai.NormalizeVector(vectors[i]),
				Provider: r.aiConfig.EmbeddingProvider,
				Model:    r.aiConfig.EmbeddingModel,
			}
		}
		if err := r.embeddings.SaveEmbeddings(ctx, records...); err != nil {
			return err
		}

		// Walk progress from 70 toward 100 across batches
		progress := progressChunked + (progressEmbedded-progressChunked)*end/len(chunks)
		report(core.StatusEmbedding, StepEmbed, progress)
	}

	return nil
}

// fail records the failure on the document and wraps the error with the
// stage name. The write is best-effort; the original error wins.
func (r *Runner) fail(ctx context.Context, documentID core.ID, stage string, err error) error {
	if statusErr := r.documents.UpdateStatus(ctx, documentID, core.StatusFailed); statusErr != nil {
		r.logger.Error("failed to mark document failed", "document", documentID, "err", statusErr)
	}
	r.logger.Error("stage failed", "document", documentID, "stage", stage, "err", err)
	return &StageError{Stage: stage, Err: err}
}
