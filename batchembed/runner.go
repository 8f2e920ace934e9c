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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// RunIdentity derives the tag that ties a checkpoint to one run
// configuration. Snapshots written under a different identity are never
// resumed from.
func RunIdentity(provider, model string) string {
	return provider + "/" + model
}

// Runner orchestrates a resumable embedding run over every chunk that is
// missing a vector from the configured provider.
type Runner struct {
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	processor   *BatchProcessor
	iterator    *ChunkIterator
	identity    string
	logger      *slog.Logger
}

// NewRunner creates a new batch embedding runner.
// progress: where to write progress output (typically os.Stderr)
func NewRunner(
	chunks storage.ChunkRepository,
	embeddings storage.EmbeddingRepository,
	checkpoints storage.CheckpointRepository,
	embedder ai.Embedder,
	provider, model string,
	config *Config,
	progress io.Writer,
) *Runner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Runner{
		checkpoints: checkpoints,
		config:      config,
		progress:    progress,
		processor:   NewBatchProcessor(embeddings, embedder, provider, model, config),
		iterator:    NewChunkIterator(chunks, embeddings, provider, config.BatchSize),
		identity:    RunIdentity(provider, model),
		logger:      slog.Default().With("component", "batchembed"),
	}
}

// Run embeds all pending chunks. With resume true, a checkpoint from an
// interrupted run with the same identity is loaded first and its already
// processed chunks are skipped.
//
// A batch that fails after retries is recorded in the checkpoint's failed
// set and the run continues. The checkpoint is written every
// CheckpointEvery chunks (best-effort; write failures are logged, never
// fatal) and deleted only when the whole run succeeds.
func (r *Runner) Run(ctx context.Context, resume bool) error {
	pending, err := r.iterator.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending chunks: %w", err)
	}

	checkpoint := &core.Checkpoint{RunIdentity: r.identity}
	if resume {
		loaded, err := r.checkpoints.LoadCheckpoint(ctx, r.identity)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if loaded != nil {
			checkpoint = loaded
			checkpoint.FailedIds = nil // failed chunks get another chance
			remaining := pending[:0]
			for _, chunk := range pending {
				if !checkpoint.Contains(chunk.Id) {
					remaining = append(remaining, chunk)
				}
			}
			pending = remaining
			fmt.Fprintf(r.progress, "Resuming run %s: %d chunks already processed\n",
				r.identity, len(checkpoint.ProcessedIds))
		}
	}

	if len(pending) == 0 {
		fmt.Fprintf(r.progress, "No chunks need embedding (run %s)\n", r.identity)
		return nil
	}

	checkpoint.Total = len(pending) + len(checkpoint.ProcessedIds)
	fmt.Fprintf(r.progress, "Starting embedding of %d chunks (batch size: %d)\n",
		len(pending), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(pending), r.config.ReportInterval)
	tracker.Start()

	processed := 0
	sinceCheckpoint := 0
	failedBatches := 0

	err = r.iterator.ForEach(ctx, pending, func(batch []*core.Chunk) error {
		if procErr := r.processor.Process(ctx, batch); procErr != nil {
			// Record the failures and keep going; the run is best-effort
			failedBatches++
			r.logger.Error("batch failed", "chunks", len(batch), "err", procErr)
			for _, chunk := range batch {
				checkpoint.FailedIds = append(checkpoint.FailedIds, chunk.Id)
			}
		} else {
			for _, chunk := range batch {
				checkpoint.ProcessedIds = append(checkpoint.ProcessedIds, chunk.Id)
			}
		}

		processed += len(batch)
		sinceCheckpoint += len(batch)
		checkpoint.Cursor = processed
		tracker.Update(processed)

		if sinceCheckpoint >= r.config.CheckpointEvery {
			r.saveCheckpoint(checkpoint)
			sinceCheckpoint = 0
		}
		return nil
	})
	if err != nil {
		// Interrupted; persist what we have so a resume can pick up here
		r.saveCheckpoint(checkpoint)
		return err
	}

	tracker.Finish()

	if len(checkpoint.FailedIds) > 0 {
		r.saveCheckpoint(checkpoint)
		return fmt.Errorf("%d of %d chunks failed to embed (%d batches)",
			len(checkpoint.FailedIds), processed, failedBatches)
	}

	if err := r.checkpoints.ClearCheckpoint(context.Background(), r.identity); err != nil {
		r.logger.Error("failed to clear checkpoint", "run", r.identity, "err", err)
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Embedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return nil
}

// saveCheckpoint writes the checkpoint without failing the run.
func (r *Runner) saveCheckpoint(checkpoint *core.Checkpoint) {
	// Deliberately not the run context: a canceled run still checkpoints
	if err := r.checkpoints.SaveCheckpoint(context.Background(), checkpoint); err != nil {
		r.logger.Error("failed to save checkpoint", "run", r.identity, "err", err)
	}
}
