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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docpipe"
	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/ai/openai"
	"github.com/poiesic/docpipe/batchembed"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/storage/badger"
	"github.com/urfave/cli/v2"
)

const pollInterval = 250 * time.Millisecond

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docpipe",
		Usage: "Document ingestion and embedding pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Run documents through the extract, chunk and embed pipeline",
				ArgsUsage: "FILE [FILE ...]",
				Action:    processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "extractor-host",
						Usage: "Document extraction service host URL",
						Value: "http://localhost:5001",
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-provider",
						Usage: "Provider name recorded on embedding rows",
						Value: "openai",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent pipeline workers (0 = half the CPUs)",
					},
					&cli.IntFlag{
						Name:  "priority",
						Usage: "Job priority (higher runs first)",
					},
					&cli.IntFlag{
						Name:  "max-chunk-tokens",
						Usage: "Token budget per chunk",
						Value: 480,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed remote calls",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.DurationFlag{
						Name:  "call-timeout",
						Usage: "Timeout for one remote extraction or embedding call",
						Value: 2 * time.Minute,
					},
					&cli.DurationFlag{
						Name:  "drain-timeout",
						Usage: "How long shutdown waits for active jobs",
						Value: 30 * time.Second,
					},
				},
			},
			{
				Name:   "embed-all",
				Usage:  "Embed every stored chunk that has no embedding yet",
				Action: embedAllCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-provider",
						Usage: "Provider name recorded on embedding rows",
						Value: "openai",
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Resume from the checkpoint of an interrupted run",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 30,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "checkpoint-every",
						Usage: "Write a checkpoint every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search embedded chunks for a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-provider",
						Usage: "Provider name recorded on embedding rows",
						Value: "openai",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 5,
					},
				},
			},
		},
	}
}

func processCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file to process is required")
	}

	aiConfig := ai.NewConfig(
		ai.WithExtractorHost(c.String("extractor-host")),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingProvider(c.String("embedding-provider")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := docpipe.NewDatabase(c.String("db"), docpipe.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runnerConfig := pipeline.DefaultRunnerConfig()
	runnerConfig.MaxChunkTokens = c.Int("max-chunk-tokens")
	runnerConfig.MaxAttempts = c.Int("max-retries")
	runnerConfig.BaseDelay = c.Duration("retry-delay")
	runnerConfig.CallTimeout = c.Duration("call-timeout")

	var opts []pipeline.SupervisorOption
	if workers := c.Int("workers"); workers > 0 {
		opts = append(opts, pipeline.WithWorkers(workers))
	}
	supervisor, err := db.NewSupervisor(runnerConfig, opts...)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}
	defer supervisor.Shutdown(c.Duration("drain-timeout"))

	ctx := context.Background()
	documentIds := make([]core.ID, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		if _, err := os.Stat(absPath); err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}

		docs, err := db.DocumentRepository().AddDocuments(ctx, &core.Document{
			Filename:    filepath.Base(path),
			Path:        absPath,
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
		})
		if err != nil {
			return fmt.Errorf("failed to store document %s: %w", path, err)
		}
		doc := docs[0]

		if _, err := supervisor.Submit(doc.Id, doc.OwnerId, doc.Filename, c.Int("priority")); err != nil {
			return fmt.Errorf("failed to submit %s: %w", path, err)
		}
		documentIds = append(documentIds, doc.Id)
	}

	fmt.Fprintf(os.Stderr, "Processing %d documents\n", len(documentIds))

	failed := 0
	for _, id := range documentIds {
		view := waitForJob(supervisor, id)
		if view == nil {
			return fmt.Errorf("lost track of document %d", id)
		}
		if view.Status == core.StatusCompleted {
			fmt.Fprintf(os.Stderr, "%s: completed\n", view.DisplayName)
		} else {
			failed++
			fmt.Fprintf(os.Stderr, "%s: failed (%s)\n", view.DisplayName, view.ErrorMessage)
		}
	}

	stats := supervisor.QueueStats()
	fmt.Fprintf(os.Stderr, "Done: %d completed, %d failed\n", stats.Completed-failed, failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(documentIds))
	}
	return nil
}

// waitForJob polls until the document's job reaches a terminal state.
func waitForJob(supervisor *pipeline.Supervisor, id core.ID) *pipeline.JobView {
	for {
		view := supervisor.Status(id)
		if view == nil || view.Status.Terminal() {
			return view
		}
		time.Sleep(pollInterval)
	}
}

func embedAllCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create chunk repository: %w", err)
	}
	defer chunkRepo.Close()

	embeddingRepo, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create embedding repository: %w", err)
	}
	defer embeddingRepo.Close()

	checkpointRepo := badger.NewCheckpointRepository(backend)

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingProvider(c.String("embedding-provider")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	embedConfig := &batchembed.Config{
		BatchSize:       c.Int("batch-size"),
		ReportInterval:  c.Int("report-interval"),
		MaxAttempts:     c.Int("max-retries"),
		RetryDelay:      c.Duration("retry-delay"),
		BackoffFactor:   2.0,
		CheckpointEvery: c.Int("checkpoint-every"),
	}
	if embedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if embedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if embedConfig.MaxAttempts <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if embedConfig.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint-every must be greater than 0")
	}

	runner := batchembed.NewRunner(
		chunkRepo, embeddingRepo, checkpointRepo,
		embedder, aiConfig.EmbeddingProvider, aiConfig.EmbeddingModel,
		embedConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := runner.Run(ctx, c.Bool("resume")); err != nil {
		return fmt.Errorf("batch embedding failed: %w", err)
	}

	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a search query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithEmbeddingProvider(c.String("embedding-provider")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	db, err := docpipe.NewDatabase(c.String("db"), docpipe.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.FindSimilar(context.Background(), query, c.Int("max-hits"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (doc %d, chunk %d)[%0.3f]\n",
			i, hit.Chunk.Text, hit.Chunk.DocumentId, hit.Chunk.Index, hit.Score)
	}

	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
