package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrRunnerRequired is returned when a runner is not provided.
	ErrRunnerRequired = errors.New("runner required")

	// ErrDocumentStoreRequired is returned when a document repository is not provided.
	ErrDocumentStoreRequired = errors.New("document repository required")

	// ErrChunkStoreRequired is returned when a chunk repository is not provided.
	ErrChunkStoreRequired = errors.New("chunk repository required")

	// ErrEmbeddingStoreRequired is returned when an embedding repository is not provided.
	ErrEmbeddingStoreRequired = errors.New("embedding repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrSplitterRequired is returned when a splitter is not provided.
	ErrSplitterRequired = errors.New("splitter required")

	// ErrShutdown is returned by Submit after the supervisor stopped
	// accepting jobs.
	ErrShutdown = errors.New("supervisor is shut down")

	// ErrEmptyExtraction is returned when extraction yields no text.
	// Retrying cannot help, so the pipeline fails the job immediately.
	ErrEmptyExtraction = errors.New("extraction produced no text")
)

// shutdownReason is recorded on jobs interrupted by a shutdown drain.
const shutdownReason = "shutdown"

// StageError reports which pipeline stage failed and why.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
