// Package batchembed provides resumable bulk embedding of stored chunks.
//
// A Runner finds every chunk missing an embedding from the configured
// provider and processes them in batches, with progress tracking, retry
// logic with exponential backoff, and vector normalization. Progress is
// checkpointed every N chunks under a run identity (provider/model), so
// an interrupted run can be resumed without re-embedding finished chunks.
// The checkpoint is deleted only when a run completes with no failures.
package batchembed
