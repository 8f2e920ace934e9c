// Package pipeline schedules and executes document processing jobs.
//
// A Supervisor owns a priority queue and a fixed-size worker pool. Each
// submitted document becomes a Job that a worker drives through the
// Runner's three stages: extract, chunk, embed. Stage output is persisted
// before the job's recorded progress advances, remote calls are retried
// with exponential backoff, and failures surface on the job as a stage
// name plus message rather than as errors to the submitter.
//
// Callers interact with four operations: Submit, Status, QueueStats and
// Shutdown. Submission is idempotent per document while a job is queued
// or active, which guarantees no document is ever processed by two
// workers at once.
package pipeline
