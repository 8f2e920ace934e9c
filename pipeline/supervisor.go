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
	"container/heap"
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docpipe/core"
)

// QueueStats is a snapshot of the supervisor's backlog.
type QueueStats struct {
	Queued     int
	Active     int
	Completed  int
	MaxWorkers int
}

// Supervisor schedules document jobs onto a fixed worker pool.
//
// Jobs are dequeued by descending priority (FIFO among equals) and handed
// to workers; one document is never processed by two workers at once.
// Submitting a document that is already queued or active returns the
// existing handle.
type Supervisor struct {
	runner     *Runner
	pool       *ants.Pool
	maxWorkers int
	logger     *slog.Logger

	mu        sync.Mutex
	queue     jobQueue
	jobs      map[core.ID]*Job // latest job per document
	active    map[core.ID]*Job
	completed int
	nextSeq   uint64
	draining  bool

	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup // in-flight jobs
	runCtx  context.Context
	cancel  context.CancelFunc
	closing sync.Once
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor) error

// WithWorkers sets the worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(size int) SupervisorOption {
	return func(s *Supervisor) error {
		if size < 1 {
			size = 1
		}

		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		s.maxWorkers = size
		return nil
	}
}

// WithSupervisorLogger sets a custom logger.
// Default is slog.Default().
func WithSupervisorLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSupervisor creates a supervisor and starts its dispatcher.
func NewSupervisor(runner *Runner, opts ...SupervisorOption) (*Supervisor, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		runner:     runner,
		pool:       pool,
		maxWorkers: poolSize,
		logger:     slog.Default(),
		jobs:       make(map[core.ID]*Job),
		active:     make(map[core.ID]*Job),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		runCtx:     runCtx,
		cancel:     cancel,
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.pool.Release()
			cancel()
			return nil, optErr
		}
	}
	s.logger = s.logger.With("component", "supervisor")

	go s.dispatch()
	return s, nil
}

// Submit enqueues a document for processing and returns the job handle.
// If a job for the document is already queued or active, the existing
// handle is returned and nothing new is enqueued.
func (s *Supervisor) Submit(documentID, ownerID core.ID, displayName string, priority int) (uuid.UUID, error) {
	s.mu.Lock()

	if s.draining {
		s.mu.Unlock()
		return uuid.Nil, ErrShutdown
	}

	if existing, ok := s.jobs[documentID]; ok && !existing.Status.Terminal() {
		handle := existing.Handle
		s.mu.Unlock()
		return handle, nil
	}

	job := &Job{
		Handle:      uuid.New(),
		DocumentId:  documentID,
		OwnerId:     ownerID,
		DisplayName: displayName,
		Priority:    priority,
		Status:      core.StatusQueued,
		CurrentStep: "queued",
		CreatedAt:   time.Now().UTC(),
		Result:      make(map[string]string),
		seq:         s.nextSeq,
	}
	s.nextSeq++
	s.jobs[documentID] = job
	heap.Push(&s.queue, job)
	handle := job.Handle
	s.mu.Unlock()

	s.logger.Debug("job submitted", "document", documentID, "priority", priority, "handle", handle)
	s.signal()
	return handle, nil
}

// Status returns a snapshot of the most recent job for a document,
// or nil if the document was never submitted.
func (s *Supervisor) Status(documentID core.ID) *JobView {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[documentID]
	if !ok {
		return nil
	}
	return job.view()
}

// QueueStats returns a snapshot of queue depth and worker utilization.
func (s *Supervisor) QueueStats() QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return QueueStats{
		Queued:     s.queue.Len(),
		Active:     len(s.active),
		Completed:  s.completed,
		MaxWorkers: s.maxWorkers,
	}
}

// Shutdown stops accepting jobs and blocks up to drainTimeout for in-flight
// jobs to finish. Jobs still queued or active after the drain are marked
// failed with reason "shutdown". Safe to call more than once.
func (s *Supervisor) Shutdown(drainTimeout time.Duration) {
	s.closing.Do(func() {
		s.mu.Lock()
		s.draining = true
		// Queued jobs will never start; fail them now so no job is dropped
		for s.queue.Len() > 0 {
			job := heap.Pop(&s.queue).(*Job)
			s.finishLocked(job, shutdownReason)
		}
		s.mu.Unlock()
		close(s.done)

		drained := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(drained)
		}()

		timer := time.NewTimer(drainTimeout)
		defer timer.Stop()
		select {
		case <-drained:
		case <-timer.C:
			s.logger.Warn("drain timeout expired, failing in-flight jobs")
		}

		// Anything still active missed the drain window
		s.cancel()
		s.mu.Lock()
		for _, job := range s.active {
			s.finishLocked(job, shutdownReason)
		}
		s.mu.Unlock()

		s.pool.Release()
		s.logger.Info("supervisor shut down")
	})
}

// signal nudges the dispatcher without blocking.
func (s *Supervisor) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatch moves queued jobs onto the worker pool. A job is only popped
// when a worker is free, so queued jobs stay observable in the queue while
// all workers are busy. Workers re-signal on completion.
func (s *Supervisor) dispatch() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if s.draining || s.queue.Len() == 0 || s.pool.Free() == 0 {
				s.mu.Unlock()
				break
			}
			job := heap.Pop(&s.queue).(*Job)
			s.active[job.DocumentId] = job
			s.mu.Unlock()

			s.wg.Add(1)
			err := s.pool.Submit(func() {
				defer s.wg.Done()
				s.process(job)
			})
			if err != nil {
				// Pool rejected the task (released during shutdown)
				s.wg.Done()
				s.mu.Lock()
				s.finishLocked(job, shutdownReason)
				s.mu.Unlock()
				return
			}
		}
	}
}

// process runs one job to a terminal state on a worker goroutine.
func (s *Supervisor) process(job *Job) {
	s.mu.Lock()
	if job.Status.Terminal() {
		// Failed during a shutdown drain before the worker picked it up
		s.mu.Unlock()
		return
	}
	job.Status = core.StatusProcessing
	job.CurrentStep = StepExtract
	job.StartedAt = time.Now().UTC()
	s.mu.Unlock()

	report := func(status core.Status, step string, progress int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if job.Status.Terminal() {
			return
		}
		if !status.Terminal() {
			job.Status = status
		}
		job.CurrentStep = step
		if progress > job.Progress {
			job.Progress = progress
		}
	}

	err := s.runner.Run(s.runCtx, job.DocumentId, report)

	s.mu.Lock()
	if job.Status.Terminal() {
		// Shutdown already finalized this job
		s.mu.Unlock()
		return
	}
	if err != nil {
		reason := err.Error()
		if s.draining && s.runCtx.Err() != nil {
			reason = shutdownReason
		}
		s.finishLocked(job, reason)
	} else {
		s.finishLocked(job, "")
	}
	s.mu.Unlock()

	// A worker just freed up; let the dispatcher pull the next job
	s.signal()
}

// finishLocked moves a job to its terminal state exactly once.
// Caller must hold the mutex.
func (s *Supervisor) finishLocked(job *Job, failReason string) {
	if job.Status.Terminal() {
		return
	}
	job.CompletedAt = time.Now().UTC()
	if failReason != "" {
		job.Status = core.StatusFailed
		job.ErrorMessage = failReason
	} else {
		job.Status = core.StatusCompleted
		job.Progress = progressEmbedded
	}
	delete(s.active, job.DocumentId)
	s.completed++
}
