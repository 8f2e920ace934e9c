package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/docpipe/core"
)

// Job tracks one document's pass through the processing pipeline.
// A job is mutated only by the supervisor under its lock; callers observe
// it through JobView snapshots.
type Job struct {
	Handle       uuid.UUID
	DocumentId   core.ID
	OwnerId      core.ID
	DisplayName  string
	Priority     int
	Status       core.Status
	CurrentStep  string
	Progress     int // 0-100, monotonically non-decreasing while active
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	Result       map[string]string

	seq uint64 // FIFO tie-break among equal priorities
}

// JobView is an immutable snapshot of a job's state.
type JobView struct {
	Handle       uuid.UUID
	DocumentId   core.ID
	OwnerId      core.ID
	DisplayName  string
	Priority     int
	Status       core.Status
	CurrentStep  string
	Progress     int
	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	ErrorMessage string
	Result       map[string]string
}

// view snapshots the job. Caller must hold the supervisor lock.
func (j *Job) view() *JobView {
	result := make(map[string]string, len(j.Result))
	for k, v := range j.Result {
		result[k] = v
	}
	return &JobView{
		Handle:       j.Handle,
		DocumentId:   j.DocumentId,
		OwnerId:      j.OwnerId,
		DisplayName:  j.DisplayName,
		Priority:     j.Priority,
		Status:       j.Status,
		CurrentStep:  j.CurrentStep,
		Progress:     j.Progress,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		ErrorMessage: j.ErrorMessage,
		Result:       result,
	}
}
