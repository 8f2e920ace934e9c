package pipeline

import (
	"container/heap"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobQueueOrdering(t *testing.T) {
	var q jobQueue
	heap.Init(&q)

	push := func(priority int, seq uint64, name string) {
		heap.Push(&q, &Job{Priority: priority, seq: seq, DisplayName: name})
	}

	push(1, 0, "low-first")
	push(5, 1, "high")
	push(1, 2, "low-second")
	push(3, 3, "mid")

	var order []string
	for q.Len() > 0 {
		order = append(order, heap.Pop(&q).(*Job).DisplayName)
	}

	assert.Equal(t, []string{"high", "mid", "low-first", "low-second"}, order)
}

func TestJobQueueFIFOAmongEqualPriorities(t *testing.T) {
	var q jobQueue
	heap.Init(&q)

	for i := uint64(0); i < 10; i++ {
		heap.Push(&q, &Job{Priority: 7, seq: i})
	}

	var last uint64
	for i := 0; q.Len() > 0; i++ {
		job := heap.Pop(&q).(*Job)
		if i > 0 {
			assert.Greater(t, job.seq, last, "equal priorities should pop in insertion order")
		}
		last = job.seq
	}
}
