package pipeline

// jobQueue is a priority queue of jobs, highest priority first, FIFO among
// equal priorities. It implements container/heap and is not thread-safe;
// the supervisor serializes access under its mutex.
type jobQueue []*Job

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].Priority != q[j].Priority {
		return q[i].Priority > q[j].Priority
	}
	return q[i].seq < q[j].seq
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

func (q *jobQueue) Push(x any) {
	*q = append(*q, x.(*Job))
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return job
}
