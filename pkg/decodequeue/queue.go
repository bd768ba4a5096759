// ABOUTME: FIFO queue of pending decode jobs
// ABOUTME: Unbounded, insertion-ordered, no deduplication
package decodequeue

// job pairs a request with its future
type job struct {
	req    Request
	future *Future
}

// Queue is an unbounded FIFO of jobs. It is not safe for concurrent use;
// the Scheduler guards it with its own mutex.
type Queue struct {
	items []*job
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends j to the tail
func (q *Queue) Push(j *job) {
	q.items = append(q.items, j)
}

// TakeNext removes and returns the head. ok is false when the queue is empty.
func (q *Queue) TakeNext() (j *job, ok bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	j = q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return j, true
}

// Len returns the number of queued jobs
func (q *Queue) Len() int {
	return len(q.items)
}

// drain removes and returns every queued job in order
func (q *Queue) drain() []*job {
	items := q.items
	q.items = nil
	return items
}
