package viewport

// FrameQueue is a FrameScheduler driven by its owner: callbacks wait until
// Flush is called, typically on a frame tick of the loop that owns the map.
type FrameQueue struct {
	queued []func()
}

// RequestFrame queues fn for the next Flush.
func (q *FrameQueue) RequestFrame(fn func()) {
	q.queued = append(q.queued, fn)
}

// Pending reports how many callbacks wait for the next frame.
func (q *FrameQueue) Pending() int {
	return len(q.queued)
}

// Flush runs the queued callbacks in request order. Callbacks requested while
// flushing wait for the following frame.
func (q *FrameQueue) Flush() int {
	fns := q.queued
	q.queued = nil
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
