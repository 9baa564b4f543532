// Package admission implements the two FIFO queues (C3) that sit between
// the Moderator Gate and the Allocator Loop: pending, which the allocator
// drains, and moderatorHeld, which holds executions the gate has refused
// until a moderate_jobs:resume event re-scans them.
//
// Both queues are in-memory and non-durable; bootstrap repopulates pending
// from the store on startup. Per spec §5 all mutation happens from the
// single logical scheduler task, so no internal locking is applied here —
// callers must not share a Queue across goroutines without their own
// serialization.
package admission

import (
	"oss.nandlabs.io/execctl/collections"
	"oss.nandlabs.io/execctl/model"
)

// Queue is a FIFO of executions awaiting scheduling, with the asymmetric
// insertion discipline spec §4.3/§4.6 require: Enqueue always appends to
// the tail, PromoteFront always inserts at the head. Using two differently
// named methods over the same underlying collections.Queue makes that
// asymmetry a call-site decision instead of a position argument callers can
// get backwards.
type Queue struct {
	q collections.Queue[*model.Execution]
}

// NewQueue returns an empty admission queue.
func NewQueue() *Queue {
	return &Queue{q: collections.NewArrayQueue[*model.Execution]()}
}

// Enqueue appends ex to the tail. This is the path for fresh submissions and
// restartExecution (spec §4.6: "restartExecution itself appends to the
// tail — an intentional choice to avoid starving fresh submissions behind a
// flapping execution").
func (q *Queue) Enqueue(ex *model.Execution) error {
	return q.q.Enqueue(ex)
}

// PromoteFront inserts ex at the head. This is the path for moderated
// executions the gate has just released (moderate_jobs:resume), so they
// jump ahead of executions that have never been held.
func (q *Queue) PromoteFront(ex *model.Execution) error {
	return q.q.AddFirst(ex)
}

// Dequeue pops the head of the queue. Returns collections.ErrEmptyCollection
// if the queue is empty.
func (q *Queue) Dequeue() (*model.Execution, error) {
	return q.q.Dequeue()
}

// Size returns the number of executions currently queued.
func (q *Queue) Size() int {
	return q.q.Size()
}

// Remove removes the first execution with the given ex_id, if present.
// Reports whether anything was removed.
func (q *Queue) Remove(exId string) bool {
	it := q.q.Iterator()
	for it.HasNext() {
		ex := it.Next()
		if ex.Id == exId {
			it.Remove()
			return true
		}
	}
	return false
}

// Snapshot returns a point-in-time copy of the queue contents in FIFO
// order, for inspection (transport status endpoints, moderate_jobs:resume's
// re-scan) without mutating the queue.
func (q *Queue) Snapshot() []*model.Execution {
	out := make([]*model.Execution, 0, q.q.Size())
	it := q.q.Iterator()
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}
