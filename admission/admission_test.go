package admission

import (
	"testing"

	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/testing/assert"
)

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := NewQueue()
	ex1, _ := model.NewExecution("job-1", 1, nil, nil)
	ex2, _ := model.NewExecution("job-2", 1, nil, nil)

	assert.NoError(t, q.Enqueue(ex1))
	assert.NoError(t, q.Enqueue(ex2))
	assert.Equal(t, 2, q.Size())

	first, err := q.Dequeue()
	assert.NoError(t, err)
	assert.Equal(t, ex1.Id, first.Id)

	second, err := q.Dequeue()
	assert.NoError(t, err)
	assert.Equal(t, ex2.Id, second.Id)
}

func TestPromoteFrontJumpsAheadOfTail(t *testing.T) {
	q := NewQueue()
	fresh, _ := model.NewExecution("job-1", 1, nil, nil)
	released, _ := model.NewExecution("job-2", 1, nil, nil)

	assert.NoError(t, q.Enqueue(fresh))
	assert.NoError(t, q.PromoteFront(released))

	first, err := q.Dequeue()
	assert.NoError(t, err)
	assert.Equal(t, released.Id, first.Id)
}

func TestRemoveById(t *testing.T) {
	q := NewQueue()
	ex1, _ := model.NewExecution("job-1", 1, nil, nil)
	ex2, _ := model.NewExecution("job-2", 1, nil, nil)
	q.Enqueue(ex1)
	q.Enqueue(ex2)

	assert.True(t, q.Remove(ex1.Id))
	assert.Equal(t, 1, q.Size())
	assert.False(t, q.Remove("does-not-exist"))
}

func TestSnapshotPreservesOrderWithoutMutating(t *testing.T) {
	q := NewQueue()
	ex1, _ := model.NewExecution("job-1", 1, nil, nil)
	ex2, _ := model.NewExecution("job-2", 1, nil, nil)
	q.Enqueue(ex1)
	q.Enqueue(ex2)

	snap := q.Snapshot()
	assert.Equal(t, 2, len(snap))
	assert.Equal(t, 2, q.Size())
	assert.Equal(t, ex1.Id, snap[0].Id)
}

func TestNewQueuesStartsEmpty(t *testing.T) {
	qs := NewQueues()
	assert.Equal(t, 0, qs.Pending.Size())
	assert.Equal(t, 0, qs.ModeratorHeld.Size())
}
