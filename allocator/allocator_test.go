package allocator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"oss.nandlabs.io/execctl/admission"
	"oss.nandlabs.io/execctl/chrono"
	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/events"
	"oss.nandlabs.io/execctl/execution"
	"oss.nandlabs.io/execctl/messaging"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/moderator"
	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/store"
	"oss.nandlabs.io/execctl/testing/assert"
)

// fakeStore is the minimal in-memory store.Store this package's tests need;
// it is not shared with the execution package's own fake since that one is
// unexported there.
type fakeStore struct {
	mu    sync.Mutex
	execs map[string]*model.Execution
}

func newFakeStore() *fakeStore { return &fakeStore{execs: map[string]*model.Execution{}} }

func (s *fakeStore) CreateJob(ctx context.Context, job *model.Job) error { return nil }
func (s *fakeStore) GetJob(ctx context.Context, jobId string) (*model.Job, error) {
	return nil, store.ErrNotFound
}
func (s *fakeStore) UpdateJob(ctx context.Context, jobId string, patch model.JobPatch) (*model.Job, error) {
	return nil, store.ErrNotFound
}
func (s *fakeStore) GetJobs(ctx context.Context, from, size int) ([]*model.Job, error) {
	return nil, nil
}
func (s *fakeStore) CreateExecution(ctx context.Context, ex *model.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs[ex.Id] = ex.Clone()
	return nil
}
func (s *fakeStore) GetExecution(ctx context.Context, exId string) (*model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[exId]
	if !ok {
		return nil, store.ErrNotFound
	}
	return e.Clone(), nil
}
func (s *fakeStore) UpdateExecution(ctx context.Context, exId string, patch model.ExecutionPatch) (*model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.execs[exId]
	if !ok {
		return nil, store.ErrNotFound
	}
	e.ApplyPatch(patch)
	return e.Clone(), nil
}
func (s *fakeStore) SearchExecutions(ctx context.Context, q store.Query, from, size int, sort store.Sort) ([]*model.Execution, error) {
	return nil, nil
}
func (s *fakeStore) GetLatestExecution(ctx context.Context, jobId string, onlyIfActive bool) (string, bool, error) {
	return "", false, nil
}
func (s *fakeStore) Close() error { return nil }

type fakeCluster struct {
	available     int
	slicerErr     error
	workersErr    error
	allocatedSlicer int
	allocatedWorkers int
}

func (c *fakeCluster) AvailableWorkers(ctx context.Context) (int, error) { return c.available, nil }
func (c *fakeCluster) AllocateSlicer(ctx context.Context, ex *model.Execution, recover bool) error {
	c.allocatedSlicer++
	return c.slicerErr
}
func (c *fakeCluster) AllocateWorkers(ctx context.Context, ex *model.Execution, count int) error {
	c.allocatedWorkers++
	return c.workersErr
}
func (c *fakeCluster) FindNodesForJob(ctx context.Context, exId string, slicerOnly bool) ([]cluster.Node, error) {
	return nil, nil
}
func (c *fakeCluster) NotifyNode(ctx context.Context, nodeId string, msg status.ClusterMessage) error {
	return nil
}
func (c *fakeCluster) CheckModerator(ctx context.Context, conns model.ConnectionList) ([]cluster.ModeratorResult, error) {
	return nil, nil
}

func newTestAllocator(t *testing.T, fc *fakeCluster) (*Allocator, *admission.Queues, *fakeStore) {
	t.Helper()
	bus, err := events.NewBus(&messaging.LocalProvider{})
	assert.NoError(t, err)
	st := newFakeStore()
	queues := admission.NewQueues()
	gate := moderator.New(fc, "state-store")
	lc := execution.New(st, queues, gate, fc, bus, nil)
	sched := chrono.New()
	return New(queues, fc, lc, sched), queues, st
}

func seedPending(t *testing.T, st *fakeStore, queues *admission.Queues, workers int) *model.Execution {
	t.Helper()
	ex, err := model.NewExecution("job-1", workers, nil, nil)
	assert.NoError(t, err)
	assert.NoError(t, st.CreateExecution(context.Background(), ex))
	assert.NoError(t, queues.Pending.Enqueue(ex))
	return ex
}

func TestAllocateOnceDefersWhenBelowThreshold(t *testing.T) {
	fc := &fakeCluster{available: 1}
	a, queues, st := newTestAllocator(t, fc)
	seedPending(t, st, queues, 2)

	admitted, err := a.allocateOnce(context.Background())
	assert.NoError(t, err)
	assert.False(t, admitted)
	assert.Equal(t, 1, queues.Pending.Size())
}

func TestAllocateOnceSucceedsThroughInitializing(t *testing.T) {
	fc := &fakeCluster{available: 4}
	a, queues, st := newTestAllocator(t, fc)
	ex := seedPending(t, st, queues, 2)

	admitted, err := a.allocateOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, admitted)
	assert.Equal(t, 0, queues.Pending.Size())

	got, err := st.GetExecution(context.Background(), ex.Id)
	assert.NoError(t, err)
	assert.Equal(t, status.Initializing, got.Status)
	assert.Equal(t, 1, fc.allocatedSlicer)
	assert.Equal(t, 1, fc.allocatedWorkers)
}

func TestAllocateOnceSlicerFailureMarksFailed(t *testing.T) {
	fc := &fakeCluster{available: 4, slicerErr: errors.New("no capacity")}
	a, queues, st := newTestAllocator(t, fc)
	ex := seedPending(t, st, queues, 2)

	admitted, err := a.allocateOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, admitted)

	got, err := st.GetExecution(context.Background(), ex.Id)
	assert.NoError(t, err)
	assert.Equal(t, status.Failed, got.Status)
	assert.Equal(t, 0, fc.allocatedWorkers)
}

func TestAllocateOnceWorkerFailureStaysInitializing(t *testing.T) {
	fc := &fakeCluster{available: 4, workersErr: errors.New("no workers free")}
	a, queues, st := newTestAllocator(t, fc)
	ex := seedPending(t, st, queues, 2)

	admitted, err := a.allocateOnce(context.Background())
	assert.NoError(t, err)
	assert.True(t, admitted)

	got, err := st.GetExecution(context.Background(), ex.Id)
	assert.NoError(t, err)
	assert.Equal(t, status.Initializing, got.Status)
}

func TestTickSelfDrainsUntilPendingEmpty(t *testing.T) {
	fc := &fakeCluster{available: 4}
	a, queues, st := newTestAllocator(t, fc)
	seedPending(t, st, queues, 1)
	seedPending(t, st, queues, 1)
	seedPending(t, st, queues, 1)

	assert.NoError(t, a.tick(context.Background()))
	assert.Equal(t, 0, queues.Pending.Size())
	assert.Equal(t, 3, fc.allocatedSlicer)
}

func TestTickReturnsImmediatelyWhenAlreadyBusy(t *testing.T) {
	fc := &fakeCluster{available: 4}
	a, queues, st := newTestAllocator(t, fc)
	seedPending(t, st, queues, 1)
	a.busy.Store(true)

	assert.NoError(t, a.tick(context.Background()))
	assert.Equal(t, 1, queues.Pending.Size())
	a.busy.Store(false)
}
