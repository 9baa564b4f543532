package execution

import (
	"context"
	"sync"

	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/store"
)

// fakeStore is an in-memory store.Store good enough to exercise Lifecycle
// without a real database, mirroring how the teacher's own packages test
// against hand-rolled fakes rather than a live backend.
type fakeStore struct {
	mu    sync.Mutex
	jobs  map[string]*model.Job
	execs map[string]*model.Execution
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*model.Job{}, execs: map[string]*model.Execution{}}
}

func (s *fakeStore) CreateJob(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Id] = job.Clone()
	return nil
}

func (s *fakeStore) GetJob(ctx context.Context, jobId string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobId]
	if !ok {
		return nil, store.ErrNotFound
	}
	return j.Clone(), nil
}

func (s *fakeStore) UpdateJob(ctx context.Context, jobId string, patch model.JobPatch) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobId]
	if !ok {
		return nil, store.ErrNotFound
	}
	j.ApplyPatch(patch)
	return j.Clone(), nil
}

func (s *fakeStore) GetJobs(ctx context.Context, from, size int) ([]*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	return out, nil
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
	s.execs[exId] = e
	return e.Clone(), nil
}

func (s *fakeStore) SearchExecutions(ctx context.Context, q store.Query, from, size int, sort store.Sort) ([]*model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Execution
	for _, e := range s.execs {
		if matchesStatus(q, e.Status) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

// matchesStatus is a deliberately narrow stand-in for the real SQL
// predicate renderer: these tests only ever filter executions by status.
func matchesStatus(q store.Query, s status.Status) bool {
	clause, args := q.Render()
	if clause == "" {
		return true
	}
	for _, a := range args {
		if a == string(s) {
			return true
		}
	}
	return false
}

func (s *fakeStore) GetLatestExecution(ctx context.Context, jobId string, onlyIfActive bool) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Execution
	for _, e := range s.execs {
		if e.JobId != jobId {
			continue
		}
		if onlyIfActive && !status.IsActive(e.Status) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return "", false, nil
	}
	return latest.Id, true, nil
}

func (s *fakeStore) Close() error { return nil }

// fakeCluster is a cluster.Service test double recording every call so
// tests can assert on fan-out scope and allocation requests.
type fakeCluster struct {
	mu              sync.Mutex
	nodes           []cluster.Node
	notifyErr       map[string]error
	notified        []string
	moderatorResult []cluster.ModeratorResult
	moderatorErr    error
}

func (c *fakeCluster) AvailableWorkers(ctx context.Context) (int, error) { return 8, nil }

func (c *fakeCluster) AllocateSlicer(ctx context.Context, ex *model.Execution, recover bool) error {
	return nil
}

func (c *fakeCluster) AllocateWorkers(ctx context.Context, ex *model.Execution, count int) error {
	return nil
}

func (c *fakeCluster) FindNodesForJob(ctx context.Context, exId string, slicerOnly bool) ([]cluster.Node, error) {
	if !slicerOnly {
		return c.nodes, nil
	}
	var out []cluster.Node
	for _, n := range c.nodes {
		if n.Slicer {
			out = append(out, n)
		}
	}
	return out, nil
}

func (c *fakeCluster) NotifyNode(ctx context.Context, nodeId string, msg status.ClusterMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notified = append(c.notified, nodeId)
	if c.notifyErr != nil {
		return c.notifyErr[nodeId]
	}
	return nil
}

func (c *fakeCluster) CheckModerator(ctx context.Context, conns model.ConnectionList) ([]cluster.ModeratorResult, error) {
	return c.moderatorResult, c.moderatorErr
}
