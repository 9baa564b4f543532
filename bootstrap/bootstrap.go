// Package bootstrap implements Bootstrap & Shutdown (C8): reconstituting
// the in-memory admission queues from durable state on startup, and
// draining active executions on a controlled shutdown.
package bootstrap

import (
	"context"
	"sync"

	"oss.nandlabs.io/execctl/allocator"
	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/errutils"
	"oss.nandlabs.io/execctl/execution"
	"oss.nandlabs.io/execctl/l3"
	"oss.nandlabs.io/execctl/lifecycle"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/store"
)

var logger = l3.Get()

// bootstrapPageSize bounds how many pending executions a single startup
// scan re-enqueues, per spec §4.8 step 3.
const bootstrapPageSize = store.SearchCeiling

// Controller owns the bootstrap/shutdown sequence and exposes itself as a
// lifecycle.Component so the daemon entrypoint can register it alongside
// its other components.
type Controller struct {
	Store     store.Store
	Cluster   cluster.Service
	Lifecycle *execution.Lifecycle
	Allocator *allocator.Allocator
}

// New returns a Controller over the given collaborators.
func New(st store.Store, clusterService cluster.Service, lc *execution.Lifecycle, alloc *allocator.Allocator) *Controller {
	return &Controller{Store: st, Cluster: clusterService, Lifecycle: lc, Allocator: alloc}
}

// Component wraps Bootstrap/Shutdown as a lifecycle.Component, so start
// order and graceful shutdown are driven the same way every other teacher
// daemon component is.
func (c *Controller) Component(id string) lifecycle.Component {
	return &lifecycle.SimpleComponent{
		CompId:    id,
		StartFunc: func() error { return c.Bootstrap(context.Background()) },
		StopFunc:  func() error { return c.Shutdown(context.Background()) },
	}
}

// Bootstrap implements spec §4.8's startup sequence. The store is assumed
// already open (the daemon entrypoint owns that, since it also owns
// Shutdown's matching close).
func (c *Controller) Bootstrap(ctx context.Context) error {
	if err := c.reconcileRunning(ctx); err != nil {
		return err
	}
	if err := c.requeuePending(ctx); err != nil {
		return err
	}
	return c.Allocator.Start()
}

// reconcileRunning resolves the open question spec §9 leaves for
// previously-running executions: ask the cluster whether any node still
// claims each one. A claimed execution is left running untouched; an
// unclaimed one is treated exactly like cluster_service:cleanup_job would
// treat it — recovered via RestartExecution.
func (c *Controller) reconcileRunning(ctx context.Context) error {
	running, err := c.Store.SearchExecutions(ctx, store.And(store.StatusEq(status.Running)), 0, bootstrapPageSize, store.Sort{Field: "_created"})
	if err != nil {
		return err
	}
	for _, ex := range running {
		nodes, err := c.Cluster.FindNodesForJob(ctx, ex.Id, false)
		if err != nil {
			return err
		}
		if len(nodes) > 0 {
			continue
		}
		logger.WarnF("bootstrap: execution %s was running with no claiming node, recovering", ex.Id)
		if err := c.Lifecycle.RestartExecution(ctx, ex.Id); err != nil {
			return err
		}
	}
	return nil
}

// requeuePending re-enqueues every execution left pending from a prior run,
// oldest first, up to bootstrapPageSize — spec §4.8 step 3.
func (c *Controller) requeuePending(ctx context.Context) error {
	pending, err := c.Store.SearchExecutions(ctx, store.And(store.StatusEq(status.Pending)), 0, bootstrapPageSize, store.Sort{Field: "_created"})
	if err != nil {
		return err
	}
	for _, ex := range pending {
		if err := c.Lifecycle.Queues.Pending.Enqueue(ex); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown implements spec §4.8's shutdown sequence: stop every active
// execution (fan out a stop message, then write terminated — not stopped,
// so a controller-initiated shutdown is distinguishable from a user
// command), then close both stores regardless of per-execution errors.
func (c *Controller) Shutdown(ctx context.Context) error {
	if err := c.Allocator.Stop(); err != nil {
		logger.WarnF("bootstrap: allocator stop: %v", err)
	}

	var errs errutils.MultiError
	active, err := c.Store.SearchExecutions(ctx, store.And(store.StatusAny(status.ActiveStatuses()...)), 0, bootstrapPageSize, store.Sort{Field: "_created"})
	if err != nil {
		errs.Add(err)
	}
	for _, ex := range active {
		if err := c.terminate(ctx, ex); err != nil {
			errs.Add(err)
		}
	}

	if err := c.Store.Close(); err != nil {
		errs.Add(err)
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

// terminate fans the stop message out to every node running ex, then
// writes the terminated status regardless of whether any node
// acknowledged — this is shutdown, not notify(): the controller is going
// away either way.
func (c *Controller) terminate(ctx context.Context, ex *model.Execution) error {
	nodes, err := c.Cluster.FindNodesForJob(ctx, ex.Id, false)
	if err != nil {
		logger.WarnF("bootstrap: shutdown: find nodes for %s: %v", ex.Id, err)
	}

	msg := status.ClusterMessage{Kind: status.MsgJobStop, Scope: status.AllNodes}
	var wg sync.WaitGroup
	wg.Add(len(nodes))
	for _, n := range nodes {
		go func(n cluster.Node) {
			defer wg.Done()
			if err := c.Cluster.NotifyNode(ctx, n.Id, msg); err != nil {
				logger.WarnF("bootstrap: shutdown: notify node %s for %s: %v", n.Id, ex.Id, err)
			}
		}(n)
	}
	wg.Wait()

	_, err = c.Lifecycle.SetStatus(ctx, ex.Id, status.Terminated, nil)
	return err
}
