// Package allocator implements the Allocator Loop (C6): a single cooperative
// loop, driven by chrono on a periodic tick, that dequeues admitted
// executions and requests cluster capacity for them.
package allocator

import (
	"context"
	"sync/atomic"
	"time"

	"oss.nandlabs.io/execctl/admission"
	"oss.nandlabs.io/execctl/chrono"
	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/execution"
	"oss.nandlabs.io/execctl/l3"
	"oss.nandlabs.io/execctl/metrics"
	"oss.nandlabs.io/execctl/status"
)

var logger = l3.Get()

// tickJobID names the chrono job this package registers on its scheduler.
const tickJobID = "allocator:tick"

// defaultTickInterval is the "≈1 Hz" cadence spec §4.6 calls for.
const defaultTickInterval = time.Second

// defaultMinAvailableWorkers is the admission threshold: "slicer + at least
// one worker" (spec §4.6).
const defaultMinAvailableWorkers = 2

// Allocator drains admission.Queues.Pending against cluster capacity. busy
// serializes allocation attempts: at most one is in flight at a time, per
// spec §4.6 ("it holds a single boolean busy flag"). minAvailableWorkers is
// an atomic.Int32 rather than a constant since config.Watcher can adjust the
// admission threshold from a file-change goroutine while tick runs on the
// chrono scheduler's own goroutine.
type Allocator struct {
	queues              *admission.Queues
	cluster             cluster.Service
	lifecycle           *execution.Lifecycle
	scheduler           chrono.Scheduler
	busy                atomic.Bool
	minAvailableWorkers atomic.Int32
}

// New wires an Allocator over queues/clusterService/lifecycle, using
// scheduler to drive its periodic tick. scheduler is not started here —
// call Start.
func New(queues *admission.Queues, clusterService cluster.Service, lifecycle *execution.Lifecycle, scheduler chrono.Scheduler) *Allocator {
	a := &Allocator{queues: queues, cluster: clusterService, lifecycle: lifecycle, scheduler: scheduler}
	a.minAvailableWorkers.Store(defaultMinAvailableWorkers)
	return a
}

// SetMinAvailableWorkers updates the admission threshold. Safe to call
// concurrently with tick.
func (a *Allocator) SetMinAvailableWorkers(n int) {
	a.minAvailableWorkers.Store(int32(n))
}

// Start registers the periodic tick job and starts the underlying
// scheduler. Safe to call once.
func (a *Allocator) Start() error {
	if err := a.scheduler.AddIntervalJob(tickJobID, "allocator tick", func(ctx context.Context) error {
		return a.tick(ctx)
	}, defaultTickInterval); err != nil {
		return err
	}
	return a.scheduler.Start()
}

// Stop stops the underlying scheduler.
func (a *Allocator) Stop() error {
	return a.scheduler.Stop()
}

// tick runs allocateOnce repeatedly until it admits nothing further — the
// "drains itself after each successful allocation" behavior from spec §4.6
// — or busy is already held by a concurrent tick, in which case it returns
// immediately.
func (a *Allocator) tick(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.AllocatorCycleDuration.Observe(time.Since(start).Seconds()) }()
	for {
		if !a.busy.CompareAndSwap(false, true) {
			return nil
		}
		admitted, err := a.allocateOnce(ctx)
		a.busy.Store(false)
		if err != nil {
			logger.ErrorF("allocator: tick failed: %v", err)
			return err
		}
		if !admitted {
			return nil
		}
	}
}

// allocateOnce attempts exactly one allocation. admitted reports whether an
// execution was dequeued and driven through allocation (even if allocation
// itself ultimately failed) — the caller uses it to decide whether to
// self-drain again.
func (a *Allocator) allocateOnce(ctx context.Context) (admitted bool, err error) {
	if a.queues.Pending.Size() == 0 {
		return false, nil
	}
	available, err := a.cluster.AvailableWorkers(ctx)
	if err != nil {
		return false, err
	}
	if available < int(a.minAvailableWorkers.Load()) {
		return false, nil
	}

	ex, err := a.queues.Pending.Dequeue()
	if err != nil {
		return false, nil
	}
	recover := ex.Recover

	if _, err := a.lifecycle.SetStatus(ctx, ex.Id, status.Scheduling, nil); err != nil {
		return true, err
	}

	if err := a.cluster.AllocateSlicer(ctx, ex, recover); err != nil {
		logger.WarnF("allocator: slicer allocation failed for %s: %v", ex.Id, err)
		_, serr := a.lifecycle.SetStatus(ctx, ex.Id, status.Failed, map[string]interface{}{
			"_failureReason": err.Error(),
		})
		return true, serr
	}

	if _, err := a.lifecycle.SetStatus(ctx, ex.Id, status.Initializing, nil); err != nil {
		return true, err
	}

	if err := a.cluster.AllocateWorkers(ctx, ex, ex.Workers); err != nil {
		// Worker allocation failure does not fail the execution — it stays
		// initializing. This is intentionally asymmetric with the slicer
		// path above: cluster events (slicer:initialized or a later
		// failure) are what eventually move it forward, per spec §4.6/§9.
		logger.WarnF("allocator: worker allocation failed for %s, staying initializing: %v", ex.Id, err)
		return true, nil
	}

	return true, nil
}
