// Package execution is the Execution Lifecycle (C5): the state machine that
// ties the store, admission queues, moderator gate, cluster service and
// event bus together. Every exported method here corresponds to one
// operation from spec §4.5; the event-driven transitions of that same
// section are installed by RegisterHandlers.
package execution

import (
	"context"
	"fmt"
	"sync"

	"oss.nandlabs.io/execctl/admission"
	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/errutils"
	"oss.nandlabs.io/execctl/events"
	"oss.nandlabs.io/execctl/l3"
	"oss.nandlabs.io/execctl/metrics"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/moderator"
	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/store"
)

var logger = l3.Get()

// JobSpec is the input to SubmitJob: a job definition with human-readable
// asset names, not yet resolved or persisted.
type JobSpec struct {
	Name        string
	Lifecycle   model.Lifecycle
	WorkerCount int
	Pipeline    []model.Operation
	Assets      []string
	Moderators  model.ConnectionList
}

// Validator checks a resolved job spec before it is persisted. A non-nil
// error fails submission with ErrValidation.
type Validator func(job *model.Job) error

// Lifecycle wires the collaborators every C5 operation needs. Nothing here
// is safe for concurrent use beyond what its fields document: per spec §5
// every method is expected to run on the single logical scheduler task,
// except the asset-resolution and moderator-gate fan-out inside
// CreateExecutionContext, which are internally concurrent by design.
type Lifecycle struct {
	Store    store.Store
	Queues   *admission.Queues
	Gate     *moderator.Gate
	Cluster  cluster.Service
	Bus      *events.Bus
	Validate Validator
}

// New returns a Lifecycle over the given collaborators. validate may be nil,
// in which case SubmitJob skips validation.
func New(st store.Store, queues *admission.Queues, gate *moderator.Gate, clusterService cluster.Service, bus *events.Bus, validate Validator) *Lifecycle {
	return &Lifecycle{Store: st, Queues: queues, Gate: gate, Cluster: clusterService, Bus: bus, Validate: validate}
}

// SubmitJob implements spec §4.5 submitJob: resolve assets, validate,
// persist the Job (under its original asset names), and — if shouldRun —
// create its first Execution. Returns the persisted job_id.
func (l *Lifecycle) SubmitJob(ctx context.Context, spec JobSpec, shouldRun bool) (string, error) {
	job, err := model.NewJob(spec.Name, spec.Lifecycle, spec.WorkerCount, spec.Pipeline)
	if err != nil {
		return "", err
	}
	job.Assets = append([]string(nil), spec.Assets...)
	job.Moderators = spec.Moderators

	resolvedAssets, err := l.resolveAssets(ctx, spec.Assets)
	if err != nil {
		return "", err
	}

	if l.Validate != nil {
		// Validation runs against the resolved spec (spec §4.5 step 2): a
		// shallow clone carrying resolved asset ids in place of names, so a
		// validator can check that every asset actually resolved without the
		// persisted Job ever holding resolved ids itself.
		resolvedView := job.Clone()
		resolvedView.Assets = resolvedAssets
		if err := l.Validate(resolvedView); err != nil {
			return "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	if err := l.Store.CreateJob(ctx, job); err != nil {
		return "", err
	}

	if !shouldRun {
		return job.Id, nil
	}

	if _, err := l.createExecutionContext(ctx, job, resolvedAssets); err != nil {
		return "", err
	}
	return job.Id, nil
}

// resolveAssets asks the event bus's asset subsystem to map every requested
// name to a content id, in declaration order. An empty names list resolves
// to a nil slice without a round trip.
func (l *Lifecycle) resolveAssets(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	resolved, err := l.Bus.ResolveAssets(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetResolution, err)
	}
	out := make([]string, len(names))
	for i, name := range names {
		id, ok := resolved[name]
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: %q did not resolve", ErrAssetResolution, name)
		}
		out[i] = id
	}
	if len(out) != len(names) {
		return nil, ErrAssetResolution
	}
	return out, nil
}

// createExecutionContext implements spec §4.5 createExecution: persist the
// Execution, set it pending, and — concurrently — consult the Moderator
// Gate, before routing it into the matching admission queue.
func (l *Lifecycle) createExecutionContext(ctx context.Context, job *model.Job, resolvedAssets []string) (*model.Execution, error) {
	ex, err := model.NewExecution(job.Id, job.WorkerCount, job.Pipeline, resolvedAssets)
	if err != nil {
		return nil, err
	}
	if err := l.Store.CreateExecution(ctx, ex); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		errs     errutils.MultiError
		gateOK   bool
		statusEx *model.Execution
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		updated, err := l.SetStatus(ctx, ex.Id, status.Pending, nil)
		if err != nil {
			errs.Add(err)
			return
		}
		statusEx = updated
	}()

	go func() {
		defer wg.Done()
		ok, err := l.Gate.Check(ctx, job.Moderators)
		if err != nil {
			errs.Add(err)
			return
		}
		gateOK = ok
	}()

	wg.Wait()
	if errs.HasErrors() {
		return nil, &errs
	}

	if statusEx != nil {
		ex = statusEx
	}
	if gateOK {
		if err := l.Queues.Pending.Enqueue(ex); err != nil {
			return nil, err
		}
	} else {
		if err := l.Queues.ModeratorHeld.Enqueue(ex); err != nil {
			return nil, err
		}
	}
	return ex, nil
}

// StartJob implements spec §4.5 startJob: fetch the job, resolve its
// declared assets again, and create a fresh execution context for it.
func (l *Lifecycle) StartJob(ctx context.Context, jobId string) (string, error) {
	job, err := l.Store.GetJob(ctx, jobId)
	if err != nil {
		return "", err
	}
	resolvedAssets, err := l.resolveAssets(ctx, job.Assets)
	if err != nil {
		return "", err
	}
	if _, err := l.createExecutionContext(ctx, job, resolvedAssets); err != nil {
		return "", err
	}
	return job.Id, nil
}

// RestartExecution implements spec §4.5 restartExecution: fetch the
// execution, reject it if it is completed or already scheduling, otherwise
// mark it recovered and enqueue it at the tail of pending — no moderator
// re-check, no status write (status becomes scheduling only once the
// allocator dequeues it).
func (l *Lifecycle) RestartExecution(ctx context.Context, exId string) error {
	ex, err := l.Store.GetExecution(ctx, exId)
	if err != nil {
		return err
	}
	switch ex.Status {
	case status.Completed:
		return ErrCompletedNotRestartable
	case status.Scheduling:
		return ErrAlreadyScheduling
	}

	recover := true
	if _, err := l.Store.UpdateExecution(ctx, exId, model.ExecutionPatch{Recover: &recover}); err != nil {
		return err
	}
	ex.Recover = true
	return l.Queues.Pending.Enqueue(ex)
}

// Notify implements spec §4.5 notify: validate the command, fan the mapped
// cluster message out to the scoped node set, then write the resulting
// status. Returns the new status.
func (l *Lifecycle) Notify(ctx context.Context, exId string, cmd status.Command) (status.Status, error) {
	if !cmd.Notifiable() {
		return "", status.ErrInvalidCommand
	}
	msg, _ := status.MessageFor(cmd)
	newStatus, _ := status.StatusFor(cmd)

	nodes, err := l.Cluster.FindNodesForJob(ctx, exId, msg.Scope == status.SlicerOnly)
	if err != nil {
		return "", err
	}

	var (
		wg   sync.WaitGroup
		errs errutils.MultiError
	)
	wg.Add(len(nodes))
	for _, n := range nodes {
		go func(n cluster.Node) {
			defer wg.Done()
			if err := l.Cluster.NotifyNode(ctx, n.Id, msg); err != nil {
				errs.Add(fmt.Errorf("node %s: %w", n.Id, err))
			}
		}(n)
	}
	wg.Wait()
	if errs.HasErrors() {
		return "", fmt.Errorf("%w: %v", ErrNotifyFailed, &errs)
	}

	if _, err := l.SetStatus(ctx, exId, newStatus, nil); err != nil {
		return "", err
	}
	return newStatus, nil
}

// SetStatus implements spec §4.5 setStatus: validate status is a member of
// the status set, then merge {_status, metadata...} into the execution
// record via the store.
func (l *Lifecycle) SetStatus(ctx context.Context, exId string, s status.Status, metadata map[string]interface{}) (*model.Execution, error) {
	if !status.IsValid(s) {
		return nil, status.ErrInvalidStatus
	}
	raw := map[string]interface{}{"_status": string(s)}
	for k, v := range metadata {
		raw[k] = v
	}
	patch, err := store.DecodeExecutionPatch(raw)
	if err != nil {
		return nil, err
	}
	ex, err := l.Store.UpdateExecution(ctx, exId, patch)
	if err == nil {
		metrics.ExecutionStatusTransitions.WithLabelValues(string(s)).Inc()
	}
	return ex, err
}
