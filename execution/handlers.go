package execution

import (
	"context"

	"oss.nandlabs.io/execctl/events"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/store"
)

// RegisterHandlers installs the event-driven transition table from spec
// §4.5 onto bus. Handlers only read/write the stores and the admission
// queues — none of them touch the allocator's busy flag (spec §4.7).
func (l *Lifecycle) RegisterHandlers(bus *events.Bus) {
	bus.RegisterHandler(events.SlicerInitialized, l.onSlicerInitialized)
	bus.RegisterHandler(events.ClusterJobFinished, l.onClusterJobFinished)
	bus.RegisterHandler(events.ClusterJobFailure, l.onClusterJobFailure)
	bus.RegisterHandler(events.ClusterSlicerFailure, l.onClusterSlicerFailure)
	bus.RegisterHandler(events.SlicerProcessingError, l.onSlicerProcessingError)
	bus.RegisterHandler(events.SlicerJobUpdate, l.onSlicerJobUpdate)
	bus.RegisterHandler(events.ClusterServiceCleanupJob, l.onCleanupJob)
	bus.RegisterHandler(events.ModerateJobsPause, l.onModeratePause)
	bus.RegisterHandler(events.ModerateJobsResume, l.onModerateResume)
}

func (l *Lifecycle) onSlicerInitialized(ctx context.Context, evt events.Event) error {
	_, err := l.SetStatus(ctx, evt.ExId, status.Running, nil)
	return err
}

func (l *Lifecycle) onClusterJobFinished(ctx context.Context, evt events.Event) error {
	meta := map[string]interface{}{}
	if evt.SlicerStats != nil {
		meta["_slicer_stats"] = *evt.SlicerStats
	}
	ex, err := l.Store.GetExecution(ctx, evt.ExId)
	if err != nil {
		return err
	}
	if ex.Recover {
		meta["_has_errors"] = string(model.Recovered)
	}
	_, err = l.SetStatus(ctx, evt.ExId, status.Completed, meta)
	return err
}

func (l *Lifecycle) onClusterJobFailure(ctx context.Context, evt events.Event) error {
	return l.failExecution(ctx, evt)
}

func (l *Lifecycle) onClusterSlicerFailure(ctx context.Context, evt events.Event) error {
	return l.failExecution(ctx, evt)
}

func (l *Lifecycle) failExecution(ctx context.Context, evt events.Event) error {
	meta := map[string]interface{}{"_has_errors": string(model.HasErrors)}
	if evt.FailureReason != "" {
		meta["_failureReason"] = evt.FailureReason
	}
	if evt.SlicerStats != nil {
		meta["_slicer_stats"] = *evt.SlicerStats
	}
	_, err := l.SetStatus(ctx, evt.ExId, status.Failed, meta)
	return err
}

func (l *Lifecycle) onSlicerProcessingError(ctx context.Context, evt events.Event) error {
	// Terminal transition to failed comes later from cluster:job_failure;
	// this is an intermediate "it's going wrong" signal, spec §4.5.
	_, err := l.SetStatus(ctx, evt.ExId, status.Failing, map[string]interface{}{
		"_has_errors": string(model.HasErrors),
	})
	return err
}

func (l *Lifecycle) onSlicerJobUpdate(ctx context.Context, evt events.Event) error {
	_, err := l.Store.UpdateExecution(ctx, evt.ExId, model.ExecutionPatch{Pipeline: evt.Operations})
	return err
}

func (l *Lifecycle) onCleanupJob(ctx context.Context, evt events.Event) error {
	ex, err := l.Store.GetExecution(ctx, evt.ExId)
	if err != nil {
		return err
	}
	switch ex.Status {
	case status.Running, status.Failing, status.Paused:
		return l.RestartExecution(ctx, evt.ExId)
	default:
		return nil
	}
}

func (l *Lifecycle) onModeratePause(ctx context.Context, evt events.Event) error {
	candidates, err := l.Store.SearchExecutions(ctx, store.And(store.StatusAny(status.Running, status.Failing)), 0, store.SearchCeiling, store.Sort{Field: "_created"})
	if err != nil {
		return err
	}
	for _, ex := range candidates {
		touches, err := l.executionTouchesAny(ctx, ex, evt.Connections)
		if err != nil {
			return err
		}
		if !touches {
			continue
		}
		if _, err := l.Notify(ctx, ex.Id, status.CmdModeratorPaused); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lifecycle) onModerateResume(ctx context.Context, evt events.Event) error {
	for _, ex := range l.Queues.ModeratorHeld.Snapshot() {
		job, err := l.Store.GetJob(ctx, ex.JobId)
		if err != nil {
			return err
		}
		ok, err := l.Gate.Check(ctx, job.Moderators)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if l.Queues.ModeratorHeld.Remove(ex.Id) {
			if err := l.Queues.Pending.PromoteFront(ex); err != nil {
				return err
			}
		}
	}

	held, err := l.Store.SearchExecutions(ctx, store.And(store.StatusEq(status.ModeratorPaused)), 0, store.SearchCeiling, store.Sort{Field: "_created"})
	if err != nil {
		return err
	}
	for _, ex := range held {
		touches, err := l.executionTouchesAny(ctx, ex, evt.Connections)
		if err != nil {
			return err
		}
		if !touches {
			continue
		}
		if _, err := l.Notify(ctx, ex.Id, status.CmdResume); err != nil {
			return err
		}
	}
	return nil
}

// executionTouchesAny reports whether ex's owning Job declares a moderator
// dependency on any connection named in names, regardless of connection
// type — moderate_jobs events identify connections by name only.
func (l *Lifecycle) executionTouchesAny(ctx context.Context, ex *model.Execution, names []string) (bool, error) {
	job, err := l.Store.GetJob(ctx, ex.JobId)
	if err != nil {
		return false, err
	}
	for _, conns := range job.Moderators {
		for _, c := range conns {
			for _, n := range names {
				if c == n {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
