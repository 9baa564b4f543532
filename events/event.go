// Package events is the Event Router (C7): it subscribes to the
// process-wide event bus and translates external events into lifecycle
// calls, per spec §4.5's transition table and §6's message inventory.
package events

import "oss.nandlabs.io/execctl/model"

// Kind is one of the event bus message kinds the core consumes or emits.
type Kind string

const (
	// Consumed.
	SlicerInitialized       Kind = "slicer:initialized"
	ClusterJobFinished      Kind = "cluster:job_finished"
	ClusterJobFailure       Kind = "cluster:job_failure"
	ClusterSlicerFailure    Kind = "cluster:slicer_failure"
	SlicerProcessingError   Kind = "slicer:processing:error"
	SlicerJobUpdate         Kind = "slicer:job:update"
	ClusterServiceCleanupJob Kind = "cluster_service:cleanup_job"
	ModerateJobsPause       Kind = "moderate_jobs:pause"
	ModerateJobsResume      Kind = "moderate_jobs:resume"

	// Emitted.
	JobsServiceVerifyAssets Kind = "jobs_service:verify_assets"

	// assetReply is the kind the asset subsystem answers verify_assets
	// requests with; it always carries the same correlation id as the
	// request so Bus can route it to the one-shot waiter instead of the
	// general handler registry.
	assetReply Kind = "jobs_service:verify_assets:reply"
)

// Event is the single wire shape for every message on the bus. Payload
// fields are optional and interpreted per Kind; this keeps the transport
// (messaging.Message JSON body) uniform while §4.5's table still reads as a
// switch over Kind in the router.
type Event struct {
	Kind          Kind             `json:"kind"`
	ExId          string           `json:"ex_id,omitempty"`
	JobId         string           `json:"job_id,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	SlicerStats   *model.SlicerStats `json:"slicer_stats,omitempty"`
	Operations    []model.Operation  `json:"operations,omitempty"`
	Connections   []string         `json:"connections,omitempty"`
	Assets        []string         `json:"assets,omitempty"`
	ResolvedAssets map[string]string `json:"resolved_assets,omitempty"`
	Error         string           `json:"error,omitempty"`
	CorrelationId string           `json:"correlation_id,omitempty"`
}
