package model

import (
	"time"

	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/uuid"
)

// ErrorState is the `_has_errors` metadata value set on terminal or
// failing transitions. "recovered" distinguishes a completion that followed
// a restart from a clean first-attempt completion.
type ErrorState string

const (
	NoErrors   ErrorState = ""
	HasErrors  ErrorState = "true"
	Recovered  ErrorState = "recovered"
)

// Execution is one run of a Job. A Job can have many Executions over its
// lifetime (one per restart); getLatestExecution always means the Execution
// with the highest CreatedAt for a given JobId.
type Execution struct {
	Id          string            `json:"ex_id"`
	Context     string            `json:"_context"`
	JobId       string            `json:"job_id"`
	Status      status.Status     `json:"_status"`
	Pipeline    []Operation       `json:"operations"`
	Assets      []string          `json:"resolved_assets,omitempty"`
	Workers     int               `json:"workers"`
	Recover     bool              `json:"_recover_execution"`
	HasErrors   ErrorState        `json:"_has_errors,omitempty"`
	FailureReason string          `json:"_failureReason,omitempty"`
	SlicerStats SlicerStats       `json:"_slicer_stats"`
	ClusterNodes []string         `json:"_node_ids,omitempty"`
	CreatedAt   time.Time         `json:"_created"`
	UpdatedAt   time.Time         `json:"_updated"`
}

// SlicerStats is the small, well-known set of counters the allocator and
// transport layer report back to callers polling an execution. It is a typed
// struct rather than an opaque map because every field it carries is fixed
// by the lifecycle state machine, not by job-specific config.
type SlicerStats struct {
	SlicesProcessed int `json:"slices_processed"`
	SlicesFailed    int `json:"slices_failed"`
	WorkersJoined   int `json:"workers_joined"`
}

// NewExecution creates the Execution record for a freshly admitted Job,
// always starting in status.Pending. pipeline and assets are the job's
// operator pipeline and resolved asset ids snapshotted at submission time.
func NewExecution(jobId string, workers int, pipeline []Operation, resolvedAssets []string) (*Execution, error) {
	id, err := uuid.V4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Execution{
		Id:        id.String(),
		Context:   "ex",
		JobId:     jobId,
		Status:    status.Pending,
		Pipeline:  pipeline,
		Assets:    resolvedAssets,
		Workers:   workers,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy so callers can mutate a returned Execution
// without corrupting whatever the store or cache is holding onto.
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Pipeline != nil {
		clone.Pipeline = append([]Operation(nil), e.Pipeline...)
	}
	if e.Assets != nil {
		clone.Assets = append([]string(nil), e.Assets...)
	}
	if e.ClusterNodes != nil {
		clone.ClusterNodes = append([]string(nil), e.ClusterNodes...)
	}
	return &clone
}

// SetStatus writes s and bumps UpdatedAt. It does not validate the
// transition — that is execution.setStatus's job, since only it knows the
// legal transition table; Execution itself is dumb data.
func (e *Execution) SetStatus(s status.Status) {
	e.Status = s
	e.UpdatedAt = time.Now().UTC()
}

func (e *Execution) touch() {
	e.UpdatedAt = time.Now().UTC()
}

// statusOf is a small helper so ApplyPatch doesn't need to import status
// under a different name just to convert a string.
func statusOf(s string) status.Status { return status.Status(s) }
