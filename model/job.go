// Package model holds the Job and Execution domain structs shared by store,
// admission, execution and allocator. Nothing in this package talks to
// persistence, the cluster, or the event bus — it is pure data plus the
// deep-copy and partial-update semantics every other package relies on.
package model

import (
	"time"

	"oss.nandlabs.io/execctl/uuid"
)

// Lifecycle is the job's declared run-once-or-keep-running flag.
type Lifecycle string

const (
	// Once jobs run a single execution to completion and are not
	// automatically restarted.
	Once Lifecycle = "once"
	// Persistent jobs are expected to be restarted by the operator
	// (restartExecution) whenever their execution terminates unexpectedly.
	Persistent Lifecycle = "persistent"
)

// ConnectionList maps a connection type (e.g. "elasticsearch", "kafka") to
// the set of named connections of that type a job reads or writes. It is
// what the Moderator Gate consults before admission.
type ConnectionList map[string][]string

// Operation is one stage of a job's processing pipeline. The core treats it
// as opaque configuration — it is persisted and handed to the cluster
// service unexamined.
type Operation map[string]interface{}

// Job is the durable submission record. It never changes status itself —
// status lives on the Execution records created from it. Context is always
// "job"; it is carried on the struct (rather than inferred from which
// collection the record lives in) so a single generic decode path in store
// can tell jobs and executions apart.
type Job struct {
	Id           string         `json:"job_id"`
	Context      string         `json:"_context"`
	Name         string         `json:"name"`
	Lifecycle    Lifecycle      `json:"lifecycle"`
	WorkerCount  int            `json:"workers"`
	Pipeline     []Operation    `json:"operations"`
	Assets       []string       `json:"assets,omitempty"`
	Moderators   ConnectionList `json:"moderator_connections,omitempty"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"_created"`
	UpdatedAt    time.Time      `json:"_updated"`
}

// NewJob builds a Job with a fresh id and the creation/update timestamps set
// to now. Callers that need a deterministic id (e.g. tests) should set Id
// after construction.
func NewJob(name string, lifecycle Lifecycle, workerCount int, pipeline []Operation) (*Job, error) {
	id, err := uuid.V4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Job{
		Id:          id.String(),
		Context:     "job",
		Name:        name,
		Lifecycle:   lifecycle,
		WorkerCount: workerCount,
		Pipeline:    pipeline,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Clone returns a deep copy so callers can mutate a returned Job without
// corrupting whatever the store or cache is holding onto.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.Pipeline != nil {
		clone.Pipeline = append([]Operation(nil), j.Pipeline...)
	}
	if j.Assets != nil {
		clone.Assets = append([]string(nil), j.Assets...)
	}
	if j.Moderators != nil {
		clone.Moderators = make(ConnectionList, len(j.Moderators))
		for k, v := range j.Moderators {
			clone.Moderators[k] = append([]string(nil), v...)
		}
	}
	return &clone
}

func (j *Job) touch() {
	j.UpdatedAt = time.Now().UTC()
}
