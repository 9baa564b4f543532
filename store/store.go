// Package store is the Execution Store Adapter (C2): a thin contract over a
// document-shaped record store for Job and Execution records, backed
// concretely by modernc.org/sqlite so the controller builds without cgo.
package store

import (
	"context"
	"errors"

	"oss.nandlabs.io/execctl/model"
)

// ErrNotFound is returned when a job_id or ex_id has no matching record.
var ErrNotFound = errors.New("store: record not found")

// ErrStorageFailure wraps any underlying driver error so callers can test
// for it with errors.Is without depending on database/sql directly.
var ErrStorageFailure = errors.New("store: storage failure")

// Sort is a single sort key for searchExecutions.
type Sort struct {
	Field      string
	Descending bool
}

// SearchCeiling is the hard cap on rows a single search returns, per spec
// §4.2: implementations that cannot return this many must document the cap
// they actually enforce. The sqlite adapter enforces this one exactly.
const SearchCeiling = 10000

// JobStore is the contract the core uses for job persistence.
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJob(ctx context.Context, jobId string) (*model.Job, error)
	UpdateJob(ctx context.Context, jobId string, patch model.JobPatch) (*model.Job, error)
	GetJobs(ctx context.Context, from, size int) ([]*model.Job, error)
	Close() error
}

// ExecutionStore is the contract the core uses for execution persistence.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, ex *model.Execution) error
	GetExecution(ctx context.Context, exId string) (*model.Execution, error)
	UpdateExecution(ctx context.Context, exId string, patch model.ExecutionPatch) (*model.Execution, error)
	SearchExecutions(ctx context.Context, q Query, from, size int, sort Sort) ([]*model.Execution, error)
	GetLatestExecution(ctx context.Context, jobId string, onlyIfActive bool) (string, bool, error)
	Close() error
}

// Store bundles both contracts, since the sqlite adapter opens one
// connection and serves both collections from it.
type Store interface {
	JobStore
	ExecutionStore
}
