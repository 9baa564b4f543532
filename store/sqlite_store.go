package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"oss.nandlabs.io/execctl/codec"
	"oss.nandlabs.io/execctl/l3"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/status"
)

var logger = l3.Get()

// SqliteStore is the concrete Store over a single-index document layout: two
// tables (jobs, executions) each holding a JSON blob of the full record plus
// the handful of columns the typed Query predicates filter on.
type SqliteStore struct {
	db       *sql.DB
	jsonCodec codec.Codec
	latest   *latestExecutionCache
}

// Open opens (or creates) the sqlite database at path, applies the schema,
// and returns a ready Store. The index name derives from clusterName per
// spec §6 ("both in an index whose name is derived from the cluster name");
// sqlite has no notion of a named index-of-collections so it becomes the
// database file name.
func Open(path, clusterName string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageFailure, path, err)
	}
	// sqlite serializes writes; one connection avoids SQLITE_BUSY under the
	// controller's single-logical-scheduler write pattern.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrStorageFailure, pragma, err)
		}
	}
	s := &SqliteStore{db: db, jsonCodec: codec.JsonCodec(), latest: newLatestExecutionCache()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.InfoF("store: opened %s for cluster %s", path, clusterName)
	return s, nil
}

func (s *SqliteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			job_id     TEXT PRIMARY KEY,
			_context   TEXT NOT NULL DEFAULT 'job',
			blob       BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			ex_id      TEXT PRIMARY KEY,
			job_id     TEXT NOT NULL,
			_context   TEXT NOT NULL DEFAULT 'ex',
			_status    TEXT NOT NULL,
			blob       BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ex_job_id ON executions(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ex_status ON executions(_status)`,
		`CREATE INDEX IF NOT EXISTS idx_ex_created ON executions(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", ErrStorageFailure, err)
		}
	}
	return nil
}

func (s *SqliteStore) Close() error { return s.db.Close() }

// ---- jobs ----

func (s *SqliteStore) CreateJob(ctx context.Context, job *model.Job) error {
	blob, err := s.jsonCodec.EncodeToBytes(job)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, _context, blob, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		job.Id, job.Context, blob, rfc3339(job.CreatedAt), rfc3339(job.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: create job %s: %v", ErrStorageFailure, job.Id, err)
	}
	return nil
}

func (s *SqliteStore) GetJob(ctx context.Context, jobId string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT blob FROM jobs WHERE job_id = ?`, jobId)
	var blob []byte
	if err := row.Scan(&blob); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: get job %s: %v", ErrStorageFailure, jobId, err)
	}
	var job model.Job
	if err := s.jsonCodec.DecodeBytes(blob, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *SqliteStore) UpdateJob(ctx context.Context, jobId string, patch model.JobPatch) (*model.Job, error) {
	job, err := s.GetJob(ctx, jobId)
	if err != nil {
		return nil, err
	}
	job.ApplyPatch(patch)
	blob, err := s.jsonCodec.EncodeToBytes(job)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE jobs SET blob = ?, updated_at = ? WHERE job_id = ?`,
		blob, rfc3339(job.UpdatedAt), jobId)
	if err != nil {
		return nil, fmt.Errorf("%w: update job %s: %v", ErrStorageFailure, jobId, err)
	}
	return job, nil
}

func (s *SqliteStore) GetJobs(ctx context.Context, from, size int) ([]*model.Job, error) {
	size = clampSize(size)
	rows, err := s.db.QueryContext(ctx,
		`SELECT blob FROM jobs ORDER BY created_at ASC LIMIT ? OFFSET ?`, size, from)
	if err != nil {
		return nil, fmt.Errorf("%w: get jobs: %v", ErrStorageFailure, err)
	}
	defer rows.Close()
	var out []*model.Job
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var job model.Job
		if err := s.jsonCodec.DecodeBytes(blob, &job); err != nil {
			return nil, err
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}

// ---- executions ----

func (s *SqliteStore) CreateExecution(ctx context.Context, ex *model.Execution) error {
	blob, err := s.jsonCodec.EncodeToBytes(ex)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO executions (ex_id, job_id, _context, _status, blob, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ex.Id, ex.JobId, ex.Context, string(ex.Status), blob, rfc3339(ex.CreatedAt), rfc3339(ex.UpdatedAt))
	if err != nil {
		return fmt.Errorf("%w: create execution %s: %v", ErrStorageFailure, ex.Id, err)
	}
	s.latest.put(ex.JobId, ex.Id)
	return nil
}

func (s *SqliteStore) GetExecution(ctx context.Context, exId string) (*model.Execution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT blob FROM executions WHERE ex_id = ?`, exId)
	var blob []byte
	if err := row.Scan(&blob); err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("%w: get execution %s: %v", ErrStorageFailure, exId, err)
	}
	var ex model.Execution
	if err := s.jsonCodec.DecodeBytes(blob, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (s *SqliteStore) UpdateExecution(ctx context.Context, exId string, patch model.ExecutionPatch) (*model.Execution, error) {
	ex, err := s.GetExecution(ctx, exId)
	if err != nil {
		return nil, err
	}
	ex.ApplyPatch(patch)
	blob, err := s.jsonCodec.EncodeToBytes(ex)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE executions SET blob = ?, _status = ?, updated_at = ? WHERE ex_id = ?`,
		blob, string(ex.Status), rfc3339(ex.UpdatedAt), exId)
	if err != nil {
		return nil, fmt.Errorf("%w: update execution %s: %v", ErrStorageFailure, exId, err)
	}
	s.latest.invalidate(ex.JobId)
	return ex, nil
}

// SearchExecutions renders q against the executions table. The core only
// ever composes the shapes spec §4.2 names (status filter, job_id filter,
// _context:ex filter, status disjunction) and Query.Render always produces
// a parameterized clause, so there is no room for the source's missing-space
// concatenation bug to resurface here.
func (s *SqliteStore) SearchExecutions(ctx context.Context, q Query, from, size int, sort Sort) ([]*model.Execution, error) {
	size = clampSize(size)
	where, args := q.Render()
	stmt := `SELECT blob FROM executions`
	if where != "" {
		stmt += ` WHERE ` + where
	}
	if sort.Field != "" {
		dir := "ASC"
		if sort.Descending {
			dir = "DESC"
		}
		stmt += fmt.Sprintf(` ORDER BY %s %s`, sort.Field, dir)
	} else {
		stmt += ` ORDER BY created_at ASC`
	}
	stmt += ` LIMIT ? OFFSET ?`
	args = append(args, size, from)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: search executions: %v", ErrStorageFailure, err)
	}
	defer rows.Close()
	var out []*model.Execution
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var ex model.Execution
		if err := s.jsonCodec.DecodeBytes(blob, &ex); err != nil {
			return nil, err
		}
		out = append(out, &ex)
	}
	return out, rows.Err()
}

// GetLatestExecution returns the ex_id of the most recently created
// execution for jobId. If onlyIfActive is true, it is filtered to
// executions whose status is active; a miss there is not an error (ok=false,
// err=nil) since "job has no active execution" is the expected common case.
func (s *SqliteStore) GetLatestExecution(ctx context.Context, jobId string, onlyIfActive bool) (string, bool, error) {
	if !onlyIfActive {
		if exId, hit := s.latest.get(jobId); hit {
			return exId, true, nil
		}
	}

	q := JobIdEq(jobId)
	if onlyIfActive {
		q = andPredicate{[]Predicate{JobIdEq(jobId), StatusAny(status.ActiveStatuses()...)}}
	}
	executions, err := s.SearchExecutions(ctx, And(q), 0, 1, Sort{Field: "created_at", Descending: true})
	if err != nil {
		return "", false, err
	}
	if len(executions) == 0 {
		if onlyIfActive {
			return "", false, nil
		}
		return "", false, ErrNotFound
	}
	exId := executions[0].Id
	s.latest.put(jobId, exId)
	return exId, true, nil
}

func clampSize(size int) int {
	if size <= 0 || size > SearchCeiling {
		return SearchCeiling
	}
	return size
}

func rfc3339(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
