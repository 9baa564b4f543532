package transport

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"oss.nandlabs.io/execctl/codec"
	"oss.nandlabs.io/execctl/execution"
	"oss.nandlabs.io/execctl/model"
	"oss.nandlabs.io/execctl/rest"
	httpserver "oss.nandlabs.io/execctl/rest/server"
	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/store"
)

// submitJobRequest is the wire shape of submitJob's job spec argument.
type submitJobRequest struct {
	Name        string               `json:"name"`
	Lifecycle   string               `json:"lifecycle"`
	WorkerCount int                  `json:"workers"`
	Pipeline    []model.Operation    `json:"operations"`
	Assets      []string             `json:"assets,omitempty"`
	Moderators  model.ConnectionList `json:"moderator_connections,omitempty"`
	ShouldRun   bool                 `json:"should_run"`
}

type jobIDResponse struct {
	JobId string `json:"job_id"`
}

type notifyRequest struct {
	Command string `json:"command"`
}

type notifyResponse struct {
	Status string `json:"status"`
}

type latestExecutionResponse struct {
	ExId  string `json:"ex_id,omitempty"`
	Found bool   `json:"found"`
}

// submitJob handles POST /jobs.
func (t *Transport) submitJob(c httpserver.Context) {
	var req submitJobRequest
	if err := c.Read(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	spec := execution.JobSpec{
		Name:        req.Name,
		Lifecycle:   model.Lifecycle(req.Lifecycle),
		WorkerCount: req.WorkerCount,
		Pipeline:    req.Pipeline,
		Assets:      req.Assets,
		Moderators:  req.Moderators,
	}
	jobId, err := t.Lifecycle.SubmitJob(c.GetRequest().Context(), spec, req.ShouldRun)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusCreated, jobIDResponse{JobId: jobId})
}

// startJob handles POST /jobs/{job_id}/start.
func (t *Transport) startJob(c httpserver.Context) {
	jobId, err := pathParam(c, "job_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	newJobId, err := t.Lifecycle.StartJob(c.GetRequest().Context(), jobId)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, jobIDResponse{JobId: newJobId})
}

// getJob handles GET /jobs/{job_id}.
func (t *Transport) getJob(c httpserver.Context) {
	jobId, err := pathParam(c, "job_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	job, err := t.Store.GetJob(c.GetRequest().Context(), jobId)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, job)
}

// getJobs handles GET /jobs?from=&size=.
func (t *Transport) getJobs(c httpserver.Context) {
	from, size := paginationParams(c)
	jobs, err := t.Store.GetJobs(c.GetRequest().Context(), from, size)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, jobs)
}

// updateJob handles PUT /jobs/{job_id} with an opaque partial-update body,
// decoded into model.JobPatch exactly as store.DecodeJobPatch documents.
func (t *Transport) updateJob(c httpserver.Context) {
	jobId, err := pathParam(c, "job_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var raw map[string]interface{}
	if err := c.Read(&raw); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := store.DecodeJobPatch(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	job, err := t.Store.UpdateJob(c.GetRequest().Context(), jobId, patch)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, job)
}

// getLatestExecution handles GET /jobs/{job_id}/latest-execution?onlyIfActive=.
func (t *Transport) getLatestExecution(c httpserver.Context) {
	jobId, err := pathParam(c, "job_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	onlyIfActive := false
	if v, err := c.GetParam("onlyIfActive", httpserver.QueryParam); err == nil {
		onlyIfActive = v == "true"
	}
	exId, found, err := t.Store.GetLatestExecution(c.GetRequest().Context(), jobId, onlyIfActive)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, latestExecutionResponse{ExId: exId, Found: found})
}

// getExecutionContext handles GET /executions/{ex_id}.
func (t *Transport) getExecutionContext(c httpserver.Context) {
	exId, err := pathParam(c, "ex_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	ex, err := t.Store.GetExecution(c.GetRequest().Context(), exId)
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, ex)
}

// getExecutionContexts handles GET /executions?status=&from=&size=, covering
// both getExecutionContexts (no filter) and getExecutions (status filter).
func (t *Transport) getExecutionContexts(c httpserver.Context) {
	from, size := paginationParams(c)
	var q store.Query
	if s, err := c.GetParam("status", httpserver.QueryParam); err == nil && s != "" {
		q = store.And(store.StatusEq(status.Status(s)))
	}
	executions, err := t.Store.SearchExecutions(c.GetRequest().Context(), q, from, size, store.Sort{Field: "created_at"})
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, executions)
}

// updateExecution handles PUT /executions/{ex_id}, the updateEX operation.
func (t *Transport) updateExecution(c httpserver.Context) {
	exId, err := pathParam(c, "ex_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var raw map[string]interface{}
	if err := c.Read(&raw); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := store.DecodeExecutionPatch(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if _, err := t.Store.UpdateExecution(c.GetRequest().Context(), exId, patch); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.SetStatusCode(http.StatusNoContent)
}

// notify handles POST /executions/{ex_id}/notify.
func (t *Transport) notify(c httpserver.Context) {
	exId, err := pathParam(c, "ex_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	var req notifyRequest
	if err := c.Read(&req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	newStatus, err := t.Lifecycle.Notify(c.GetRequest().Context(), exId, status.Command(req.Command))
	if err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	writeJSON(c, http.StatusOK, notifyResponse{Status: string(newStatus)})
}

// restartExecution handles POST /executions/{ex_id}/restart.
func (t *Transport) restartExecution(c httpserver.Context) {
	exId, err := pathParam(c, "ex_id")
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := t.Lifecycle.RestartExecution(c.GetRequest().Context(), exId); err != nil {
		writeError(c, statusFor(err), err)
		return
	}
	c.SetStatusCode(http.StatusNoContent)
}

// shutdown handles POST /shutdown. The daemon entrypoint normally drives
// shutdown from a signal handler; this route exists because spec §6 lists
// shutdown() as part of the public API surface a client can also invoke.
func (t *Transport) shutdown(c httpserver.Context) {
	if err := t.Bootstrap.Shutdown(c.GetRequest().Context()); err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.SetStatusCode(http.StatusNoContent)
}

// healthz is a plain liveness probe, no spec operation behind it.
func (t *Transport) healthz(c httpserver.Context) {
	writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

func pathParam(c httpserver.Context, name string) (string, error) {
	return c.GetParam(name, httpserver.PathParam)
}

func paginationParams(c httpserver.Context) (from, size int) {
	from, size = 0, store.SearchCeiling
	if v, err := c.GetParam("from", httpserver.QueryParam); err == nil {
		if n, err := strconv.Atoi(v); err == nil {
			from = n
		}
	}
	if v, err := c.GetParam("size", httpserver.QueryParam); err == nil {
		if n, err := strconv.Atoi(v); err == nil {
			size = n
		}
	}
	return
}

// writeJSON encodes v before touching the response so Content-Type lands
// ahead of the status line: Context.Write sets the header itself, but only
// the first of SetStatusCode/an implicit body-triggered WriteHeader takes
// effect, so the header must be set before either fires.
func writeJSON(c httpserver.Context, code int, v interface{}) {
	jsonCodec, err := codec.GetDefault(rest.JSONContentType)
	if err != nil {
		logger.ErrorF("transport: no codec for %s: %v", rest.JSONContentType, err)
		c.SetStatusCode(http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := jsonCodec.Write(v, &buf); err != nil {
		logger.ErrorF("transport: encode response failed: %v", err)
		c.SetStatusCode(http.StatusInternalServerError)
		return
	}
	c.SetHeader(rest.ContentTypeHeader, rest.JSONContentType)
	c.SetStatusCode(code)
	if _, err := c.WriteData(buf.Bytes()); err != nil {
		logger.ErrorF("transport: write response failed: %v", err)
	}
}

func writeError(c httpserver.Context, code int, err error) {
	writeJSON(c, code, map[string]string{"error": err.Error()})
}

// statusFor maps a domain error to the HTTP status code spec §7's error
// kinds imply.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, execution.ErrValidation), errors.Is(err, execution.ErrAssetResolution):
		return http.StatusBadRequest
	case errors.Is(err, status.ErrInvalidCommand), errors.Is(err, status.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, execution.ErrCompletedNotRestartable), errors.Is(err, execution.ErrAlreadyScheduling):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
