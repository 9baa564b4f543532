// Package transport implements the REST surface spec §6 describes as the
// public API, mounted on rest/server over turbo.
package transport

import (
	"net/http"

	"oss.nandlabs.io/execctl/bootstrap"
	"oss.nandlabs.io/execctl/execution"
	"oss.nandlabs.io/execctl/l3"
	httpserver "oss.nandlabs.io/execctl/rest/server"
	"oss.nandlabs.io/execctl/store"
)

var logger = l3.Get()

// Transport binds every §6 public API operation to a handler and mounts
// them on an httpserver.Server.
type Transport struct {
	Lifecycle *execution.Lifecycle
	Store     store.Store
	Bootstrap *bootstrap.Controller
}

// New returns a Transport over the given collaborators.
func New(lc *execution.Lifecycle, st store.Store, bc *bootstrap.Controller) *Transport {
	return &Transport{Lifecycle: lc, Store: st, Bootstrap: bc}
}

// RegisterRoutes mounts every operation in this package onto srv.
func (t *Transport) RegisterRoutes(srv httpserver.Server) error {
	routes := []struct {
		method  string
		path    string
		handler httpserver.HandlerFunc
	}{
		{http.MethodPost, "/jobs", t.submitJob},
		{http.MethodGet, "/jobs", t.getJobs},
		{http.MethodGet, "/jobs/{job_id}", t.getJob},
		{http.MethodPut, "/jobs/{job_id}", t.updateJob},
		{http.MethodPost, "/jobs/{job_id}/start", t.startJob},
		{http.MethodGet, "/jobs/{job_id}/latest-execution", t.getLatestExecution},
		{http.MethodGet, "/executions", t.getExecutionContexts},
		{http.MethodGet, "/executions/{ex_id}", t.getExecutionContext},
		{http.MethodPut, "/executions/{ex_id}", t.updateExecution},
		{http.MethodPost, "/executions/{ex_id}/notify", t.notify},
		{http.MethodPost, "/executions/{ex_id}/restart", t.restartExecution},
		{http.MethodPost, "/shutdown", t.shutdown},
		{http.MethodGet, "/healthz", t.healthz},
	}
	for _, r := range routes {
		if err := srv.AddRoute(r.path, r.handler, r.method); err != nil {
			return err
		}
	}
	return nil
}
