package turbo

import (
	"fmt"
	"html"
	"net/http"
	"path"
)

// Common constants used throughout
const (
	PathSeparator = "/"
	GET           = "GET"
	HEAD          = "HEAD"
	POST          = "POST"
	PUT           = "PUT"
	DELETE        = "DELETE"
	OPTIONS       = "OPTIONS"
	TRACE         = "TRACE"
	PATCH         = "PATCH"
)

var Methods = map[string]string{
	GET:     GET,
	HEAD:    HEAD,
	POST:    POST,
	PUT:     PUT,
	DELETE:  DELETE,
	OPTIONS: OPTIONS,
	TRACE:   TRACE,
	PATCH:   PATCH,
}

// refinePath Borrowed from the golang's net/turbo package
func refinePath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	rp := path.Clean(p)
	if p[len(p)-1] == '/' && rp != "/" {
		rp += "/"
	}
	return rp
}

// endpointNotFound to check for the request endpoint
func endpointNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "Endpoint not found :%q \n", html.EscapeString(r.URL.Path))
}

// endpointNotFoundHandler when a requested endpoint is not found in the registered route's this handler is invoked
func endpointNotFoundHandler() http.Handler {
	return http.HandlerFunc(endpointNotFound)
}

// methodNotAllowed to check for the supported method for the incoming request
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
	fmt.Fprintf(w, "Method %q Not Supported for %q \n", html.EscapeString(r.Method), html.EscapeString(r.URL.Path))
}

// methodNotAllowedHandler when a requested method is not allowed in the registered route's method list this handler is invoked
func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(methodNotAllowed)
}

// GetPathParam fetches a path variable from a request already routed
// through a Router — it reads the same "params" context value ServeHTTP
// sets, without requiring the caller to hold the Router instance that
// matched it. Handlers reached only via an http.Request (e.g. rest/server's
// Context) need this free-function form; Router.GetPathParams is kept for
// callers that already have the router at hand.
func GetPathParam(name string, r *http.Request) (string, error) {
	params, ok := r.Context().Value("params").([]Param)
	if !ok {
		return "", fmt.Errorf("no path parameters on request")
	}
	for _, p := range params {
		if p.key == name {
			return p.value, nil
		}
	}
	return "", fmt.Errorf("no such path parameter %q", name)
}

// GetQueryParam fetches a query parameter by name.
func GetQueryParam(name string, r *http.Request) (string, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return "", fmt.Errorf("no such query parameter %q", name)
	}
	return val, nil
}
