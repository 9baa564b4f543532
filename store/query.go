package store

import (
	"strings"

	"oss.nandlabs.io/execctl/status"
)

// Predicate is one typed filter term. Render produces a SQL fragment and its
// bind args; it never hand-concatenates caller-controlled strings, which is
// exactly the class of bug §9 flags in the source's getExecutionContexts
// (`"_context:ex" + "AND _status:<s>"`, missing a leading space). Every
// Predicate here composes through Render, so there is no string-concat seam
// left for that bug to reappear in.
type Predicate interface {
	render() (string, []interface{})
}

// Query is the root of a composed Predicate tree. A zero Query matches
// every row (no WHERE clause at all).
type Query struct {
	root Predicate
}

// Render returns the SQL WHERE-clause body (without the leading "WHERE")
// and its bind args, in the order they appear in the clause.
func (q Query) Render() (string, []interface{}) {
	if q.root == nil {
		return "", nil
	}
	return q.root.render()
}

// And composes preds as a conjunction. And() with zero preds yields a Query
// that matches everything.
func And(preds ...Predicate) Query {
	switch len(preds) {
	case 0:
		return Query{}
	case 1:
		return Query{root: preds[0]}
	default:
		return Query{root: andPredicate{preds}}
	}
}

// StatusEq matches a single status.
func StatusEq(s status.Status) Predicate { return fieldEq{"_status", string(s)} }

// StatusAny matches a disjunction over statuses — the shape the source
// expressed as `_status:running OR _status:failing`.
func StatusAny(statuses ...status.Status) Predicate {
	preds := make([]Predicate, len(statuses))
	for i, s := range statuses {
		preds[i] = fieldEq{"_status", string(s)}
	}
	return orPredicate{preds}
}

// JobIdEq matches executions belonging to a given job.
func JobIdEq(jobId string) Predicate { return fieldEq{"job_id", jobId} }

// ContextEq matches records of the given _context ("job" or "ex").
func ContextEq(context string) Predicate { return fieldEq{"_context", context} }

type fieldEq struct {
	field string
	value string
}

func (f fieldEq) render() (string, []interface{}) {
	return f.field + " = ?", []interface{}{f.value}
}

type andPredicate struct{ preds []Predicate }

func (a andPredicate) render() (string, []interface{}) {
	return joinPredicates(a.preds, " AND ")
}

type orPredicate struct{ preds []Predicate }

func (o orPredicate) render() (string, []interface{}) {
	return joinPredicates(o.preds, " OR ")
}

func joinPredicates(preds []Predicate, sep string) (string, []interface{}) {
	parts := make([]string, 0, len(preds))
	var args []interface{}
	for _, p := range preds {
		clause, pargs := p.render()
		parts = append(parts, "("+clause+")")
		args = append(args, pargs...)
	}
	return strings.Join(parts, sep), args
}
