package store

import (
	"testing"

	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/testing/assert"
)

func TestQueryRenderSingle(t *testing.T) {
	q := And(StatusEq(status.Running))
	clause, args := q.Render()
	assert.Equal(t, "_status = ?", clause)
	assert.Equal(t, 1, len(args))
	assert.Equal(t, "running", args[0])
}

func TestQueryRenderConjunction(t *testing.T) {
	q := And(JobIdEq("job-1"), ContextEq("ex"))
	clause, args := q.Render()
	assert.Equal(t, "(job_id = ?) AND (_context = ?)", clause)
	assert.Equal(t, 2, len(args))
}

func TestQueryRenderDisjunction(t *testing.T) {
	pred := StatusAny(status.Running, status.Failing)
	q := And(pred)
	clause, args := q.Render()
	assert.Equal(t, "(_status = ?) OR (_status = ?)", clause)
	assert.Equal(t, 2, len(args))
}

func TestQueryRenderEmpty(t *testing.T) {
	q := Query{}
	clause, args := q.Render()
	assert.Equal(t, "", clause)
	assert.Equal(t, 0, len(args))
}
