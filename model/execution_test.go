package model

import (
	"testing"

	"oss.nandlabs.io/execctl/status"
	"oss.nandlabs.io/execctl/testing/assert"
)

func TestNewExecution(t *testing.T) {
	ex, err := NewExecution("job-1", 3, []Operation{{"kind": "reader"}}, []string{"asset-id-1"})
	assert.NoError(t, err)
	assert.Equal(t, status.Pending, ex.Status)
	assert.Equal(t, "job-1", ex.JobId)
	assert.Equal(t, "ex", ex.Context)
	assert.Equal(t, 3, ex.Workers)
}

func TestExecutionSetStatus(t *testing.T) {
	ex, _ := NewExecution("job-1", 1, nil, nil)
	before := ex.UpdatedAt
	ex.SetStatus(status.Running)
	assert.Equal(t, status.Running, ex.Status)
	assert.True(t, ex.UpdatedAt.After(before) || ex.UpdatedAt.Equal(before))
}

func TestExecutionClone(t *testing.T) {
	ex, _ := NewExecution("job-1", 1, nil, nil)
	ex.ClusterNodes = []string{"node-a"}

	clone := ex.Clone()
	clone.ClusterNodes[0] = "node-b"

	assert.Equal(t, "node-a", ex.ClusterNodes[0])
	assert.Equal(t, "node-b", clone.ClusterNodes[0])
}

func TestExecutionApplyPatch(t *testing.T) {
	ex, _ := NewExecution("job-1", 1, nil, nil)
	st := "failing"
	reason := "worker crashed"
	hasErrors := "true"
	ex.ApplyPatch(ExecutionPatch{Status: &st, FailureReason: &reason, HasErrors: &hasErrors})
	assert.Equal(t, status.Failing, ex.Status)
	assert.Equal(t, "worker crashed", ex.FailureReason)
	assert.Equal(t, HasErrors, ex.HasErrors)
}
