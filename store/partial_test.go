package store

import (
	"testing"

	"oss.nandlabs.io/execctl/testing/assert"
)

func TestDecodeJobPatch(t *testing.T) {
	patch, err := DecodeJobPatch(map[string]interface{}{
		"workers": 6,
		"active":  true,
	})
	assert.NoError(t, err)
	assert.NotNil(t, patch.WorkerCount)
	assert.Equal(t, 6, *patch.WorkerCount)
	assert.NotNil(t, patch.Active)
	assert.True(t, *patch.Active)
	assert.True(t, patch.Name == nil)
}

func TestDecodeExecutionPatch(t *testing.T) {
	patch, err := DecodeExecutionPatch(map[string]interface{}{
		"_status":         "failed",
		"_failureReason":  "boom",
	})
	assert.NoError(t, err)
	assert.NotNil(t, patch.Status)
	assert.Equal(t, "failed", *patch.Status)
	assert.NotNil(t, patch.FailureReason)
	assert.Equal(t, "boom", *patch.FailureReason)
}
