package execution

import "errors"

// ErrAssetResolution is returned by submitJob when an asset reference in the
// spec cannot be resolved to a content ID, or the resolved count does not
// match the requested count.
var ErrAssetResolution = errors.New("execution: one or more assets could not be resolved")

// ErrValidation is returned by submitJob when the resolved spec fails
// validation.
var ErrValidation = errors.New("execution: job spec failed validation")

// ErrCompletedNotRestartable is returned by restartExecution for an
// execution whose status is already completed.
var ErrCompletedNotRestartable = errors.New("execution: completed executions cannot be restarted")

// ErrAlreadyScheduling is returned by restartExecution for an execution
// currently in the scheduling status.
var ErrAlreadyScheduling = errors.New("execution: execution is already scheduling")

// ErrNotifyFailed is returned by notify when one or more nodes failed to
// acknowledge the fanned-out cluster message.
var ErrNotifyFailed = errors.New("execution: notify failed against one or more nodes")
