package model

// JobPatch is the typed shape of a partial update accepted by updateJob.
// Pointer/nil-slice fields distinguish "not supplied" from "set to zero
// value" — store.DecodePartial populates only the fields present in the
// caller's opaque map via mapstructure, so a field left out of the map
// stays nil here and Job.ApplyPatch leaves it untouched.
type JobPatch struct {
	Name        *string        `mapstructure:"name"`
	WorkerCount *int           `mapstructure:"workers"`
	Active      *bool          `mapstructure:"active"`
	Pipeline    []Operation    `mapstructure:"operations"`
	Assets      []string       `mapstructure:"assets"`
	Moderators  ConnectionList `mapstructure:"moderator_connections"`
}

// ApplyPatch merges non-nil fields of p into j and bumps UpdatedAt.
func (j *Job) ApplyPatch(p JobPatch) {
	if p.Name != nil {
		j.Name = *p.Name
	}
	if p.WorkerCount != nil {
		j.WorkerCount = *p.WorkerCount
	}
	if p.Active != nil {
		j.Active = *p.Active
	}
	if p.Pipeline != nil {
		j.Pipeline = p.Pipeline
	}
	if p.Assets != nil {
		j.Assets = p.Assets
	}
	if p.Moderators != nil {
		j.Moderators = p.Moderators
	}
	j.touch()
}

// ExecutionPatch is the typed shape of a partial update accepted by
// updateExecution. Every lifecycle transition and event-driven metadata
// write (§4.5) goes through this shape rather than a hand-rolled map.
type ExecutionPatch struct {
	Status        *string      `mapstructure:"_status"`
	FailureReason *string      `mapstructure:"_failureReason"`
	HasErrors     *string      `mapstructure:"_has_errors"`
	Recover       *bool        `mapstructure:"_recover_execution"`
	SlicerStats   *SlicerStats `mapstructure:"_slicer_stats"`
	Pipeline      []Operation  `mapstructure:"operations"`
	ClusterNodes  []string     `mapstructure:"_node_ids"`
}

// ApplyPatch merges non-nil fields of p into e and bumps UpdatedAt.
func (e *Execution) ApplyPatch(p ExecutionPatch) {
	if p.Status != nil {
		e.Status = statusOf(*p.Status)
	}
	if p.FailureReason != nil {
		e.FailureReason = *p.FailureReason
	}
	if p.HasErrors != nil {
		e.HasErrors = ErrorState(*p.HasErrors)
	}
	if p.Recover != nil {
		e.Recover = *p.Recover
	}
	if p.SlicerStats != nil {
		e.SlicerStats = *p.SlicerStats
	}
	if p.Pipeline != nil {
		e.Pipeline = p.Pipeline
	}
	if p.ClusterNodes != nil {
		e.ClusterNodes = p.ClusterNodes
	}
	e.touch()
}
