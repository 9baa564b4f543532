package admission

// Queues bundles the two admission queues the core passes around together:
// Pending (ready to schedule, drained by the allocator) and ModeratorHeld
// (blocked on external moderation, re-scanned on moderate_jobs:resume).
type Queues struct {
	Pending       *Queue
	ModeratorHeld *Queue
}

// NewQueues returns an empty Pending/ModeratorHeld pair.
func NewQueues() *Queues {
	return &Queues{
		Pending:       NewQueue(),
		ModeratorHeld: NewQueue(),
	}
}
