package metrics

import (
	"context"
	"time"

	"oss.nandlabs.io/execctl/chrono"
)

const (
	samplerJobID          = "metrics:sample_queues"
	defaultSampleInterval = 5 * time.Second
)

// Sizer is satisfied by admission.Queue; it's redeclared here rather than
// importing admission so this package stays a leaf the rest of the module
// can depend on without risk of a cycle.
type Sizer interface {
	Size() int
}

// Sampler periodically publishes admission queue depths into QueueDepth,
// driven by the same chrono.Scheduler idiom as allocator.Allocator's tick.
type Sampler struct {
	pending       Sizer
	moderatorHeld Sizer
	scheduler     chrono.Scheduler
}

// NewSampler returns a Sampler over the two admission queues.
func NewSampler(pending, moderatorHeld Sizer, scheduler chrono.Scheduler) *Sampler {
	return &Sampler{pending: pending, moderatorHeld: moderatorHeld, scheduler: scheduler}
}

// Start registers the sampling job and starts the underlying scheduler.
func (s *Sampler) Start() error {
	if err := s.scheduler.AddIntervalJob(samplerJobID, "metrics queue sampler", func(ctx context.Context) error {
		s.sample()
		return nil
	}, defaultSampleInterval); err != nil {
		return err
	}
	return s.scheduler.Start()
}

// Stop stops the underlying scheduler.
func (s *Sampler) Stop() error {
	return s.scheduler.Stop()
}

func (s *Sampler) sample() {
	QueueDepth.WithLabelValues("pending").Set(float64(s.pending.Size()))
	QueueDepth.WithLabelValues("moderator_held").Set(float64(s.moderatorHeld.Size()))
}
