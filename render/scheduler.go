package render

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mamala42/remix/deferred"
)

var tracer = otel.Tracer("github.com/mamala42/remix/render")

// Patch is the re-rendered HTML for one resumed region. Err is set when
// the resumed subtree could not render, in which case the host decides how
// to surface the failure (typically by driving a full render pass where
// the rejection bubbles to a boundary).
type Patch struct {
	RegionID string
	HTML     string
	Err      error
}

// PatchSink receives patches as suspended regions resume.
type PatchSink func(Patch)

// suspension ties one pending region to its resume function.
type suspension struct {
	regionID string
	future   *deferred.Future
	resume   func(*deferred.Future) Patch
}

// Scheduler serializes subtree resumptions on a single goroutine: the
// cooperative, single-logical-thread model. A region suspends by
// registering against its specific future; when that future settles the
// scheduler resumes exactly that region, exactly once, leaving unrelated
// regions untouched.
type Scheduler struct {
	sink PatchSink

	mu     sync.Mutex
	queue  []suspension
	wake   chan struct{}
	closed bool
}

// NewScheduler creates a scheduler delivering patches to sink.
func NewScheduler(sink PatchSink) *Scheduler {
	return &Scheduler{
		sink: sink,
		wake: make(chan struct{}, 1),
	}
}

// Suspend registers a pending region. The settle hook only enqueues; the
// resume itself always runs on the scheduler goroutine.
func (s *Scheduler) Suspend(regionID string, future *deferred.Future, resume func(*deferred.Future) Patch) {
	if s == nil || future == nil || resume == nil {
		return
	}
	future.OnSettle(func(f *deferred.Future) {
		s.enqueue(suspension{regionID: regionID, future: f, resume: resume})
	})
}

func (s *Scheduler) enqueue(item suspension) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, item)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run processes resumptions until ctx is done. It never runs two resumes
// concurrently.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.closed = true
			s.queue = nil
			s.mu.Unlock()
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			item := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if s.sink != nil {
				_, span := tracer.Start(ctx, "render.resume", trace.WithAttributes(
					attribute.String("region.id", item.regionID),
				))
				s.sink(item.resume(item.future))
				span.End()
			}
		}
	}
}
