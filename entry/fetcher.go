package entry

import (
	"context"
	"fmt"
	"sync"

	platformerrors "github.com/mamala42/remix/internal/platform/errors"
	"github.com/mamala42/remix/submit"
	"github.com/mamala42/remix/transition"
)

// FetcherHandle is a view's grip on one named concurrent interaction. The
// owning view releases it exactly once on teardown; the handle refuses to
// dispatch or release after that.
type FetcherHandle struct {
	key     string
	machine transition.Machine

	mu       sync.Mutex
	released bool
}

// Key returns the fetcher's identity with the machine.
func (h *FetcherHandle) Key() string {
	return h.key
}

// State returns the machine's current snapshot for this fetcher.
func (h *FetcherHandle) State() (transition.Fetcher, error) {
	if err := h.check(); err != nil {
		return transition.Fetcher{}, err
	}
	return h.machine.Fetcher(h.key), nil
}

// Load dispatches a data load against the fetcher.
func (h *FetcherHandle) Load(ctx context.Context, href string) error {
	if err := h.check(); err != nil {
		return err
	}
	return h.machine.Send(ctx, transition.FetcherIntent{Key: h.key, Href: href})
}

// Submit dispatches a submission against the fetcher without touching the
// navigation state.
func (h *FetcherHandle) Submit(ctx context.Context, s *submit.Submission) error {
	if err := h.check(); err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("fetcher %q: submission is required", h.key)
	}
	return h.machine.Send(ctx, transition.FetcherIntent{Key: h.key, Href: s.Action, Submission: s})
}

// Release frees the fetcher's entry in the machine's live set. Releasing
// twice is a defect and fails loudly.
func (h *FetcherHandle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return platformerrors.WithMetadata(
			platformerrors.CodeFetcherReleased,
			fmt.Sprintf("fetcher %q released twice", h.key),
			map[string]string{"key": h.key},
		)
	}
	h.released = true
	h.mu.Unlock()

	h.machine.DeleteFetcher(h.key)
	return nil
}

func (h *FetcherHandle) check() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return platformerrors.WithMetadata(
			platformerrors.CodeFetcherReleased,
			fmt.Sprintf("fetcher %q used after release", h.key),
			map[string]string{"key": h.key},
		)
	}
	return nil
}
