// Package entry hosts the client runtime: the session context, the
// orchestrator that bridges host navigation into the transition machine,
// and the fetcher handles views hold while mounted.
package entry

import (
	"sync"

	"github.com/mamala42/remix/deferred"
	"github.com/mamala42/remix/submit"
	"github.com/mamala42/remix/transition"
)

// ClientContext is the per-document session state: the deferred-value
// registry and the next-navigation submission slot. It is created at
// session start and torn down with the document; nothing in it is
// module-level.
type ClientContext struct {
	deferred *deferred.Registry

	mu          sync.Mutex
	submission  *submit.Submission
	location    transition.Location
	interactive bool
}

// NewClientContext creates the session context anchored at the initial
// location. interactive is false for the server-only pass, where no live
// host window exists.
func NewClientContext(initial transition.Location, interactive bool) *ClientContext {
	return &ClientContext{
		deferred:    deferred.NewRegistry(),
		location:    initial,
		interactive: interactive,
	}
}

// Deferred returns the per-document deferred-value registry.
func (c *ClientContext) Deferred() *deferred.Registry {
	return c.deferred
}

// Interactive reports whether a live host window exists.
func (c *ClientContext) Interactive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interactive
}

// CurrentAction returns the current location's path and query, the default
// submission action.
func (c *ClientContext) CurrentAction() (path, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location.Path, c.location.Query
}

// SetLocation records the machine's current location so default actions
// resolve against it.
func (c *ClientContext) SetLocation(loc transition.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.location = loc
}

// StashSubmission buffers a submission for the very next navigation
// intent. A later stash before the slot is consumed replaces the earlier
// one; the slot holds at most one submission.
func (c *ClientContext) StashSubmission(s *submit.Submission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submission = s
}

// TakeSubmission consumes and clears the slot. A second take before a new
// stash observes nil, never a stale submission.
func (c *ClientContext) TakeSubmission() *submit.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.submission
	c.submission = nil
	return s
}

// Close tears the session down with the document. The context becomes
// non-interactive and the submission slot is cleared; later builds against
// it fail the interactive-session check.
func (c *ClientContext) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interactive = false
	c.submission = nil
}

var _ submit.Session = (*ClientContext)(nil)
