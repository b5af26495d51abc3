// Package deferred implements the deferred-value streaming protocol: live,
// resolvable placeholders for values that arrive after the initial paint,
// and the two-phase inline-script handoff that streams their resolution
// from server to client.
package deferred

import (
	"context"
	"sync"
)

// SettleState is the lifecycle state of a deferred value.
type SettleState int

const (
	// Pending means the value has not settled.
	Pending SettleState = iota
	// Resolved means the value settled successfully.
	Resolved
	// Rejected means the value settled with an error.
	Rejected
)

// String renders the state for diagnostics.
func (s SettleState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Future is a live placeholder for one (routeID, key) deferred value.
// pending → resolved and pending → rejected are the only transitions;
// terminal states are immutable. Settlement may happen on any goroutine;
// OnSettle hooks fire exactly once.
type Future struct {
	routeID string
	key     string

	mu    sync.Mutex
	state SettleState
	value any
	err   error
	done  chan struct{}
	hooks []func(*Future)
}

func newFuture(routeID, key string) *Future {
	return &Future{
		routeID: routeID,
		key:     key,
		done:    make(chan struct{}),
	}
}

// RouteID returns the owning route id.
func (f *Future) RouteID() string {
	return f.routeID
}

// Key returns the deferred key within the route.
func (f *Future) Key() string {
	return f.key
}

// Poll returns the settled value or error without blocking. settled is
// false while pending.
func (f *Future) Poll() (value any, err error, settled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Resolved:
		return f.value, nil, true
	case Rejected:
		return nil, f.err, true
	default:
		return nil, nil, false
	}
}

// State returns the current lifecycle state.
func (f *Future) State() SettleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done returns a channel closed on settlement.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until settlement or context cancellation.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	value, err, _ := f.Poll()
	return value, err
}

// OnSettle registers a hook invoked exactly once when the future settles.
// If the future already settled the hook runs immediately on the calling
// goroutine; otherwise it runs on the settling goroutine.
func (f *Future) OnSettle(hook func(*Future)) {
	if hook == nil {
		return
	}
	f.mu.Lock()
	if f.state == Pending {
		f.hooks = append(f.hooks, hook)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	hook(f)
}

// Resolve settles the future with a value. It reports false, doing
// nothing, when the future already settled.
func (f *Future) Resolve(value any) bool {
	return f.settle(Resolved, value, nil)
}

// Reject settles the future with an error. It reports false, doing
// nothing, when the future already settled.
func (f *Future) Reject(err error) bool {
	return f.settle(Rejected, nil, err)
}

func (f *Future) settle(state SettleState, value any, err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.value = value
	f.err = err
	hooks := f.hooks
	f.hooks = nil
	f.mu.Unlock()

	close(f.done)
	for _, hook := range hooks {
		hook(f)
	}
	return true
}
