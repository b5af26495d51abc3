// Package machinefakes provides a scripted transition machine for tests.
package machinefakes

import (
	"context"
	"sync"

	"github.com/mamala42/remix/transition"
)

// Machine is an in-memory transition.Machine. Tests script it by setting
// Apply to compute the next snapshot from an intent, or by calling
// SetState directly to simulate the machine's own transitions.
type Machine struct {
	// Apply, when set, produces the snapshot resulting from an intent.
	// Nil leaves the snapshot unchanged.
	Apply func(state transition.State, intent transition.Intent) transition.State
	// SendErr, when set, fails every Send.
	SendErr error

	mu       sync.Mutex
	state    transition.State
	sent     []transition.Intent
	fetchers map[string]transition.Fetcher
	deleted  []string
	onChange func()
}

// New creates a fake machine seeded with the initial snapshot.
func New(initial transition.State) *Machine {
	return &Machine{
		state:    initial,
		fetchers: make(map[string]transition.Fetcher),
	}
}

// SetOnChange registers the orchestrator's change callback.
func (m *Machine) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Send records the intent and applies the scripted transition.
func (m *Machine) Send(_ context.Context, intent transition.Intent) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.mu.Lock()
	m.sent = append(m.sent, intent)
	if m.Apply != nil {
		m.state = m.Apply(m.state, intent)
	}
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// State returns the current snapshot.
func (m *Machine) State() transition.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetState replaces the snapshot and fires the change callback, simulating
// an internal machine transition.
func (m *Machine) SetState(s transition.State) {
	m.mu.Lock()
	m.state = s
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Fetcher returns the fetcher for key, creating an idle one on first use.
func (m *Machine) Fetcher(key string) transition.Fetcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fetchers[key]
	if !ok {
		f = transition.Fetcher{Key: key, State: transition.FetcherIdle}
		m.fetchers[key] = f
	}
	return f
}

// SetFetcher scripts a fetcher snapshot.
func (m *Machine) SetFetcher(f transition.Fetcher) {
	m.mu.Lock()
	m.fetchers[f.Key] = f
	m.mu.Unlock()
}

// DeleteFetcher removes the fetcher and records the release.
func (m *Machine) DeleteFetcher(key string) {
	m.mu.Lock()
	delete(m.fetchers, key)
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
}

// Sent returns a copy of every intent dispatched so far.
func (m *Machine) Sent() []transition.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]transition.Intent, len(m.sent))
	copy(out, m.sent)
	return out
}

// Deleted returns the released fetcher keys in release order.
func (m *Machine) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deleted))
	copy(out, m.deleted)
	return out
}

var _ transition.Machine = (*Machine)(nil)
