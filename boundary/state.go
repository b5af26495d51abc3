// Package boundary decides, per matched route, whether a view subtree
// renders a catch or error fallback, and threads server-originated
// exceptional state to the route that owns it. Attribution is derived by
// an explicit per-render-pass reducer instead of in-place mutation of a
// shared object, so there is no ordering hazard between a parent's
// assignment and a child's read.
package boundary

import "github.com/mamala42/remix/handoff"

// CaughtResponse is a deliberate non-success handler result. It is never
// conflated with a render exception.
type CaughtResponse = handoff.CaughtResponse

// State is the boundary state for one render pass. Values are immutable
// once derived; the next pass derives a new State via the reducer.
type State struct {
	// Error is a render exception or loader failure, reconstructed from
	// the handoff on first paint.
	Error error
	// Caught is an exceptional response awaiting a catch boundary.
	Caught *CaughtResponse

	// CatchBoundaryRouteID is the route that owns Caught.
	CatchBoundaryRouteID string
	// ErrorBoundaryRouteID is the server-attributed owner of Error. It is
	// frozen once set; render passes never overwrite it.
	ErrorBoundaryRouteID string
	// RenderBoundaryRouteID is the render-pass-only error owner. It is
	// reset on every machine change and recomputed by the current pass.
	RenderBoundaryRouteID string

	// TrackBoundaries permits render passes to record error-boundary
	// claims. Once false the recorded origin is frozen.
	TrackBoundaries bool
	// TrackCatchBoundaries is the catch-side equivalent.
	TrackCatchBoundaries bool
}

// FromHandoff derives the initial client state from the server payload.
// A server-attributed failure freezes the corresponding tracking so the
// hydration pass replays the server's attribution instead of recomputing
// it.
func FromHandoff(p handoff.BoundaryPayload) State {
	return State{
		Error:                p.Error.Reconstruct(),
		Caught:               p.Caught,
		CatchBoundaryRouteID: p.CatchBoundaryRouteID,
		ErrorBoundaryRouteID: p.ErrorBoundaryRouteID,
		TrackBoundaries:      p.Error == nil,
		TrackCatchBoundaries: p.Caught == nil,
	}
}

// Freeze stops all boundary tracking. The orchestrator calls it after the
// first client-driven render so server-attributed boundaries are never
// overwritten by later navigations.
func (s State) Freeze() State {
	s.TrackBoundaries = false
	s.TrackCatchBoundaries = false
	return s
}

// ResetRenderBoundary clears the render-time-only attribution. The
// orchestrator applies it on every machine change because the property
// must be recomputed by the upcoming render pass, not replayed.
func (s State) ResetRenderBoundary() State {
	s.RenderBoundaryRouteID = ""
	return s
}

// UnclaimedError reports whether an error exists that no route has claimed
// yet, in which case the document-level boundary must surface it.
func (s State) UnclaimedError() bool {
	return s.Error != nil && s.ErrorBoundaryRouteID == "" && s.RenderBoundaryRouteID == ""
}

// UnclaimedCaught is the exceptional-response equivalent of
// UnclaimedError.
func (s State) UnclaimedCaught() bool {
	return s.Caught != nil && s.CatchBoundaryRouteID == ""
}
