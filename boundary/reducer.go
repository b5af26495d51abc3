package boundary

// Pass accumulates boundary claims in route render order and derives the
// next State when the pass completes. One Pass per render pass; it is not
// safe for concurrent use, matching the single render thread.
type Pass struct {
	next         State
	renderFrozen bool
	catchFrozen  bool
}

// BeginPass starts a render pass from the previous state.
func BeginPass(prev State) *Pass {
	return &Pass{next: prev}
}

// State returns the pass's current view of the boundary state, including
// claims recorded so far. Deeper routes observe shallower claims because
// claims are recorded before children render.
func (p *Pass) State() State {
	return p.next
}

// ClaimCatch records routeID as the catch origin. Recorded top-down, the
// deepest claim wins, which is exactly the nearest roof above any failure
// thrown deeper during this pass. Ignored once tracking is off or a
// failure was already handled this pass.
func (p *Pass) ClaimCatch(routeID string) {
	if !p.next.TrackCatchBoundaries || p.catchFrozen {
		return
	}
	p.next.CatchBoundaryRouteID = routeID
}

// ClaimError is the error-boundary equivalent of ClaimCatch, recording the
// render-time-only attribution.
func (p *Pass) ClaimError(routeID string) {
	if !p.next.TrackBoundaries || p.renderFrozen {
		return
	}
	p.next.RenderBoundaryRouteID = routeID
}

// HandleRenderFailure attributes a failure handled at routeID during this
// pass and freezes render-side claims: a deeper route must not
// retroactively steal attribution for a failure that already surfaced.
func (p *Pass) HandleRenderFailure(routeID string, err error) {
	p.next.Error = err
	p.next.RenderBoundaryRouteID = routeID
	p.renderFrozen = true
}

// HandleCaught attributes an exceptional response handled at routeID
// during this pass and freezes catch-side claims.
func (p *Pass) HandleCaught(routeID string, caught *CaughtResponse) {
	p.next.Caught = caught
	p.next.CatchBoundaryRouteID = routeID
	p.catchFrozen = true
}

// Commit derives the immutable state for the completed pass.
func (p *Pass) Commit() State {
	return p.next
}
