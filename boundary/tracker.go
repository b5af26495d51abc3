package boundary

// Capabilities is a route's boundary capability record, resolved once at
// route registration rather than probed during render.
type Capabilities struct {
	HasView      bool
	HasErrorView bool
	HasCatchView bool
}

// Decision is the per-route outcome: which fallback to mount and whether
// loader-data access beneath it is suppressed.
type Decision struct {
	// RenderCatch mounts the catch view in place of the subtree; the
	// thrown response, not the loader, is this subtree's truth.
	RenderCatch bool
	// RenderError mounts the error view in place of the subtree.
	RenderError bool
	// SuppressData makes loader-data reads inside the subtree fail loudly
	// instead of returning stale data.
	SuppressData bool
}

// Decide evaluates one matched route against the pass state. The caller
// must apply the decision before recording claims for this route: the
// ownership check reads the attribution as it stood when the failure was
// recorded, not after this route's own claim.
func Decide(state State, routeID string, caps Capabilities) Decision {
	var d Decision
	if caps.HasCatchView && state.Caught != nil && state.CatchBoundaryRouteID == routeID {
		d.RenderCatch = true
		d.SuppressData = true
	}
	if caps.HasErrorView && state.Error != nil &&
		(state.ErrorBoundaryRouteID == routeID || state.RenderBoundaryRouteID == routeID) {
		d.RenderError = true
		d.SuppressData = true
	}
	return d
}

// Track records this route's boundary claims for the pass, after Decide.
// A route rendering a fallback does not claim: its subtree will not render
// children, so there is nothing deeper to roof.
func Track(pass *Pass, routeID string, caps Capabilities, d Decision) {
	if pass == nil {
		return
	}
	if caps.HasCatchView && !d.RenderCatch {
		pass.ClaimCatch(routeID)
	}
	if caps.HasErrorView && !d.RenderError {
		pass.ClaimError(routeID)
	}
}

// AttributeCatch picks the owner for a server-originated exceptional
// response: the shallowest matched route that defines a catch view.
// Returns "" when no route can claim it, leaving the document-level
// boundary responsible.
func AttributeCatch(matchedIDs []string, caps map[string]Capabilities) string {
	for _, id := range matchedIDs {
		if caps[id].HasCatchView {
			return id
		}
	}
	return ""
}

// AttributeError is the error-view equivalent of AttributeCatch.
func AttributeError(matchedIDs []string, caps map[string]Capabilities) string {
	for _, id := range matchedIDs {
		if caps[id].HasErrorView {
			return id
		}
	}
	return ""
}

// NearestErrorBoundary finds the deepest route at or above depth defining
// an error view, for bubbling a render failure that originated at depth.
// ok is false when no ancestor can handle it and the failure is the
// document's.
func NearestErrorBoundary(matchedIDs []string, caps map[string]Capabilities, depth int) (string, bool) {
	if depth >= len(matchedIDs) {
		depth = len(matchedIDs) - 1
	}
	for i := depth; i >= 0; i-- {
		if caps[matchedIDs[i]].HasErrorView {
			return matchedIDs[i], true
		}
	}
	return "", false
}

// NearestCatchBoundary is the catch-view equivalent of
// NearestErrorBoundary.
func NearestCatchBoundary(matchedIDs []string, caps map[string]Capabilities, depth int) (string, bool) {
	if depth >= len(matchedIDs) {
		depth = len(matchedIDs) - 1
	}
	for i := depth; i >= 0; i-- {
		if caps[matchedIDs[i]].HasCatchView {
			return matchedIDs[i], true
		}
	}
	return "", false
}
