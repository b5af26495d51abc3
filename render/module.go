// Package render hosts the route view contract and the renderer that walks
// a matched route tree top-down, mounting boundary fallbacks where the
// tracker dictates and suspending subtrees on pending deferred values.
package render

import (
	"fmt"

	"github.com/a-h/templ"
	"github.com/mamala42/remix/boundary"
	"github.com/mamala42/remix/handoff"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

// RouteModule is an application-authored route view module. A route may
// define a default view, an error-boundary view, and a catch-boundary
// view; a matched route without a default view fails the render with an
// error naming the route id.
type RouteModule struct {
	ID       string
	Path     string
	ParentID string

	// View renders the route's default subtree. Children of nested routes
	// arrive through templ children context.
	View func() templ.Component
	// ErrorView renders in place of the subtree when this route owns a
	// render exception.
	ErrorView func(err error) templ.Component
	// CatchView renders in place of the subtree when this route owns an
	// exceptional response.
	CatchView func(caught *boundary.CaughtResponse) templ.Component
}

// Registry resolves route modules and their boundary capability records
// once, at registration time. Rendering never re-probes for optional
// views.
type Registry struct {
	order  []string
	routes map[string]RouteModule
	caps   map[string]boundary.Capabilities
}

// NewRegistry creates an empty route registry.
func NewRegistry() *Registry {
	return &Registry{
		routes: make(map[string]RouteModule),
		caps:   make(map[string]boundary.Capabilities),
	}
}

// Register adds a route module, deriving its capability record.
func (r *Registry) Register(m RouteModule) error {
	if m.ID == "" {
		return platformerrors.New(platformerrors.CodeRouteDuplicateID, "route module id is required")
	}
	if _, exists := r.routes[m.ID]; exists {
		return platformerrors.WithMetadata(
			platformerrors.CodeRouteDuplicateID,
			fmt.Sprintf("route %q registered twice", m.ID),
			map[string]string{"routeId": m.ID},
		)
	}
	r.order = append(r.order, m.ID)
	r.routes[m.ID] = m
	r.caps[m.ID] = boundary.Capabilities{
		HasView:      m.View != nil,
		HasErrorView: m.ErrorView != nil,
		HasCatchView: m.CatchView != nil,
	}
	return nil
}

// MustRegister registers a module and panics on error; registration
// happens at startup where a bad route table is fatal.
func (r *Registry) MustRegister(m RouteModule) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// Route returns the module for id.
func (r *Registry) Route(id string) (RouteModule, bool) {
	m, ok := r.routes[id]
	return m, ok
}

// Capabilities returns the capability record for id. Unknown routes have
// no capabilities.
func (r *Registry) Capabilities(id string) boundary.Capabilities {
	return r.caps[id]
}

// CapabilityMap returns the full capability table for attribution helpers.
func (r *Registry) CapabilityMap() map[string]boundary.Capabilities {
	out := make(map[string]boundary.Capabilities, len(r.caps))
	for id, caps := range r.caps {
		out[id] = caps
	}
	return out
}

// Manifest describes the registered routes for the server handoff.
func (r *Registry) Manifest() []handoff.RouteDescriptor {
	out := make([]handoff.RouteDescriptor, 0, len(r.order))
	for _, id := range r.order {
		m := r.routes[id]
		caps := r.caps[id]
		out = append(out, handoff.RouteDescriptor{
			ID:       m.ID,
			Path:     m.Path,
			ParentID: m.ParentID,
			HasView:  caps.HasView,
			HasError: caps.HasErrorView,
			HasCatch: caps.HasCatchView,
		})
	}
	return out
}
