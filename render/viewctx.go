package render

import (
	"context"
	"fmt"

	"github.com/mamala42/remix/deferred"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

// routeScopeKey is the context key for the per-route view scope.
type routeScopeKey struct{}

type routeScope struct {
	routeID    string
	data       any
	suppressed bool
}

// WithRouteScope exposes {loaderData, routeID} to a route's view subtree.
// The scope is established above any boundary the route wraps, so a
// boundary failure inside a route never resolves that route's data to an
// ancestor's.
func WithRouteScope(ctx context.Context, routeID string, data any) context.Context {
	return context.WithValue(ctx, routeScopeKey{}, &routeScope{routeID: routeID, data: data})
}

// withSuppressedScope marks the subtree's loader data unreadable: the
// thrown response, not the loader, is this subtree's truth.
func withSuppressedScope(ctx context.Context, routeID string) context.Context {
	return context.WithValue(ctx, routeScopeKey{}, &routeScope{routeID: routeID, suppressed: true})
}

func scopeFromContext(ctx context.Context) *routeScope {
	scope, _ := ctx.Value(routeScopeKey{}).(*routeScope)
	return scope
}

// RouteID returns the current route id, or false outside a route scope.
func RouteID(ctx context.Context) (string, bool) {
	scope := scopeFromContext(ctx)
	if scope == nil {
		return "", false
	}
	return scope.routeID, true
}

// LoaderData returns the current route's loader data. It fails loudly
// outside a route scope and inside a boundary-suppressed subtree; silently
// returning stale data would mask the actual failure.
func LoaderData(ctx context.Context) (any, error) {
	scope := scopeFromContext(ctx)
	if scope == nil {
		return nil, platformerrors.New(
			platformerrors.CodeRouteDataOutside,
			"loader data read outside a route context; views must render under the route tree",
		)
	}
	if scope.suppressed {
		return nil, platformerrors.WithMetadata(
			platformerrors.CodeRouteDataSuppressed,
			fmt.Sprintf("loader data for route %q is suppressed inside its boundary fallback; read the thrown response instead", scope.routeID),
			map[string]string{"routeId": scope.routeID},
		)
	}
	return scope.data, nil
}

// DeferredValue returns the live future stored under name in the current
// route's loader data.
func DeferredValue(ctx context.Context, name string) (*deferred.Future, error) {
	data, err := LoaderData(ctx)
	if err != nil {
		return nil, err
	}
	fields, ok := data.(map[string]any)
	if !ok {
		return nil, platformerrors.WithMetadata(
			platformerrors.CodeDeferredUnknownKey,
			fmt.Sprintf("route loader data holds no named fields; deferred value %q unavailable", name),
			map[string]string{"key": name},
		)
	}
	f, ok := fields[name].(*deferred.Future)
	if !ok {
		routeID, _ := RouteID(ctx)
		return nil, platformerrors.WithMetadata(
			platformerrors.CodeDeferredUnknownKey,
			fmt.Sprintf("route %q has no deferred value %q", routeID, name),
			map[string]string{"routeId": routeID, "key": name},
		)
	}
	return f, nil
}
