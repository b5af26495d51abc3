package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/mamala42/remix/boundary"
	"github.com/mamala42/remix/deferred"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
	"github.com/mamala42/remix/internal/platform/i18n"
	"github.com/mamala42/remix/transition"
)

// Renderer walks a matched route tree and produces the document HTML for
// one pass.
type Renderer struct {
	registry  *Registry
	scheduler *Scheduler
	docViews  DocumentViews
}

// NewRenderer creates a renderer over a route registry. Absent document
// views fall back to the built-in localized documents.
func NewRenderer(registry *Registry, scheduler *Scheduler, docViews DocumentViews) *Renderer {
	if docViews.ErrorView == nil {
		docViews.ErrorView = DefaultDocumentError(i18n.NewLocalizer(i18n.Match("")))
	}
	if docViews.CatchView == nil {
		docViews.CatchView = DefaultDocumentCatch(i18n.NewLocalizer(i18n.Match("")))
	}
	return &Renderer{registry: registry, scheduler: scheduler, docViews: docViews}
}

// Input is everything one render pass consumes.
type Input struct {
	Phase      Phase
	Matches    []transition.Match
	LoaderData map[string]any
	Boundary   boundary.State
	Deferred   *deferred.Registry
}

// Result carries the pass output: the HTML and the committed boundary
// state derived by the pass reducer.
type Result struct {
	HTML     string
	Boundary boundary.State
}

// bubbleError carries a render failure up the route recursion to the
// boundary that owns it. An empty ownerID means no route can handle it
// and the document-level boundary is responsible.
type bubbleError struct {
	ownerID string
	cause   error
}

func (e *bubbleError) Error() string {
	return fmt.Sprintf("render failure bubbling to %q: %v", e.ownerID, e.cause)
}

func (e *bubbleError) Unwrap() error {
	return e.cause
}

// Render produces the document for one pass. Failures that no boundary
// anywhere claims render the document-level views; only writer and route
// table defects return an error.
func (r *Renderer) Render(ctx context.Context, in Input) (Result, error) {
	pass := boundary.BeginPass(in.Boundary)
	ctx = withPassState(ctx, &passState{phase: in.Phase, scheduler: r.scheduler})

	state := pass.State()
	var html string
	var err error
	switch {
	case state.UnclaimedError():
		html, err = renderComponent(ctx, r.docViews.ErrorView(state.Error), "")
	case state.UnclaimedCaught():
		html, err = renderComponent(ctx, r.docViews.CatchView(state.Caught), "")
	case len(in.Matches) == 0:
		html, err = renderComponent(ctx, r.docViews.CatchView(&boundary.CaughtResponse{
			Status:     http.StatusNotFound,
			StatusText: http.StatusText(http.StatusNotFound),
		}), "")
	default:
		rp := &renderPass{
			renderer: r,
			pass:     pass,
			input:    in,
			ids:      matchedIDs(in.Matches),
			caps:     r.registry.CapabilityMap(),
		}
		html, err = rp.renderRoute(ctx, 0)
		var bubbled *bubbleError
		if errors.As(err, &bubbled) {
			// Fatal to the routed render; the document boundary is the
			// end of the line.
			pass.HandleRenderFailure("", bubbled.cause)
			html, err = renderComponent(ctx, r.docViews.ErrorView(bubbled.cause), "")
		}
	}
	if err != nil {
		return Result{}, err
	}
	return Result{HTML: html, Boundary: pass.Commit()}, nil
}

type renderPass struct {
	renderer *Renderer
	pass     *boundary.Pass
	input    Input
	ids      []string
	caps     map[string]boundary.Capabilities
}

func (rp *renderPass) renderRoute(ctx context.Context, depth int) (string, error) {
	id := rp.ids[depth]
	module, ok := rp.renderer.registry.Route(id)
	if !ok {
		return "", platformerrors.WithMetadata(
			platformerrors.CodeRouteMissingView,
			fmt.Sprintf("matched route %q has no registered view module", id),
			map[string]string{"routeId": id},
		)
	}
	caps := rp.caps[id]

	// Ownership is checked against the state as it stood before this
	// route's own claim; claims are recorded before children evaluate so
	// a deeper route cannot steal attribution.
	decision := boundary.Decide(rp.pass.State(), id, caps)
	boundary.Track(rp.pass, id, caps, decision)

	if decision.RenderCatch {
		return renderComponent(withSuppressedScope(ctx, id), module.CatchView(rp.pass.State().Caught), "")
	}
	if decision.RenderError {
		return renderComponent(withSuppressedScope(ctx, id), module.ErrorView(rp.pass.State().Error), "")
	}

	if !caps.HasView {
		return "", platformerrors.WithMetadata(
			platformerrors.CodeRouteMissingView,
			fmt.Sprintf("route %q matched but defines no default view", id),
			map[string]string{"routeId": id},
		)
	}

	scopeCtx := WithRouteScope(ctx, id, rp.loaderData(id))

	childHTML := ""
	if depth+1 < len(rp.ids) {
		var err error
		childHTML, err = rp.renderRoute(scopeCtx, depth+1)
		if err != nil {
			var bubbled *bubbleError
			if errors.As(err, &bubbled) && bubbled.ownerID == id {
				rp.pass.HandleRenderFailure(id, bubbled.cause)
				return renderComponent(withSuppressedScope(ctx, id), module.ErrorView(bubbled.cause), "")
			}
			return "", err
		}
	}

	html, verr := renderComponent(scopeCtx, module.View(), childHTML)
	if verr == nil {
		return html, nil
	}

	ownerID, handled := boundary.NearestErrorBoundary(rp.ids, rp.caps, depth)
	if !handled {
		return "", &bubbleError{cause: verr}
	}
	if ownerID == id {
		rp.pass.HandleRenderFailure(id, verr)
		return renderComponent(withSuppressedScope(ctx, id), module.ErrorView(verr), "")
	}
	return "", &bubbleError{ownerID: ownerID, cause: verr}
}

// loaderData resolves the route's loader data, swapping deferred tokens
// for live registry entries on first reference.
func (rp *renderPass) loaderData(id string) any {
	data, ok := rp.input.LoaderData[id]
	if !ok {
		return nil
	}
	if fields, isMap := data.(map[string]any); isMap && rp.input.Deferred != nil {
		return deferred.ResolveLoaderData(rp.input.Deferred, id, fields)
	}
	return data
}

// renderComponent renders one component to a buffer, converting panics
// into render exceptions so they reach a boundary instead of tearing the
// process down.
func renderComponent(ctx context.Context, c templ.Component, childHTML string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("view panic: %v", r)
		}
	}()

	var buf bytes.Buffer
	ctx = templ.WithChildren(ctx, templ.Raw(childHTML))
	if renderErr := c.Render(ctx, &buf); renderErr != nil {
		return "", renderErr
	}
	return buf.String(), nil
}

func matchedIDs(matches []transition.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.RouteID
	}
	return ids
}
