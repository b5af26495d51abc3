package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/mamala42/remix/deferred"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

// Phase distinguishes the server-driven pass from client-driven renders.
// The distinction is load-bearing for rejected deferred values: the server
// pass cannot re-throw into markup it has already emitted.
type Phase int

const (
	// PhaseServer is the initial server-driven pass.
	PhaseServer Phase = iota
	// PhaseClient covers hydration and all subsequent client renders.
	PhaseClient
)

// passKey is the context key for the active render pass.
type passKey struct{}

type passState struct {
	phase     Phase
	scheduler *Scheduler
	regionSeq int
}

func withPassState(ctx context.Context, ps *passState) context.Context {
	return context.WithValue(ctx, passKey{}, ps)
}

func passFromContext(ctx context.Context) *passState {
	ps, _ := ctx.Value(passKey{}).(*passState)
	return ps
}

// nextRegion allocates a deterministic region id. Server and client passes
// walk the tree in the same order, so ids line up across the hydration
// boundary.
func (ps *passState) nextRegion() string {
	id := "d" + strconv.Itoa(ps.regionSeq)
	ps.regionSeq++
	return id
}

// Deferred renders a subtree that depends on a deferred value. A settled
// future renders view (or errView) synchronously; a pending one renders
// the required fallback inside a region marker and suspends, to be resumed
// exactly once when that specific future settles.
func Deferred(f *deferred.Future, fallback templ.Component, view func(value any) templ.Component, errView func(err error) templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ps := passFromContext(ctx)
		if ps == nil {
			return platformerrors.New(
				platformerrors.CodeRouteDataOutside,
				"deferred subtree rendered outside a render pass",
			)
		}
		if f == nil {
			return fmt.Errorf("deferred future is required")
		}
		if view == nil {
			return fmt.Errorf("deferred view is required")
		}

		value, settleErr, settled := f.Poll()
		if settled {
			return renderSettled(ctx, w, ps.phase, value, settleErr, view, errView)
		}

		if fallback == nil {
			return fmt.Errorf("deferred fallback is required for pending value (%s, %s)", f.RouteID(), f.Key())
		}

		regionID := ps.nextRegion()
		if _, err := io.WriteString(w, `<div data-deferred-region="`+regionID+`">`); err != nil {
			return err
		}
		if err := fallback.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}

		if ps.scheduler != nil {
			resumeCtx := ctx
			ps.scheduler.Suspend(regionID, f, func(settledFuture *deferred.Future) Patch {
				return resumeRegion(resumeCtx, regionID, settledFuture, view, errView)
			})
		}
		return nil
	})
}

func renderSettled(ctx context.Context, w io.Writer, phase Phase, value any, settleErr error, view func(any) templ.Component, errView func(error) templ.Component) error {
	if settleErr == nil {
		return view(value).Render(ctx, w)
	}
	if errView != nil {
		return errView(settleErr).Render(ctx, w)
	}
	if phase == PhaseServer {
		// Ancestor markup is already emitted; re-throwing here would
		// corrupt the stream. The client reconciles the failure view on
		// its first render.
		return nil
	}
	return platformerrors.Wrap(
		platformerrors.CodeDeferredRejected,
		"deferred value rejected with no error view",
		settleErr,
	)
}

// resumeRegion re-renders exactly the suspended subtree with the settled
// value. Resumptions are client-phase by definition.
func resumeRegion(ctx context.Context, regionID string, f *deferred.Future, view func(any) templ.Component, errView func(error) templ.Component) Patch {
	value, settleErr, _ := f.Poll()
	if settleErr != nil && errView == nil {
		return Patch{
			RegionID: regionID,
			Err: platformerrors.Wrap(
				platformerrors.CodeDeferredRejected,
				"deferred value rejected with no error view",
				settleErr,
			),
		}
	}

	var buf bytes.Buffer
	resumeCtx := withPassState(ctx, &passState{phase: PhaseClient})
	var err error
	if settleErr != nil {
		err = errView(settleErr).Render(resumeCtx, &buf)
	} else {
		err = view(value).Render(resumeCtx, &buf)
	}
	if err != nil {
		return Patch{RegionID: regionID, Err: err}
	}
	return Patch{RegionID: regionID, HTML: buf.String()}
}
