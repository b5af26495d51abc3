package entry

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mamala42/remix/boundary"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
	"github.com/mamala42/remix/render"
	"github.com/mamala42/remix/submit"
	"github.com/mamala42/remix/transition"
)

var tracer = otel.Tracer("github.com/mamala42/remix/entry")

// MachineFactory constructs the transition machine once, seeded with the
// orchestrator's change callback. The machine must invoke onChange
// strictly on its own internal state transitions.
type MachineFactory func(onChange func()) transition.Machine

// LocationChange is one host-reported history event: where the host moved
// and how the entry was reached. A zero Action is treated as a push.
type LocationChange struct {
	Location transition.Location
	Action   transition.Action
}

// Config wires an orchestrator to its collaborators.
type Config struct {
	// NewMachine builds the transition machine. Called exactly once; the
	// machine is stable for the life of the mounted tree.
	NewMachine MachineFactory
	// Context is the per-document session state.
	Context *ClientContext
	// Renderer drives route-tree render passes.
	Renderer *render.Renderer
	// Navigator is the raw host history capability.
	Navigator Navigator
	// Boundary is the initial state derived from the server handoff.
	Boundary boundary.State
	// Output receives every completed render pass.
	Output func(render.Result)
	// Locations reports host location changes. Closed on teardown.
	Locations <-chan LocationChange
}

// Orchestrator owns the root render. It feeds navigation intents to the
// transition machine, re-derives boundary state from each machine
// snapshot, and replays server-attributed boundaries on first paint. A
// later snapshot without failure fields clears the held failure state.
type Orchestrator struct {
	machine   transition.Machine
	clientCtx *ClientContext
	renderer  *render.Renderer
	navigator Navigator
	builder   *submit.Builder
	output    func(render.Result)
	locations <-chan LocationChange

	mu            sync.Mutex
	boundaryState boundary.State
	firstRendered bool
}

// New constructs the orchestrator and its machine.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.NewMachine == nil {
		return nil, fmt.Errorf("entry: machine factory is required")
	}
	if cfg.Context == nil {
		return nil, fmt.Errorf("entry: client context is required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("entry: renderer is required")
	}
	if cfg.Navigator == nil {
		return nil, fmt.Errorf("entry: navigator is required")
	}

	o := &Orchestrator{
		clientCtx:     cfg.Context,
		renderer:      cfg.Renderer,
		builder:       submit.NewBuilder(cfg.Context),
		output:        cfg.Output,
		locations:     cfg.Locations,
		boundaryState: cfg.Boundary,
	}
	o.machine = cfg.NewMachine(func() {
		o.handleChange(context.Background())
	})
	if o.machine == nil {
		return nil, fmt.Errorf("entry: machine factory returned nil")
	}
	o.navigator = GuardNavigator(cfg.Navigator, o.machine)
	return o, nil
}

// Navigator returns the history capability with the push demotion rule
// applied.
func (o *Orchestrator) Navigator() Navigator {
	return o.navigator
}

// Fetcher returns a handle for the named concurrent interaction, creating
// it with the machine on first use.
func (o *Orchestrator) Fetcher(key string) *FetcherHandle {
	o.machine.Fetcher(key)
	return &FetcherHandle{key: key, machine: o.machine}
}

// Submit builds a submission, stashes it for the very next navigation, and
// triggers that navigation.
func (o *Orchestrator) Submit(ctx context.Context, target submit.Target, opts submit.Options) error {
	s, err := o.builder.Build(target, opts)
	if err != nil {
		return err
	}
	loc, err := transition.ParseLocation(s.Action)
	if err != nil {
		return fmt.Errorf("parse submission action %q: %w", s.Action, err)
	}
	o.clientCtx.StashSubmission(s)
	o.navigator.Push(loc)
	return nil
}

// SubmitFetcher builds a submission and dispatches it immediately against
// the named fetcher, bypassing the navigation slot.
func (o *Orchestrator) SubmitFetcher(ctx context.Context, key string, target submit.Target, opts submit.Options) error {
	s, err := o.builder.Build(target, opts)
	if err != nil {
		return err
	}
	return o.machine.Send(ctx, transition.FetcherIntent{Key: key, Href: s.Action, Submission: s})
}

// FirstPaint runs the hydration pass: the client's first render against
// the server-seeded machine snapshot. serverHTML is the markup the server
// emitted; when non-empty it is structurally compared against the first
// render and a divergence is reported as a hydration mismatch alongside
// the result. After this pass server-attributed boundaries are frozen.
func (o *Orchestrator) FirstPaint(ctx context.Context, serverHTML string) (render.Result, error) {
	result, err := o.renderPass(ctx, o.machine.State())
	if err != nil {
		return render.Result{}, err
	}
	if serverHTML != "" {
		if diff := render.HydrationDiff(serverHTML, result.HTML); diff != "" {
			return result, platformerrors.New(platformerrors.CodeHydrationMismatch, diff)
		}
	}
	return result, nil
}

// Run watches the host-reported location until ctx is done or the stream
// closes. A location differing from the machine's current one becomes a
// navigation intent carrying whatever submission was stashed since the
// last intent.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change, ok := <-o.locations:
			if !ok {
				return nil
			}
			if change.Location.SameDestination(o.machine.State().Location) {
				continue
			}
			if err := o.dispatch(ctx, change); err != nil {
				return err
			}
		}
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, change LocationChange) error {
	submission := o.clientCtx.TakeSubmission()
	action := change.Action
	if action == "" {
		action = transition.ActionPush
	}

	ctx, span := tracer.Start(ctx, "entry.navigate", trace.WithAttributes(
		attribute.String("location.path", change.Location.Path),
		attribute.String("navigation.action", string(action)),
		attribute.Bool("navigation.has_submission", submission != nil),
	))
	defer span.End()

	intent := transition.NavigationIntent{
		Location:   change.Location,
		Submission: submission,
		Action:     action,
	}
	if err := o.machine.Send(ctx, intent); err != nil {
		span.RecordError(err)
		return fmt.Errorf("send navigation intent: %w", err)
	}
	return nil
}

// handleChange is the machine's change callback. It re-derives the public
// boundary state from the machine's failure fields and drives a render
// pass.
func (o *Orchestrator) handleChange(ctx context.Context) {
	if _, err := o.renderPass(ctx, o.machine.State()); err != nil {
		log.Printf("entry: render pass failed: %v", err)
	}
}

func (o *Orchestrator) renderPass(ctx context.Context, snapshot transition.State) (render.Result, error) {
	o.mu.Lock()
	state := o.deriveBoundaryLocked(snapshot)
	o.mu.Unlock()

	result, err := o.renderer.Render(ctx, render.Input{
		Phase:      render.PhaseClient,
		Matches:    snapshot.Matches,
		LoaderData: snapshot.LoaderData,
		Boundary:   state,
		Deferred:   o.clientCtx.Deferred(),
	})
	if err != nil {
		return render.Result{}, err
	}

	o.mu.Lock()
	o.boundaryState = result.Boundary
	if !o.firstRendered {
		// Server-attributed boundaries must never be overwritten by
		// later navigations.
		o.firstRendered = true
		o.boundaryState = o.boundaryState.Freeze()
	}
	o.mu.Unlock()

	o.clientCtx.SetLocation(snapshot.Location)
	if o.output != nil {
		o.output(result)
	}
	return result, nil
}

// deriveBoundaryLocked re-derives the boundary state from the machine's
// failure fields. The hydration pass replays the server-seeded state
// untouched; every later change takes the snapshot's fields as-is, so a
// successful navigation clears a previous failure. A failure that is
// still present keeps its frozen attribution even when the snapshot
// carries no route id for it. RenderBoundaryRouteID is render-time-only
// and is always reset here so the upcoming pass recomputes it.
func (o *Orchestrator) deriveBoundaryLocked(snapshot transition.State) boundary.State {
	prev := o.boundaryState
	if !o.firstRendered {
		return prev.ResetRenderBoundary()
	}

	state := prev
	state.Error = snapshot.Error
	caught, _ := snapshot.Caught.(*boundary.CaughtResponse)
	state.Caught = caught
	state.ErrorBoundaryRouteID = snapshot.ErrorBoundaryRouteID
	state.CatchBoundaryRouteID = snapshot.CatchBoundaryRouteID
	if state.Error != nil && state.ErrorBoundaryRouteID == "" {
		state.ErrorBoundaryRouteID = prev.ErrorBoundaryRouteID
	}
	if state.Caught != nil && state.CatchBoundaryRouteID == "" {
		state.CatchBoundaryRouteID = prev.CatchBoundaryRouteID
	}
	return state.ResetRenderBoundary()
}

// BoundaryState returns the committed boundary state from the latest pass.
func (o *Orchestrator) BoundaryState() boundary.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.boundaryState
}
