package entry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mamala42/remix/boundary"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
	"github.com/mamala42/remix/render"
	"github.com/mamala42/remix/submit"
	"github.com/mamala42/remix/testkit/machinefakes"
	"github.com/mamala42/remix/transition"
)

type recordingNavigator struct {
	mu       sync.Mutex
	pushes   []transition.Location
	replaces []transition.Location
}

func (n *recordingNavigator) Push(loc transition.Location) {
	n.mu.Lock()
	n.pushes = append(n.pushes, loc)
	n.mu.Unlock()
}

func (n *recordingNavigator) Replace(loc transition.Location) {
	n.mu.Lock()
	n.replaces = append(n.replaces, loc)
	n.mu.Unlock()
}

func (n *recordingNavigator) counts() (pushes, replaces int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pushes), len(n.replaces)
}

func emptyRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	return render.NewRenderer(render.NewRegistry(), nil, render.DocumentViews{})
}

func newOrchestrator(t *testing.T, machine *machinefakes.Machine, nav Navigator, locations <-chan LocationChange) (*Orchestrator, *ClientContext) {
	t.Helper()
	clientCtx := NewClientContext(machine.State().Location, true)
	o, err := New(Config{
		NewMachine: func(onChange func()) transition.Machine {
			machine.SetOnChange(onChange)
			return machine
		},
		Context:   clientCtx,
		Renderer:  emptyRenderer(t),
		Navigator: nav,
		Boundary:  boundary.State{TrackBoundaries: true, TrackCatchBoundaries: true},
		Locations: locations,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, clientCtx
}

func TestSubmissionSlotConsumedExactlyOnce(t *testing.T) {
	t.Parallel()

	c := NewClientContext(transition.Location{Path: "/"}, true)
	s := &submit.Submission{Action: "/save", Method: submit.MethodPost}
	c.StashSubmission(s)

	if got := c.TakeSubmission(); got != s {
		t.Fatalf("first take = %v", got)
	}
	if got := c.TakeSubmission(); got != nil {
		t.Fatalf("second take = %v, want nil", got)
	}
}

func TestGuardedNavigatorDemotesPushDuringTransition(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{
		Location:   transition.Location{Path: "/"},
		Transition: transition.Transition{State: transition.StateLoading},
	})
	host := &recordingNavigator{}
	nav := GuardNavigator(host, machine)

	nav.Push(transition.Location{Path: "/second"})
	pushes, replaces := host.counts()
	if pushes != 0 || replaces != 1 {
		t.Fatalf("pushes = %d, replaces = %d", pushes, replaces)
	}

	machine.SetState(transition.State{
		Location:   transition.Location{Path: "/second"},
		Transition: transition.Transition{State: transition.StateIdle},
	})
	nav.Push(transition.Location{Path: "/third"})
	pushes, replaces = host.counts()
	if pushes != 1 || replaces != 1 {
		t.Fatalf("pushes = %d, replaces = %d", pushes, replaces)
	}
}

func TestRunAttachesStashedSubmissionToNextIntentOnly(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	machine.Apply = func(state transition.State, intent transition.Intent) transition.State {
		if nav, ok := intent.(transition.NavigationIntent); ok {
			state.Location = nav.Location
		}
		return state
	}
	locations := make(chan LocationChange)
	nav := &recordingNavigator{}
	o, clientCtx := newOrchestrator(t, machine, nav, locations)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	clientCtx.StashSubmission(&submit.Submission{Action: "/save", Method: submit.MethodPost})
	locations <- LocationChange{Location: transition.Location{Path: "/save"}}
	locations <- LocationChange{Location: transition.Location{Path: "/elsewhere"}}
	close(locations)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	sent := machine.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent = %d intents", len(sent))
	}
	first := sent[0].(transition.NavigationIntent)
	if first.Submission == nil || first.Submission.Action != "/save" {
		t.Fatalf("first intent submission = %+v", first.Submission)
	}
	second := sent[1].(transition.NavigationIntent)
	if second.Submission != nil {
		t.Fatalf("second intent carries a stale submission: %+v", second.Submission)
	}
}

func TestRunCarriesHostActionThrough(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	machine.Apply = func(state transition.State, intent transition.Intent) transition.State {
		if nav, ok := intent.(transition.NavigationIntent); ok {
			state.Location = nav.Location
		}
		return state
	}
	locations := make(chan LocationChange)
	o, _ := newOrchestrator(t, machine, &recordingNavigator{}, locations)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	locations <- LocationChange{Location: transition.Location{Path: "/back"}, Action: transition.ActionPop}
	locations <- LocationChange{Location: transition.Location{Path: "/forward"}}
	close(locations)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	sent := machine.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent = %d intents", len(sent))
	}
	if got := sent[0].(transition.NavigationIntent).Action; got != transition.ActionPop {
		t.Fatalf("first action = %q, want pop", got)
	}
	if got := sent[1].(transition.NavigationIntent).Action; got != transition.ActionPush {
		t.Fatalf("unset action = %q, want push default", got)
	}
}

func TestRunIgnoresSameDestination(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/", Query: "a=1"}})
	locations := make(chan LocationChange)
	o, _ := newOrchestrator(t, machine, &recordingNavigator{}, locations)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	// Same destination under a different history key is not a navigation.
	locations <- LocationChange{Location: transition.Location{Path: "/", Query: "a=1", Key: "k2"}}
	close(locations)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sent := machine.Sent(); len(sent) != 0 {
		t.Fatalf("sent = %d intents, want 0", len(sent))
	}
}

func TestSubmitGetNavigatesToFoldedQuery(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	nav := &recordingNavigator{}
	o, clientCtx := newOrchestrator(t, machine, nav, nil)

	var data submit.FormData
	data.Append("q", submit.Text("x"))
	err := o.Submit(context.Background(), submit.Form{Action: "/search", Method: "get", Data: data}, submit.Options{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	nav.mu.Lock()
	defer nav.mu.Unlock()
	if len(nav.pushes) != 1 {
		t.Fatalf("pushes = %d", len(nav.pushes))
	}
	if got := nav.pushes[0].String(); got != "/search?q=x" {
		t.Fatalf("pushed %q", got)
	}
	stashed := clientCtx.TakeSubmission()
	if stashed == nil || stashed.Action != "/search?q=x" {
		t.Fatalf("stashed = %+v", stashed)
	}
}

func TestSubmitRequiresInteractiveSession(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	clientCtx := NewClientContext(transition.Location{Path: "/"}, false)
	o, err := New(Config{
		NewMachine: func(onChange func()) transition.Machine {
			machine.SetOnChange(onChange)
			return machine
		},
		Context:   clientCtx,
		Renderer:  emptyRenderer(t),
		Navigator: &recordingNavigator{},
		Boundary:  boundary.State{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = o.Submit(context.Background(), submit.Values{"q": {"x"}}, submit.Options{})
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeSubmissionInactiveSession}) {
		t.Fatalf("err = %v", err)
	}
}

func TestCloseEndsInteractiveSession(t *testing.T) {
	t.Parallel()

	clientCtx := NewClientContext(transition.Location{Path: "/"}, true)
	clientCtx.StashSubmission(&submit.Submission{Action: "/save", Method: submit.MethodPost})

	clientCtx.Close()

	if clientCtx.Interactive() {
		t.Fatal("closed context should not be interactive")
	}
	if s := clientCtx.TakeSubmission(); s != nil {
		t.Fatalf("closed context still holds submission %+v", s)
	}

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	o, err := New(Config{
		NewMachine: func(onChange func()) transition.Machine {
			machine.SetOnChange(onChange)
			return machine
		},
		Context:   clientCtx,
		Renderer:  emptyRenderer(t),
		Navigator: &recordingNavigator{},
		Boundary:  boundary.State{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = o.Submit(context.Background(), submit.Values{"q": {"x"}}, submit.Options{})
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeSubmissionInactiveSession}) {
		t.Fatalf("err = %v", err)
	}
}

func TestFetcherReleaseExactlyOnce(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	o, _ := newOrchestrator(t, machine, &recordingNavigator{}, nil)

	h := o.Fetcher("comments")
	if err := h.Load(context.Background(), "/comments"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	err := h.Release()
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeFetcherReleased}) {
		t.Fatalf("second release err = %v", err)
	}
	if err := h.Load(context.Background(), "/comments"); !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeFetcherReleased}) {
		t.Fatalf("use after release err = %v", err)
	}
	if deleted := machine.Deleted(); len(deleted) != 1 || deleted[0] != "comments" {
		t.Fatalf("deleted = %v", deleted)
	}
}

func TestFirstPaintFreezesServerAttribution(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	o, _ := newOrchestrator(t, machine, &recordingNavigator{}, nil)

	if _, err := o.FirstPaint(context.Background(), ""); err != nil {
		t.Fatalf("FirstPaint: %v", err)
	}
	state := o.BoundaryState()
	if state.TrackBoundaries || state.TrackCatchBoundaries {
		t.Fatalf("tracking still enabled after first paint: %+v", state)
	}
}

func TestFirstPaintChecksHydration(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	o, _ := newOrchestrator(t, machine, &recordingNavigator{}, nil)
	result, err := o.FirstPaint(context.Background(), "")
	if err != nil {
		t.Fatalf("FirstPaint: %v", err)
	}

	matching := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	o2, _ := newOrchestrator(t, matching, &recordingNavigator{}, nil)
	if _, err := o2.FirstPaint(context.Background(), result.HTML); err != nil {
		t.Fatalf("matching markup reported a mismatch: %v", err)
	}

	diverged := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	o3, _ := newOrchestrator(t, diverged, &recordingNavigator{}, nil)
	_, err = o3.FirstPaint(context.Background(), `<div data-from="server">other markup</div>`)
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeHydrationMismatch}) {
		t.Fatalf("err = %v, want hydration mismatch", err)
	}
}

func TestSuccessfulNavigationClearsServerFailure(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/posts/unknown"}})
	clientCtx := NewClientContext(transition.Location{Path: "/posts/unknown"}, true)
	o, err := New(Config{
		NewMachine: func(onChange func()) transition.Machine {
			machine.SetOnChange(onChange)
			return machine
		},
		Context:   clientCtx,
		Renderer:  emptyRenderer(t),
		Navigator: &recordingNavigator{},
		Boundary: boundary.State{
			Error:                errors.New("loader blew up"),
			ErrorBoundaryRouteID: "posts.show",
			Caught:               &boundary.CaughtResponse{Status: 404, StatusText: "Not Found"},
			CatchBoundaryRouteID: "posts.show",
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := o.FirstPaint(context.Background(), ""); err != nil {
		t.Fatalf("FirstPaint: %v", err)
	}
	if state := o.BoundaryState(); state.Error == nil || state.ErrorBoundaryRouteID != "posts.show" {
		t.Fatalf("first paint dropped server attribution: %+v", state)
	}

	machine.SetState(transition.State{Location: transition.Location{Path: "/posts/1"}})

	deadline := time.After(time.Second)
	for {
		state := o.BoundaryState()
		if state.Error == nil && state.Caught == nil &&
			state.ErrorBoundaryRouteID == "" && state.CatchBoundaryRouteID == "" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("failure state survived a clean navigation: %+v", state)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMachineChangeResetsRenderBoundary(t *testing.T) {
	t.Parallel()

	machine := machinefakes.New(transition.State{Location: transition.Location{Path: "/"}})
	var results []render.Result
	var mu sync.Mutex
	clientCtx := NewClientContext(transition.Location{Path: "/"}, true)
	o, err := New(Config{
		NewMachine: func(onChange func()) transition.Machine {
			machine.SetOnChange(onChange)
			return machine
		},
		Context:   clientCtx,
		Renderer:  emptyRenderer(t),
		Navigator: &recordingNavigator{},
		Boundary:  boundary.State{TrackBoundaries: true, TrackCatchBoundaries: true},
		Output: func(r render.Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	machine.SetState(transition.State{Location: transition.Location{Path: "/next"}})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(results)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no render pass after machine change")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if state := o.BoundaryState(); state.RenderBoundaryRouteID != "" {
		t.Fatalf("RenderBoundaryRouteID = %q after change", state.RenderBoundaryRouteID)
	}
	if path, _ := clientCtx.CurrentAction(); path != "/next" {
		t.Fatalf("current action path = %q", path)
	}
}
