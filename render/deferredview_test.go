package render

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/mamala42/remix/deferred"
	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

func renderWithPass(t *testing.T, phase Phase, scheduler *Scheduler, c templ.Component) (string, error) {
	t.Helper()
	ctx := withPassState(context.Background(), &passState{phase: phase, scheduler: scheduler})
	var buf strings.Builder
	err := c.Render(ctx, &buf)
	return buf.String(), err
}

func valueView(v any) templ.Component {
	return text("[" + v.(string) + "]")
}

func failureView(err error) templ.Component {
	return text("[err:" + err.Error() + "]")
}

func pendingFuture(t *testing.T) *deferred.Future {
	t.Helper()
	return deferred.NewRegistry().Install("route", "key")
}

func TestDeferredSettledRendersSynchronously(t *testing.T) {
	t.Parallel()

	f := pendingFuture(t)
	f.Resolve("ready")

	html, err := renderWithPass(t, PhaseClient, nil, Deferred(f, text("fallback"), valueView, nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != "[ready]" {
		t.Fatalf("html = %q", html)
	}
	if strings.Contains(html, "data-deferred-region") {
		t.Fatalf("settled value must not emit a region marker: %q", html)
	}
}

func TestDeferredRejectedUsesErrorView(t *testing.T) {
	t.Parallel()

	f := pendingFuture(t)
	f.Reject(errors.New("load failed"))

	html, err := renderWithPass(t, PhaseClient, nil, Deferred(f, text("fallback"), valueView, failureView))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != "[err:load failed]" {
		t.Fatalf("html = %q", html)
	}
}

func TestDeferredRejectedWithoutErrorView(t *testing.T) {
	t.Parallel()

	reject := func() *deferred.Future {
		f := pendingFuture(t)
		f.Reject(errors.New("load failed"))
		return f
	}

	html, err := renderWithPass(t, PhaseServer, nil, Deferred(reject(), text("fallback"), valueView, nil))
	if err != nil {
		t.Fatalf("server phase: %v", err)
	}
	if html != "" {
		t.Fatalf("server phase must suppress the rejection, got %q", html)
	}

	_, err = renderWithPass(t, PhaseClient, nil, Deferred(reject(), text("fallback"), valueView, nil))
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeDeferredRejected}) {
		t.Fatalf("client phase err = %v", err)
	}
}

func TestDeferredPendingRendersFallbackInRegion(t *testing.T) {
	t.Parallel()

	html, err := renderWithPass(t, PhaseServer, nil, Deferred(pendingFuture(t), text("<spinner/>"), valueView, nil))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if html != `<div data-deferred-region="d0"><spinner/></div>` {
		t.Fatalf("html = %q", html)
	}
}

func TestDeferredPendingRequiresFallback(t *testing.T) {
	t.Parallel()

	_, err := renderWithPass(t, PhaseServer, nil, Deferred(pendingFuture(t), nil, valueView, nil))
	if err == nil || !strings.Contains(err.Error(), "fallback is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestDeferredOutsideRenderPassFails(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	err := Deferred(pendingFuture(t), text("fallback"), valueView, nil).Render(context.Background(), &buf)
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeRouteDataOutside}) {
		t.Fatalf("err = %v", err)
	}
}

func TestSchedulerResumesOnlySettledRegion(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var patches []Patch
	scheduler := NewScheduler(func(p Patch) {
		mu.Lock()
		patches = append(patches, p)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	reg := deferred.NewRegistry()
	first := reg.Install("route", "first")
	second := reg.Install("route", "second")

	both := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := Deferred(first, text("waiting"), valueView, nil).Render(ctx, w); err != nil {
			return err
		}
		return Deferred(second, text("waiting"), valueView, nil).Render(ctx, w)
	})
	if _, err := renderWithPass(t, PhaseClient, scheduler, both); err != nil {
		t.Fatalf("render: %v", err)
	}

	second.Resolve("two")

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(patches)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no patch delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(patches) != 1 {
		t.Fatalf("patches = %d, want 1", len(patches))
	}
	p := patches[0]
	if p.Err != nil {
		t.Fatalf("patch err: %v", p.Err)
	}
	if p.RegionID != "d1" {
		t.Fatalf("RegionID = %q, only the settled region may resume", p.RegionID)
	}
	if p.HTML != "[two]" {
		t.Fatalf("HTML = %q", p.HTML)
	}
}

func TestSchedulerRejectedResumeCarriesCodedError(t *testing.T) {
	t.Parallel()

	patchCh := make(chan Patch, 1)
	scheduler := NewScheduler(func(p Patch) { patchCh <- p })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go scheduler.Run(ctx)

	f := pendingFuture(t)
	if _, err := renderWithPass(t, PhaseClient, scheduler, Deferred(f, text("waiting"), valueView, nil)); err != nil {
		t.Fatalf("render: %v", err)
	}
	f.Reject(errors.New("stream failed"))

	select {
	case p := <-patchCh:
		if !errors.Is(p.Err, &platformerrors.Error{Code: platformerrors.CodeDeferredRejected}) {
			t.Fatalf("patch err = %v", p.Err)
		}
		if p.RegionID != "d0" {
			t.Fatalf("RegionID = %q", p.RegionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no patch delivered")
	}
}
