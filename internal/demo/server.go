package demo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mamala42/remix/boundary"
	"github.com/mamala42/remix/deferred"
	"github.com/mamala42/remix/handoff"
	"github.com/mamala42/remix/internal/platform/timeouts"
	"github.com/mamala42/remix/render"
	"github.com/mamala42/remix/transition"
)

var tracer = otel.Tracer("github.com/mamala42/remix/internal/demo")

// Config defines startup inputs for the demo server.
type Config struct {
	HTTPAddr string `env:"REMIX_DEMO_HTTP_ADDR" envDefault:":8080"`
	DBPath   string `env:"REMIX_DEMO_DB" envDefault:":memory:"`
}

// Server hosts the demo HTTP surface and lifecycle.
type Server struct {
	httpAddr   string
	httpServer *http.Server
	store      *Store
}

// NewServer validates config and constructs the demo server.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	store, err := OpenStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	registry, err := Routes()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register routes: %w", err)
	}

	handler := &documentHandler{
		store:    store,
		registry: registry,
		renderer: render.NewRenderer(registry, nil, render.DocumentViews{}),
	}
	mux := http.NewServeMux()
	mux.Handle("/", handler)

	return &Server{
		httpAddr: httpAddr,
		store:    store,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// ListenAndServe serves HTTP traffic until context cancellation or server
// stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("demo server is nil")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown demo http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve demo http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// documentHandler renders the full document for a request: the server
// pass, the inline handoff payload, and the streamed deferred resolution
// scripts.
type documentHandler struct {
	store    *Store
	registry *render.Registry
	renderer *render.Renderer
}

// pageState is everything one request's server pass produced.
type pageState struct {
	matches    []transition.Match
	loaderData map[string]any
	rawData    map[string]json.RawMessage
	deferred   *deferred.Registry
	pending    []pendingKey
	state      boundary.State
	status     int
}

type pendingKey struct {
	routeID string
	key     string
	future  *deferred.Future
}

func (h *documentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "demo.document", trace.WithAttributes(
		attribute.String("http.path", r.URL.Path),
	))
	defer span.End()

	page, err := h.load(ctx, r.URL)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	result, err := h.renderer.Render(ctx, render.Input{
		Phase:      render.PhaseServer,
		Matches:    page.matches,
		LoaderData: page.loaderData,
		Boundary:   page.state,
		Deferred:   page.deferred,
	})
	if err != nil {
		span.RecordError(err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.writeDocument(ctx, w, r, page, result); err != nil {
		span.RecordError(err)
		log.Printf("demo: write document: %v", err)
	}
}

// load matches the path and runs the loaders, attributing any exceptional
// response to the shallowest catch boundary before the render pass starts.
func (h *documentHandler) load(ctx context.Context, u *url.URL) (*pageState, error) {
	path := u.Path
	page := &pageState{
		loaderData: make(map[string]any),
		rawData:    make(map[string]json.RawMessage),
		deferred:   deferred.NewRegistry(),
		state:      boundary.State{TrackBoundaries: true, TrackCatchBoundaries: true},
		status:     http.StatusOK,
	}

	switch {
	case path == "/":
		page.matches = []transition.Match{
			{RouteID: "root", Path: "/"},
			{RouteID: "posts.index", Path: "/"},
		}
		posts, err := h.store.ListPosts(ctx)
		if err != nil {
			return nil, fmt.Errorf("load posts: %w", err)
		}
		page.loaderData["posts.index"] = map[string]any{"posts": posts}
		page.rawData["posts.index"] = mustJSON(map[string]any{"posts": posts})

	case path == "/search":
		query := u.Query().Get("q")
		page.matches = []transition.Match{
			{RouteID: "root", Path: "/"},
			{RouteID: "posts.search", Path: "/search"},
		}
		posts, err := h.store.SearchPosts(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search posts %q: %w", query, err)
		}
		page.loaderData["posts.search"] = map[string]any{"query": query, "posts": posts}
		page.rawData["posts.search"] = mustJSON(map[string]any{"query": query, "posts": posts})

	case strings.HasPrefix(path, "/posts/"):
		id := strings.TrimPrefix(path, "/posts/")
		page.matches = []transition.Match{
			{RouteID: "root", Path: "/"},
			{RouteID: "posts.show", Path: path, Params: map[string]string{"id": id}},
		}
		post, err := h.store.GetPost(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			h.attributeNotFound(page)
			return page, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load post %q: %w", id, err)
		}

		future := page.deferred.Install("posts.show", "comments")
		page.pending = append(page.pending, pendingKey{routeID: "posts.show", key: "comments", future: future})
		go h.resolveComments(post.ID, future)

		page.loaderData["posts.show"] = map[string]any{
			"post":     post,
			"comments": deferred.Token("comments"),
		}
		page.rawData["posts.show"] = mustJSON(map[string]any{
			"post":     post,
			"comments": deferred.Token("comments"),
		})

	default:
		// No matches; the renderer produces the document-level 404.
		page.status = http.StatusNotFound
	}
	return page, nil
}

func (h *documentHandler) attributeNotFound(page *pageState) {
	ids := make([]string, len(page.matches))
	for i, m := range page.matches {
		ids[i] = m.RouteID
	}
	page.status = http.StatusNotFound
	page.state.Caught = &boundary.CaughtResponse{
		Status:     http.StatusNotFound,
		StatusText: http.StatusText(http.StatusNotFound),
	}
	page.state.CatchBoundaryRouteID = boundary.AttributeCatch(ids, h.registry.CapabilityMap())
	page.state.TrackCatchBoundaries = false
}

// resolveComments settles the deferred comments future off the request
// path, capped so a stuck query produces a rejection script instead of a
// never-closing document.
func (h *documentHandler) resolveComments(postID string, future *deferred.Future) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.DeferredResolve)
	defer cancel()

	comments, err := h.store.ListComments(ctx, postID)
	if err != nil {
		future.Reject(fmt.Errorf("load comments for %q: %w", postID, err))
		return
	}
	future.Resolve(comments)
}

func (h *documentHandler) writeDocument(ctx context.Context, w http.ResponseWriter, r *http.Request, page *pageState, result render.Result) error {
	payload := h.handoffPayload(r, page, result)
	inline, err := payload.EncodeInline()
	if err != nil {
		return fmt.Errorf("encode handoff: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(page.status)

	if _, err := fmt.Fprintf(w,
		"<!DOCTYPE html><html><head><title>remix demo</title></head><body>%s<script>window.__remixContext=%s;</script>",
		result.HTML, inline); err != nil {
		return err
	}

	for _, p := range page.pending {
		script, err := deferred.InstallerScript(p.routeID, p.key)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<script>%s</script>", script); err != nil {
			return err
		}
	}
	flush(w)

	// Fan in on settlement so an early-installed slow key never holds up
	// the scripts of keys that settle first.
	settled := make(chan pendingKey, len(page.pending))
	for _, p := range page.pending {
		p := p
		go func() {
			<-p.future.Done()
			settled <- p
		}()
	}
	for remaining := len(page.pending); remaining > 0; remaining-- {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-settled:
			if err := h.writeResolution(ctx, w, p); err != nil {
				return err
			}
			flush(w)
		}
	}

	_, err = fmt.Fprint(w, "</body></html>")
	return err
}

// writeResolution emits the resolution script for one settled key.
func (h *documentHandler) writeResolution(ctx context.Context, w http.ResponseWriter, p pendingKey) error {
	value, settleErr := p.future.Await(ctx)
	script, err := deferred.ResolutionScript(p.routeID, p.key, value, handoff.Serialize(settleErr))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "<script>%s</script>", script)
	return err
}

func (h *documentHandler) handoffPayload(r *http.Request, page *pageState, result render.Result) *handoff.Payload {
	deferredKeys := make(map[string][]string)
	for _, p := range page.pending {
		deferredKeys[p.routeID] = append(deferredKeys[p.routeID], p.key)
	}

	return &handoff.Payload{
		RouteManifest:      h.registry.Manifest(),
		LoaderData:         page.rawData,
		DeferredLoaderData: deferredKeys,
		Boundary: handoff.BoundaryPayload{
			Error:                handoff.Serialize(result.Boundary.Error),
			Caught:               result.Boundary.Caught,
			CatchBoundaryRouteID: result.Boundary.CatchBoundaryRouteID,
			ErrorBoundaryRouteID: result.Boundary.ErrorBoundaryRouteID,
		},
		Location: r.URL.RequestURI(),
	}
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		// Loader values are plain structs and maps; a marshal failure is
		// a programming error.
		panic(err)
	}
	return raw
}
