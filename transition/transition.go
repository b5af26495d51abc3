// Package transition defines the boundary to the external transition state
// machine: the collaborator that accepts navigation and fetcher intents and
// owns the authoritative {location, matches, loaderData, actionData,
// fetchers} snapshot. The runtime never reaches into the machine beyond
// this contract; it only observes snapshot changes.
package transition

import (
	"context"
	"net/url"
	"strings"
)

// Action describes how a location change entered the history stack.
type Action string

const (
	// ActionPush adds a new history entry.
	ActionPush Action = "push"
	// ActionReplace replaces the current history entry.
	ActionReplace Action = "replace"
	// ActionPop re-enters an existing history entry (back/forward).
	ActionPop Action = "pop"
)

// Location identifies a navigable destination plus its history identity.
type Location struct {
	// Path is the absolute pathname, starting with "/".
	Path string
	// Query is the raw query string without the leading "?".
	Query string
	// Hash is the fragment without the leading "#".
	Hash string
	// Key identifies the history entry; it does not affect destination
	// equality.
	Key string
}

// String renders the location as a relative URL.
func (l Location) String() string {
	var b strings.Builder
	b.WriteString(l.Path)
	if l.Query != "" {
		b.WriteString("?")
		b.WriteString(l.Query)
	}
	if l.Hash != "" {
		b.WriteString("#")
		b.WriteString(l.Hash)
	}
	return b.String()
}

// SameDestination reports whether two locations address the same place,
// ignoring history keys.
func (l Location) SameDestination(other Location) bool {
	return l.Path == other.Path && l.Query == other.Query && l.Hash == other.Hash
}

// ParseLocation parses a relative URL into a Location.
func ParseLocation(href string) (Location, error) {
	u, err := url.Parse(href)
	if err != nil {
		return Location{}, err
	}
	return Location{Path: u.Path, Query: u.RawQuery, Hash: u.Fragment}, nil
}

// TransitionState describes what the machine is currently doing.
type TransitionState string

const (
	// StateIdle means no navigation or submission is in flight.
	StateIdle TransitionState = "idle"
	// StateSubmitting means a non-GET submission is in flight.
	StateSubmitting TransitionState = "submitting"
	// StateLoading means loaders are running for a pending navigation.
	StateLoading TransitionState = "loading"
)

// Transition is the machine's current activity snapshot.
type Transition struct {
	State    TransitionState
	Location Location
}

// Match pairs a matched route id with its path parameters.
type Match struct {
	RouteID string
	Path    string
	Params  map[string]string
}

// FetcherState describes a named concurrent interaction.
type FetcherState string

const (
	// FetcherIdle means the fetcher has no request in flight.
	FetcherIdle FetcherState = "idle"
	// FetcherSubmitting means the fetcher is submitting.
	FetcherSubmitting FetcherState = "submitting"
	// FetcherLoading means the fetcher is loading data.
	FetcherLoading FetcherState = "loading"
)

// State is the machine's public snapshot, consumed by the orchestrator on
// every change callback.
type State struct {
	Location           Location
	Matches            []Match
	LoaderData         map[string]any
	DeferredLoaderData map[string]map[string]any
	ActionData         map[string]any
	Fetchers           map[string]Fetcher
	Transition         Transition

	// Server-attributed failure state, re-derived into the public
	// boundary state by the orchestrator on every change.
	Error                error
	Caught               any
	CatchBoundaryRouteID string
	ErrorBoundaryRouteID string
}

// Machine is the external transition state machine contract. It must
// guarantee at most one authoritative in-flight result per navigation state
// and invoke its change callbacks strictly on its own internal transitions.
type Machine interface {
	// Send applies an intent. Intents are applied in the order the host
	// reports them.
	Send(ctx context.Context, intent Intent) error
	// State returns the current snapshot.
	State() State
	// Fetcher returns the fetcher for key, creating an idle one on first
	// use.
	Fetcher(key string) Fetcher
	// DeleteFetcher releases the fetcher's entry in the live set.
	DeleteFetcher(key string)
}
