package transition

import "github.com/mamala42/remix/submit"

// Intent is a navigation or fetcher instruction for the machine. Intents
// are immutable once dispatched.
type Intent interface {
	intent()
}

// NavigationIntent asks the machine to transition to a new location,
// optionally carrying the submission buffered since the last intent.
type NavigationIntent struct {
	Location   Location
	Submission *submit.Submission
	Action     Action
}

func (NavigationIntent) intent() {}

// FetcherIntent dispatches a named concurrent interaction without touching
// the navigation state.
type FetcherIntent struct {
	Key        string
	Href       string
	Submission *submit.Submission
}

func (FetcherIntent) intent() {}

// Fetcher is a named concurrent interaction owned by the machine. It is
// created on first use of a key and released explicitly when the owning
// view unmounts.
type Fetcher struct {
	Key        string
	State      FetcherState
	Data       any
	Submission *submit.Submission
}
