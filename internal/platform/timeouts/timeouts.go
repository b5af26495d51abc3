// Package timeouts defines shared timeout constants. Centralizing these
// values prevents drift between components and makes the durations
// discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// DeferredResolve caps the server-side wait for one deferred value before
// its resolution script is emitted with a timeout error instead.
const DeferredResolve = 10 * time.Second
