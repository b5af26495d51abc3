// Package handoff codecs the document-embedded payload the server hands to
// the client runtime: initial loader/action data, deferred markers, and the
// boundary state computed during the server pass.
package handoff

import (
	"encoding/json"
	"fmt"

	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

// RouteDescriptor describes one route in the manifest.
type RouteDescriptor struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	ParentID string `json:"parentId,omitempty"`
	HasView  bool   `json:"hasView"`
	HasError bool   `json:"hasErrorView"`
	HasCatch bool   `json:"hasCatchView"`
}

// SerializedError carries a failure across the wire with its remote stack.
type SerializedError struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// CaughtResponse is a route handler's deliberate non-success result,
// distinct from an exception.
type CaughtResponse struct {
	Status     int             `json:"status"`
	StatusText string          `json:"statusText,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// BoundaryPayload is the boundary state computed during the server pass.
type BoundaryPayload struct {
	Error                *SerializedError `json:"error,omitempty"`
	Caught               *CaughtResponse  `json:"catch,omitempty"`
	CatchBoundaryRouteID string           `json:"catchBoundaryRouteId,omitempty"`
	ErrorBoundaryRouteID string           `json:"errorBoundaryRouteId,omitempty"`
}

// Payload is the full server handoff, embeddable as a single literal
// expression inside an inline script.
type Payload struct {
	RouteManifest      []RouteDescriptor          `json:"routeManifest"`
	LoaderData         map[string]json.RawMessage `json:"loaderData,omitempty"`
	DeferredLoaderData map[string][]string        `json:"deferredLoaderData,omitempty"`
	ActionData         map[string]json.RawMessage `json:"actionData,omitempty"`
	Boundary           BoundaryPayload            `json:"boundaryState"`
	Location           string                     `json:"location"`
}

// Decode parses a handoff payload, tolerating absent sections.
func Decode(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, platformerrors.Wrap(platformerrors.CodeHandoffDecode, "decode handoff payload", err)
	}
	return &p, nil
}

// RemoteError is an error reconstructed from a SerializedError. The remote
// stack is preserved so server-side failures stay attributable client-side.
type RemoteError struct {
	Message string
	Stack   string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Message
}

// Reconstruct turns a serialized error back into a live error value.
func (s *SerializedError) Reconstruct() error {
	if s == nil {
		return nil
	}
	return &RemoteError{Message: s.Message, Stack: s.Stack}
}

// Serialize captures an error for the wire. A RemoteError round-trips its
// stack; other errors serialize message-only.
func Serialize(err error) *SerializedError {
	if err == nil {
		return nil
	}
	if remote, ok := err.(*RemoteError); ok {
		return &SerializedError{Message: remote.Message, Stack: remote.Stack}
	}
	return &SerializedError{Message: err.Error()}
}

// EncodeInline marshals the payload as a single JSON literal safe for
// inline script embedding.
func (p *Payload) EncodeInline() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal handoff payload: %w", err)
	}
	return EscapeInlineJSON(raw), nil
}
