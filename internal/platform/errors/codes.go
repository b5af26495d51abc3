// Package errors provides structured error handling for the runtime.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Submission errors
	CodeSubmissionInactiveSession  Code = "SUBMISSION_INACTIVE_SESSION"
	CodeSubmissionBinaryQueryField Code = "SUBMISSION_BINARY_QUERY_FIELD"
	CodeSubmissionInvalidMethod    Code = "SUBMISSION_INVALID_METHOD"
	CodeSubmissionInvalidTarget    Code = "SUBMISSION_INVALID_TARGET"

	// Route view errors
	CodeRouteMissingView    Code = "ROUTE_MISSING_VIEW"
	CodeRouteDuplicateID    Code = "ROUTE_DUPLICATE_ID"
	CodeRouteDataOutside    Code = "ROUTE_DATA_OUTSIDE_ROUTE_CONTEXT"
	CodeRouteDataSuppressed Code = "ROUTE_DATA_SUPPRESSED_BY_BOUNDARY"

	// Deferred protocol errors
	CodeDeferredUnknownKey Code = "DEFERRED_UNKNOWN_KEY"
	CodeDeferredRejected   Code = "DEFERRED_REJECTED"

	// Fetcher errors
	CodeFetcherReleased Code = "FETCHER_ALREADY_RELEASED"

	// Handoff errors
	CodeHandoffDecode Code = "HANDOFF_DECODE"

	// Hydration errors
	CodeHydrationMismatch Code = "HYDRATION_MISMATCH"
)

// HTTPStatus maps domain codes to HTTP status codes for surfaces that
// report failures over HTTP.
func (c Code) HTTPStatus() int {
	switch c {
	// Programmer errors surface as server faults; they must be loud.
	case CodeSubmissionInactiveSession,
		CodeRouteDataOutside,
		CodeRouteDataSuppressed,
		CodeRouteMissingView,
		CodeRouteDuplicateID,
		CodeFetcherReleased,
		CodeHydrationMismatch:
		return http.StatusInternalServerError

	case CodeSubmissionBinaryQueryField,
		CodeSubmissionInvalidMethod,
		CodeSubmissionInvalidTarget,
		CodeHandoffDecode:
		return http.StatusBadRequest

	case CodeDeferredUnknownKey:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
