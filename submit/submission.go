package submit

// Submission method verbs, uppercased.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Submission encodings.
const (
	EncodingURL       = "application/x-www-form-urlencoded"
	EncodingMultipart = "multipart/form-data"
)

// Submission is a canonical submission descriptor. It is built once per
// submit call and never mutated after dispatch.
type Submission struct {
	// Data is the ordered field set.
	Data FormData
	// Action is the resolved path plus query.
	Action string
	// Method is the uppercased verb.
	Method string
	// Encoding is the body encoding for non-GET submissions.
	Encoding string
	// Key is a fresh opaque identifier distinguishing otherwise-identical
	// concurrent submissions. It is never reused within a session.
	Key string
}
