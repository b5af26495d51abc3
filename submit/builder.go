package submit

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	platformerrors "github.com/mamala42/remix/internal/platform/errors"
	"github.com/mamala42/remix/internal/platform/id"
)

// Session is the interactive host the builder requires. Building a
// submission during the server-only render pass is a programmer error.
type Session interface {
	// Interactive reports whether a live host window exists.
	Interactive() bool
	// CurrentAction returns the current location's path and query, the
	// default action for targets that resolve no action of their own.
	CurrentAction() (path, query string)
}

// Target is any submittable source: a form, a submitting control, or raw
// field data.
type Target interface {
	applyTo(*buildState)
}

// Form describes a form-like element.
type Form struct {
	Action  string
	Method  string
	Enctype string
	Data    FormData
}

func (f Form) applyTo(s *buildState) {
	s.formAction = f.Action
	s.formMethod = f.Method
	s.formEnctype = f.Enctype
	s.data = f.Data.Clone()
}

// Button describes a submit button, optionally nested in a form. Its
// name/value pair is appended to the form-derived field set, mirroring
// native submission semantics.
type Button struct {
	Name        string
	Value       string
	FormAction  string
	FormMethod  string
	FormEnctype string
	Form        *Form
}

func (b Button) applyTo(s *buildState) {
	if b.Form != nil {
		b.Form.applyTo(s)
	}
	s.controlAction = b.FormAction
	s.controlMethod = b.FormMethod
	s.controlEnctype = b.FormEnctype
	if b.Name != "" {
		s.data.Append(b.Name, Text(b.Value))
	}
}

// Input describes a submit input, optionally nested in a form. Unlike a
// button its name/value pair overwrites any form-derived field of the same
// name.
type Input struct {
	Name        string
	Value       string
	FormAction  string
	FormMethod  string
	FormEnctype string
	Form        *Form
}

func (i Input) applyTo(s *buildState) {
	if i.Form != nil {
		i.Form.applyTo(s)
	}
	s.controlAction = i.FormAction
	s.controlMethod = i.FormMethod
	s.controlEnctype = i.FormEnctype
	if i.Name != "" {
		s.data.Set(i.Name, Text(i.Value))
	}
}

// Values is a raw key/value map target. Keys are emitted in sorted order
// since the map carries no order of its own.
type Values map[string][]string

func (v Values) applyTo(s *buildState) {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range v[name] {
			s.data.Append(name, Text(value))
		}
	}
}

// Data is a structured multi-part data target submitted as-is.
type Data struct {
	FormData FormData
}

func (d Data) applyTo(s *buildState) {
	s.data = d.FormData.Clone()
}

// Options are call-site overrides. They take precedence over the control's
// own attributes, which take precedence over the owning form's.
type Options struct {
	Method   string
	Action   string
	Encoding string
}

type buildState struct {
	data           FormData
	formAction     string
	formMethod     string
	formEnctype    string
	controlAction  string
	controlMethod  string
	controlEnctype string
}

// Builder normalizes targets into canonical submissions.
type Builder struct {
	session Session
}

// NewBuilder creates a builder bound to an interactive session.
func NewBuilder(session Session) *Builder {
	return &Builder{session: session}
}

// Build normalizes target plus options into a Submission. Every call
// allocates a fresh submission key.
func (b *Builder) Build(target Target, opts Options) (*Submission, error) {
	if b == nil || b.session == nil || !b.session.Interactive() {
		return nil, platformerrors.New(
			platformerrors.CodeSubmissionInactiveSession,
			"submission requires a live interactive session; it cannot run during the server render pass",
		)
	}
	if target == nil {
		return nil, platformerrors.New(
			platformerrors.CodeSubmissionInvalidTarget,
			"submission target is required",
		)
	}

	var state buildState
	target.applyTo(&state)

	method, err := resolveMethod(opts.Method, state.controlMethod, state.formMethod)
	if err != nil {
		return nil, err
	}
	encoding, err := resolveEncoding(opts.Encoding, state.controlEnctype, state.formEnctype)
	if err != nil {
		return nil, err
	}
	action, err := b.resolveAction(opts.Action, state.controlAction, state.formAction)
	if err != nil {
		return nil, err
	}

	if method == MethodGet {
		action, err = foldIntoQuery(action, &state.data)
		if err != nil {
			return nil, err
		}
	}

	key, err := id.NewID()
	if err != nil {
		return nil, fmt.Errorf("allocate submission key: %w", err)
	}

	return &Submission{
		Data:     state.data,
		Action:   action,
		Method:   method,
		Encoding: encoding,
		Key:      key,
	}, nil
}

func resolveMethod(candidates ...string) (string, error) {
	method := firstNonEmpty(candidates...)
	if method == "" {
		method = MethodGet
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return method, nil
	}
	return "", platformerrors.WithMetadata(
		platformerrors.CodeSubmissionInvalidMethod,
		fmt.Sprintf("unsupported submission method %q", method),
		map[string]string{"method": method},
	)
}

func resolveEncoding(candidates ...string) (string, error) {
	encoding := firstNonEmpty(candidates...)
	if encoding == "" {
		return EncodingURL, nil
	}
	switch encoding {
	case EncodingURL, EncodingMultipart:
		return encoding, nil
	}
	return "", platformerrors.WithMetadata(
		platformerrors.CodeSubmissionInvalidTarget,
		fmt.Sprintf("unsupported submission encoding %q", encoding),
		map[string]string{"encoding": encoding},
	)
}

func (b *Builder) resolveAction(candidates ...string) (string, error) {
	action := firstNonEmpty(candidates...)
	if action == "" {
		path, query := b.session.CurrentAction()
		if query != "" {
			return path + "?" + query, nil
		}
		return path, nil
	}
	if _, err := url.Parse(action); err != nil {
		return "", platformerrors.Wrap(
			platformerrors.CodeSubmissionInvalidTarget,
			fmt.Sprintf("invalid submission action %q", action),
			err,
		)
	}
	return action, nil
}

// foldIntoQuery replaces the action's query string with the encoded field
// set, matching native GET form submission.
func foldIntoQuery(action string, data *FormData) (string, error) {
	query, err := data.EncodeQuery()
	if err != nil {
		return "", err
	}
	base := action
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	if query == "" {
		return base, nil
	}
	return base + "?" + query, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
