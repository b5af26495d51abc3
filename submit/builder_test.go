package submit

import (
	"errors"
	"testing"

	platformerrors "github.com/mamala42/remix/internal/platform/errors"
)

type fakeSession struct {
	interactive bool
	path        string
	query       string
}

func (s *fakeSession) Interactive() bool {
	return s.interactive
}

func (s *fakeSession) CurrentAction() (string, string) {
	return s.path, s.query
}

func liveSession() *fakeSession {
	return &fakeSession{interactive: true, path: "/current"}
}

func TestBuildRequiresInteractiveSession(t *testing.T) {
	t.Parallel()

	b := NewBuilder(&fakeSession{interactive: false})
	_, err := b.Build(Form{Action: "/search"}, Options{})
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeSubmissionInactiveSession}) {
		t.Fatalf("expected inactive session error, got %v", err)
	}
}

func TestBuildGetFoldsFieldsIntoQuery(t *testing.T) {
	t.Parallel()

	var data FormData
	data.Append("q", Text("x"))

	b := NewBuilder(liveSession())
	sub, err := b.Build(Form{Action: "/search", Data: data}, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sub.Action != "/search?q=x" {
		t.Fatalf("Action = %q, want %q", sub.Action, "/search?q=x")
	}
	if sub.Method != MethodGet {
		t.Fatalf("Method = %q, want GET", sub.Method)
	}
	if sub.Encoding != EncodingURL {
		t.Fatalf("Encoding = %q", sub.Encoding)
	}
}

func TestBuildGetReplacesExistingQuery(t *testing.T) {
	t.Parallel()

	var data FormData
	data.Append("page", Text("2"))

	b := NewBuilder(liveSession())
	sub, err := b.Build(Form{Action: "/search?stale=1", Data: data}, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sub.Action != "/search?page=2" {
		t.Fatalf("Action = %q", sub.Action)
	}
}

func TestBuildGetRejectsBinaryFields(t *testing.T) {
	t.Parallel()

	var data FormData
	data.Append("avatar", File("a.png", []byte{0x89, 0x50}))

	b := NewBuilder(liveSession())
	_, err := b.Build(Form{Action: "/upload", Data: data}, Options{})
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeSubmissionBinaryQueryField}) {
		t.Fatalf("expected binary query field error, got %v", err)
	}
}

func TestBuildButtonAppendsNameValueOnce(t *testing.T) {
	t.Parallel()

	var data FormData
	data.Append("intent", Text("from-form"))
	form := Form{Action: "/tasks", Method: "post", Data: data}

	b := NewBuilder(liveSession())
	sub, err := b.Build(Button{Name: "intent", Value: "archive", Form: &form}, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var fromButton int
	var total int
	for _, f := range sub.Data.Entries() {
		if f.Name != "intent" {
			continue
		}
		total++
		if f.Value.Text() == "archive" {
			fromButton++
		}
	}
	if fromButton != 1 {
		t.Fatalf("button pair appears %d times, want exactly 1", fromButton)
	}
	if total != 2 {
		t.Fatalf("intent fields = %d, want form field plus button pair", total)
	}
}

func TestBuildInputOverwritesSameNamedField(t *testing.T) {
	t.Parallel()

	var data FormData
	data.Append("intent", Text("from-form"))
	form := Form{Action: "/tasks", Method: "post", Data: data}

	b := NewBuilder(liveSession())
	sub, err := b.Build(Input{Name: "intent", Value: "save", Form: &form}, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	entries := sub.Data.Entries()
	count := 0
	for _, f := range entries {
		if f.Name == "intent" {
			count++
			if got := f.Value.Text(); got != "save" {
				t.Fatalf("intent = %q, want %q", got, "save")
			}
		}
	}
	if count != 1 {
		t.Fatalf("intent fields = %d, want 1", count)
	}
}

func TestBuildResolutionOrder(t *testing.T) {
	t.Parallel()

	form := Form{Action: "/form-action", Method: "post"}

	tests := []struct {
		name       string
		target     Target
		opts       Options
		wantMethod string
		wantAction string
	}{
		{
			name:       "option beats control and form",
			target:     Button{FormAction: "/control-action", FormMethod: "put", Form: &form},
			opts:       Options{Method: "delete", Action: "/opt-action"},
			wantMethod: MethodDelete,
			wantAction: "/opt-action",
		},
		{
			name:       "control beats form",
			target:     Button{FormAction: "/control-action", FormMethod: "put", Form: &form},
			opts:       Options{},
			wantMethod: MethodPut,
			wantAction: "/control-action",
		},
		{
			name:       "form beats default",
			target:     Button{Form: &form},
			opts:       Options{},
			wantMethod: MethodPost,
			wantAction: "/form-action",
		},
		{
			name:       "defaults",
			target:     Form{},
			opts:       Options{},
			wantMethod: MethodGet,
			wantAction: "/current",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := NewBuilder(liveSession())
			sub, err := b.Build(tc.target, tc.opts)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if sub.Method != tc.wantMethod {
				t.Fatalf("Method = %q, want %q", sub.Method, tc.wantMethod)
			}
			if sub.Action != tc.wantAction {
				t.Fatalf("Action = %q, want %q", sub.Action, tc.wantAction)
			}
		})
	}
}

func TestBuildDefaultActionIncludesQuery(t *testing.T) {
	t.Parallel()

	b := NewBuilder(&fakeSession{interactive: true, path: "/list", query: "page=3"})
	sub, err := b.Build(Form{Method: "post"}, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sub.Action != "/list?page=3" {
		t.Fatalf("Action = %q", sub.Action)
	}
}

func TestBuildAllocatesFreshKeys(t *testing.T) {
	t.Parallel()

	b := NewBuilder(liveSession())
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		sub, err := b.Build(Form{Action: "/a"}, Options{})
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		if sub.Key == "" {
			t.Fatal("expected non-empty key")
		}
		if _, ok := seen[sub.Key]; ok {
			t.Fatalf("key %q reused", sub.Key)
		}
		seen[sub.Key] = struct{}{}
	}
}

func TestBuildRejectsUnknownMethod(t *testing.T) {
	t.Parallel()

	b := NewBuilder(liveSession())
	_, err := b.Build(Form{Method: "trace"}, Options{})
	if !errors.Is(err, &platformerrors.Error{Code: platformerrors.CodeSubmissionInvalidMethod}) {
		t.Fatalf("expected invalid method error, got %v", err)
	}
}

func TestValuesTargetSortsKeys(t *testing.T) {
	t.Parallel()

	b := NewBuilder(liveSession())
	sub, err := b.Build(Values{"b": {"2"}, "a": {"1"}}, Options{Action: "/sorted"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sub.Action != "/sorted?a=1&b=2" {
		t.Fatalf("Action = %q", sub.Action)
	}
}
