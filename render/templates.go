package render

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
	"github.com/mamala42/remix/boundary"
	"github.com/mamala42/remix/internal/platform/i18n"
)

// DocumentViews are the root-level boundary components: the last resort
// for failures no route claims. Zero-value fields fall back to the
// built-in documents.
type DocumentViews struct {
	ErrorView func(err error) templ.Component
	CatchView func(caught *boundary.CaughtResponse) templ.Component
}

// DefaultDocumentError renders the built-in document-level error view.
func DefaultDocumentError(loc *i18n.Localizer) func(error) templ.Component {
	return func(err error) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			title := loc.Sprintf("boundary.error.title")
			detail := loc.Sprintf("boundary.error.detail")
			message := ""
			if err != nil {
				message = err.Error()
			}
			_, werr := fmt.Fprintf(w,
				`<main class="document-error"><h1>%s</h1><p>%s</p><pre>%s</pre></main>`,
				html.EscapeString(title), html.EscapeString(detail), html.EscapeString(message))
			return werr
		})
	}
}

// DefaultDocumentCatch renders the built-in document-level catch view.
func DefaultDocumentCatch(loc *i18n.Localizer) func(*boundary.CaughtResponse) templ.Component {
	return func(caught *boundary.CaughtResponse) templ.Component {
		return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
			title := loc.Sprintf("boundary.catch.title")
			status := 0
			statusText := ""
			if caught != nil {
				status = caught.Status
				statusText = caught.StatusText
			}
			_, werr := fmt.Fprintf(w,
				`<main class="document-catch"><h1>%s</h1><p>%d %s</p></main>`,
				html.EscapeString(title), status, html.EscapeString(statusText))
			return werr
		})
	}
}
