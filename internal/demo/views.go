package demo

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
	"github.com/mamala42/remix/boundary"
	"github.com/mamala42/remix/render"
)

// Routes returns the demo route registry: a root layout, the posts index,
// a search page with a GET form, and a post detail route whose comments
// stream in as a deferred value.
func Routes() (*render.Registry, error) {
	reg := render.NewRegistry()
	modules := []render.RouteModule{
		{
			ID:        "root",
			Path:      "/",
			View:      rootLayout,
			ErrorView: rootError,
		},
		{
			ID:       "posts.index",
			Path:     "/",
			ParentID: "root",
			View:     postsIndex,
		},
		{
			ID:       "posts.search",
			Path:     "/search",
			ParentID: "root",
			View:     postsSearch,
		},
		{
			ID:        "posts.show",
			Path:      "/posts/:id",
			ParentID:  "root",
			View:      postDetail,
			CatchView: postNotFound,
		},
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func rootLayout() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<header><a href="/">remix demo</a></header><main>`); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main>`)
		return err
	})
}

func rootError(err error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, werr := fmt.Fprintf(w, `<section class="error"><h1>Something broke</h1><pre>%s</pre></section>`,
			html.EscapeString(err.Error()))
		return werr
	})
}

func postsIndex() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data, err := render.LoaderData(ctx)
		if err != nil {
			return err
		}
		posts, _ := data.(map[string]any)["posts"].([]Post)
		if _, err := io.WriteString(w, `<ul class="posts">`); err != nil {
			return err
		}
		for _, p := range posts {
			if _, err := fmt.Fprintf(w, `<li><a href="/posts/%s">%s</a></li>`,
				html.EscapeString(p.ID), html.EscapeString(p.Title)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</ul>`)
		return err
	})
}

func postsSearch() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data, err := render.LoaderData(ctx)
		if err != nil {
			return err
		}
		fields, _ := data.(map[string]any)
		query, _ := fields["query"].(string)
		posts, _ := fields["posts"].([]Post)

		if _, err := fmt.Fprintf(w,
			`<form method="get" action="/search"><input type="search" name="q" value="%s"><button type="submit">Search</button></form>`,
			html.EscapeString(query)); err != nil {
			return err
		}
		if len(posts) == 0 {
			_, err := io.WriteString(w, `<p class="search-empty">No matching posts.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<ul class="results">`); err != nil {
			return err
		}
		for _, p := range posts {
			if _, err := fmt.Fprintf(w, `<li><a href="/posts/%s">%s</a></li>`,
				html.EscapeString(p.ID), html.EscapeString(p.Title)); err != nil {
				return err
			}
		}
		_, err = io.WriteString(w, `</ul>`)
		return err
	})
}

func postDetail() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		data, err := render.LoaderData(ctx)
		if err != nil {
			return err
		}
		post, _ := data.(map[string]any)["post"].(Post)
		if _, err := fmt.Fprintf(w, `<article><h1>%s</h1><p>%s</p></article>`,
			html.EscapeString(post.Title), html.EscapeString(post.Body)); err != nil {
			return err
		}

		comments, err := render.DeferredValue(ctx, "comments")
		if err != nil {
			return err
		}
		return render.Deferred(comments,
			spinner(),
			commentList,
			commentsFailed,
		).Render(ctx, w)
	})
}

func spinner() templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p class="loading">loading comments…</p>`)
		return err
	})
}

func commentList(value any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		comments, _ := value.([]Comment)
		if len(comments) == 0 {
			_, err := io.WriteString(w, `<p class="comments-empty">No comments yet.</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<ul class="comments">`); err != nil {
			return err
		}
		for _, c := range comments {
			if _, err := fmt.Fprintf(w, `<li><b>%s</b> %s</li>`,
				html.EscapeString(c.Author), html.EscapeString(c.Body)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
}

func commentsFailed(err error) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, werr := fmt.Fprintf(w, `<p class="comments-error">comments unavailable: %s</p>`,
			html.EscapeString(err.Error()))
		return werr
	})
}

func postNotFound(caught *boundary.CaughtResponse) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		status := 0
		if caught != nil {
			status = caught.Status
		}
		_, err := fmt.Fprintf(w, `<section class="not-found"><h1>%d</h1><p>No such post.</p></section>`, status)
		return err
	})
}
