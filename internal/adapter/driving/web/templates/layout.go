// Package templates holds the page shell shared by every GUI page.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the HTML document with the navigation bar.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := NewWriter(w)
		hw.Raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.Raw(`<title>`)
		hw.Text(title)
		hw.Raw(` · PassPanel</title><link rel="stylesheet" href="/static/app.css"></head><body>`)
		hw.Raw(`<header class="topbar"><a class="brand" href="/">PassPanel</a><nav>`)
		hw.Raw(`<a href="/">Passwords</a><a href="/app/credentials/new">Add</a>`)
		hw.Raw(`<a href="/app/transfer">Import / Export</a><a href="/app/master-password">Master password</a>`)
		hw.Raw(`<a href="/app/help">Help</a></nav></header><main>`)
		if err := hw.Err(); err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		hw.Raw(`</main></body></html>`)
		return hw.Err()
	})
}
