// Package pages holds the body components of each GUI page.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/passpanel/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
)

// CredentialList renders the searchable credential table.
func CredentialList(data vm.ListViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := templates.NewWriter(w)

		hw.Raw(`<section class="list"><div class="list-head"><h1>Passwords</h1>`)
		hw.Raw(`<form class="search" method="get" action="/"><input type="search" name="q" placeholder="Search site or username"`)
		hw.Attr("value", data.Query)
		hw.Raw(`><button type="submit">Search</button></form></div>`)
		hw.Notice(data.Flash, data.Error)

		if len(data.Rows) == 0 {
			hw.Raw(`<p class="empty">`)
			if data.Query != "" {
				hw.Text("No passwords match \"" + data.Query + "\".")
			} else {
				hw.Raw(`No saved passwords yet. <a href="/app/credentials/new">Add one</a> or <a href="/app/transfer">import a file</a>.`)
			}
			hw.Raw(`</p></section>`)
			return hw.Err()
		}

		hw.Raw(`<p class="count">`)
		hw.Text(strconv.Itoa(len(data.Rows)) + " of " + strconv.Itoa(data.Total))
		hw.Raw(`</p><table class="credentials"><thead><tr><th>Site</th><th>Username</th><th>Password</th><th>Created</th><th></th></tr></thead><tbody>`)

		for _, row := range data.Rows {
			credentialRow(hw, row, data)
		}

		hw.Raw(`</tbody></table></section>`)
		return hw.Err()
	})
}

func credentialRow(hw *templates.Writer, row vm.CredentialRowViewModel, data vm.ListViewModel) {
	hw.Raw(`<tr><td><a target="_blank" rel="noopener noreferrer"`)
	hw.URL("href", row.LoginURL)
	hw.Raw(`>`)
	hw.Text(row.Site)
	hw.Raw(`</a><div class="sub">`)
	hw.Text(row.URL)
	hw.Raw(`</div></td><td>`)
	hw.Text(row.Username)
	hw.Raw(`</td><td class="secret">`)
	if row.Revealed {
		hw.Raw(`<code>`)
		hw.Text(row.Password)
		hw.Raw(`</code> <a href="/">Hide</a>`)
	} else {
		hw.Text(row.Masked)
		hw.Raw(` <a`)
		hw.URL("href", row.RevealPath)
		hw.Raw(`>Show</a>`)
	}
	hw.Raw(`</td><td>`)
	hw.Text(row.CreatedAt)
	if row.UpdatedAt != "" {
		hw.Raw(`<div class="sub">updated `)
		hw.Text(row.UpdatedAt)
		hw.Raw(`</div>`)
	}
	hw.Raw(`</td><td class="actions">`)

	if data.BrowserAvailable {
		hw.Raw(`<form method="post"`)
		hw.URL("action", row.LoginPath)
		hw.Raw(`>`)
		hw.CSRFField(data.CSRFToken)
		hw.Raw(`<label class="inline"><input type="checkbox" name="submit" value="1"> submit</label><button type="submit">Log in</button></form>`)
	}

	hw.Raw(`<a class="button"`)
	hw.URL("href", row.EditPath)
	hw.Raw(`>Edit</a><form method="post" onsubmit="return confirm('Delete this password?')"`)
	hw.URL("action", row.DeletePath)
	hw.Raw(`>`)
	hw.CSRFField(data.CSRFToken)
	hw.Raw(`<button type="submit" class="danger">Delete</button></form></td></tr>`)
}
