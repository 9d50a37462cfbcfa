package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/passpanel/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
)

// MasterPassword renders the set, change and remove forms.
func MasterPassword(data vm.MasterPasswordViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := templates.NewWriter(w)

		hw.Raw(`<section class="panel"><h1>Master password</h1>`)
		hw.Notice(data.Flash, data.Error)
		hw.Raw(`<p>The master password only guards export. It is stored as plain text and does not encrypt saved passwords.</p>`)

		hw.Raw(`<form method="post" action="/app/master-password" class="stacked">`)
		hw.CSRFField(data.CSRFToken)
		if data.IsSet {
			hw.Raw(`<h2>Change</h2><label>Current master password<input type="password" name="current" required autocomplete="off"></label>`)
		} else {
			hw.Raw(`<h2>Set</h2>`)
		}
		hw.Raw(`<label>New master password<input type="password" name="new" required autocomplete="new-password"`)
		hw.Attr("minlength", strconv.Itoa(data.MinLength))
		hw.Raw(`></label><label>Confirm<input type="password" name="confirm" required autocomplete="new-password"></label>`)
		hw.Raw(`<div class="buttons"><button type="submit">Save</button></div></form>`)

		if data.IsSet {
			hw.Raw(`<form method="post" action="/app/master-password/remove" class="stacked">`)
			hw.CSRFField(data.CSRFToken)
			hw.Raw(`<h2>Remove</h2><label>Current master password<input type="password" name="current" required autocomplete="off"></label>`)
			hw.Raw(`<div class="buttons"><button type="submit" class="danger">Remove</button></div></form>`)
		}

		hw.Raw(`</section>`)
		return hw.Err()
	})
}
