package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/passpanel/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
)

// CredentialForm renders the add and edit form.
func CredentialForm(data vm.FormViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := templates.NewWriter(w)

		hw.Raw(`<section class="panel"><h1>`)
		hw.Text(data.Title)
		hw.Raw(`</h1>`)
		hw.Notice("", data.Error)
		hw.Raw(`<form method="post" class="stacked"`)
		hw.URL("action", data.Action)
		hw.Raw(`>`)
		hw.CSRFField(data.CSRFToken)

		field(hw, "Website", "url", "url", data.URL, true)
		field(hw, "Login page (optional)", "login_url", "url", data.LoginURL, false)
		field(hw, "Username", "username", "text", data.Username, true)
		field(hw, "Password", "password", "password", data.Password, true)

		hw.Raw(`<div class="buttons"><button type="submit">`)
		hw.Text(data.Submit)
		hw.Raw(`</button><a href="/">Cancel</a></div></form></section>`)
		return hw.Err()
	})
}

func field(hw *templates.Writer, label, name, inputType, value string, required bool) {
	hw.Raw(`<label>`)
	hw.Text(label)
	hw.Raw(`<input autocomplete="off"`)
	hw.Attr("type", inputType)
	hw.Attr("name", name)
	hw.Attr("value", value)
	if required {
		hw.Raw(` required`)
	}
	hw.Raw(`></label>`)
}
