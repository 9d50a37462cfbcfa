package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/passpanel/internal/adapter/driving/web/templates"
	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
)

// Transfer renders the import and export forms.
func Transfer(data vm.TransferViewModel) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := templates.NewWriter(w)

		hw.Raw(`<section class="panel"><h1>Import / Export</h1>`)
		hw.Notice(data.Flash, data.Error)

		hw.Raw(`<h2>Export</h2><p>Downloads every saved password as CSV (Website, Username, Password, Created, ID). The file is not encrypted.</p>`)
		hw.Raw(`<form method="post" action="/app/export" class="stacked">`)
		hw.CSRFField(data.CSRFToken)
		if data.GateSet {
			hw.Raw(`<label>Master password<input type="password" name="master_password" required autocomplete="off"></label>`)
		}
		hw.Raw(`<div class="buttons"><button type="submit">Export CSV</button></div></form>`)

		hw.Raw(`<h2>Import</h2><p>Accepts a CSV exported by PassPanel. Rows without a website, username or password are skipped.</p>`)
		hw.Raw(`<form method="post" action="/app/import" enctype="multipart/form-data" class="stacked">`)
		hw.CSRFField(data.CSRFToken)
		hw.Raw(`<label>File<input type="file" name="file" accept=".csv,text/csv" required></label>`)
		hw.Raw(`<fieldset><legend>Mode</legend>`)
		hw.Raw(`<label class="inline"><input type="radio" name="mode" value="merge" checked> Merge with saved passwords</label>`)
		hw.Raw(`<label class="inline"><input type="radio" name="mode" value="replace"> Replace all saved passwords</label>`)
		hw.Raw(`</fieldset><div class="buttons"><button type="submit">Import</button></div></form></section>`)
		return hw.Err()
	})
}
