package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
)

// Help renders the help document. HTML must already be sanitized.
func Help(data vm.HelpViewModel) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<article class="panel help">`); err != nil {
			return err
		}
		if err := templ.Raw(data.HTML).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</article>`)
		return err
	})
}
