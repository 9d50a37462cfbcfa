package templates

import (
	"io"

	"github.com/a-h/templ"
)

// Writer accumulates the first write error so components can emit markup
// without checking every call.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Raw writes trusted markup as is.
func (hw *Writer) Raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

// Text writes s with HTML escaping.
func (hw *Writer) Text(s string) {
	hw.Raw(templ.EscapeString(s))
}

// Attr writes name="value" with the value escaped, preceded by a space.
func (hw *Writer) Attr(name, value string) {
	hw.Raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// URL writes a link-valued attribute. Values pass through templ.URL, so
// schemes other than http(s), mailto, tel and ftp render as an inert
// about:invalid URL.
func (hw *Writer) URL(name, value string) {
	hw.Attr(name, string(templ.URL(value)))
}

// Err returns the first write error.
func (hw *Writer) Err() error {
	return hw.err
}

// CSRFField writes the hidden CSRF input every state-changing form carries.
func (hw *Writer) CSRFField(token string) {
	hw.Raw(`<input type="hidden" name="csrf_token"`)
	hw.Attr("value", token)
	hw.Raw(`>`)
}

// Notice writes the flash and error banners when set.
func (hw *Writer) Notice(flash, errMsg string) {
	if flash != "" {
		hw.Raw(`<p class="notice notice-ok" role="status">`)
		hw.Text(flash)
		hw.Raw(`</p>`)
	}
	if errMsg != "" {
		hw.Raw(`<p class="notice notice-error" role="alert">`)
		hw.Text(errMsg)
		hw.Raw(`</p>`)
	}
}
