package model

import "strings"

// NoForm is the Form index of a field that is not inside any <form>.
const NoForm = -1

// FormField is a snapshot of one input or button on a page, including the
// computed layout facts needed to decide whether a user can see it.
type FormField struct {
	Ref          string // Stable handle the page adapter uses to address the element.
	Tag          string // Lower-case tag name: "input" or "button".
	Type         string // Lower-case type attribute; empty when absent.
	Name         string
	ElementID    string
	Placeholder  string
	AriaLabel    string
	Autocomplete string
	Class        string
	Value        string
	Text         string // Visible label for buttons.

	Display    string
	Visibility string
	Opacity    float64
	Width      float64
	Height     float64

	Form    int  // Index of the enclosing form, or NoForm.
	Order   int  // Position in document order.
	Enabled bool // An autofill affordance is already attached.
}

// Visible reports whether the element is rendered and takes up space.
// Honeypot fields fail this check.
func (f FormField) Visible() bool {
	return f.Display != "none" &&
		f.Visibility != "hidden" &&
		f.Opacity != 0 &&
		f.Width > 0 &&
		f.Height > 0
}

// IsInput reports whether the field is an <input> element.
func (f FormField) IsInput() bool {
	return f.Tag == "input"
}

// IsPassword reports whether the field is a password input.
func (f FormField) IsPassword() bool {
	return f.IsInput() && f.Type == "password"
}

// IsEmail reports whether the field is an email input.
func (f FormField) IsEmail() bool {
	return f.IsInput() && f.Type == "email"
}

// IsTextLike reports whether the field is a text input or an input with no
// explicit type.
func (f FormField) IsTextLike() bool {
	return f.IsInput() && (f.Type == "" || f.Type == "text")
}

// Attributes returns the attribute values the username keyword scan inspects,
// lower-cased.
func (f FormField) Attributes() []string {
	return []string{
		strings.ToLower(f.Name),
		strings.ToLower(f.ElementID),
		strings.ToLower(f.Placeholder),
		strings.ToLower(f.AriaLabel),
		strings.ToLower(f.Autocomplete),
		strings.ToLower(f.Class),
	}
}

// FormSnapshot is the set of inputs and buttons on a page at one moment.
// Fields are kept in document order.
type FormSnapshot struct {
	URL    string
	Forms  int
	Fields []FormField
}

// InForm returns the fields that belong to the form with the given index.
// NoForm returns the whole document.
func (s FormSnapshot) InForm(form int) []FormField {
	if form == NoForm {
		return s.Fields
	}

	var fields []FormField
	for _, f := range s.Fields {
		if f.Form == form {
			fields = append(fields, f)
		}
	}
	return fields
}

// Field looks up a field by its ref.
func (s FormSnapshot) Field(ref string) (FormField, bool) {
	for _, f := range s.Fields {
		if f.Ref == ref {
			return f, true
		}
	}
	return FormField{}, false
}
