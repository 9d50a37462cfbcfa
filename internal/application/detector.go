package application

import (
	"strings"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// usernameKeywords are matched as substrings of a text input's attributes.
var usernameKeywords = []string{"user", "email", "login", "account", "id"}

// loginButtonKeywords are matched as substrings of a button's text or id.
var loginButtonKeywords = []string{"sign in", "log in", "login", "submit"}

// usernameStrategy is one tier of username detection. Tiers run in order and
// the first match wins.
type usernameStrategy struct {
	name  string
	match func(fields []model.FormField, password *model.FormField) (model.FormField, bool)
}

var usernameStrategies = []usernameStrategy{
	{name: "email-type", match: matchEmailType},
	{name: "keyword", match: matchKeyword},
	{name: "precedes-password", match: matchPrecedesPassword},
	{name: "first-visible", match: matchFirstVisible},
}

// LoginFields is the detector's verdict for one scope.
type LoginFields struct {
	Username *model.FormField
	Password *model.FormField

	// Strategy names the tier that picked Username.
	Strategy string
}

// Complete reports whether both fields were found.
func (l LoginFields) Complete() bool {
	return l.Username != nil && l.Password != nil
}

// DetectLoginFields picks the password field and at most one username field
// from fields, which must be in document order. Hidden fields are never
// picked.
func DetectLoginFields(fields []model.FormField) LoginFields {
	var result LoginFields

	for i := range fields {
		if fields[i].IsPassword() && fields[i].Visible() {
			pw := fields[i]
			result.Password = &pw
			break
		}
	}

	for _, s := range usernameStrategies {
		if f, ok := s.match(fields, result.Password); ok {
			result.Username = &f
			result.Strategy = s.name
			break
		}
	}

	return result
}

// DetectInSnapshot runs DetectLoginFields over the scope that most likely
// holds the login form: the form of the first visible password field, or the
// whole document when that field sits outside any form. The returned int is
// the chosen form index.
func DetectInSnapshot(snap model.FormSnapshot) (LoginFields, int) {
	for _, f := range snap.Fields {
		if f.IsPassword() && f.Visible() {
			return DetectLoginFields(snap.InForm(f.Form)), f.Form
		}
	}
	return DetectLoginFields(snap.Fields), model.NoForm
}

// AffordanceTargets lists the fields that should carry an autofill dropdown.
type AffordanceTargets struct {
	Usernames []model.FormField
	Passwords []model.FormField
}

// Refs returns every target ref, usernames first.
func (t AffordanceTargets) Refs() []string {
	refs := make([]string, 0, len(t.Usernames)+len(t.Passwords))
	for _, f := range t.Usernames {
		refs = append(refs, f.Ref)
	}
	for _, f := range t.Passwords {
		refs = append(refs, f.Ref)
	}
	return refs
}

// DetectAffordanceTargets collects autofill targets across the page. Each
// form contributes its detected username and password. Inputs outside any
// form use the page-wide variant: every email or keyword-matching input plus
// every password field. Fields already carrying an affordance are skipped.
func DetectAffordanceTargets(snap model.FormSnapshot) AffordanceTargets {
	var targets AffordanceTargets
	seen := make(map[string]bool)

	add := func(list *[]model.FormField, f model.FormField) {
		if f.Enabled || seen[f.Ref] {
			return
		}
		seen[f.Ref] = true
		*list = append(*list, f)
	}

	for form := 0; form < snap.Forms; form++ {
		detected := DetectLoginFields(snap.InForm(form))
		if detected.Password == nil {
			continue
		}
		if detected.Username != nil {
			add(&targets.Usernames, *detected.Username)
		}
		add(&targets.Passwords, *detected.Password)
	}

	for _, f := range snap.InForm(model.NoForm) {
		if f.Form != model.NoForm || !f.Visible() {
			continue
		}
		switch {
		case f.IsPassword():
			add(&targets.Passwords, f)
		case f.IsEmail(), f.IsTextLike() && hasUsernameKeyword(f):
			add(&targets.Usernames, f)
		}
	}

	return targets
}

// IsLoginButton reports whether f looks like the control that submits a
// login form.
func IsLoginButton(f model.FormField) bool {
	if f.Tag != "button" && !f.IsInput() {
		return false
	}
	if f.Type == "submit" {
		return true
	}
	if f.IsInput() && f.Type != "button" && f.Type != "image" {
		return false
	}

	text := strings.ToLower(f.Text)
	id := strings.ToLower(f.ElementID)
	for _, kw := range loginButtonKeywords {
		if strings.Contains(text, kw) || strings.Contains(id, kw) {
			return true
		}
	}
	return false
}

// FindLoginButton returns the first visible login button among fields.
func FindLoginButton(fields []model.FormField) (model.FormField, bool) {
	for _, f := range fields {
		if f.Visible() && IsLoginButton(f) {
			return f, true
		}
	}
	return model.FormField{}, false
}

func matchEmailType(fields []model.FormField, _ *model.FormField) (model.FormField, bool) {
	for _, f := range fields {
		if f.IsEmail() && f.Visible() {
			return f, true
		}
	}
	return model.FormField{}, false
}

func matchKeyword(fields []model.FormField, _ *model.FormField) (model.FormField, bool) {
	for _, f := range fields {
		if f.IsTextLike() && f.Visible() && hasUsernameKeyword(f) {
			return f, true
		}
	}
	return model.FormField{}, false
}

func matchPrecedesPassword(fields []model.FormField, password *model.FormField) (model.FormField, bool) {
	if password == nil {
		return model.FormField{}, false
	}
	for _, f := range fields {
		if f.Order >= password.Order {
			break
		}
		if f.IsTextLike() && f.Visible() {
			return f, true
		}
	}
	return model.FormField{}, false
}

func matchFirstVisible(fields []model.FormField, _ *model.FormField) (model.FormField, bool) {
	for _, f := range fields {
		if f.IsTextLike() && f.Visible() {
			return f, true
		}
	}
	return model.FormField{}, false
}

func hasUsernameKeyword(f model.FormField) bool {
	for _, attr := range f.Attributes() {
		if attr == "" {
			continue
		}
		for _, kw := range usernameKeywords {
			if strings.Contains(attr, kw) {
				return true
			}
		}
	}
	return false
}
