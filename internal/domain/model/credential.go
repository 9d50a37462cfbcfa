package model

import "time"

// Credential is one saved login in the canonical list. URL holds the site
// origin; LoginURL holds the origin plus path the login form was seen on.
// (URL, Username) identifies a credential; Password is stored as plaintext.
type Credential struct {
	ID        string
	URL       string
	LoginURL  string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// CredentialInput carries the caller-supplied fields for a save or edit.
// LoginURL falls back to URL when empty.
type CredentialInput struct {
	URL      string
	LoginURL string
	Username string
	Password string
}

// EffectiveLoginURL returns LoginURL, or URL when no login URL was recorded.
func (c Credential) EffectiveLoginURL() string {
	if c.LoginURL != "" {
		return c.LoginURL
	}
	return c.URL
}
