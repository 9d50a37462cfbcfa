package model

import "time"

// PendingCredential is a captured but unconfirmed login awaiting consent.
// At most one exists at a time; staging a new one replaces it.
type PendingCredential struct {
	URL      string
	LoginURL string
	Username string
	Password string
	StagedAt time.Time
}

// Complete reports whether every field the save flow needs is non-empty.
func (p PendingCredential) Complete() bool {
	return p.URL != "" && p.Username != "" && p.Password != ""
}

// Input converts the pending value into a save request.
func (p PendingCredential) Input() CredentialInput {
	return CredentialInput{
		URL:      p.URL,
		LoginURL: p.LoginURL,
		Username: p.Username,
		Password: p.Password,
	}
}
