// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// CredentialRowViewModel holds presentation-ready data for one row of the list.
type CredentialRowViewModel struct {
	ID        string
	Site      string // Host shown as the row title.
	URL       string
	LoginURL  string
	Username  string
	Password  string // Set only when the row is revealed.
	Masked    string
	Revealed  bool
	CreatedAt string
	UpdatedAt string

	RevealPath string
	EditPath   string
	DeletePath string
	LoginPath  string
}

// ListViewModel holds all data needed to render the credential list page.
type ListViewModel struct {
	Rows             []CredentialRowViewModel
	Query            string
	Total            int
	BrowserAvailable bool
	CSRFToken        string
	Flash            string
	Error            string
}

// FormViewModel holds the add/edit form state.
type FormViewModel struct {
	Title     string
	Action    string // POST target.
	Submit    string // Button label.
	URL       string
	LoginURL  string
	Username  string
	Password  string
	CSRFToken string
	Error     string
}

// TransferViewModel holds the import/export page state.
type TransferViewModel struct {
	GateSet   bool
	CSRFToken string
	Flash     string
	Error     string
}

// MasterPasswordViewModel holds the master password page state.
type MasterPasswordViewModel struct {
	IsSet     bool
	MinLength int
	CSRFToken string
	Flash     string
	Error     string
}

// HelpViewModel holds the rendered help document.
type HelpViewModel struct {
	HTML string
}
