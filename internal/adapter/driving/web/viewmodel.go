package web

import (
	"strings"
	"time"

	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

const displayTimeLayout = "2006-01-02 15:04"

// toCredentialRow converts a domain Credential to a list row. The password
// is carried only for the revealed row.
func toCredentialRow(c model.Credential, revealed bool) vm.CredentialRowViewModel {
	row := vm.CredentialRowViewModel{
		ID:         c.ID,
		Site:       application.Hostname(c.URL),
		URL:        c.URL,
		LoginURL:   c.EffectiveLoginURL(),
		Username:   c.Username,
		Masked:     maskPassword(c.Password),
		Revealed:   revealed,
		CreatedAt:  formatDisplayTime(c.CreatedAt),
		RevealPath: "/?reveal=" + c.ID,
		EditPath:   "/app/credentials/" + c.ID + "/edit",
		DeletePath: "/app/credentials/" + c.ID + "/delete",
		LoginPath:  "/app/credentials/" + c.ID + "/login",
	}
	if revealed {
		row.Password = c.Password
	}
	if c.UpdatedAt != nil {
		row.UpdatedAt = formatDisplayTime(*c.UpdatedAt)
	}
	return row
}

// toCredentialRows converts a list, revealing at most the row whose id
// matches reveal.
func toCredentialRows(creds []model.Credential, reveal string) []vm.CredentialRowViewModel {
	rows := make([]vm.CredentialRowViewModel, 0, len(creds))
	for _, c := range creds {
		rows = append(rows, toCredentialRow(c, reveal != "" && c.ID == reveal))
	}
	return rows
}

// maskPassword hides every character, capped so long passwords do not
// stretch the table.
func maskPassword(p string) string {
	const maxMask = 12
	n := len([]rune(p))
	if n > maxMask {
		n = maxMask
	}
	return strings.Repeat("•", n)
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(displayTimeLayout)
}

// toFormViewModel prefills the edit form from a credential.
func toFormViewModel(c model.Credential, csrf string) vm.FormViewModel {
	return vm.FormViewModel{
		Title:     "Edit password",
		Action:    "/app/credentials/" + c.ID,
		Submit:    "Save changes",
		URL:       c.URL,
		LoginURL:  c.EffectiveLoginURL(),
		Username:  c.Username,
		Password:  c.Password,
		CSRFToken: csrf,
	}
}
