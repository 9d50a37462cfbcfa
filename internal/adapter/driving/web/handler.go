// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/passpanel/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/passpanel/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/passpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/model"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// maxUploadBytes bounds the multipart import body.
const maxUploadBytes = 10 << 20

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	coord    *application.Coordinator
	transfer *application.TransferService
	gate     *application.GateService
	fill     *application.FillOrchestrator
	helpHTML string
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	coord *application.Coordinator,
	transfer *application.TransferService,
	gate *application.GateService,
	fill *application.FillOrchestrator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		coord:    coord,
		transfer: transfer,
		gate:     gate,
		fill:     fill,
		helpHTML: RenderMarkdown(helpMarkdown),
		logger:   logger,
	}
}

// List renders the credential list, filtered by ?q= and with at most one
// password revealed by ?reveal=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := csrfToken(w, r)

	all, err := h.coord.All(r.Context())
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	matches := all
	if keyword := q.Get("q"); keyword != "" {
		matches, err = h.coord.Search(r.Context(), keyword)
		if err != nil {
			h.logger.Error("failed to search credentials", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.render(w, r, http.StatusOK, "Passwords", pages.CredentialList(vm.ListViewModel{
		Rows:             toCredentialRows(matches, q.Get("reveal")),
		Query:            q.Get("q"),
		Total:            len(all),
		BrowserAvailable: h.fill.Available(),
		CSRFToken:        token,
		Flash:            q.Get("msg"),
		Error:            q.Get("err"),
	}))
}

// NewForm renders the empty add form.
func (h *Handler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "Add password", pages.CredentialForm(vm.FormViewModel{
		Title:     "Add password",
		Action:    "/app/credentials",
		Submit:    "Add",
		CSRFToken: csrfToken(w, r),
	}))
}

// Create adds a credential from the form.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input := formInput(r)

	if _, err := h.coord.Create(r.Context(), input); err != nil {
		if errors.Is(err, application.ErrInvalidCredential) {
			h.render(w, r, http.StatusUnprocessableEntity, "Add password", pages.CredentialForm(vm.FormViewModel{
				Title: "Add password", Action: "/app/credentials", Submit: "Add",
				URL: input.URL, LoginURL: input.LoginURL, Username: input.Username,
				CSRFToken: csrfToken(w, r), Error: "Website, username and password are required.",
			}))
			return
		}
		h.logger.Error("failed to create credential", "error", err)
		redirect(w, r, "/", "", "Could not save the password.")
		return
	}

	redirect(w, r, "/", "Password saved.", "")
}

// EditForm renders the edit form for one credential.
func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	cred, err := h.coord.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.notFoundOr500(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "Edit password", pages.CredentialForm(toFormViewModel(cred, csrfToken(w, r))))
}

// Update saves the edit form.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	input := formInput(r)

	if _, err := h.coord.Update(r.Context(), id, input); err != nil {
		var msg string
		switch {
		case errors.Is(err, application.ErrInvalidCredential):
			msg = "Website, username and password are required."
		case errors.Is(err, driven.ErrCredentialConflict):
			msg = "Another saved password already uses this website and username."
		default:
			h.notFoundOr500(w, r, err)
			return
		}

		data := toFormViewModel(model.Credential{ID: id, URL: input.URL, LoginURL: input.LoginURL, Username: input.Username}, csrfToken(w, r))
		data.Error = msg
		h.render(w, r, http.StatusUnprocessableEntity, "Edit password", pages.CredentialForm(data))
		return
	}

	redirect(w, r, "/", "Password updated.", "")
}

// Delete removes one credential.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, driven.ErrCredentialNotFound) {
			redirect(w, r, "/", "", "That password no longer exists.")
			return
		}
		h.logger.Error("failed to delete credential", "error", err)
		redirect(w, r, "/", "", "Could not delete the password.")
		return
	}

	redirect(w, r, "/", "Password deleted.", "")
}

// Login opens the credential's login page in the browser and fills it.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	submit := r.FormValue("submit") != ""

	if err := h.fill.AutoLogin(r.Context(), r.PathValue("id"), submit); err != nil {
		switch {
		case errors.Is(err, application.ErrNoBrowser):
			redirect(w, r, "/", "", "No browser is connected.")
		case errors.Is(err, driven.ErrCredentialNotFound):
			redirect(w, r, "/", "", "That password no longer exists.")
		default:
			h.logger.Warn("auto login failed", "error", err)
			redirect(w, r, "/", "", "Login failed: "+err.Error())
		}
		return
	}

	redirect(w, r, "/", "Login page opened and filled.", "")
}

// TransferPage renders the import and export forms.
func (h *Handler) TransferPage(w http.ResponseWriter, r *http.Request) {
	set, err := h.gate.IsSet(r.Context())
	if err != nil {
		h.logger.Error("failed to read master password state", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	h.render(w, r, http.StatusOK, "Import / Export", pages.Transfer(vm.TransferViewModel{
		GateSet:   set,
		CSRFToken: csrfToken(w, r),
		Flash:     q.Get("msg"),
		Error:     q.Get("err"),
	}))
}

// Export downloads the CSV once the master password, if any, checks out.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.transfer.Export(r.Context(), &buf, r.FormValue("master_password")); err != nil {
		switch {
		case errors.Is(err, application.ErrGateRequired), errors.Is(err, application.ErrGateMismatch):
			redirect(w, r, "/app/transfer", "", "Incorrect master password.")
		default:
			h.logger.Error("failed to export credentials", "error", err)
			redirect(w, r, "/app/transfer", "", "Export failed.")
		}
		return
	}

	filename := fmt.Sprintf("passwords-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(buf.Bytes())
}

// Import reads the uploaded CSV.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	mode, err := application.ParseImportMode(r.FormValue("mode"))
	if err != nil {
		redirect(w, r, "/app/transfer", "", "Unknown import mode.")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		redirect(w, r, "/app/transfer", "", "Choose a CSV file to import.")
		return
	}
	defer file.Close()

	result, err := h.transfer.Import(r.Context(), file, mode)
	if err != nil {
		h.logger.Warn("failed to import credentials", "mode", mode, "error", err)
		redirect(w, r, "/app/transfer", "", "Could not read the file: "+err.Error())
		return
	}

	msg := "Imported " + strconv.Itoa(result.Imported) + " passwords"
	if result.Skipped > 0 {
		msg += ", skipped " + strconv.Itoa(result.Skipped)
	}
	redirect(w, r, "/", msg+".", "")
}

// MasterPasswordPage renders the master password forms.
func (h *Handler) MasterPasswordPage(w http.ResponseWriter, r *http.Request) {
	set, err := h.gate.IsSet(r.Context())
	if err != nil {
		h.logger.Error("failed to read master password state", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	h.render(w, r, http.StatusOK, "Master password", pages.MasterPassword(vm.MasterPasswordViewModel{
		IsSet:     set,
		MinLength: application.MinMasterPasswordLength,
		CSRFToken: csrfToken(w, r),
		Flash:     q.Get("msg"),
		Error:     q.Get("err"),
	}))
}

// SetMasterPassword sets or changes the master password.
func (h *Handler) SetMasterPassword(w http.ResponseWriter, r *http.Request) {
	err := h.gate.Set(r.Context(), r.FormValue("current"), r.FormValue("new"), r.FormValue("confirm"))
	if err != nil {
		redirect(w, r, "/app/master-password", "", h.gateMessage(err))
		return
	}
	redirect(w, r, "/app/master-password", "Master password saved.", "")
}

// RemoveMasterPassword clears the master password.
func (h *Handler) RemoveMasterPassword(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Remove(r.Context(), r.FormValue("current")); err != nil {
		redirect(w, r, "/app/master-password", "", h.gateMessage(err))
		return
	}
	redirect(w, r, "/app/master-password", "Master password removed.", "")
}

// Help renders the embedded help document.
func (h *Handler) Help(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "Help", pages.Help(vm.HelpViewModel{HTML: h.helpHTML}))
}

func (h *Handler) gateMessage(err error) string {
	switch {
	case errors.Is(err, application.ErrGateMismatch):
		return "Current master password is incorrect."
	case errors.Is(err, application.ErrGateTooShort):
		return fmt.Sprintf("Master password must be at least %d characters.", application.MinMasterPasswordLength)
	case errors.Is(err, application.ErrGateConfirmMismatch):
		return "Passwords do not match."
	default:
		h.logger.Error("master password update failed", "error", err)
		return "Could not update the master password."
	}
}

func (h *Handler) notFoundOr500(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, driven.ErrCredentialNotFound) {
		http.NotFound(w, r)
		return
	}
	h.logger.Error("credential lookup failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// render wraps body in the layout and writes it.
// The page is buffered so a render failure can still become a 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	var buf bytes.Buffer
	if err := templates.Layout(title, body).Render(r.Context(), &buf); err != nil {
		h.logger.Error("failed to render page", "title", title, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func formInput(r *http.Request) model.CredentialInput {
	return model.CredentialInput{
		URL:      r.FormValue("url"),
		LoginURL: r.FormValue("login_url"),
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	}
}

// redirect sends a 303 to path carrying a flash or error message.
func redirect(w http.ResponseWriter, r *http.Request, path, msg, errMsg string) {
	q := url.Values{}
	if msg != "" {
		q.Set("msg", msg)
	}
	if errMsg != "" {
		q.Set("err", errMsg)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}
