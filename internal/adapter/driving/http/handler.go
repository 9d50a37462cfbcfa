package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	router   *application.Router
	coord    *application.Coordinator
	transfer *application.TransferService
	gate     *application.GateService
	fill     *application.FillOrchestrator
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	router *application.Router,
	coord *application.Coordinator,
	transfer *application.TransferService,
	gate *application.GateService,
	fill *application.FillOrchestrator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		router:   router,
		coord:    coord,
		transfer: transfer,
		gate:     gate,
		fill:     fill,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// RegisterRoutes adds the API routes to mux without wrapping it, so the web
// GUI can share one mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/v1/messages", h.Message)

	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.CreateCredential)
	mux.HandleFunc("GET /api/v1/credentials/export", h.ExportCredentials)
	mux.HandleFunc("POST /api/v1/credentials/import", h.ImportCredentials)
	mux.HandleFunc("GET /api/v1/credentials/{id}", h.GetCredential)
	mux.HandleFunc("PUT /api/v1/credentials/{id}", h.UpdateCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.DeleteCredential)
	mux.HandleFunc("POST /api/v1/credentials/{id}/fill", h.FillCredential)
	mux.HandleFunc("POST /api/v1/credentials/{id}/login", h.LoginCredential)

	mux.HandleFunc("GET /api/v1/master-password", h.GetMasterPassword)
	mux.HandleFunc("PUT /api/v1/master-password", h.SetMasterPassword)
	mux.HandleFunc("DELETE /api/v1/master-password", h.RemoveMasterPassword)

	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// Message routes one channel message to the coordinator. Action-level
// failures are part of the reply body, so the status is 200 for any
// well-formed request.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	msg := toMessage(req)
	reply := h.router.Handle(r.Context(), msg)
	writeJSON(w, http.StatusOK, toMessageReply(msg.Action, reply))
}

// ListCredentials returns every credential, or those matching ?q=.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.coord.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCredential returns one credential by id.
func (h *Handler) GetCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := h.coord.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeCredentialError(w, "get", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// CreateCredential adds a credential. Re-adding an existing (url, username)
// updates its password.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.coord.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeCredentialError(w, "create", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(cred))
}

// UpdateCredential edits a credential in place.
func (h *Handler) UpdateCredential(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cred, err := h.coord.Update(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		h.writeCredentialError(w, "update", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// DeleteCredential removes a credential.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeCredentialError(w, "delete", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// FillCredential fills a credential into the active browser tab.
func (h *Handler) FillCredential(w http.ResponseWriter, r *http.Request) {
	if err := h.fill.FillCurrent(r.Context(), r.PathValue("id")); err != nil {
		h.writeCredentialError(w, "fill", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// LoginCredential opens the credential's login page in the active tab and
// fills it, optionally submitting.
func (h *Handler) LoginCredential(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.fill.AutoLogin(r.Context(), r.PathValue("id"), req.Submit); err != nil {
		h.writeCredentialError(w, "login", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Browser: h.fill.Available(),
	})
}

// writeCredentialError maps application errors to status codes.
func (h *Handler) writeCredentialError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidCredential):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "credential not found")
	case errors.Is(err, driven.ErrCredentialConflict):
		writeError(w, http.StatusConflict, "a credential for this site and username already exists")
	case errors.Is(err, application.ErrNoBrowser):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, application.ErrNoAgent), errors.Is(err, application.ErrChannelInvalidated),
		errors.Is(err, application.ErrPageClosed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("credential operation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
