package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/passpanel/internal/application"
)

// maxImportBytes bounds the CSV body accepted by the import endpoint.
const maxImportBytes = 10 << 20

// ExportCredentials streams every credential as CSV. When a master password
// is set it must be sent in the X-Master-Password header.
func (h *Handler) ExportCredentials(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := h.transfer.Export(r.Context(), &buf, r.Header.Get("X-Master-Password"))
	if err != nil {
		h.writeGateError(w, "export", err)
		return
	}

	filename := fmt.Sprintf("passwords-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Credential-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ImportCredentials reads a CSV body and merges or replaces the list
// according to ?mode= (merge by default).
func (h *Handler) ImportCredentials(w http.ResponseWriter, r *http.Request) {
	mode, err := application.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.transfer.Import(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes), mode)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "import file too large")
			return
		}
		h.logger.Error("failed to import credentials", "mode", mode, "error", err)
		writeError(w, http.StatusBadRequest, "could not import file")
		return
	}

	h.logger.Info("credentials imported", "mode", mode, "imported", result.Imported, "skipped", result.Skipped)
	writeJSON(w, http.StatusOK, ImportResponse{
		Mode:     string(mode),
		Imported: result.Imported,
		Skipped:  result.Skipped,
	})
}

// GetMasterPassword reports whether a master password is configured.
func (h *Handler) GetMasterPassword(w http.ResponseWriter, r *http.Request) {
	set, err := h.gate.IsSet(r.Context())
	if err != nil {
		h.logger.Error("failed to read master password state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, MasterPasswordResponse{IsSet: set})
}

// SetMasterPassword sets or changes the master password.
func (h *Handler) SetMasterPassword(w http.ResponseWriter, r *http.Request) {
	var req SetMasterPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gate.Set(r.Context(), req.Current, req.New, req.Confirm); err != nil {
		h.writeGateError(w, "set master password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMasterPassword clears the master password after checking the current one.
func (h *Handler) RemoveMasterPassword(w http.ResponseWriter, r *http.Request) {
	var req RemoveMasterPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gate.Remove(r.Context(), req.Current); err != nil {
		h.writeGateError(w, "remove master password", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeGateError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, application.ErrGateRequired), errors.Is(err, application.ErrGateMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, application.ErrGateTooShort), errors.Is(err, application.ErrGateConfirmMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("master password operation failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
