package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// MessageRequest is the JSON body of the message channel endpoint. Field
// names follow the channel's camelCase protocol.
type MessageRequest struct {
	Action   string          `json:"action"`
	URL      string          `json:"url,omitempty"`
	Data     *PendingPayload `json:"data,omitempty"`
	Username string          `json:"username,omitempty"`
	Password string          `json:"password,omitempty"`
	Submit   bool            `json:"submit,omitempty"`
}

// PendingPayload is a captured login on the message channel.
type PendingPayload struct {
	URL      string `json:"url"`
	LoginURL string `json:"loginUrl,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	StagedAt string `json:"stagedAt,omitempty"`
}

// MessageReply is the JSON reply of the message channel endpoint. A
// successful reply carries only the field its action answers with:
// hasPassword for checkPassword, passwords (never null) for getPasswords and
// data (null when empty) for getPendingPassword.
type MessageReply struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Passwords   []PasswordPayload `json:"passwords,omitempty"`
	HasPassword bool              `json:"hasPassword,omitempty"`
	Data        *PendingPayload   `json:"data,omitempty"`

	action model.Action
}

// MarshalJSON shapes the reply for its action.
func (r MessageReply) MarshalJSON() ([]byte, error) {
	out := map[string]any{"success": r.Success}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Success {
		switch r.action {
		case model.ActionCheckPassword:
			out["hasPassword"] = r.HasPassword
		case model.ActionGetPasswords:
			passwords := r.Passwords
			if passwords == nil {
				passwords = []PasswordPayload{}
			}
			out["passwords"] = passwords
		case model.ActionGetPendingPassword:
			out["data"] = r.Data
		}
	}
	return json.Marshal(out)
}

// PasswordPayload is a saved credential on the message channel.
type PasswordPayload struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	LoginURL  string `json:"loginUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// CredentialResponse is the JSON representation of a saved credential.
type CredentialResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	LoginURL  string `json:"login_url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CredentialRequest is the JSON body for creating or editing a credential.
type CredentialRequest struct {
	URL      string `json:"url"`
	LoginURL string `json:"login_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for the auto-login endpoint.
type LoginRequest struct {
	Submit bool `json:"submit"`
}

// ImportResponse reports the outcome of a CSV import.
type ImportResponse struct {
	Mode     string `json:"mode"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// MasterPasswordResponse reports whether the gate is configured.
type MasterPasswordResponse struct {
	IsSet bool `json:"is_set"`
}

// SetMasterPasswordRequest is the JSON body for setting or changing the gate.
type SetMasterPasswordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
	Confirm string `json:"confirm"`
}

// RemoveMasterPasswordRequest is the JSON body for removing the gate.
type RemoveMasterPasswordRequest struct {
	Current string `json:"current"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Time    string `json:"time"`
	Browser bool   `json:"browser"`
}

// toMessage converts a channel request into a domain message.
func toMessage(req MessageRequest) model.Message {
	msg := model.Message{
		Action:   model.Action(req.Action),
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
		Submit:   req.Submit,
	}
	if req.Data != nil {
		msg.Data = &model.PendingCredential{
			URL:      req.Data.URL,
			LoginURL: req.Data.LoginURL,
			Username: req.Data.Username,
			Password: req.Data.Password,
		}
		if t, err := time.Parse(time.RFC3339Nano, req.Data.StagedAt); err == nil {
			msg.Data.StagedAt = t
		}
	}
	return msg
}

// toMessageReply converts a domain reply into its channel representation.
func toMessageReply(action model.Action, reply model.Reply) MessageReply {
	resp := MessageReply{
		action:      action,
		Success:     reply.Success,
		Error:       reply.Error,
		HasPassword: reply.HasPassword,
	}
	if reply.Passwords != nil {
		resp.Passwords = make([]PasswordPayload, 0, len(reply.Passwords))
		for _, c := range reply.Passwords {
			resp.Passwords = append(resp.Passwords, toPasswordPayload(c))
		}
	}
	if reply.Data != nil {
		resp.Data = &PendingPayload{
			URL:      reply.Data.URL,
			LoginURL: reply.Data.LoginURL,
			Username: reply.Data.Username,
			Password: reply.Data.Password,
			StagedAt: reply.Data.StagedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return resp
}

func toPasswordPayload(c model.Credential) PasswordPayload {
	p := PasswordPayload{
		ID:        c.ID,
		URL:       c.URL,
		LoginURL:  c.EffectiveLoginURL(),
		Username:  c.Username,
		Password:  c.Password,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.UpdatedAt != nil {
		p.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

// toCredentialResponse converts a domain Credential to its JSON response representation.
func toCredentialResponse(c model.Credential) CredentialResponse {
	resp := CredentialResponse{
		ID:        c.ID,
		URL:       c.URL,
		LoginURL:  c.EffectiveLoginURL(),
		Username:  c.Username,
		Password:  c.Password,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.UpdatedAt != nil {
		resp.UpdatedAt = c.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (r CredentialRequest) toInput() model.CredentialInput {
	return model.CredentialInput{
		URL:      r.URL,
		LoginURL: r.LoginURL,
		Username: r.Username,
		Password: r.Password,
	}
}
