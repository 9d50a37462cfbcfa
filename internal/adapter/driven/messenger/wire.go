package messenger

import (
	"time"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

type requestDTO struct {
	Action   string      `json:"action"`
	URL      string      `json:"url,omitempty"`
	Data     *pendingDTO `json:"data,omitempty"`
	Username string      `json:"username,omitempty"`
	Password string      `json:"password,omitempty"`
	Submit   bool        `json:"submit,omitempty"`
}

type pendingDTO struct {
	URL      string `json:"url"`
	LoginURL string `json:"loginUrl,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	StagedAt string `json:"stagedAt,omitempty"`
}

type passwordDTO struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	LoginURL  string `json:"loginUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type replyDTO struct {
	Success     bool          `json:"success"`
	Error       string        `json:"error"`
	Passwords   []passwordDTO `json:"passwords"`
	HasPassword bool          `json:"hasPassword"`
	Data        *pendingDTO   `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
}

func toRequest(msg model.Message) requestDTO {
	req := requestDTO{
		Action:   string(msg.Action),
		URL:      msg.URL,
		Username: msg.Username,
		Password: msg.Password,
		Submit:   msg.Submit,
	}
	if msg.Data != nil {
		req.Data = &pendingDTO{
			URL:      msg.Data.URL,
			LoginURL: msg.Data.LoginURL,
			Username: msg.Data.Username,
			Password: msg.Data.Password,
		}
		if !msg.Data.StagedAt.IsZero() {
			req.Data.StagedAt = msg.Data.StagedAt.UTC().Format(time.RFC3339Nano)
		}
	}
	return req
}

func (r replyDTO) toModel() model.Reply {
	reply := model.Reply{
		Success:     r.Success,
		Error:       r.Error,
		HasPassword: r.HasPassword,
	}
	if r.Passwords != nil {
		reply.Passwords = make([]model.Credential, 0, len(r.Passwords))
		for _, p := range r.Passwords {
			reply.Passwords = append(reply.Passwords, p.toModel())
		}
	}
	if r.Data != nil {
		reply.Data = &model.PendingCredential{
			URL:      r.Data.URL,
			LoginURL: r.Data.LoginURL,
			Username: r.Data.Username,
			Password: r.Data.Password,
			StagedAt: parseTime(r.Data.StagedAt),
		}
	}
	return reply
}

func (p passwordDTO) toModel() model.Credential {
	c := model.Credential{
		ID:        p.ID,
		URL:       p.URL,
		LoginURL:  p.LoginURL,
		Username:  p.Username,
		Password:  p.Password,
		CreatedAt: parseTime(p.CreatedAt),
	}
	if p.UpdatedAt != "" {
		t := parseTime(p.UpdatedAt)
		c.UpdatedAt = &t
	}
	return c
}

// parseTime accepts RFC3339 with or without fractional seconds; anything
// else yields the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
