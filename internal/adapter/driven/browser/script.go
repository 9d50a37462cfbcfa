package browser

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/ericfisherdev/passpanel/internal/domain/model"
)

// observerScript installs window.__passpanel in a document. It reports events
// through the exposed binding and never cancels or delays page handlers.
//
//go:embed observer.js
var observerScript string

// bindingName is the window function the observer calls to emit events.
const bindingName = "__passpanel_emit"

// fieldDTO mirrors one entry of the observer's snapshot.
type fieldDTO struct {
	Ref          string  `json:"ref"`
	Tag          string  `json:"tag"`
	Type         string  `json:"type"`
	Name         string  `json:"name"`
	ID           string  `json:"id"`
	Placeholder  string  `json:"placeholder"`
	AriaLabel    string  `json:"ariaLabel"`
	Autocomplete string  `json:"autocomplete"`
	ClassName    string  `json:"className"`
	Value        string  `json:"value"`
	Text         string  `json:"text"`
	Display      string  `json:"display"`
	Visibility   string  `json:"visibility"`
	Opacity      float64 `json:"opacity"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Form         int     `json:"form"`
	Order        int     `json:"order"`
	Enabled      bool    `json:"enabled"`
}

type snapshotDTO struct {
	URL    string     `json:"url"`
	Forms  int        `json:"forms"`
	Fields []fieldDTO `json:"fields"`
}

func (s snapshotDTO) toModel() model.FormSnapshot {
	snap := model.FormSnapshot{
		URL:    s.URL,
		Forms:  s.Forms,
		Fields: make([]model.FormField, 0, len(s.Fields)),
	}
	for _, f := range s.Fields {
		snap.Fields = append(snap.Fields, model.FormField{
			Ref:          f.Ref,
			Tag:          f.Tag,
			Type:         f.Type,
			Name:         f.Name,
			ElementID:    f.ID,
			Placeholder:  f.Placeholder,
			AriaLabel:    f.AriaLabel,
			Autocomplete: f.Autocomplete,
			Class:        f.ClassName,
			Value:        f.Value,
			Text:         f.Text,
			Display:      f.Display,
			Visibility:   f.Visibility,
			Opacity:      f.Opacity,
			Width:        f.Width,
			Height:       f.Height,
			Form:         f.Form,
			Order:        f.Order,
			Enabled:      f.Enabled,
		})
	}
	return snap
}

// eventDTO is the payload the observer passes to the binding.
type eventDTO struct {
	Kind         string       `json:"kind"`
	Form         *int         `json:"form"`
	Target       string       `json:"target"`
	CredentialID string       `json:"credentialId"`
	Confirmed    bool         `json:"confirmed"`
	Snapshot     *snapshotDTO `json:"snapshot"`
}

// decodeEvent converts a raw binding payload into a page event.
func decodeEvent(raw []byte) (model.PageEvent, error) {
	var dto eventDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return model.PageEvent{}, fmt.Errorf("decode page event: %w", err)
	}

	kind := model.PageEventKind(dto.Kind)
	switch kind {
	case model.PageEventLoad, model.PageEventSubmit, model.PageEventClick,
		model.PageEventMutation, model.PageEventPick, model.PageEventPrompt:
	default:
		return model.PageEvent{}, fmt.Errorf("decode page event: unknown kind %q", dto.Kind)
	}

	ev := model.PageEvent{
		Kind:         kind,
		Form:         model.NoForm,
		Target:       dto.Target,
		CredentialID: dto.CredentialID,
		Confirmed:    dto.Confirmed,
	}
	if dto.Form != nil {
		ev.Form = *dto.Form
	}
	if dto.Snapshot != nil {
		snap := dto.Snapshot.toModel()
		ev.Snapshot = &snap
	}
	return ev, nil
}

// optionDTO is one autofill dropdown entry as the observer expects it.
type optionDTO struct {
	CredentialID string `json:"credentialId"`
	Username     string `json:"username"`
	Host         string `json:"host"`
}

func toOptionDTOs(options []model.AffordanceOption) []optionDTO {
	out := make([]optionDTO, 0, len(options))
	for _, o := range options {
		out = append(out, optionDTO{CredentialID: o.CredentialID, Username: o.Username, Host: o.Host})
	}
	return out
}

type promptDTO struct {
	Kind     string `json:"kind"`
	Username string `json:"username"`
	Host     string `json:"host"`
}
