package model

// PageEventKind identifies what the in-page observer reported.
type PageEventKind string

const (
	PageEventLoad     PageEventKind = "load"
	PageEventSubmit   PageEventKind = "submit"
	PageEventClick    PageEventKind = "click"
	PageEventMutation PageEventKind = "mutation"
	PageEventPick     PageEventKind = "pick"
	PageEventPrompt   PageEventKind = "prompt"
)

// PageEvent is one observation sent from the page to its agent. Submit and
// click events carry a snapshot taken before the page's own handlers ran.
type PageEvent struct {
	Kind PageEventKind

	Form     int    // Submit: index of the submitted form.
	Target   string // Click: ref of the clicked element. Pick: ref of the focused field.
	Snapshot *FormSnapshot

	CredentialID string // Pick: chosen credential.
	Confirmed    bool   // Prompt: true for save/update, false for cancel.
}

// PromptKind distinguishes a first-time save from a password change.
type PromptKind string

const (
	PromptSave   PromptKind = "save"
	PromptUpdate PromptKind = "update"
)

// Prompt is the transient consent UI shown for a pending credential.
type Prompt struct {
	Kind     PromptKind
	Username string
	Host     string
}

// AffordanceOption is one entry in an autofill dropdown.
type AffordanceOption struct {
	CredentialID string
	Username     string
	Host         string
}
