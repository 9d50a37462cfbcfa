package model

// Action names a request on the message channel between page agents and the
// coordinator.
type Action string

const (
	ActionSavePassword         Action = "savePassword"
	ActionGetPasswords         Action = "getPasswords"
	ActionCheckPassword        Action = "checkPassword"
	ActionSavePendingPassword  Action = "savePendingPassword"
	ActionGetPendingPassword   Action = "getPendingPassword"
	ActionClearPendingPassword Action = "clearPendingPassword"
	ActionPing                 Action = "ping"

	// ActionAutoFillLogin is addressed to a page agent, not the coordinator.
	ActionAutoFillLogin Action = "autoFillLogin"
)

// Message is one request on the channel. Only the fields the action needs
// are set.
type Message struct {
	Action   Action
	URL      string
	Data     *PendingCredential
	Username string
	Password string
	Submit   bool
}

// Reply is the paired response to a Message. Success is false whenever
// Error is set.
type Reply struct {
	Success     bool
	Error       string
	Passwords   []Credential
	HasPassword bool
	Data        *PendingCredential
}

// Failure builds an unsuccessful reply carrying err's message.
func Failure(err error) Reply {
	return Reply{Success: false, Error: err.Error()}
}
