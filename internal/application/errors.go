package application

import "errors"

var (
	// ErrInvalidCredential indicates a save or edit without a URL, username or password.
	ErrInvalidCredential = errors.New("url, username and password are required")

	// ErrGateMismatch indicates the supplied master password does not match the stored one.
	ErrGateMismatch = errors.New("master password is incorrect")

	// ErrGateTooShort indicates a new master password shorter than MinMasterPasswordLength.
	ErrGateTooShort = errors.New("master password must be at least 6 characters")

	// ErrGateConfirmMismatch indicates the new master password and its confirmation differ.
	ErrGateConfirmMismatch = errors.New("master password confirmation does not match")

	// ErrGateRequired indicates a gated operation was attempted without a master password.
	ErrGateRequired = errors.New("master password required")

	// ErrChannelInvalidated indicates a page agent lost its channel to the coordinator.
	ErrChannelInvalidated = errors.New("message channel invalidated")

	// ErrPageClosed indicates the page an agent observed went away.
	ErrPageClosed = errors.New("page closed")

	// ErrNoBrowser indicates a fill was requested while no browser is attached.
	ErrNoBrowser = errors.New("no browser configured")

	// ErrNoAgent indicates no page agent is running for the requested tab.
	ErrNoAgent = errors.New("no agent attached to tab")
)
