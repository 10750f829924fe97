package core

import (
	"errors"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

// Error codes for domain errors.
const (
	ErrCodeUnknownCommand = "unknown_command"
	ErrCodeUsernameEmpty  = "username_empty"
	ErrCodeUsernameExists = "username_exists"
)

var (
	// ErrHubClosed is returned by Hub operations once Run has returned.
	ErrHubClosed = errors.New("hub closed")
)

// CoreError wraps a code and the protocol line shown to the sender.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func errUnknownCommand(verb string) *CoreError {
	return coreError(ErrCodeUnknownCommand, proto.UnknownCommand(verb))
}

var (
	errUsernameEmpty  = coreError(ErrCodeUsernameEmpty, proto.UserNameEmpty)
	errUsernameExists = coreError(ErrCodeUsernameExists, proto.UserNameExist)
)
